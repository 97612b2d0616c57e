package translator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/test"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTranslator(backend providers.Backend, opts Options) *Translator {
	if opts.Model == "" {
		opts.Model = config.DefaultModel
	}
	if opts.TargetLang == "" {
		opts.TargetLang = "zh"
	}
	return New(backend, config.DefaultLanguages(), opts, zap.NewNop())
}

func TestTranslateSuccess(t *testing.T) {
	backend := new(test.MockBackend)
	backend.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.ChatRequest) bool {
		return req.Model == config.DefaultModel &&
			req.Temperature == float32(config.DefaultTemperature) &&
			req.MaxTokens == config.DefaultMaxTokens &&
			req.N == 1 &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == providers.RoleSystem &&
			req.Messages[1].Content == "Hello"
	})).Return("  你好 \n", nil).Once()

	ticks := 0
	tr := newTranslator(backend, Options{})
	out := tr.Translate(context.Background(), "Hello", func() { ticks++ })

	assert.Equal(t, "你好", out.Text)
	assert.True(t, out.Translated)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, ticks)
	backend.AssertExpectations(t)
}

func TestTranslateEmptySkipsBackend(t *testing.T) {
	backend := new(test.MockBackend)
	tr := newTranslator(backend, Options{})

	ticks := 0
	for _, in := range []string{"", "   ", "\n\t"} {
		out := tr.Translate(context.Background(), in, func() { ticks++ })
		assert.Equal(t, in, out.Text)
		assert.False(t, out.Translated)
	}

	assert.Equal(t, 0, ticks)
	backend.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestTranslateFailureFallsBack(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind providers.ErrorKind
	}{
		{"network", providers.NewError(providers.KindNetwork, errors.New("connection refused")), providers.KindNetwork},
		{"auth", providers.NewStatusError(http.StatusUnauthorized, errors.New("bad key")), providers.KindAuth},
		{"timeout", context.DeadlineExceeded, providers.KindTimeout},
		{"other", errors.New("boom"), providers.KindOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := new(test.MockBackend)
			backend.On("Complete", mock.Anything, mock.Anything).Return("", tc.err).Once()

			ticks := 0
			out := newTranslator(backend, Options{}).Translate(context.Background(), "Keep me", func() { ticks++ })

			assert.Equal(t, "Keep me", out.Text)
			assert.False(t, out.Translated)
			assert.Equal(t, tc.kind, out.Failure)
			assert.ErrorIs(t, out.Err, tc.err)
			assert.Equal(t, 1, ticks)
		})
	}
}

func TestTranslateEmptyCompletionFallsBack(t *testing.T) {
	backend := test.FuncBackend(func(context.Context, providers.ChatRequest) (string, error) {
		return "<think>only thoughts</think>  ", nil
	})

	out := newTranslator(backend, Options{FilterReasoning: true}).Translate(context.Background(), "Source", nil)
	assert.Equal(t, "Source", out.Text)
	assert.Equal(t, providers.KindMalformed, out.Failure)
	assert.ErrorIs(t, out.Err, ErrEmptyCompletion)
}

func TestTranslateFiltersReasoning(t *testing.T) {
	backend := test.FuncBackend(func(context.Context, providers.ChatRequest) (string, error) {
		return "<think>\nplan the answer\n</think>\nBonjour", nil
	})

	out := newTranslator(backend, Options{FilterReasoning: true}).Translate(context.Background(), "Hello", nil)
	assert.Equal(t, "Bonjour", out.Text)

	out = newTranslator(backend, Options{}).Translate(context.Background(), "Hello", nil)
	assert.Contains(t, out.Text, "plan the answer")
}

func TestSystemPrompt(t *testing.T) {
	backend := new(test.MockBackend)

	tr := newTranslator(backend, Options{TargetLang: "ja"})
	assert.Contains(t, tr.SystemPrompt(), "Translate the following text to Japanese.")

	tr = newTranslator(backend, Options{TargetLang: "pt-BR"})
	assert.Contains(t, tr.SystemPrompt(), "to pt-BR.")

	tr = newTranslator(backend, Options{TargetLang: "fr", Prompt: "Poetic {target_language} please"})
	assert.Equal(t, "Poetic French please", tr.SystemPrompt())
}

func TestTranslateAgainstMockServer(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	server.SetResponder(func(user string) (string, int) {
		if user == "fail" {
			return "limited", http.StatusTooManyRequests
		}
		return "[T] " + user, http.StatusOK
	})

	base := providers.DefaultConfig()
	base.APIKey = "sk-test"
	base.APIEndpoint = server.URL
	base.Timeout = 5 * time.Second
	cfg := openai.DefaultConfig()
	cfg.BaseConfig = base

	tr := newTranslator(openai.New(cfg), Options{TargetLang: "de"})

	out := tr.Translate(context.Background(), "Hello", nil)
	require.True(t, out.Translated)
	assert.Equal(t, "[T] Hello", out.Text)

	out = tr.Translate(context.Background(), "fail", nil)
	assert.False(t, out.Translated)
	assert.Equal(t, "fail", out.Text)
	assert.Equal(t, providers.KindRateLimit, out.Failure)

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[0].System(), "German")
}

func TestRemoveReasoning(t *testing.T) {
	assert.Equal(t, "answer", RemoveReasoning("<thinking>a\nb</thinking>answer"))
	assert.Equal(t, "x  y", RemoveReasoning("x <reasoning>r</reasoning> y"))
	// 标签不匹配时不移除
	assert.Equal(t, "<think>a</thought>b", RemoveReasoning("<think>a</thought>b"))
	assert.Equal(t, "plain", RemoveReasoning("plain"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b", snippet("a\n  b"))
	assert.Equal(t, snippetWidth, runewidth.StringWidth(snippet(strings.Repeat("x", 100))))
	assert.LessOrEqual(t, runewidth.StringWidth(snippet(strings.Repeat("中文", 50))), snippetWidth)
	assert.True(t, strings.HasSuffix(snippet(strings.Repeat("中文", 50)), "..."))
}

func TestTemperatureZeroMeansDefault(t *testing.T) {
	var got []float32
	backend := test.FuncBackend(func(ctx context.Context, req providers.ChatRequest) (string, error) {
		got = append(got, req.Temperature)
		return "ok", nil
	})

	newTranslator(backend, Options{Temperature: 0.7}).Translate(context.Background(), "a", nil)
	newTranslator(backend, Options{Temperature: 0}).Translate(context.Background(), "b", nil)

	require.Len(t, got, 2)
	assert.Equal(t, float32(0.7), got[0])
	assert.Equal(t, float32(config.DefaultTemperature), got[1])
}

