package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/nerdneilsfield/epub-translator/internal/test"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatRequest(text string) providers.ChatRequest {
	return providers.ChatRequest{
		Model: "gpt-3.5-turbo",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Translate to Chinese."},
			{Role: providers.RoleUser, Content: text},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
		N:           1,
	}
}

func backends(server *test.MockOpenAIServer) map[string]interface {
	providers.Backend
	providers.ModelLister
} {
	base := providers.DefaultConfig()
	base.APIKey = "sk-test"
	base.APIEndpoint = server.URL + "/"
	base.Timeout = 5 * time.Second

	cfg := DefaultConfig()
	cfg.BaseConfig = base

	return map[string]interface {
		providers.Backend
		providers.ModelLister
	}{
		"go-openai": New(cfg),
		"official":  NewOfficial(base),
	}
}

func TestComplete(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	server.SetResponder(func(user string) (string, int) {
		return "[zh] " + user, http.StatusOK
	})

	for name, backend := range backends(server) {
		t.Run(name, func(t *testing.T) {
			out, err := backend.Complete(context.Background(), newChatRequest("Hello"))
			require.NoError(t, err)
			assert.Equal(t, "[zh] Hello", out)
		})
	}

	requests := server.Requests()
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.InDelta(t, 0.3, req.Temperature, 1e-6)
		assert.Equal(t, 2000, req.MaxTokens)
		assert.Equal(t, 1, req.N)
		assert.Equal(t, "Translate to Chinese.", req.System())
		assert.Equal(t, "Hello", req.User())
	}
}

func TestCompleteErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		kind   providers.ErrorKind
	}{
		{http.StatusUnauthorized, providers.KindAuth},
		{http.StatusTooManyRequests, providers.KindRateLimit},
		{http.StatusBadRequest, providers.KindOther},
	}

	for _, tc := range cases {
		server := test.NewMockOpenAIServer(t)
		server.SetStatus(tc.status)

		for name, backend := range backends(server) {
			t.Run(name+"/"+http.StatusText(tc.status), func(t *testing.T) {
				_, err := backend.Complete(context.Background(), newChatRequest("Hello"))
				require.Error(t, err)

				var perr *providers.Error
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tc.kind, perr.Kind)
				assert.Equal(t, tc.status, perr.StatusCode)
			})
		}
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	server.SetDelay(500 * time.Millisecond)

	for name, backend := range backends(server) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := backend.Complete(ctx, newChatRequest("Hello"))
			require.Error(t, err)
			assert.Equal(t, providers.KindTimeout, providers.Classify(err))
		})
	}
}

func TestCompleteNetworkError(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	all := backends(server)
	server.Server.Close()

	for name, backend := range all {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Complete(context.Background(), newChatRequest("Hello"))
			require.Error(t, err)
			assert.Equal(t, providers.KindNetwork, providers.Classify(err))
		})
	}
}

func TestListModels(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	server.Models = []string{"gpt-4o", "gpt-4o-mini"}

	for name, backend := range backends(server) {
		t.Run(name, func(t *testing.T) {
			models, err := backend.ListModels(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
		})
	}
}
