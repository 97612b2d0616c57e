package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerdneilsfield/epub-translator/internal/test"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(text string) providers.ChatRequest {
	return providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "sys"},
			{Role: providers.RoleUser, Content: text},
		},
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	backend := test.FuncBackend(func(ctx context.Context, req providers.ChatRequest) (string, error) {
		switch test.UserText(req) {
		case "auth":
			return "", providers.NewStatusError(401, errors.New("bad key"))
		case "slow":
			return "", context.DeadlineExceeded
		default:
			return "你好", nil
		}
	})

	m := Wrap(backend)

	// 固定时钟，每次调用前进 10ms
	var clock time.Time
	m.now = func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}

	text, err := m.Complete(context.Background(), request("hello"))
	require.NoError(t, err)
	assert.Equal(t, "你好", text)

	_, err = m.Complete(context.Background(), request("auth"))
	assert.Error(t, err)
	_, err = m.Complete(context.Background(), request("slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s := m.Snapshot()
	assert.Equal(t, 3, s.Requests)
	assert.Equal(t, 1, s.Successes)
	assert.Equal(t, 2, s.Failed())
	assert.Equal(t, 1, s.Failures[providers.KindAuth])
	assert.Equal(t, 1, s.Failures[providers.KindTimeout])
	assert.Equal(t, 30*time.Millisecond, s.TotalLatency)
	assert.Equal(t, 10*time.Millisecond, s.AverageLatency())
	assert.Equal(t, 10*time.Millisecond, s.MaxLatency)
	assert.Equal(t, 3+5+3+4+3+4, s.InputChars)
	assert.Equal(t, 2, s.OutputChars)
	assert.InDelta(t, 1.0/3.0, s.SuccessRate(), 1e-9)
}

func TestSnapshotIsCopy(t *testing.T) {
	m := Wrap(test.FuncBackend(func(ctx context.Context, req providers.ChatRequest) (string, error) {
		return "", errors.New("boom")
	}))

	_, _ = m.Complete(context.Background(), request("x"))
	s := m.Snapshot()
	s.Failures[providers.KindOther] = 100

	assert.Equal(t, 1, m.Snapshot().Failures[providers.KindOther])
}

func TestEmptySnapshot(t *testing.T) {
	s := Wrap(&test.MockBackend{}).Snapshot()
	assert.Zero(t, s.Requests)
	assert.Zero(t, s.AverageLatency())
	assert.Zero(t, s.SuccessRate())
	assert.Zero(t, s.Failed())
}
