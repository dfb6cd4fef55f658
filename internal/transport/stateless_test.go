// ABOUTME: Tests for the stateless transport manager's one-shot handling.
// ABOUTME: Validates per-request instances, guaranteed disposal, and error responses.

package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatelessFixture(t *testing.T) (*StatelessManager, *fakeFactory) {
	t.Helper()
	factory := &fakeFactory{}
	return NewStatelessManager(factory.New, testLogger()), factory
}

func TestStatelessManager_FreshHandlerPerRequest(t *testing.T) {
	m, factory := newStatelessFixture(t)

	// Even an identical client-supplied session id shares nothing server-side
	ctx := WithScope(context.Background(), Scope{SessionID: "client-claims-this"})

	resp1, err := m.HandleRequest(ctx, callBody)
	require.NoError(t, err)
	resp2, err := m.HandleRequest(ctx, callBody)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp1.Status)
	assert.Equal(t, http.StatusOK, resp2.Status)
	assert.Equal(t, 2, factory.count(), "each request constructs its own handler")
	assert.Equal(t, 1, factory.handler(0).handledCount())
	assert.Equal(t, 1, factory.handler(1).handledCount())
	assert.Equal(t, int32(1), factory.handler(0).closes.Load())
	assert.Equal(t, int32(1), factory.handler(1).closes.Load())
}

func TestStatelessManager_EchoesSuppliedSessionID(t *testing.T) {
	m, _ := newStatelessFixture(t)

	ctx := WithScope(context.Background(), Scope{SessionID: "echo-me"})
	resp, err := m.HandleRequest(ctx, callBody)
	require.NoError(t, err)

	// Pass-through only: echoed, never registered
	assert.Equal(t, "echo-me", resp.SessionID)
}

func TestStatelessManager_InitializeIsOneShot(t *testing.T) {
	m, factory := newStatelessFixture(t)

	resp, err := m.HandleRequest(context.Background(), initBody)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.SessionID)
	assert.Equal(t, int32(1), factory.handler(0).closes.Load(), "instance disposed even after initialize")
}

func TestStatelessManager_Notification(t *testing.T) {
	m, _ := newStatelessFixture(t)

	resp, err := m.HandleRequest(context.Background(), noteBody)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Nil(t, resp.Body)
}

func TestStatelessManager_FactoryFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("no handler for you")}
	m := NewStatelessManager(factory.New, testLogger())

	resp, err := m.HandleRequest(context.Background(), callBody)
	require.NoError(t, err, "stateless failures surface as responses, not errors")

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	body := marshalBody(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(CodeInternalError), errObj["code"])
}

func TestStatelessManager_HandlerFailureStillDisposes(t *testing.T) {
	m, factory := newStatelessFixture(t)

	factory.nextConfig(func(h *fakeHandler) {
		h.handleFunc = func(ctx context.Context, body []byte) (any, error) {
			return nil, errors.New("downstream fault")
		}
	})

	resp, err := m.HandleRequest(context.Background(), callBody)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, int32(1), factory.handler(0).closes.Load(), "failed request must not leak the instance")
}

func TestStatelessManager_PanicStillDisposes(t *testing.T) {
	m, factory := newStatelessFixture(t)

	factory.nextConfig(func(h *fakeHandler) {
		h.handleFunc = func(ctx context.Context, body []byte) (any, error) {
			panic("one-shot panic")
		}
	})

	resp, err := m.HandleRequest(context.Background(), callBody)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, int32(1), factory.handler(0).closes.Load())
}
