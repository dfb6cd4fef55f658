// ABOUTME: Shared test fakes plus tests for classification, scopes, and error shapes.
// ABOUTME: The fake handler counts constructions and disposals for ownership checks.

package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	initBody = []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	callBody = []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	noteBody = []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHandler implements Handler. The default behavior marks itself
// initialized on an initialize message, replies to requests, and stays
// silent on notifications.
type fakeHandler struct {
	initialized atomic.Bool
	closes      atomic.Int32
	handleFunc  func(ctx context.Context, body []byte) (any, error)

	mu     sync.Mutex
	bodies [][]byte
}

func (h *fakeHandler) Handle(ctx context.Context, body []byte) (any, error) {
	h.mu.Lock()
	h.bodies = append(h.bodies, body)
	h.mu.Unlock()

	if h.handleFunc != nil {
		return h.handleFunc(ctx, body)
	}

	var probe struct {
		Method string `json:"method"`
		ID     any    `json:"id"`
	}
	_ = json.Unmarshal(body, &probe)
	if probe.Method == "initialize" {
		h.initialized.Store(true)
	}
	if probe.ID == nil {
		return nil, nil
	}
	return map[string]any{"jsonrpc": "2.0", "id": probe.ID, "result": map[string]any{}}, nil
}

func (h *fakeHandler) Initialized() bool { return h.initialized.Load() }

func (h *fakeHandler) Close() error {
	h.closes.Add(1)
	return nil
}

func (h *fakeHandler) handledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bodies)
}

// fakeFactory builds fakeHandlers and remembers every instance it made.
type fakeFactory struct {
	mu      sync.Mutex
	made    []*fakeHandler
	err     error
	configs []func(*fakeHandler)
}

func (f *fakeFactory) New(ctx context.Context) (Handler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandler{}
	if len(f.configs) > 0 {
		f.configs[0](h)
		f.configs = f.configs[1:]
	}
	f.made = append(f.made, h)
	return h, nil
}

// nextConfig queues a configuration applied to the next handler constructed.
func (f *fakeFactory) nextConfig(fn func(*fakeHandler)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, fn)
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made)
}

func (f *fakeFactory) handler(i int) *fakeHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made[i]
}

// marshalBody round-trips a Response body the way the HTTP layer would.
func marshalBody(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	data, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		sessionID string
		want      Request
	}{
		{"initialize without session", initBody, "", InitializeRequest{}},
		{"initialize with session", initBody, "sess-1", InitializeRequest{}},
		{"call with session", callBody, "sess-1", SessionedRequest{SessionID: "sess-1"}},
		{"call without session", callBody, "", AnonymousRequest{}},
		{"notification with session", noteBody, "sess-1", SessionedRequest{SessionID: "sess-1"}},
		{"malformed with session", []byte(`{`), "sess-1", SessionedRequest{SessionID: "sess-1"}},
		{"malformed without session", []byte(`{`), "", AnonymousRequest{}},
		{"batch without session", []byte(`[{"method":"initialize"}]`), "", AnonymousRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.body, tt.sessionID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSupportedProtocolVersion(t *testing.T) {
	for _, v := range SupportedProtocolVersions {
		assert.True(t, IsSupportedProtocolVersion(v), v)
	}
	assert.True(t, IsSupportedProtocolVersion(DefaultProtocolVersion))
	assert.False(t, IsSupportedProtocolVersion("1999-01-01"))
	assert.False(t, IsSupportedProtocolVersion(""))
}

func TestNewErrorResponse_NullID(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, CodeInvalidRequest, "bad", nil)

	data, err := json.Marshal(resp.Body)
	require.NoError(t, err)

	// The id member must be present and literally null
	assert.Contains(t, string(data), `"id":null`)

	body := marshalBody(t, resp)
	assert.Equal(t, "2.0", body["jsonrpc"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(CodeInvalidRequest), errObj["code"])
	assert.Equal(t, "bad", errObj["message"])
}

func TestSessionNotFound_Shape(t *testing.T) {
	resp := SessionNotFound()
	assert.Equal(t, http.StatusNotFound, resp.Status)

	body := marshalBody(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, float64(CodeSessionNotFound), errObj["code"])
	assert.Equal(t, "Session expired or invalid. Please reinitialize.", errObj["message"])
}

func TestUnsupportedVersion_Shape(t *testing.T) {
	resp := UnsupportedVersion("1999-01-01")
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	body := marshalBody(t, resp)
	errObj := body["error"].(map[string]any)
	data := errObj["data"].(map[string]any)
	assert.Equal(t, "1999-01-01", data["requested"])

	supported := data["supported"].([]any)
	require.Len(t, supported, len(SupportedProtocolVersions))
	for i, v := range SupportedProtocolVersions {
		assert.Equal(t, v, supported[i])
	}
}

func TestScope_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// Absent scope yields the zero value
	assert.Equal(t, Scope{}, ScopeFrom(ctx))

	s := Scope{RequestID: "req-1", SessionID: "sess-1", ClientID: "client-a", TenantID: "tenant-x"}
	ctx = WithScope(ctx, s)
	assert.Equal(t, s, ScopeFrom(ctx))

	// Copy-extension replaces the value without mutating the original
	s2 := s
	s2.SessionID = "sess-2"
	ctx2 := WithScope(ctx, s2)
	assert.Equal(t, "sess-2", ScopeFrom(ctx2).SessionID)
	assert.Equal(t, "sess-1", ScopeFrom(ctx).SessionID)
}
