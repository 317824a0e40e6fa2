package flowise

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onurcolak/whatsapp-copilot/environments"
)

func newTestServer(t *testing.T, status int, body string) (*Client, *predictionRequest) {
	t.Helper()

	var got predictionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewClient(environments.FlowiseConfig{URL: srv.URL, Timeout: 2 * time.Second}), &got
}

func TestPredict_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level text", `{"text":"Hi there"}`, "Hi there"},
		{"assistant plain text", `{"assistant":{"messages":[{"content":[{"text":"Plain"}]}]}}`, "Plain"},
		{"assistant value text", `{"assistant":{"messages":[{"content":[{"text":{"value":"Nested"}}]}]}}`, "Nested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := newTestServer(t, http.StatusOK, tt.body)

			answer, err := c.Predict(context.Background(), "hello", "254712345678")
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer)
			assert.Equal(t, "hello", got.Question)
			assert.Equal(t, "254712345678", got.ChatID)
		})
	}
}

func TestAsk_FallsBackWhenNoAnswer(t *testing.T) {
	for _, body := range []string{`{}`, `{"assistant":{"messages":[]}}`, `{"assistant":{"messages":[{"content":[]}]}}`} {
		c, _ := newTestServer(t, http.StatusOK, body)
		assert.Equal(t, MsgUnprocessable, c.Ask(context.Background(), "q", "chat"), body)
	}
}

func TestAsk_FallsBackOnServerError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusInternalServerError, `{"error":"boom"}`)

	assert.Equal(t, MsgUnavailable, c.Ask(context.Background(), "q", "chat"))
}

func TestAsk_FallsBackOnTransportError(t *testing.T) {
	c := NewClient(environments.FlowiseConfig{URL: "http://127.0.0.1:1", Timeout: time.Second})

	assert.Equal(t, MsgUnavailable, c.Ask(context.Background(), "q", "chat"))
}
