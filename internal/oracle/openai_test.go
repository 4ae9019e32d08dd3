package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer answers chat completions with reply and keeps each
// request body.
func completionServer(t *testing.T, reply string) (*httptest.Server, func() []map[string]any) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	return srv, func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		return append([]map[string]any(nil), bodies...)
	}
}

func TestOpenAIRequestsJSONMode(t *testing.T) {
	srv, bodies := completionServer(t, `{"relevant":true}`)
	o, err := NewOpenAI("key", srv.URL+"/", "test-model")
	require.NoError(t, err)

	got, err := o.Complete(context.Background(), Request{System: "extract", Prompt: "order 20 crates", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"relevant":true}`, got)

	_, err = o.Complete(context.Background(), Request{Prompt: "write a draft"})
	require.NoError(t, err)

	sent := bodies()
	require.Len(t, sent, 2)
	assert.Equal(t, map[string]any{"type": "json_object"}, sent[0]["response_format"])
	assert.Equal(t, "test-model", sent[0]["model"])
	assert.Len(t, sent[0]["messages"], 2)
	assert.NotContains(t, sent[1], "response_format")
	assert.Len(t, sent[1]["messages"], 1)
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "", "")
	assert.Error(t, err)
}
