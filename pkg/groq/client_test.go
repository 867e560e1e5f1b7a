package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]string{"content": content}}},
	})
	return string(b)
}

func TestClient_CompleteJSON(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(reply("Sure! ```json\n{\"title\": \"Lamp\", \"price\": 20,}\n```")))
	}))
	defer srv.Close()

	c := NewClient("key-1", "llama-3.1-8b-instant", WithBaseURL(srv.URL))
	out, err := c.CompleteJSON(context.Background(), "describe", 0.2)
	require.NoError(t, err)

	assert.JSONEq(t, `{"title":"Lamp","price":20}`, out)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "describe", got.Messages[1].Content)
}

func TestClient_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := NewClient("", "m").Complete(context.Background(), "s", "p", 0)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewClient("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), "s", "p", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := NewClient("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), "s", "p", 0)
		assert.Error(t, err)
	})

	t.Run("reply without json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(reply("I cannot help with that.")))
		}))
		defer srv.Close()

		_, err := NewClient("k", "m", WithBaseURL(srv.URL)).CompleteJSON(context.Background(), "p", 0)
		assert.Error(t, err)
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Here you go: {"a":{"b":"}"}} hope it helps`, `{"a":{"b":"}"}}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"bare keys", `{a: "x", b_c: 2}`, `{"a": "x","b_c": 2}`},
		{"colon inside value untouched", `{"d":"Great, value: high"}`, `{"d":"Great, value: high"}`},
		{"no object", `just text`, ""},
		{"empty object", `{}`, ""},
		{"broken", `{"a":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.in)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.JSONEq(t, tt.want, got)
		})
	}
}
