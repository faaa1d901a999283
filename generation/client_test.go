package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lorecrafter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// completionServer mimics the chat-completions endpoint, replying with
// content as the assistant message. It records the last request body.
func completionServer(t *testing.T, status int, content string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "sk-test", BaseURL: baseURL + "/", Model: "test-model"}, zap.NewNop())
}

func TestGenerateCharacter(t *testing.T) {
	var body map[string]any
	reply := `{"name":"Asha","role":"Water-seer","physical_description":"Tall, sun-dark",` +
		`"personality_traits":["patient","stubborn"],"backstory":"Born under the dunes.\n\nShe left."}`
	srv := completionServer(t, http.StatusOK, reply, &body)

	fields, err := newTestClient(srv.URL).Generate(context.Background(), models.KindCharacter, "a desert world")
	require.NoError(t, err)

	assert.Equal(t, "Asha", fields["name"])
	assert.Equal(t, "patient, stubborn", fields["personality_traits"])

	assert.Equal(t, "test-model", body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "The world is: a desert world", user["content"])

	c := Character(fields)
	assert.Equal(t, "Water-seer", c.Role)
	assert.Equal(t, "Born under the dunes.\n\nShe left.", c.Backstory)
}

func TestGenerateLocation(t *testing.T) {
	var body map[string]any
	srv := completionServer(t, http.StatusOK, `{"name":"Glass Oasis","description":"A lake of fused sand."}`, &body)

	fields, err := newTestClient(srv.URL).Generate(context.Background(), models.KindLocation, "a desert world")
	require.NoError(t, err)

	l := Location(fields)
	assert.Equal(t, "Glass Oasis", l.Name)
	assert.Equal(t, "A lake of fused sand.", l.Description)

	system := body["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "location")
}

func TestGenerateErrors(t *testing.T) {
	t.Run("Non-JSON reply", func(t *testing.T) {
		srv := completionServer(t, http.StatusOK, "Here is your character: Asha", nil)

		_, err := newTestClient(srv.URL).Generate(context.Background(), models.KindCharacter, "world")
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "Here is your character: Asha", perr.Raw)
	})

	t.Run("Missing required key", func(t *testing.T) {
		srv := completionServer(t, http.StatusOK, `{"name":"Asha","role":"seer"}`, nil)

		_, err := newTestClient(srv.URL).Generate(context.Background(), models.KindCharacter, "world")
		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Contains(t, perr.Error(), "physical_description")
	})

	t.Run("Upstream status", func(t *testing.T) {
		srv := completionServer(t, http.StatusInternalServerError, "", nil)

		_, err := newTestClient(srv.URL).Generate(context.Background(), models.KindLocation, "world")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("HTML body with status 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>oops</html>"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Generate(context.Background(), models.KindCharacter, "world")
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "<html>oops</html>", perr.Raw)
		assert.NotErrorIs(t, err, ErrUpstream)
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestClient(url).Generate(context.Background(), models.KindLocation, "world")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.Kind
		content string
		wantErr bool
	}{
		{"location ok", models.KindLocation, `{"name":"a","description":"b"}`, false},
		{"extra keys kept", models.KindLocation, `{"name":"a","description":"b","climate":"dry"}`, false},
		{"empty name", models.KindLocation, `{"name":" ","description":"b"}`, true},
		{"wrong type", models.KindLocation, `{"name":3,"description":"b"}`, true},
		{"array not object", models.KindLocation, `["name"]`, true},
		{"null", models.KindLocation, `null`, true},
		{"traits list of numbers", models.KindCharacter,
			`{"name":"a","role":"b","physical_description":"c","personality_traits":[1],"backstory":"d"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFields(tt.kind, tt.content)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
