package gemini_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/gemini"
)

func textReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(b)
}

func newClient(t *testing.T, h http.HandlerFunc) *gemini.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return gemini.New(gemini.Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2}, nil)
}

func TestGenerateText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(textReply("drive safe")))
	})

	out, err := c.GenerateText(context.Background(), "tip please", gemini.Image{Data: []byte{1, 2}, MIMEType: "image/png"})

	require.NoError(t, err)
	assert.Equal(t, "drive safe", out)
	assert.Equal(t, "/v1beta/models/"+gemini.DefaultTextModel+":generateContent", gotPath)
	assert.Equal(t, "k", gotKey)

	parts := gotBody["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, "tip please", parts[1].(map[string]any)["text"])
}

func TestGenerateJSON(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		cfg := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		_, _ = w.Write([]byte(textReply(` {"damageCode":"A","description":"dent on door"} `)))
	})

	var out struct {
		DamageCode  string `json:"damageCode"`
		Description string `json:"description"`
	}
	schema := gemini.Schema{Type: "OBJECT", Properties: map[string]gemini.Schema{"damageCode": {Type: "STRING"}}}
	require.NoError(t, c.GenerateJSON(context.Background(), "classify", schema, &out))
	assert.Equal(t, "A", out.DamageCode)
}

func TestSynthesize(t *testing.T) {
	audio := []byte("RIFF....")
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, gemini.DefaultSpeechModel))
		b, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"inlineData": map[string]any{"mimeType": "audio/pcm", "data": base64.StdEncoding.EncodeToString(audio)},
				}}},
			}},
		})
		_, _ = w.Write(b)
	})

	got, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(textReply("ok")))
	})

	out, err := c.GenerateText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	})

	_, err := c.GenerateText(context.Background(), "x")
	var serr *gemini.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmptyResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	_, err := c.GenerateText(context.Background(), "x")
	assert.ErrorIs(t, err, gemini.ErrEmptyResponse)
}

func TestNotConfigured(t *testing.T) {
	c := gemini.New(gemini.Config{}, nil)
	assert.False(t, c.Configured())
	_, err := c.Synthesize(context.Background(), "x")
	assert.ErrorIs(t, err, gemini.ErrNotConfigured)
}
