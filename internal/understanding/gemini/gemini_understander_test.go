package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria/internal/config"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/understanding"
	"aria/internal/understanding/gemini"
)

const modelJSON = `{"transaction_type":"product_purchase","fields":{"product_name":{"raw_value":"running shoes","evidence_strength":"explicit"}}}`

func newTestUnderstander(t *testing.T, serverURL string) *gemini.Understander {
	u, err := gemini.New(context.Background(), &config.ProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-api-key",
		DefaultModel: "gemini-2.0-flash",
		BaseURL:      serverURL,
		TimeoutSecs:  30,
	}, schema.Default())
	require.NoError(t, err)
	return u
}

var input = port.UnderstandInput{Conversation: "user: I want to buy running shoes"}

func TestGeminiUnderstander_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.NotNil(t, reqBody["systemInstruction"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]interface{}{{"text": modelJSON}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	defer server.Close()

	out, err := newTestUnderstander(t, server.URL).Understand(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "product_purchase", out.TransactionType)
	assert.Equal(t, "gemini-2.0-flash", out.ModelUsed)
	assert.Equal(t, "running shoes", out.FieldEvidence["product_name"].RawValue)
}

func TestGeminiUnderstander_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := newTestUnderstander(t, server.URL).Understand(context.Background(), input)
	var rlErr *understanding.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestGeminiUnderstander_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestUnderstander(t, server.URL).Understand(context.Background(), input)
	assert.Error(t, err)
}
