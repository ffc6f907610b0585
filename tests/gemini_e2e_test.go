package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gh "antigravity2api-go/internal/handlers/gemini"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestGeminiGenerateContent_NonStream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := startTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "v1internal:generateContent") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resp := map[string]any{
			"response": map[string]any{
				"candidates": []any{
					map[string]any{
						"content": map[string]any{
							"parts": []any{map[string]any{"text": "native reply"}},
						},
						"finishReason": "STOP",
					},
				},
				"usageMetadata": map[string]any{
					"promptTokenCount":     4,
					"candidatesTokenCount": 2,
					"totalTokenCount":      6,
				},
			},
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	}))

	relay := newTestRelay(t, upstream.URL)
	r := gin.New()
	r.POST("/v1beta/models/*modelAction", gh.GenerateContent(relay))

	raw, _ := json.Marshal(map[string]any{
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1beta/models/gemini-2.5-pro:generateContent", bytes.NewReader(raw))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	require.Equal(t, "native reply", body.Get("candidates.0.content.parts.0.text").String())
	require.Equal(t, "STOP", body.Get("candidates.0.finishReason").String())
	require.Equal(t, int64(6), body.Get("usageMetadata.totalTokenCount").Int())
}

// generateContent 加 ?alt=sse 和 streamGenerateContent 一样走流式
func TestGeminiGenerateContent_AltSSE(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := startTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "v1internal:streamGenerateContent") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		chunk := map[string]any{
			"response": map[string]any{
				"candidates": []any{
					map[string]any{
						"content": map[string]any{
							"parts": []any{map[string]any{"text": "streamed"}},
						},
						"finishReason": "STOP",
					},
				},
				"usageMetadata": map[string]any{
					"promptTokenCount":     1,
					"candidatesTokenCount": 1,
					"totalTokenCount":      2,
				},
			},
		}
		b, _ := json.Marshal(chunk)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", b)
	}))

	relay := newTestRelay(t, upstream.URL)
	r := gin.New()
	r.POST("/v1beta/models/*modelAction", gh.GenerateContent(relay))

	raw, _ := json.Marshal(map[string]any{
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1beta/models/gemini-2.5-pro:generateContent?alt=sse", bytes.NewReader(raw))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	require.Contains(t, w.Body.String(), "streamed")
	require.Contains(t, w.Body.String(), `"finishReason":"STOP"`)
}

func TestGeminiGenerateContent_BadMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := startTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach upstream")
	}))

	relay := newTestRelay(t, upstream.URL)
	r := gin.New()
	r.POST("/v1beta/models/*modelAction", gh.GenerateContent(relay))

	raw, _ := json.Marshal(map[string]any{
		"contents": []any{map[string]any{"parts": []any{map[string]any{"text": "hi"}}}},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1beta/models/gemini-2.5-pro:countTokens", bytes.NewReader(raw))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_ARGUMENT",
		gjson.Parse(w.Body.String()).Get("error.status").String())
}

// 请求体里的 _isStream 也能触发流式，且剥掉后才发给上游
func TestGeminiGenerateContent_BodyStreamFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var upstreamBody []byte
	upstream := startTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "v1internal:streamGenerateContent") {
			t.Errorf("body flag must route to the stream endpoint, got %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		upstreamBody, _ = io.ReadAll(r.Body)

		chunk := map[string]any{
			"response": map[string]any{
				"candidates": []any{
					map[string]any{
						"content": map[string]any{
							"parts": []any{map[string]any{"text": "flagged stream"}},
						},
						"finishReason": "STOP",
					},
				},
			},
		}
		b, _ := json.Marshal(chunk)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", b)
	}))

	relay := newTestRelay(t, upstream.URL)
	r := gin.New()
	r.POST("/v1beta/models/*modelAction", gh.GenerateContent(relay))

	raw, _ := json.Marshal(map[string]any{
		"_isStream": true,
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/v1beta/models/gemini-2.5-pro:generateContent", bytes.NewReader(raw))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	require.Contains(t, w.Body.String(), "flagged stream")

	env := gjson.ParseBytes(upstreamBody)
	require.True(t, env.Get("request.contents").Exists())
	require.False(t, env.Get("request._isStream").Exists(), "flag must not leak upstream")
}
