//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-imagebot-go/generator"
)

// newTestGenerator points the client at a stub Images API server.
func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("",
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithOpenAIOptions(openaiopt.WithMaxRetries(0)),
	)
}

func imagesResponse(t *testing.T, w http.ResponseWriter, data []map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{"created": 1, "data": data})
	require.NoError(t, err)
}

func apiError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error", "code": code},
	})
}

func TestNewDefaults(t *testing.T) {
	g := New("")
	assert.Equal(t, string(DefaultModel), g.Info().Name)

	g = New("dall-e-3")
	assert.Equal(t, "dall-e-3", g.Info().Name)
}

func TestGenerateNilAndEmpty(t *testing.T) {
	g := New("", WithAPIKey("test-key"))

	_, err := g.Generate(context.Background(), nil)
	require.Error(t, err)

	_, err = g.Generate(context.Background(), &generator.Request{Prompt: "   "})
	require.ErrorIs(t, err, generator.ErrInvalidPrompt)
}

func TestGeneratePrefersURL(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(t, w, []map[string]any{{"url": "https://img.example/1.png"}})
	})

	res, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", res.URL)
	assert.Empty(t, res.Data)
}

func TestGenerateBase64Fallback(t *testing.T) {
	raw := []byte("fake-png-bytes")
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(t, w, []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(raw)}})
	})

	res, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
	require.NoError(t, err)
	assert.Equal(t, raw, res.Data)
	assert.Equal(t, "image/png", res.MIMEType)
}

func TestGenerateSendsEffectivePrompt(t *testing.T) {
	var gotPrompt string
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPrompt = body.Prompt
		imagesResponse(t, w, []map[string]any{{"url": "https://img.example/1.png"}})
	})

	_, err := g.Generate(context.Background(), &generator.Request{
		Prompt:    "draw a cat",
		Variation: "\n\n# variation:abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "draw a cat\n\n# variation:abc", gotPrompt)
}

func TestGenerateEmptyData(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		imagesResponse(t, w, nil)
	})

	_, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
	require.ErrorIs(t, err, generator.ErrUnavailable)
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		code    string
		message string
		want    error
	}{
		{"moderation", 400, "moderation_blocked", "content policy violation", generator.ErrContentRejected},
		{"policy message", 400, "", "rejected by the safety system", generator.ErrContentRejected},
		{"bad key", 401, "invalid_api_key", "Incorrect API key provided", generator.ErrQuotaExceeded},
		{"forbidden", 403, "", "forbidden", generator.ErrQuotaExceeded},
		{"rate limit", 429, "rate_limit_exceeded", "Rate limit reached", generator.ErrQuotaExceeded},
		{"server error", 500, "", "internal error", generator.ErrUnavailable},
		{"bad gateway", 502, "", "bad gateway", generator.ErrUnavailable},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				apiError(w, c.status, c.code, c.message)
			})

			_, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
			require.ErrorIs(t, err, c.want)
			assert.Contains(t, err.Error(), c.message, "raw reason must survive mapping")
		})
	}
}

func TestGenerateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on
	g := New("",
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithOpenAIOptions(openaiopt.WithMaxRetries(0)),
	)

	_, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
	require.ErrorIs(t, err, generator.ErrUnavailable)
}

func TestGenerateMalformed400Unmapped(t *testing.T) {
	// A non-policy 400 is not forced into the taxonomy.
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 400, "invalid_size", "size not supported")
	})

	_, err := g.Generate(context.Background(), &generator.Request{Prompt: "draw a cat"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, generator.ErrContentRejected)
	assert.NotErrorIs(t, err, generator.ErrQuotaExceeded)
}
