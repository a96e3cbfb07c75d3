//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini provides an image backend implementation using Google's
// Gemini API via the official Go SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"trpc.group/trpc-go/trpc-imagebot-go/generator"
)

// DefaultModel is the image model used when none is specified.
const DefaultModel = "gemini-2.5-flash-image"

var _ generator.Generator = (*Generator)(nil)

// options contains configuration options for creating a Generator.
type options struct {
	// API key for the Gemini client. When empty the SDK falls back to the
	// GOOGLE_API_KEY or GEMINI_API_KEY environment variables.
	APIKey string
	// HTTPOptions for the Gemini client, e.g. a base URL override.
	HTTPOptions *genai.HTTPOptions
}

// Option is a function that configures a Gemini generator.
type Option func(*options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.APIKey = key
	}
}

// WithHTTPOptions overrides the SDK HTTP options.
func WithHTTPOptions(httpOpts genai.HTTPOptions) Option {
	return func(opts *options) {
		opts.HTTPOptions = &httpOpts
	}
}

// Generator generates images through the Gemini API.
type Generator struct {
	client *genai.Client
	name   string
}

// New creates a new Gemini image generator. name is the image model name;
// empty means DefaultModel.
func New(ctx context.Context, name string, opts ...Option) (*Generator, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if name == "" {
		name = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}
	if o.APIKey != "" {
		clientCfg.APIKey = o.APIKey
	}
	if o.HTTPOptions != nil {
		clientCfg.HTTPOptions = *o.HTTPOptions
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Generator{
		client: client,
		name:   name,
	}, nil
}

// Info implements the generator.Generator interface.
func (g *Generator) Info() generator.Info {
	return generator.Info{
		Name: g.name,
	}
}

// Generate implements the generator.Generator interface. The first inline
// image part of the response wins.
func (g *Generator) Generate(ctx context.Context, request *generator.Request) (*generator.Result, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", generator.ErrInvalidPrompt)
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: request.EffectivePrompt()}}},
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.name, contents, cfg)
	if err != nil {
		return nil, mapError(err)
	}
	return parseResult(resp)
}

// parseResult extracts the first generated image from the response.
func parseResult(resp *genai.GenerateContentResponse) (*generator.Result, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response from model", generator.ErrUnavailable)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", generator.ErrContentRejected, resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != nil {
				return &generator.Result{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: model returned no image", generator.ErrUnavailable)
}

// mapError converts Gemini SDK errors into the generator taxonomy while
// keeping the raw reason text.
func mapError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", generator.ErrUnavailable, err.Error())
	}

	reason := apiErr.Message
	if reason == "" {
		reason = apiErr.Error()
	}

	switch {
	case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED",
		apiErr.Code == 401 || apiErr.Code == 403,
		apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED":
		return fmt.Errorf("%w: %s", generator.ErrQuotaExceeded, reason)
	case apiErr.Code == 400 && isSafetyBlock(apiErr):
		return fmt.Errorf("%w: %s", generator.ErrContentRejected, reason)
	case apiErr.Code >= 500 || apiErr.Status == "UNAVAILABLE":
		return fmt.Errorf("%w: %s", generator.ErrUnavailable, reason)
	default:
		return err
	}
}

// isSafetyBlock reports whether a 400 response is a safety decline rather
// than a malformed request.
func isSafetyBlock(apiErr genai.APIError) bool {
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "safety") ||
		strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "prohibited")
}
