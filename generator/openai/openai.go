//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-compatible image backend implementation.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"trpc.group/trpc-go/trpc-imagebot-go/generator"
)

// DefaultModel is the image model used when none is specified.
const DefaultModel = openai.ImageModelGPTImage1

const defaultSize = openai.ImageGenerateParamsSize1024x1024

var _ generator.Generator = (*Generator)(nil)

// options contains configuration options for creating a Generator.
type options struct {
	// API key for the OpenAI client.
	APIKey string
	// Base URL for the OpenAI client. It is optional for OpenAI-compatible APIs.
	BaseURL string
	// Image size, e.g. "1024x1024".
	Size openai.ImageGenerateParamsSize
	// Options for the OpenAI client.
	OpenAIOptions []openaiopt.RequestOption
}

// Option is a function that configures an OpenAI generator.
type Option func(*options)

// WithAPIKey sets the API key. When empty the SDK falls back to the
// OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(opts *options) {
		opts.APIKey = key
	}
}

// WithBaseURL sets the base URL for OpenAI-compatible endpoints.
func WithBaseURL(url string) Option {
	return func(opts *options) {
		opts.BaseURL = url
	}
}

// WithSize sets the generated image size.
func WithSize(size openai.ImageGenerateParamsSize) Option {
	return func(opts *options) {
		opts.Size = size
	}
}

// WithOpenAIOptions appends raw request options for the OpenAI client.
func WithOpenAIOptions(openaiOpts ...openaiopt.RequestOption) Option {
	return func(opts *options) {
		opts.OpenAIOptions = append(opts.OpenAIOptions, openaiOpts...)
	}
}

// Generator generates images through the OpenAI Images API.
type Generator struct {
	client openai.Client
	name   string
	size   openai.ImageGenerateParamsSize
}

// New creates a new OpenAI-like image generator. name is the image model
// name; empty means DefaultModel.
func New(name string, opts ...Option) *Generator {
	o := &options{
		Size: defaultSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if name == "" {
		name = DefaultModel
	}

	var clientOpts []openaiopt.RequestOption
	if o.APIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.BaseURL))
	}
	clientOpts = append(clientOpts, o.OpenAIOptions...)

	return &Generator{
		client: openai.NewClient(clientOpts...),
		name:   name,
		size:   o.Size,
	}
}

// Info implements the generator.Generator interface.
func (g *Generator) Info() generator.Info {
	return generator.Info{
		Name: g.name,
	}
}

// Generate implements the generator.Generator interface. It requests a
// single image and prefers the hosted URL, falling back to the inline
// base64 payload.
func (g *Generator) Generate(ctx context.Context, request *generator.Request) (*generator.Result, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", generator.ErrInvalidPrompt)
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: request.EffectivePrompt(),
		Model:  openai.ImageModel(g.name),
		N:      openai.Int(1),
		Size:   g.size,
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data in response", generator.ErrUnavailable)
	}

	img := resp.Data[0]
	if img.URL != "" {
		return &generator.Result{URL: img.URL}, nil
	}
	if img.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		return &generator.Result{Data: raw, MIMEType: "image/png"}, nil
	}
	return nil, fmt.Errorf("%w: response contained neither url nor payload", generator.ErrUnavailable)
}

// mapError converts OpenAI SDK errors into the generator taxonomy while
// keeping the raw reason text.
func mapError(err error) error {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		// Transport-level failure: timeout, DNS, connection refused.
		return fmt.Errorf("%w: %s", generator.ErrUnavailable, err.Error())
	}

	reason := apierr.Message
	if reason == "" {
		reason = apierr.Error()
	}

	switch {
	case apierr.StatusCode == 401 || apierr.StatusCode == 403 || apierr.StatusCode == 429:
		return fmt.Errorf("%w: %s", generator.ErrQuotaExceeded, reason)
	case apierr.StatusCode == 400 && isPolicyRejection(apierr):
		return fmt.Errorf("%w: %s", generator.ErrContentRejected, reason)
	case apierr.StatusCode >= 500:
		return fmt.Errorf("%w: %s", generator.ErrUnavailable, reason)
	default:
		return err
	}
}

// isPolicyRejection reports whether a 400 response is a content-filter
// decline rather than a malformed request.
func isPolicyRejection(apierr *openai.Error) bool {
	if apierr.Code == "moderation_blocked" || apierr.Code == "content_policy_violation" {
		return true
	}
	msg := strings.ToLower(apierr.Message)
	return strings.Contains(msg, "content policy") ||
		strings.Contains(msg, "safety system") ||
		strings.Contains(msg, "moderation")
}
