//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package generator provides interfaces for working with image backends.
package generator

import (
	"context"
	"errors"
)

// Sentinel errors implementations wrap so failures can be classified
// without depending on provider SDK error types. Wrap with fmt.Errorf
// ("%w: ...") so the raw provider reason survives.
var (
	// ErrInvalidPrompt indicates an empty or otherwise unusable prompt.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrContentRejected indicates the backend declined the request,
	// typically a policy or content filter.
	ErrContentRejected = errors.New("content rejected by image backend")
	// ErrUnavailable indicates a transient network or service failure.
	ErrUnavailable = errors.New("image backend unavailable")
	// ErrQuotaExceeded indicates an authentication or quota failure.
	ErrQuotaExceeded = errors.New("image backend quota exceeded")
)

// Request describes a single generation attempt.
type Request struct {
	// Prompt is the user's script, verbatim.
	Prompt string
	// Variation is an invisible differentiator appended to the prompt.
	// Empty for first-time generations.
	Variation string
}

// EffectivePrompt returns the prompt actually sent to the backend.
func (r *Request) EffectivePrompt() string {
	return r.Prompt + r.Variation
}

// Result is a successfully generated image. At least one of Data and URL
// is set; MIMEType describes Data when present.
type Result struct {
	Data     []byte
	MIMEType string
	URL      string
}

// Info contains basic information about a Generator.
type Info struct {
	Name string
}

// Generator is the interface for all image backends.
type Generator interface {
	// Generate produces one image for the request. Failures are returned
	// wrapping one of the package sentinel errors where the cause is known.
	Generate(ctx context.Context, request *Request) (*Result, error)

	// Info returns basic information about the backend.
	Info() Info
}
