//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package variation produces invisible prompt differentiators for
// regeneration requests.
package variation

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// tokenPrefix anchors the token in a prompt comment line so the image
	// backend samples a fresh output without the user ever seeing it.
	tokenPrefix = "\n\n# variation:"

	// maxDraws bounds random redraws before falling back to the counter.
	maxDraws = 3
)

// Generator issues variation tokens that are unique within a session's
// token history. A token is appended verbatim to the prompt sent to the
// image backend and never rendered to the user.
//
// The premise that an imperceptible prompt perturbation yields a visually
// different image is an assumption about the backend's sampling, not a
// guarantee this generator can enforce.
type Generator struct {
	draw func() string
	seq  atomic.Uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithDraw replaces the random token source. Intended for tests that need
// deterministic draws or forced collisions.
func WithDraw(draw func() string) Option {
	return func(g *Generator) {
		g.draw = draw
	}
}

// New creates a Generator. By default tokens are drawn from random UUIDs.
func New(opts ...Option) *Generator {
	g := &Generator{
		draw: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a token absent from history. It redraws on collision up to
// maxDraws times, then falls back to a monotonically increasing counter
// suffix so uniqueness is guaranteed even against an adversarial draw
// source. Next does not mutate history; the caller records the token.
func (g *Generator) Next(history map[string]struct{}) string {
	for i := 0; i < maxDraws; i++ {
		token := tokenPrefix + g.draw()
		if _, seen := history[token]; !seen {
			return token
		}
	}
	for {
		token := fmt.Sprintf("%sretry-%d", tokenPrefix, g.seq.Add(1))
		if _, seen := history[token]; !seen {
			return token
		}
	}
}
