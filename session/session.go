//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides the core per-conversation session functionality.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-imagebot-go/lang"
)

var (
	// ErrConversationIDRequired is the error for conversation id required.
	ErrConversationIDRequired = errors.New("conversationID is required")
	// ErrIllegalTransition is the error for a state transition outside the
	// session lifecycle.
	ErrIllegalTransition = errors.New("illegal session state transition")
)

// State is the session lifecycle state.
type State string

const (
	// StateIdle is a freshly created session with no activity yet.
	StateIdle State = "idle"
	// StateAwaitingScript means the user was greeted and asked for a script.
	StateAwaitingScript State = "awaiting_script"
	// StateGenerating means a backend call is outstanding.
	StateGenerating State = "generating"
	// StateDisplaying means a generated image is currently shown.
	StateDisplaying State = "displaying"
	// StateFailed means a localized error notice is currently shown.
	StateFailed State = "failed"
)

// transitions is the legal state machine. A new inbound script re-enters
// StateGenerating from any state, including StateGenerating itself: an
// in-flight generation is superseded, its outcome discarded at commit.
var transitions = map[State]map[State]struct{}{
	StateIdle:           {StateAwaitingScript: {}, StateGenerating: {}, StateFailed: {}},
	StateAwaitingScript: {StateGenerating: {}, StateFailed: {}},
	StateGenerating:     {StateGenerating: {}, StateDisplaying: {}, StateFailed: {}},
	StateDisplaying:     {StateGenerating: {}, StateFailed: {}},
	StateFailed:         {StateGenerating: {}, StateFailed: {}},
}

// CanTransition reports whether next is a legal successor state.
func (s State) CanTransition(next State) bool {
	_, ok := transitions[s][next]
	return ok
}

// Session is the per-conversation state. One session exists per
// conversation identity; it is mutated only through Service.Update, which
// serializes mutations per conversation.
type Session struct {
	// ConversationID is the opaque transport-assigned identity.
	ConversationID string
	// Language is set from the first script and re-detected on each new
	// non-blank script.
	Language lang.Language
	// LastScript is the most recently submitted text.
	LastScript string
	// VariationHistory is the set of variation tokens already used for
	// this conversation, to avoid token collision on regeneration.
	VariationHistory map[string]struct{}
	// DisplayedRef is the transport handle of the currently visible
	// image-or-error message. At most one is live at a time; empty when
	// nothing is displayed.
	DisplayedRef string
	// State is the lifecycle state.
	State State
	// Epoch fences generation attempts: it is bumped when an attempt
	// begins, and a commit whose epoch no longer matches is discarded
	// (last-writer-wins).
	Epoch uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition moves the session to next, rejecting transitions outside the
// lifecycle.
func (s *Session) Transition(next State) error {
	if !s.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, next)
	}
	s.State = next
	return nil
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.VariationHistory = make(map[string]struct{}, len(s.VariationHistory))
	for token := range s.VariationHistory {
		clone.VariationHistory[token] = struct{}{}
	}
	return &clone
}

// Service is the interface that all session stores must implement.
// Implementations guarantee that Update calls for the same conversation
// are serialized while different conversations proceed concurrently.
//
// State is ephemeral by design: it lives for the process lifetime only,
// and the store is an unbounded map. Eviction of stale sessions is a
// known open point for sustained-traffic deployments.
type Service interface {
	// GetOrCreate returns a copy of the conversation's session, lazily
	// creating it in StateIdle on first use.
	GetOrCreate(ctx context.Context, conversationID string) (*Session, error)

	// Get returns a copy of the session, or nil if none exists.
	Get(ctx context.Context, conversationID string) (*Session, error)

	// Update applies fn to the live session under the conversation's
	// lock, lazily creating the session first. If fn returns an error the
	// mutation is discarded. On success a copy of the updated session is
	// returned.
	Update(ctx context.Context, conversationID string, fn func(*Session) error) (*Session, error)

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, conversationID string) error

	// Close tears the store down.
	Close() error
}
