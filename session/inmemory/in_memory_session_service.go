//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory session service implementation.
package inmemory

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-imagebot-go/session"
)

var _ session.Service = (*SessionService)(nil)

// conversation pairs a session with its own lock so mutations for one
// conversation are serialized while other conversations proceed
// independently.
type conversation struct {
	mu   sync.Mutex
	sess *session.Session
}

// serviceOpts is the options for the session service.
type serviceOpts struct {
	// now is the clock, replaceable in tests.
	now func() time.Time
}

// SessionService provides an in-memory implementation of session.Service.
//
// The map is unbounded and tied to process uptime; there is no eviction.
// Operators needing bounds can drive Delete from their own policy.
type SessionService struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	opts          serviceOpts
}

// ServiceOpt is the option for the in-memory session service.
type ServiceOpt func(*serviceOpts)

// WithClock replaces the wall clock used for session timestamps.
func WithClock(now func() time.Time) ServiceOpt {
	return func(opts *serviceOpts) {
		opts.now = now
	}
}

// NewSessionService creates a new in-memory session service.
func NewSessionService(options ...ServiceOpt) *SessionService {
	opts := serviceOpts{
		now: time.Now,
	}
	for _, option := range options {
		option(&opts)
	}
	return &SessionService{
		conversations: make(map[string]*conversation),
		opts:          opts,
	}
}

func (s *SessionService) getConversation(conversationID string) (*conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	return conv, ok
}

func (s *SessionService) getOrCreateConversation(conversationID string) *conversation {
	s.mu.RLock()
	conv, ok := s.conversations[conversationID]
	if ok {
		s.mu.RUnlock()
		return conv
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok = s.conversations[conversationID]
	if ok {
		return conv
	}
	now := s.opts.now()
	conv = &conversation{
		sess: &session.Session{
			ConversationID:   conversationID,
			VariationHistory: make(map[string]struct{}),
			State:            session.StateIdle,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
	s.conversations[conversationID] = conv
	return conv
}

// GetOrCreate returns a copy of the conversation's session, creating it
// lazily in StateIdle on first use.
func (s *SessionService) GetOrCreate(ctx context.Context, conversationID string) (*session.Session, error) {
	if conversationID == "" {
		return nil, session.ErrConversationIDRequired
	}
	conv := s.getOrCreateConversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.sess.Clone(), nil
}

// Get returns a copy of the session, or nil if none exists.
func (s *SessionService) Get(ctx context.Context, conversationID string) (*session.Session, error) {
	if conversationID == "" {
		return nil, session.ErrConversationIDRequired
	}
	conv, ok := s.getConversation(conversationID)
	if !ok {
		return nil, nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.sess.Clone(), nil
}

// Update applies fn to the session under the conversation lock. fn runs
// on a working copy; an error from fn discards the mutation entirely.
func (s *SessionService) Update(
	ctx context.Context,
	conversationID string,
	fn func(*session.Session) error,
) (*session.Session, error) {
	if conversationID == "" {
		return nil, session.ErrConversationIDRequired
	}
	conv := s.getOrCreateConversation(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	working := conv.sess.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.opts.now()
	conv.sess = working
	return working.Clone(), nil
}

// Delete removes the session. Deleting an absent session is a no-op.
func (s *SessionService) Delete(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return session.ErrConversationIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	return nil
}

// Close tears the store down. Sessions are ephemeral, so closing simply
// drops them.
func (s *SessionService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*conversation)
	return nil
}
