//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package lifecycle tracks the transport handle of the currently
// displayed artifact or error per conversation, so it can be retracted
// before a replacement appears.
package lifecycle

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-imagebot-go/log"
	"trpc.group/trpc-go/trpc-imagebot-go/transport"
)

// Manager keeps at most one live message reference per conversation.
//
// Retract is always attempted before Record of a replacement within the
// same logical transition, but the pair is not atomic: there is a narrow
// window where old and new artifact are both visible. Accepted for an
// ephemeral chat surface.
type Manager struct {
	transport transport.Transport

	mu   sync.Mutex
	refs map[string]transport.Ref
}

// NewManager creates a Manager deleting through the given transport.
func NewManager(t transport.Transport) *Manager {
	return &Manager{
		transport: t,
		refs:      make(map[string]transport.Ref),
	}
}

// Record associates ref as the conversation's currently displayed
// message, replacing any previous association without retracting it.
func (m *Manager) Record(conversationID string, ref transport.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[conversationID] = ref
}

// Current returns the tracked reference and whether one exists.
func (m *Manager) Current(conversationID string) (transport.Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[conversationID]
	return ref, ok
}

// Retract deletes the conversation's currently displayed message, if
// any, at the transport boundary. Deletion failures (already deleted,
// permission error) are logged and swallowed: retraction is best-effort
// and must never block a new generation flow. The tracked reference is
// cleared regardless.
func (m *Manager) Retract(ctx context.Context, conversationID string) {
	m.mu.Lock()
	ref, ok := m.refs[conversationID]
	delete(m.refs, conversationID)
	m.mu.Unlock()
	if !ok {
		return
	}

	// The delete runs outside the map lock: a slow transport must not
	// serialize unrelated conversations.
	if err := m.transport.DeleteMessage(ctx, conversationID, ref); err != nil {
		log.Debugf("could not delete previous message %s for %s: %v", ref, conversationID, err)
	}
}
