//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package transport defines the chat-platform boundary: inbound events
// and the outbound capabilities the bot core consumes. Concrete adapters
// (Telegram, console, test doubles) live outside this module's core.
package transport

import "context"

// Ref is the opaque handle of a message the transport has delivered.
// The core only stores and echoes it back for deletion.
type Ref string

// Action is a non-text inbound interaction.
type Action string

const (
	// ActionNone marks a plain text event.
	ActionNone Action = ""
	// ActionStart is the conversation-opening command.
	ActionStart Action = "start"
	// ActionRegenerate asks for a fresh image from the same script.
	ActionRegenerate Action = "regenerate"
)

// Event is one inbound interaction from the chat platform. Either Text
// or Action is meaningful, never both.
type Event struct {
	// ConversationID is the opaque transport-assigned chat identity.
	ConversationID string
	// SenderDisplayName is the user's display name, greeting-only.
	SenderDisplayName string
	// Text is the script for plain text events.
	Text string
	// Action is the interaction kind for non-text events.
	Action Action
}

// Image is an outbound image payload. Either Data or URL is set; the
// transport uploads Data or fetches URL as it sees fit.
type Image struct {
	Data     []byte
	MIMEType string
	URL      string
}

// Affordance is an interactive element attached to an outbound message:
// either a callback button (Action set) or a link button (URL set).
type Affordance struct {
	Label  string
	Action Action
	URL    string
}

// Transport is the outbound capability surface of the chat platform.
type Transport interface {
	// SendImage delivers an image with optional caption and affordances.
	SendImage(ctx context.Context, conversationID string, image *Image, caption string, affordances []Affordance) (Ref, error)

	// SendText delivers a plain text message.
	SendText(ctx context.Context, conversationID string, text string) (Ref, error)

	// DeleteMessage removes a previously delivered message.
	DeleteMessage(ctx context.Context, conversationID string, ref Ref) error
}

// AffordanceEditor is an optional Transport extension for platforms that
// host uploaded files and allow editing a delivered message's
// affordances, so a download link can be attached once the file URL is
// known. All methods are best-effort from the core's point of view.
type AffordanceEditor interface {
	// HostedURL returns the platform-hosted URL of a delivered image.
	HostedURL(ctx context.Context, conversationID string, ref Ref) (string, error)

	// UpdateAffordances replaces the affordances of a delivered message.
	UpdateAffordances(ctx context.Context, conversationID string, ref Ref, affordances []Affordance) error
}
