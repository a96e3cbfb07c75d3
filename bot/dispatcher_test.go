//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-imagebot-go/transport"
)

func TestDispatcherHandlesAllEvents(t *testing.T) {
	b, gen, tr, _ := newTestBot(t)
	d, err := NewDispatcher(b, 4)
	require.NoError(t, err)
	defer d.Close()

	const conversations = 10
	events := make(chan transport.Event, conversations)
	for i := 0; i < conversations; i++ {
		events <- transport.Event{
			ConversationID: fmt.Sprintf("c%d", i),
			Text:           fmt.Sprintf("draw sketch %d", i),
		}
	}
	close(events)

	d.Run(context.Background(), events)

	// Run returns when the channel drains; handlers may still be on the
	// pool.
	assert.Eventually(t, func() bool {
		return len(gen.requests()) == conversations && len(tr.sentImages()) == conversations
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	d, err := NewDispatcher(b, 0)
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan transport.Event)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestDispatcherDefaultParallelism(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	d, err := NewDispatcher(b, 0)
	require.NoError(t, err)
	defer d.Close()
	assert.NotNil(t, d.pool)
}
