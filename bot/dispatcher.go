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

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-imagebot-go/log"
	"trpc.group/trpc-go/trpc-imagebot-go/transport"
)

// defaultParallelism bounds how many events are handled at once.
const defaultParallelism = 8

// Dispatcher fans inbound events out to a bounded worker pool. Events of
// different conversations run concurrently; per-conversation ordering of
// state mutations is the session store's job, not the dispatcher's.
type Dispatcher struct {
	bot  *Bot
	pool *ants.Pool
}

// NewDispatcher creates a dispatcher handling events through bot with at
// most parallelism concurrent handlers. parallelism <= 0 means the
// default.
func NewDispatcher(bot *Bot, parallelism int) (*Dispatcher, error) {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		bot:  bot,
		pool: pool,
	}, nil
}

// Run consumes events until the channel closes or ctx is cancelled. Each
// event is handled on the pool; handler errors are logged, never fatal.
func (d *Dispatcher) Run(ctx context.Context, events <-chan transport.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Dispatch submits one event to the pool, blocking only while the pool is
// saturated.
func (d *Dispatcher) Dispatch(ctx context.Context, ev transport.Event) {
	err := d.pool.Submit(func() {
		if err := d.bot.HandleEvent(ctx, ev); err != nil {
			log.Errorf("handle event for %s: %v", ev.ConversationID, err)
		}
	})
	if err != nil {
		log.Errorf("submit event for %s: %v", ev.ConversationID, err)
	}
}

// Close releases the worker pool. In-flight handlers finish; queued
// submissions after Close are rejected.
func (d *Dispatcher) Close() {
	d.pool.Release()
}
