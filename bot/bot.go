//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package bot orchestrates one image generation per conversation: it owns
// the session state machine, invokes the image backend, and drives the
// retract-before-record message lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-imagebot-go/classify"
	"trpc.group/trpc-go/trpc-imagebot-go/generator"
	"trpc.group/trpc-go/trpc-imagebot-go/lang"
	"trpc.group/trpc-go/trpc-imagebot-go/lifecycle"
	"trpc.group/trpc-go/trpc-imagebot-go/log"
	"trpc.group/trpc-go/trpc-imagebot-go/session"
	"trpc.group/trpc-go/trpc-imagebot-go/session/inmemory"
	"trpc.group/trpc-go/trpc-imagebot-go/transport"
	"trpc.group/trpc-go/trpc-imagebot-go/variation"
)

// Greeting and prompt texts, greeting-only, never tracked as artifacts.
const (
	welcomeFormat = "👋 Welcome %s!"
	welcomePlain  = "👋 Welcome!"
	askForScript  = "✍️ দয়া করে একটি স্ক্রিপ্ট লিখুন (বাংলা বা ইংরেজি) — আমি সেটি থেকে একটি ছবি বানিয়ে দেব।"
)

// Regenerate button labels, kept from the original bot surface.
const (
	labelEntire   = "ENTIRE"
	labelGo       = "GO"
	labelDownload = "⬇️ Download"
)

var (
	// errNoScript marks a regenerate action with no prior script.
	errNoScript = errors.New("no script to regenerate")
	// errBlankScript marks an empty or whitespace-only inbound script.
	errBlankScript = errors.New("blank script")
	// errSuperseded marks an outcome whose generation attempt was
	// overtaken by a newer one while the backend call was in flight.
	errSuperseded = errors.New("generation superseded")
)

// Option is a function that configures a Bot.
type Option func(*opts)

type opts struct {
	sessions  session.Service
	variation *variation.Generator
}

// WithSessionService sets the session service to use. Defaults to a fresh
// in-memory service.
func WithSessionService(service session.Service) Option {
	return func(o *opts) {
		o.sessions = service
	}
}

// WithVariationGenerator sets the variation token generator.
func WithVariationGenerator(g *variation.Generator) Option {
	return func(o *opts) {
		o.variation = g
	}
}

// Bot coordinates generation attempts. All collaborator state is injected
// at construction; Bot itself is stateless and safe for concurrent use.
type Bot struct {
	generator generator.Generator
	transport transport.Transport
	sessions  session.Service
	lifecycle *lifecycle.Manager
	variation *variation.Generator
}

// New creates a Bot generating through gen and talking through tr.
func New(gen generator.Generator, tr transport.Transport, options ...Option) *Bot {
	o := &opts{}
	for _, option := range options {
		option(o)
	}
	if o.sessions == nil {
		o.sessions = inmemory.NewSessionService()
	}
	if o.variation == nil {
		o.variation = variation.New()
	}
	return &Bot{
		generator: gen,
		transport: tr,
		sessions:  o.sessions,
		lifecycle: lifecycle.NewManager(tr),
		variation: o.variation,
	}
}

// HandleEvent processes one inbound event. Backend and transport failures
// are converted into a single localized message for the user; the only
// errors returned are infrastructure-level ones useful to the caller's
// logs.
func (b *Bot) HandleEvent(ctx context.Context, ev transport.Event) error {
	if ev.ConversationID == "" {
		return session.ErrConversationIDRequired
	}
	switch ev.Action {
	case transport.ActionStart:
		return b.handleStart(ctx, ev)
	case transport.ActionRegenerate:
		return b.handleRegenerate(ctx, ev)
	default:
		return b.handleScript(ctx, ev)
	}
}

// handleStart greets the user by name in English and asks for a script in
// Bangla, mirroring the original bot's onboarding.
func (b *Bot) handleStart(ctx context.Context, ev transport.Event) error {
	greeting := welcomePlain
	if ev.SenderDisplayName != "" {
		greeting = fmt.Sprintf(welcomeFormat, ev.SenderDisplayName)
	}
	if _, err := b.transport.SendText(ctx, ev.ConversationID, greeting); err != nil {
		log.Warnf("send greeting to %s: %v", ev.ConversationID, err)
	}
	if _, err := b.transport.SendText(ctx, ev.ConversationID, askForScript); err != nil {
		log.Warnf("send script prompt to %s: %v", ev.ConversationID, err)
	}

	_, err := b.sessions.Update(ctx, ev.ConversationID, func(s *session.Session) error {
		if s.State == session.StateIdle {
			return s.Transition(session.StateAwaitingScript)
		}
		// A busy session keeps its state; /start mid-flow only re-greets.
		return nil
	})
	return err
}

// handleScript runs a fresh generation for inbound text. Any prior
// artifact is retracted before the backend call is issued.
func (b *Bot) handleScript(ctx context.Context, ev transport.Event) error {
	script := strings.TrimSpace(ev.Text)

	var language lang.Language
	var epoch uint64
	_, err := b.sessions.Update(ctx, ev.ConversationID, func(s *session.Session) error {
		language = lang.DetectOr(script, s.Language)
		if script == "" {
			return errBlankScript
		}
		s.Language = language
		s.LastScript = script
		s.DisplayedRef = ""
		s.Epoch++
		epoch = s.Epoch
		return s.Transition(session.StateGenerating)
	})
	if errors.Is(err, errBlankScript) {
		b.showFailure(ctx, ev.ConversationID, classify.KindInvalidScript, language, "")
		return nil
	}
	if err != nil {
		return err
	}

	b.lifecycle.Retract(ctx, ev.ConversationID)

	request := &generator.Request{Prompt: script}
	result, genErr := b.generator.Generate(ctx, request)
	return b.commit(ctx, ev.ConversationID, epoch, language, result, genErr)
}

// handleRegenerate re-runs the last script with a fresh variation token.
// Without a prior script the action degrades to a localized notice and no
// backend call is issued.
func (b *Bot) handleRegenerate(ctx context.Context, ev transport.Event) error {
	var language lang.Language
	var script, token string
	var epoch uint64
	_, err := b.sessions.Update(ctx, ev.ConversationID, func(s *session.Session) error {
		language = s.Language
		if language == "" {
			language = lang.English
		}
		if strings.TrimSpace(s.LastScript) == "" {
			return errNoScript
		}
		script = s.LastScript
		token = b.variation.Next(s.VariationHistory)
		s.VariationHistory[token] = struct{}{}
		s.DisplayedRef = ""
		s.Epoch++
		epoch = s.Epoch
		return s.Transition(session.StateGenerating)
	})
	if errors.Is(err, errNoScript) {
		b.showFailure(ctx, ev.ConversationID, classify.KindInvalidScript, language, "")
		return nil
	}
	if err != nil {
		return err
	}

	b.lifecycle.Retract(ctx, ev.ConversationID)

	request := &generator.Request{Prompt: script, Variation: token}
	result, genErr := b.generator.Generate(ctx, request)
	return b.commit(ctx, ev.ConversationID, epoch, language, result, genErr)
}

// commit lands the outcome of a backend call. The session lock was not
// held during the call, so the attempt's epoch is re-validated first: a
// stale outcome is discarded, never displayed (last-writer-wins).
func (b *Bot) commit(
	ctx context.Context,
	conversationID string,
	epoch uint64,
	language lang.Language,
	result *generator.Result,
	genErr error,
) error {
	current, err := b.sessions.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if current == nil || current.Epoch != epoch {
		log.Debugf("dropping superseded outcome for %s (epoch %d)", conversationID, epoch)
		return nil
	}

	if genErr != nil {
		kind := classify.Classify(genErr)
		log.Infof("generation failed for %s: kind=%s err=%v", conversationID, kind, genErr)
		b.showFailureAt(ctx, conversationID, epoch, kind, language, genErr.Error())
		return nil
	}

	img := &transport.Image{Data: result.Data, MIMEType: result.MIMEType, URL: result.URL}
	ref, sendErr := b.transport.SendImage(ctx, conversationID, img, "", regenerateAffordances())
	if sendErr != nil {
		log.Errorf("send image to %s: %v", conversationID, sendErr)
		b.showFailureAt(ctx, conversationID, epoch, classify.KindUnknown, language, sendErr.Error())
		return nil
	}

	if !b.record(ctx, conversationID, epoch, ref, session.StateDisplaying) {
		// A newer attempt took over while the image was being delivered;
		// take the stale message back down.
		if err := b.transport.DeleteMessage(ctx, conversationID, ref); err != nil {
			log.Debugf("could not delete superseded message %s for %s: %v", ref, conversationID, err)
		}
		return nil
	}

	b.attachDownload(ctx, conversationID, ref)
	return nil
}

// record commits ref as the displayed artifact, re-validating the epoch
// under the session lock. It reports whether the attempt was still
// current.
func (b *Bot) record(
	ctx context.Context,
	conversationID string,
	epoch uint64,
	ref transport.Ref,
	state session.State,
) bool {
	_, err := b.sessions.Update(ctx, conversationID, func(s *session.Session) error {
		if s.Epoch != epoch {
			return errSuperseded
		}
		s.DisplayedRef = string(ref)
		return s.Transition(state)
	})
	if errors.Is(err, errSuperseded) {
		return false
	}
	if err != nil {
		log.Errorf("record artifact for %s: %v", conversationID, err)
		return false
	}
	b.lifecycle.Record(conversationID, ref)
	return true
}

// showFailure renders and shows a localized failure notice, retracting
// any currently displayed artifact first. Used for failures that are not
// tied to an in-flight generation attempt.
func (b *Bot) showFailure(ctx context.Context, conversationID string, kind classify.Kind, language lang.Language, reason string) {
	b.lifecycle.Retract(ctx, conversationID)

	msg := classify.Render(kind, language, reason)
	ref, err := b.transport.SendText(ctx, conversationID, msg)
	if err != nil {
		log.Errorf("send failure notice to %s: %v", conversationID, err)
		return
	}
	_, err = b.sessions.Update(ctx, conversationID, func(s *session.Session) error {
		s.DisplayedRef = string(ref)
		return s.Transition(session.StateFailed)
	})
	if err != nil {
		log.Errorf("record failure notice for %s: %v", conversationID, err)
		return
	}
	b.lifecycle.Record(conversationID, ref)
}

// showFailureAt is showFailure for a specific generation attempt: the
// notice is only shown while the attempt is still the current one.
func (b *Bot) showFailureAt(
	ctx context.Context,
	conversationID string,
	epoch uint64,
	kind classify.Kind,
	language lang.Language,
	reason string,
) {
	msg := classify.Render(kind, language, reason)
	ref, err := b.transport.SendText(ctx, conversationID, msg)
	if err != nil {
		log.Errorf("send failure notice to %s: %v", conversationID, err)
		return
	}
	if !b.record(ctx, conversationID, epoch, ref, session.StateFailed) {
		if err := b.transport.DeleteMessage(ctx, conversationID, ref); err != nil {
			log.Debugf("could not delete superseded notice %s for %s: %v", ref, conversationID, err)
		}
	}
}

// attachDownload adds a download link next to the regenerate buttons once
// the transport has a hosted URL for the delivered image. Best-effort:
// transports without hosting simply keep the regenerate buttons.
func (b *Bot) attachDownload(ctx context.Context, conversationID string, ref transport.Ref) {
	editor, ok := b.transport.(transport.AffordanceEditor)
	if !ok {
		return
	}
	url, err := editor.HostedURL(ctx, conversationID, ref)
	if err != nil || url == "" {
		log.Debugf("no hosted url for %s/%s: %v", conversationID, ref, err)
		return
	}
	affordances := append(regenerateAffordances(), transport.Affordance{
		Label: labelDownload,
		URL:   url,
	})
	if err := editor.UpdateAffordances(ctx, conversationID, ref, affordances); err != nil {
		log.Debugf("attach download button for %s/%s: %v", conversationID, ref, err)
	}
}

// regenerateAffordances returns the button rows attached to every
// generated image.
func regenerateAffordances() []transport.Affordance {
	return []transport.Affordance{
		{Label: labelEntire, Action: transport.ActionRegenerate},
		{Label: labelGo, Action: transport.ActionRegenerate},
	}
}
