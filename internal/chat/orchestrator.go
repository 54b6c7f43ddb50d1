// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/tata/internal/avatar"
	"github.com/jeranaias/tata/internal/cloud"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Notification display durations.
const (
	messageNoticeDuration = 4 * time.Second
	configNoticeDuration  = 3 * time.Second
)

// ErrBusy indicates a generation is already running for the session.
var ErrBusy = errors.New("generation already in progress")

// ErrSessionNotFound indicates the session id resolved to nothing.
var ErrSessionNotFound = errors.New("session not found")

// UserInput is an optional user turn sent alongside a generation
// trigger.
type UserInput struct {
	Text      string
	Quote     *Quote
	Image     string
	Type      string
	FakePhoto string
}

// empty reports whether the input carries nothing to append.
func (in UserInput) empty() bool {
	return in.Text == "" && in.Image == ""
}

// Orchestrator drives one generation cycle per call: append the user
// turn, project history, call the endpoint, and feed finished segments
// through command resolution, parsing, materialization and pacing.
//
// At most one cycle runs per session at a time, enforced by the
// session busy flag. Independent sessions may generate concurrently.
type Orchestrator struct {
	store    SessionStore
	notifier Notifier
	log      zerolog.Logger

	// mu guards client and stream, which config hot reload may swap
	// while cycles are running.
	mu     sync.RWMutex
	client *cloud.Client
	stream bool
}

// NewOrchestrator wires an orchestrator to its collaborators.
func NewOrchestrator(store SessionStore, client *cloud.Client, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		store:    store,
		client:   client,
		notifier: notifier,
		log:      zerolog.Nop(),
	}
}

// WithStreaming selects SSE streaming (true) or batch JSON (false).
func (o *Orchestrator) WithStreaming(stream bool) *Orchestrator {
	o.stream = stream
	return o
}

// WithLogger attaches a logger for cycle telemetry.
func (o *Orchestrator) WithLogger(log zerolog.Logger) *Orchestrator {
	o.log = log
	return o
}

// Reconfigure swaps the endpoint client and streaming mode. Cycles
// already in flight finish on the client they started with.
func (o *Orchestrator) Reconfigure(client *cloud.Client, stream bool) {
	o.mu.Lock()
	o.client = client
	o.stream = stream
	o.mu.Unlock()
}

// snapshot returns the client and streaming mode for one cycle.
func (o *Orchestrator) snapshot() (*cloud.Client, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.client, o.stream
}

// Generate runs one full synthesis cycle for the session. If input
// carries a user turn it is appended before the request goes out.
//
// Whatever happens mid-cycle, the terminal pass prunes empty assistant
// messages and clears the busy flag.
func (o *Orchestrator) Generate(ctx context.Context, sessionID string, input UserInput) error {
	client, stream := o.snapshot()
	if !client.IsConfigured() {
		o.notifier.Notify(Notification{
			Title:   "配置错误",
			Content: "未检测到 API Key",
			Avatar:  avatar.Generate("!", RoleAssistant),
		}, configNoticeDuration)
		return cloud.ErrNotConfigured
	}

	// Acquire the busy flag and append the user turn in one step so no
	// rival cycle can interleave between the two.
	acquired := false
	ok := o.store.Update(sessionID, func(s *Session) {
		if s.IsGenerating {
			return
		}
		s.IsGenerating = true
		acquired = true
		if !input.empty() {
			appendUserMessage(s, input)
		}
	})
	if !ok {
		return ErrSessionNotFound
	}
	if !acquired {
		return ErrBusy
	}

	defer o.cleanup(sessionID)

	var messages []cloud.ChatMessage
	o.store.Update(sessionID, func(s *Session) {
		stickers := o.store.ActiveStickers(s.Settings.ActiveStickerIDs)
		worldbooks := o.store.ActiveWorldbooks(s.Settings.ActiveWorldbooks)
		messages = BuildRequestMessages(s, stickers, worldbooks)
	})

	start := time.Now()
	var err error
	if stream {
		err = o.consumeStream(ctx, client, sessionID, messages)
	} else {
		err = o.consumeBatch(ctx, client, sessionID, messages)
	}
	o.log.Debug().
		Str("session", sessionID).
		Bool("stream", stream).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("generation cycle")

	if err != nil {
		o.failCycle(sessionID, err)
		return err
	}

	o.finishCycle(sessionID)
	return nil
}

// =============================================================================
// STREAM AND BATCH CONSUMPTION
// =============================================================================

// cycle tracks bubble placement across one generation. previewIdx is
// the index of the in-flight preview bubble, or -1 when none is open.
type cycle struct {
	previewIdx int
}

// consumeStream drives the SSE path: finished segments materialize at
// their final index, and the trailing partial refreshes a preview
// bubble that the next finished segment claims.
func (o *Orchestrator) consumeStream(ctx context.Context, client *cloud.Client, sessionID string, messages []cloud.ChatMessage) error {
	seg := &Segmenter{}
	cy := &cycle{previewIdx: -1}

	err := client.ChatStream(ctx, messages, func(chunk cloud.StreamChunk) {
		finished := seg.Feed(chunk.GetContent())
		for _, segment := range finished {
			o.materializeSegment(sessionID, segment, cy)
			pause(ctx, streamPause)
		}
		if pending := seg.Pending(); pending != "" {
			o.materializePreview(sessionID, pending, cy)
		}
	})
	if err != nil {
		return err
	}

	if rest := seg.Flush(); rest != "" {
		o.materializeSegment(sessionID, rest, cy)
	}
	return nil
}

// consumeBatch drives the batch path: the full text splits into
// segments, each revealed after a typing-cadence delay.
func (o *Orchestrator) consumeBatch(ctx context.Context, client *cloud.Client, sessionID string, messages []cloud.ChatMessage) error {
	resp, err := client.Chat(ctx, messages)
	if err != nil {
		return err
	}

	cy := &cycle{previewIdx: -1}
	for _, segment := range SplitBatch(resp.GetContent()) {
		pause(ctx, BatchDelay(segment))
		o.materializeSegment(sessionID, segment, cy)
	}
	return nil
}

// materializeSegment runs one finished segment through command
// resolution, parsing and upsert, claiming the preview bubble if one
// is open.
func (o *Orchestrator) materializeSegment(sessionID, segment string, cy *cycle) {
	o.store.Update(sessionID, func(s *Session) {
		resolved := ResolveCommands(segment, s)
		idx := cy.previewIdx
		if idx < 0 {
			idx = len(s.Messages)
		}
		res := Parse(resolved, s)
		Upsert(s, idx, res)
		cy.previewIdx = -1
	})
}

// materializePreview refreshes the in-flight bubble with the partial
// text buffered past the last boundary. Command tokens are stripped but
// not resolved here; they only resolve when their segment finishes.
func (o *Orchestrator) materializePreview(sessionID, pending string, cy *cycle) {
	o.store.Update(sessionID, func(s *Session) {
		if cy.previewIdx < 0 {
			cy.previewIdx = len(s.Messages)
		}
		res := Parse(StripCommands(pending), s)
		Upsert(s, cy.previewIdx, res)
	})
}

// =============================================================================
// CYCLE COMPLETION
// =============================================================================

// finishCycle updates the session summary and raises a cross-session
// notification when the user is looking elsewhere.
func (o *Orchestrator) finishCycle(sessionID string) {
	var notice *Notification
	o.store.Update(sessionID, func(s *Session) {
		if len(s.Messages) == 0 {
			return
		}
		last := s.Messages[len(s.Messages)-1]
		s.LastMessage = last.Summary()

		if o.store.CurrentViewing() != sessionID {
			av := s.Avatar
			if av == "" {
				av = avatar.Generate(s.Name, RoleAssistant)
			}
			notice = &Notification{
				Title:     s.Name,
				Content:   s.LastMessage,
				Avatar:    av,
				SessionID: sessionID,
			}
		}
	})
	if notice != nil {
		o.notifier.Notify(*notice, messageNoticeDuration)
	}
}

// failCycle materializes a single error bubble. Segments already
// revealed stay; nothing is rolled back.
func (o *Orchestrator) failCycle(sessionID string, err error) {
	errText := fmt.Sprintf("[连接失败] %s", err.Error())
	o.store.Update(sessionID, func(s *Session) {
		s.Messages = append(s.Messages, Message{
			Role:    RoleAssistant,
			Type:    TypeText,
			Content: errText,
		})
		s.LastMessage = errText
	})
}

// cleanup is the terminal guarantee of every cycle: drop empty
// assistant bubbles and clear the busy flag, unconditionally.
func (o *Orchestrator) cleanup(sessionID string) {
	o.store.Update(sessionID, func(s *Session) {
		if n := PruneEmpty(s); n > 0 {
			o.log.Debug().Str("session", sessionID).Int("pruned", n).Msg("removed empty bubbles")
		}
		s.IsGenerating = false
	})
}

// appendUserMessage adds the user turn and refreshes the session
// summary fields.
func appendUserMessage(s *Session, in UserInput) {
	msgType := in.Type
	if msgType == "" {
		msgType = TypeText
	}
	msg := Message{
		Role:      RoleUser,
		Type:      msgType,
		Content:   in.Text,
		Quote:     in.Quote,
		Image:     in.Image,
		FakePhoto: in.FakePhoto,
	}
	s.Messages = append(s.Messages, msg)
	if msg.Content != "" {
		s.LastMessage = msg.Content
	} else {
		s.LastMessage = "[图片]"
	}
	s.LastTime = time.Now().UnixMilli()
}
