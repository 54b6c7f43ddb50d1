// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify holds the transient cross-session notification state.
//
// One notification is visible at a time; raising a new one replaces
// the current one and restarts the dismiss timer.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/tata/internal/chat"
)

// subscriber channel depth.
const eventBuffer = 8

// Center implements chat.Notifier. The zero value is not usable; use
// NewCenter.
type Center struct {
	mu      sync.Mutex
	current *chat.Notification
	seq     uint64
	timer   *time.Timer
	subs    []chan chat.Notification
	log     zerolog.Logger
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{log: zerolog.Nop()}
}

// WithLogger attaches a logger.
func (c *Center) WithLogger(log zerolog.Logger) *Center {
	c.log = log
	return c
}

// Notify shows n and schedules its dismissal after autoDismiss. A zero
// duration leaves the notification up until replaced or dismissed.
func (c *Center) Notify(n chat.Notification, autoDismiss time.Duration) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.current = &n
	c.seq++
	seq := c.seq
	if autoDismiss > 0 {
		c.timer = time.AfterFunc(autoDismiss, func() {
			c.dismissSeq(seq)
		})
	}
	subs := c.subs
	c.mu.Unlock()

	c.log.Debug().Str("title", n.Title).Str("session", n.SessionID).Msg("notification raised")
	for _, ch := range subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Current returns the visible notification, or nil.
func (c *Center) Current() *chat.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	n := *c.current
	return &n
}

// Dismiss hides the current notification immediately.
func (c *Center) Dismiss() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.current = nil
	c.mu.Unlock()
}

// dismissSeq clears the notification only if it is still the one the
// timer was armed for; a replacement raised in between stays up.
func (c *Center) dismissSeq(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq {
		return
	}
	c.current = nil
	c.timer = nil
}

// Subscribe returns a channel receiving each raised notification.
// Buffered; a slow reader drops notifications rather than blocking.
func (c *Center) Subscribe() <-chan chat.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan chat.Notification, eventBuffer)
	c.subs = append(c.subs, ch)
	return ch
}
