// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"
	"unicode/utf8"
)

// =============================================================================
// PACING
// =============================================================================

// Reveal timing. Streaming already arrives at a natural pace, so a
// small fixed pause is enough to keep bubbles visually sequential.
// Batch responses arrive whole and get a typing cadence derived from
// bubble length instead.
const (
	streamPause   = 100 * time.Millisecond
	batchMinDelay = 800 * time.Millisecond
	batchMaxDelay = 3 * time.Second
	batchPerRune  = 50 * time.Millisecond
)

// BatchDelay computes the reveal delay for one batch bubble from its
// rune count, clamped to [batchMinDelay, batchMaxDelay].
func BatchDelay(segment string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(segment)) * batchPerRune
	if d < batchMinDelay {
		return batchMinDelay
	}
	if d > batchMaxDelay {
		return batchMaxDelay
	}
	return d
}

// pause sleeps for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
