// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strings"

// =============================================================================
// SEGMENTER
// =============================================================================

// bubbleDelim separates conceptually distinct utterances. The system
// prompt instructs the model to emit it between bubbles, so it is the
// canonical boundary in both streaming and batch modes.
const bubbleDelim = "\n\n"

// Segmenter accumulates streamed deltas and emits finished segments at
// each double-newline boundary. The zero value is ready to use.
type Segmenter struct {
	buf strings.Builder
}

// Feed appends delta to the buffer and returns all segments completed
// by it, in order. The text after the last boundary stays buffered.
func (s *Segmenter) Feed(delta string) []string {
	s.buf.WriteString(delta)
	text := s.buf.String()
	if !strings.Contains(text, bubbleDelim) {
		return nil
	}

	parts := strings.Split(text, bubbleDelim)
	s.buf.Reset()
	s.buf.WriteString(parts[len(parts)-1])

	segments := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		if strings.TrimSpace(p) != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Pending returns the text buffered past the last boundary, without
// consuming it. Useful for progressive preview of the bubble in flight.
func (s *Segmenter) Pending() string {
	return s.buf.String()
}

// Flush drains the remainder at stream end. It returns "" when nothing
// meaningful is buffered.
func (s *Segmenter) Flush() string {
	rest := s.buf.String()
	s.buf.Reset()
	if strings.TrimSpace(rest) == "" {
		return ""
	}
	return rest
}

// SplitBatch cuts a complete response into ordered segments, dropping
// blanks. Batch and streaming segmentation agree on the same boundary.
func SplitBatch(text string) []string {
	parts := strings.Split(text, bubbleDelim)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
