// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// MATERIALIZER
// =============================================================================

// Upsert writes a parse result into session.Messages at index, growing
// the list with blank assistant messages as needed so indices stay
// aligned. It is idempotent per index: a stream may refine the same
// bubble repeatedly as more of its segment arrives, and a batch segment
// lands in a single call.
//
// Field policy: image and quote are set-or-cleared on every call so a
// refinement never leaves a stale value; monologue, translation,
// fake-photo and transfer are sticky once set, because a later pass
// over the same segment can legitimately no longer carry them (the tag
// was stripped on an earlier pass).
func Upsert(session *Session, index int, res ParseResult) {
	for len(session.Messages) <= index {
		session.Messages = append(session.Messages, Message{
			Role: RoleAssistant,
			Type: TypeText,
		})
	}
	msg := &session.Messages[index]

	if res.IsRecall {
		// Recalled bubbles become system notices, like a user-side
		// recall does.
		*msg = Message{
			Role:            RoleSystem,
			Type:            TypeText,
			Content:         res.Content,
			IsRecall:        true,
			OriginalContent: res.OriginalContent,
		}
		return
	}

	msg.Role = RoleAssistant
	msg.Type = res.MsgType
	msg.Content = res.Content
	msg.IsRecall = false
	msg.OriginalContent = ""

	if res.StickerURL != "" {
		msg.Image = res.StickerURL
	} else if res.MsgType != TypeImage {
		msg.Image = ""
	}
	msg.Quote = res.Quote

	if res.OS != "" {
		msg.OS = res.OS
	}
	if res.Translation != "" {
		msg.Translation = res.Translation
	}
	if res.FakePhoto != "" {
		msg.FakePhoto = res.FakePhoto
	}
	if res.Transfer != nil {
		msg.Transfer = res.Transfer
	}
}

// PruneEmpty drops assistant messages that ended a generation cycle
// with nothing visible. Returns the number removed.
func PruneEmpty(session *Session) int {
	kept := session.Messages[:0]
	removed := 0
	for _, m := range session.Messages {
		if m.IsEmpty() {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	session.Messages = kept
	return removed
}
