// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// Clone returns a deep copy of the session. Mutating the copy never
// touches the original, so snapshots can leave the store's lock.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	out.Settings = s.Settings.Clone()
	return &out
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Quote != nil {
		q := *m.Quote
		out.Quote = &q
	}
	if m.Transfer != nil {
		t := *m.Transfer
		out.Transfer = &t
	}
	return out
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	out := s
	out.ActiveStickerIDs = append([]string(nil), s.ActiveStickerIDs...)
	out.ActiveWorldbooks = append([]string(nil), s.ActiveWorldbooks...)
	return out
}
