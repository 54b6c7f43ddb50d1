// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sort"
	"time"

	"github.com/jeranaias/tata/internal/chat"
)

// =============================================================================
// USER-SIDE OPERATIONS
// =============================================================================

// userRecallContent replaces a message the user recalls.
const userRecallContent = "你撤回了一条消息"

// UserMessage is one user-authored turn to append.
type UserMessage struct {
	Text      string
	Quote     *chat.Quote
	Image     string
	Type      string
	FakePhoto string
	Transfer  *chat.Transfer
}

// SendUserMessage appends a user turn and refreshes the session
// summary.
func (s *Store) SendUserMessage(sessionID string, in UserMessage) bool {
	return s.Update(sessionID, func(sess *chat.Session) {
		msgType := in.Type
		if msgType == "" {
			msgType = chat.TypeText
		}
		msg := chat.Message{
			Role:      chat.RoleUser,
			Type:      msgType,
			Content:   in.Text,
			Quote:     in.Quote,
			Image:     in.Image,
			FakePhoto: in.FakePhoto,
			Transfer:  in.Transfer,
		}
		sess.Messages = append(sess.Messages, msg)
		if msg.Content != "" {
			sess.LastMessage = msg.Content
		} else {
			sess.LastMessage = "[图片]"
		}
		sess.LastTime = time.Now().UnixMilli()
	})
}

// RecallUserMessage replaces the user's message at index with a system
// recall notice keeping the original content. Only user messages can
// be recalled this way.
func (s *Store) RecallUserMessage(sessionID string, index int) bool {
	recalled := false
	ok := s.Update(sessionID, func(sess *chat.Session) {
		if index < 0 || index >= len(sess.Messages) {
			return
		}
		m := sess.Messages[index]
		if m.Role != chat.RoleUser {
			return
		}
		sess.Messages[index] = chat.Message{
			Role:            chat.RoleSystem,
			Type:            chat.TypeText,
			Content:         userRecallContent,
			IsRecall:        true,
			OriginalContent: m.Content,
		}
		recalled = true
	})
	return ok && recalled
}

// EditMessageContent rewrites the content of a non-system message.
func (s *Store) EditMessageContent(sessionID string, index int, content string) bool {
	edited := false
	ok := s.Update(sessionID, func(sess *chat.Session) {
		if index < 0 || index >= len(sess.Messages) {
			return
		}
		if sess.Messages[index].Role == chat.RoleSystem {
			return
		}
		sess.Messages[index].Content = content
		edited = true
	})
	return ok && edited
}

// DeleteMessages removes the messages at the given indices. Indices
// are deleted highest-first so earlier removals cannot shift later
// targets.
func (s *Store) DeleteMessages(sessionID string, indices []int) bool {
	return s.Update(sessionID, func(sess *chat.Session) {
		sorted := append([]int(nil), indices...)
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		for _, idx := range sorted {
			if idx < 0 || idx >= len(sess.Messages) {
				continue
			}
			sess.Messages = append(sess.Messages[:idx], sess.Messages[idx+1:]...)
		}
	})
}

// ClearHistory drops every message in the session.
func (s *Store) ClearHistory(sessionID string) bool {
	return s.Update(sessionID, func(sess *chat.Session) {
		sess.Messages = nil
		sess.LastMessage = ""
	})
}

// TruncateAfterLastUser removes everything after the most recent user
// message, so a fresh generation can replace the discarded replies.
// Returns false when the session has no user message.
func (s *Store) TruncateAfterLastUser(sessionID string) bool {
	truncated := false
	ok := s.Update(sessionID, func(sess *chat.Session) {
		lastUser := -1
		for i := len(sess.Messages) - 1; i >= 0; i-- {
			if sess.Messages[i].Role == chat.RoleUser {
				lastUser = i
				break
			}
		}
		if lastUser == -1 {
			return
		}
		if lastUser < len(sess.Messages)-1 {
			sess.Messages = sess.Messages[:lastUser+1]
		}
		truncated = true
	})
	return ok && truncated
}
