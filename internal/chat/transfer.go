// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"
)

// =============================================================================
// TRANSFER COMMANDS
// =============================================================================

// Command tokens the model emits to act on a pending user transfer.
// They resolve before markup parsing and are never shown to the user.
const (
	CmdReceive = "[CMD:RECEIVE]"
	CmdReturn  = "[CMD:RETURN]"
)

// receipt remarks on the assistant-authored summary card.
const (
	receiveRemark = "已收款"
	returnRemark  = "已退还"
)

// ResolveCommands consumes every [CMD:RECEIVE] and [CMD:RETURN] token
// in segment and returns the text with the tokens removed. For each
// token it flips the most recent pending user transfer (reverse scan)
// and appends an assistant transfer card recording the outcome. Tokens
// with no pending transfer to act on are dropped silently.
func ResolveCommands(segment string, session *Session) string {
	for {
		receiveAt := strings.Index(segment, CmdReceive)
		returnAt := strings.Index(segment, CmdReturn)
		if receiveAt < 0 && returnAt < 0 {
			return segment
		}

		// Resolve in textual order when both tokens are present.
		token, status, remark := CmdReceive, TransferReceived, receiveRemark
		if receiveAt < 0 || (returnAt >= 0 && returnAt < receiveAt) {
			token, status, remark = CmdReturn, TransferReturned, returnRemark
		}
		segment = strings.Replace(segment, token, "", 1)

		if t := latestPendingTransfer(session); t != nil {
			t.Status = status
			session.Messages = append(session.Messages, Message{
				Role:    RoleAssistant,
				Type:    TypeTransfer,
				Content: transferPlaceholder,
				Transfer: &Transfer{
					Amount:    t.Amount,
					Remark:    remark,
					Status:    status,
					CreatedAt: time.Now().UnixMilli(),
				},
			})
		}
	}
}

// StripCommands removes command tokens without acting on them. Preview
// bubbles use this: a token buffered past the last boundary must never
// surface, but it only resolves once its segment finishes.
func StripCommands(text string) string {
	text = strings.ReplaceAll(text, CmdReceive, "")
	return strings.ReplaceAll(text, CmdReturn, "")
}

// latestPendingTransfer returns the newest user-authored transfer still
// pending, or nil.
func latestPendingTransfer(session *Session) *Transfer {
	for i := len(session.Messages) - 1; i >= 0; i-- {
		m := &session.Messages[i]
		if m.Role == RoleUser && m.Type == TypeTransfer && m.Transfer != nil && m.Transfer.Status == TransferPending {
			return m.Transfer
		}
	}
	return nil
}
