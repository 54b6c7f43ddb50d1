// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/tata/internal/chat"
	"github.com/jeranaias/tata/internal/util"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// previewWidth bounds single-line previews (session list, quotes).
const previewWidth = 40

// renderConversation draws the whole session, one bubble per message,
// prefixed with its index so message commands can target it.
func renderConversation(s *chat.Session) string {
	var b strings.Builder

	b.WriteString(welcomeStyle.Render("== "+displayName(s)) + "\n")
	if s.Status != "" {
		b.WriteString(statusStyle.Render("["+s.Status+"]") + "\n")
	}
	b.WriteString("\n")

	for i, m := range s.Messages {
		b.WriteString(renderMessage(s, i, &m))
	}
	return b.String()
}

// renderMessage draws one bubble with its index tag.
func renderMessage(s *chat.Session, index int, m *chat.Message) string {
	var b strings.Builder
	tag := infoStyle.Render(fmt.Sprintf("[%d]", index))

	if m.Role == chat.RoleSystem {
		b.WriteString(fmt.Sprintf("%s %s\n\n", tag, systemStyle.Render("-- "+m.Content+" --")))
		return b.String()
	}

	name := displayName(s)
	nameStyle := peerNameStyle
	if m.Role == chat.RoleUser {
		name = s.Settings.UserDisplayName()
		nameStyle = selfNameStyle
	}

	if m.OS != "" {
		b.WriteString(osStyle.Render("("+m.OS+")") + "\n")
	}

	b.WriteString(fmt.Sprintf("%s %s\n", tag, nameStyle.Render(name+":")))

	if m.Quote != nil {
		q := fmt.Sprintf("%s: %s", m.Quote.Name, util.TruncateRunes(m.Quote.Content, previewWidth))
		b.WriteString(quoteStyle.Render(q) + "\n")
	}

	switch m.Type {
	case chat.TypeTransfer:
		b.WriteString(renderTransfer(m.Transfer) + "\n")
	case chat.TypeImage:
		b.WriteString(renderImage(m) + "\n")
	default:
		if m.Content != "" {
			b.WriteString(m.Content + "\n")
		}
	}

	if m.FakePhoto != "" && m.Type != chat.TypeImage {
		b.WriteString(infoStyle.Render("[照片] "+m.FakePhoto) + "\n")
	}
	if m.Translation != "" {
		b.WriteString(translationStyle.Render("译: "+m.Translation) + "\n")
	}

	b.WriteString("\n")
	return b.String()
}

// renderTransfer draws a transfer card with its lifecycle state.
func renderTransfer(t *chat.Transfer) string {
	if t == nil {
		return transferStyle.Render("转账")
	}
	label := "转账"
	switch t.Status {
	case chat.TransferReceived:
		label = "已收款"
	case chat.TransferReturned:
		label = "已退还"
	}
	card := fmt.Sprintf("¥%s  %s", t.Amount, label)
	if t.Remark != "" && t.Remark != label {
		card += "\n" + t.Remark
	}
	return transferStyle.Render(card)
}

// renderImage draws a sticker or photo bubble. Terminal rendering shows
// the reference, not the pixels.
func renderImage(m *chat.Message) string {
	if m.FakePhoto != "" {
		return infoStyle.Render("[照片] " + m.FakePhoto)
	}
	ref := util.TruncateRunes(m.Image, previewWidth)
	if m.Content != "" {
		return m.Content + "\n" + infoStyle.Render("[图片] "+ref)
	}
	return infoStyle.Render("[图片] " + ref)
}

// renderSessionList draws the session list with positions, names and
// last-message previews.
func renderSessionList(sessions []*chat.Session, viewing string) string {
	if len(sessions) == 0 {
		return infoStyle.Render("no sessions yet; /new NAME creates one") + "\n"
	}

	var b strings.Builder
	for i, s := range sessions {
		marker := "  "
		if s.ID == viewing {
			marker = promptStyle.Render("> ")
		}
		preview := util.TruncateRunes(s.LastMessage, previewWidth)
		if preview == "" {
			preview = infoStyle.Render("(empty)")
		}
		busy := ""
		if s.IsGenerating {
			busy = warningStyle.Render(" [typing]")
		}
		b.WriteString(fmt.Sprintf("%s%d. %s%s  %s\n",
			marker, i+1, peerNameStyle.Render(displayName(s)), busy, preview))
	}
	return b.String()
}

// displayName returns the session's peer name, defaulting when unset.
func displayName(s *chat.Session) string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return "AI"
}
