// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// MARKUP CONSTANTS
// =============================================================================

// Fixed strings of the markup protocol. These are part of the wire
// contract with the model's system prompt and must not be localized.
const (
	// RecallTag marks a whole segment as recalled.
	RecallTag = "[RECALL]"

	// recalledContent replaces the visible text of a recalled segment.
	recalledContent = "对方撤回了一条消息"

	// recalledFallback stands in when the original text is empty.
	recalledFallback = "(内容已撤回)"

	// transferPlaceholder replaces the visible text of transfer bubbles.
	transferPlaceholder = "[转账]"

	// transferDefaultRemark is used when the tag carries no remark.
	transferDefaultRemark = "转账给朋友"

	// fakePhotoImage is the deterministic placeholder attached to
	// [PHOTO: ...] bubbles.
	fakePhotoImage = "https://i.postimg.cc/MHKmwm1N/tu-pian-yi-bei-xiao-mao-chi-diao.jpg"
)

// =============================================================================
// TAG PATTERNS
// =============================================================================

// Tag patterns, compiled once. Order of application in Parse defines
// the protocol's precedence; each tag is stripped before the next one
// is searched, so reordering changes the result when tags overlap.
var (
	translationRe = regexp.MustCompile(`(?is)(\n\s*)?\[TRANSLATION\][:：]?\s*(.*)$`)
	photoRe       = regexp.MustCompile(`(?i)\[PHOTO\s*:\s*(.*?)\]`)
	stickerRe     = regexp.MustCompile(`\[STICKER\s*:\s*(.*?)\]`)
	transferRe    = regexp.MustCompile(`(?i)\[TRANSFER\s*[:：]\s*(-?[0-9]+(?:\.[0-9]+)?)(?:\s*[,，]\s*([^\]]*))?\]`)
	statusRe      = regexp.MustCompile(`\[STATUS:(.*?)\]`)
	quoteRe       = regexp.MustCompile(`\[QUOTE:(.*?)\]`)
	osRe          = regexp.MustCompile(`(?s)【(.*?)】`)
	osLabelRe     = regexp.MustCompile(`(?i)^\s*(?:心声|monologue|os)\s*[:：]\s*`)
)

// =============================================================================
// PARSER
// =============================================================================

// Parse maps one raw segment to a ParseResult. It is pure except for a
// single allowed side effect: a [STATUS:...] tag writes through to
// session.Status, because status is conversation-wide rather than
// per-message.
//
// Tags are matched in fixed precedence order, each stripped from the
// working text before the next is searched: RECALL, TRANSLATION, PHOTO,
// STICKER, TRANSFER, STATUS, QUOTE, then the full-width monologue
// brackets. A recall short-circuits everything after it and preserves
// the original text verbatim.
func Parse(segment string, session *Session) ParseResult {
	res := ParseResult{
		Content: segment,
		MsgType: TypeText,
	}

	// 1. Recall. The original is kept untouched; no further tags apply.
	if strings.Contains(res.Content, RecallTag) {
		res.IsRecall = true
		res.OriginalContent = strings.TrimSpace(strings.Replace(res.Content, RecallTag, "", 1))
		if res.OriginalContent == "" {
			res.OriginalContent = recalledFallback
		}
		res.Content = recalledContent
		return res
	}

	// 2. Translation: everything after the marker to end of segment.
	if m := translationRe.FindStringSubmatchIndex(res.Content); m != nil {
		res.Translation = strings.TrimSpace(res.Content[m[4]:m[5]])
		res.Content = strings.TrimSpace(res.Content[:m[0]] + res.Content[m[1]:])
	}

	// 3. Fake photo: caption captured, placeholder image attached.
	if m := photoRe.FindStringSubmatch(res.Content); m != nil {
		res.FakePhoto = strings.TrimSpace(m[1])
		res.StickerURL = fakePhotoImage
		res.Content = strings.TrimSpace(strings.Replace(res.Content, m[0], "", 1))
		res.MsgType = TypeImage
	}

	// 4. Sticker: honored only when the URL is in the active set.
	// Rejected stickers are stripped silently, never surfaced as errors.
	if m := stickerRe.FindStringSubmatch(res.Content); m != nil {
		url := strings.TrimSpace(m[1])
		res.Content = strings.TrimSpace(strings.Replace(res.Content, m[0], "", 1))
		if session.Settings.StickerActive(url) {
			res.StickerURL = url
			if res.Content == "" {
				res.MsgType = TypeImage
			}
		}
	}

	// 5. Transfer: amount rendered to exactly two decimals, status
	// starts pending.
	if m := transferRe.FindStringSubmatch(res.Content); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err == nil && amount >= 0 {
			remark := strings.TrimSpace(m[2])
			if remark == "" {
				remark = transferDefaultRemark
			}
			res.Transfer = &Transfer{
				Amount:    fmt.Sprintf("%.2f", amount),
				Remark:    remark,
				Status:    TransferPending,
				CreatedAt: time.Now().UnixMilli(),
			}
			res.MsgType = TypeTransfer
			res.Content = transferPlaceholder
			return res
		}
		// Unparseable amount: strip the tag, keep going as plain text.
		res.Content = strings.TrimSpace(strings.Replace(res.Content, m[0], "", 1))
	}

	// 6. Status: conversation-wide write-through.
	if m := statusRe.FindStringSubmatch(res.Content); m != nil {
		session.Status = m[1]
		res.Content = strings.Replace(res.Content, m[0], "", 1)
	}

	// 7. Quote: the speaker is always the session's user display name,
	// since only user utterances can be quoted back by the peer.
	if m := quoteRe.FindStringSubmatch(res.Content); m != nil {
		res.Quote = &Quote{
			Name:    session.Settings.UserDisplayName(),
			Content: m[1],
		}
		res.Content = strings.Replace(res.Content, m[0], "", 1)
	}

	// 8. Inner monologue. The protocol puts it at the start of the
	// segment inside full-width brackets; an unclosed bracket is
	// recovered by treating everything after it as monologue.
	if m := osRe.FindStringSubmatch(res.Content); m != nil {
		res.OS = stripOSLabel(m[1])
		res.Content = osRe.ReplaceAllString(res.Content, "")
	} else if i := strings.Index(res.Content, "【"); i >= 0 {
		res.OS = stripOSLabel(res.Content[i+len("【"):])
		if res.OS == "" {
			res.OS = "..."
		}
		res.Content = res.Content[:i]
	}

	if res.MsgType == TypeText {
		res.Content = strings.TrimSpace(res.Content)
	}

	// A reply consisting only of a translation tag would otherwise
	// vanish; promote the translation to visible content.
	if res.Content == "" && res.Translation != "" {
		res.Content = res.Translation
		res.Translation = ""
	}

	// A quote with no surviving content has nothing to anchor to.
	if res.Content == "" {
		res.Quote = nil
	}

	return res
}

// stripOSLabel removes a leading role label ("心声:", "OS:", ...) from
// monologue text.
func stripOSLabel(os string) string {
	return strings.TrimSpace(osLabelRe.ReplaceAllString(os, ""))
}
