// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"
)

// =============================================================================
// ROLES AND MESSAGE TYPES
// =============================================================================

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message types. The type decides which optional fields are active.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeTransfer = "transfer"
)

// Transfer lifecycle states. A transfer moves from pending to exactly
// one of received or returned, never back.
const (
	TransferPending  = "pending"
	TransferReceived = "received"
	TransferReturned = "returned"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one peer conversation. It is owned by the store; the
// orchestrator and user-initiated edits mutate it in place under the
// store's writer lock.
type Session struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`

	// Status is the peer's conversation-wide status line. The parser
	// writes it through when a [STATUS:...] tag appears.
	Status string `json:"status,omitempty"`

	LastMessage string `json:"lastMessage,omitempty"`
	LastTime    int64  `json:"lastTime,omitempty"`

	// IsGenerating guards against re-entrant generation. At most one
	// generation cycle may be in flight per session.
	IsGenerating bool `json:"isGenerating"`

	Messages []Message `json:"messages"`
	Settings Settings  `json:"settings"`
}

// Settings is the per-session free-form configuration block.
type Settings struct {
	UserName   string `json:"userName,omitempty"`
	UserAvatar string `json:"userAvatar,omitempty"`

	// SystemPrompt is the character persona; UserPersona describes the
	// human side of the roleplay.
	SystemPrompt string `json:"systemPrompt,omitempty"`
	UserPersona  string `json:"userPersona,omitempty"`

	LongTermMemory  string `json:"longTermMemory,omitempty"`
	ShortTermMemory string `json:"shortTermMemory,omitempty"`

	// EnableLongText switches the model to long-form output; bubble
	// splitting instructions are omitted from the system turn.
	EnableLongText bool   `json:"enableLongText"`
	NovelStyle     string `json:"novelStyle,omitempty"`

	// EnableTranslation turns on the dialect + [TRANSLATION] contract.
	EnableTranslation bool `json:"enableTranslation"`

	// ActiveStickerIDs are sticker URLs the model may reference. A
	// [STICKER: url] tag outside this set is stripped silently.
	ActiveStickerIDs []string `json:"activeStickerIds,omitempty"`

	// ActiveWorldbooks are worldbook entry IDs injected into the
	// outbound system turn.
	ActiveWorldbooks []string `json:"activeWorldbooks,omitempty"`

	FontSize int `json:"fontSize,omitempty"`
}

// StickerActive reports whether url is in the session's active set.
func (s *Settings) StickerActive(url string) bool {
	for _, id := range s.ActiveStickerIDs {
		if id == url {
			return true
		}
	}
	return false
}

// UserDisplayName returns the configured user name, falling back to the
// default self-reference used in quote attributions.
func (s *Settings) UserDisplayName() string {
	if strings.TrimSpace(s.UserName) != "" {
		return s.UserName
	}
	return "我"
}

// =============================================================================
// MESSAGE
// =============================================================================

// Quote is a quoted-reply reference attached to a message.
type Quote struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Transfer is a modeled peer-to-peer payment attached to a
// transfer-typed message.
type Transfer struct {
	ID     string `json:"id,omitempty"`
	Amount string `json:"amount"` // fixed two-decimal rendering
	Remark string `json:"remark,omitempty"`
	Status string `json:"status"`
	// CreatedAt is a unix millisecond timestamp.
	CreatedAt int64 `json:"createdAt"`
}

// Message is one bubble in a session.
type Message struct {
	Role    string `json:"role"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`

	// OS is the inner monologue, rendered separately from the content.
	OS string `json:"os,omitempty"`

	Quote *Quote `json:"quote,omitempty"`

	// Image is a sticker or photo reference.
	Image string `json:"image,omitempty"`

	// FakePhoto is the caption of a simulated photo.
	FakePhoto string `json:"fakePhotoContent,omitempty"`

	Translation     string `json:"translation,omitempty"`
	ShowTranslation bool   `json:"showTranslation,omitempty"`

	Transfer *Transfer `json:"transfer,omitempty"`

	// IsRecall marks a recalled message; OriginalContent preserves the
	// pre-recall text verbatim.
	IsRecall        bool   `json:"isRecall,omitempty"`
	OriginalContent string `json:"originalContent,omitempty"`
}

// IsEmpty reports whether an assistant message carries nothing worth
// keeping: no visible content, no image, no monologue, no transfer.
// Such messages are pruned at the end of every generation cycle.
func (m *Message) IsEmpty() bool {
	if m.Role != RoleAssistant {
		return false
	}
	return strings.TrimSpace(m.Content) == "" &&
		m.Image == "" &&
		strings.TrimSpace(m.OS) == "" &&
		m.Transfer == nil
}

// Summary returns the short preview string used for a session's last
// message line.
func (m *Message) Summary() string {
	if m.Role == RoleSystem {
		return "[撤回消息]"
	}
	if m.Content != "" {
		return m.Content
	}
	return "(无内容)"
}

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult is the transient outcome of parsing one segment. It is
// produced fresh per segment and consumed immediately by Upsert.
type ParseResult struct {
	Content         string
	OS              string
	Quote           *Quote
	IsRecall        bool
	OriginalContent string
	StickerURL      string
	MsgType         string
	Translation     string
	FakePhoto       string
	Transfer        *Transfer
}

// =============================================================================
// COLLABORATOR TYPES
// =============================================================================

// Sticker is one leaf entry of the sticker library, as exposed to the
// prompt builder.
type Sticker struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WorldbookEntry is one active lore/rule entry injected into the
// outbound system turn.
type WorldbookEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SessionStore is the state container the orchestrator works against.
// All writes go through Update, which runs fn under the store's single
// writer lock; reads come from deep Snapshot copies.
type SessionStore interface {
	// Update runs fn against the live session. Returns false if the
	// session does not exist.
	Update(id string, fn func(*Session)) bool

	// Snapshot returns a deep copy of the session.
	Snapshot(id string) (*Session, bool)

	// CurrentViewing returns the id of the session the user is looking
	// at right now, or "" if none.
	CurrentViewing() string

	// ActiveStickers resolves active sticker URLs to library entries.
	ActiveStickers(ids []string) []Sticker

	// ActiveWorldbooks resolves active worldbook entry ids.
	ActiveWorldbooks(ids []string) []WorldbookEntry
}

// Notification is the payload handed to the notification collaborator.
type Notification struct {
	Title     string
	Content   string
	Avatar    string
	SessionID string
}

// Notifier raises transient cross-session notifications.
type Notifier interface {
	Notify(n Notification, autoDismiss time.Duration)
}
