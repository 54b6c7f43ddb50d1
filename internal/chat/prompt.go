// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/jeranaias/tata/internal/cloud"
)

// =============================================================================
// OUTBOUND PROMPT
// =============================================================================

// HistoryWindow is the number of recent messages projected into each
// outbound request.
const HistoryWindow = 20

// BuildSystemPrompt assembles the system instruction for a session:
// role-play and monologue contract, bubble-splitting rules, active
// worldbooks, persona and memory blocks, the sticker manifest, photo
// and translation rules, and the generic tag reference. The prompt is
// the other half of the markup protocol the parser consumes.
func BuildSystemPrompt(session *Session, stickers []Sticker, worldbooks []WorldbookEntry) string {
	var b strings.Builder

	b.WriteString("【重要指令】你正在进行角色扮演。请严格遵守人设。严禁跳出角色。\n\n")

	b.WriteString("【强制要求】\n")
	b.WriteString("1. **每一条回复**都必须包含【心声】，用来描写你的心理活动或潜台词。\n")
	b.WriteString("2. 心声必须放在回复的最开头，用【】包裹。\n")
	b.WriteString("3. 格式示例：【他居然这么说...】是的，没错。\n\n")

	if !session.Settings.EnableLongText {
		b.WriteString("【排版约束 - 气泡分割】\n")
		b.WriteString("1. 严禁发送一大段长文字。\n")
		b.WriteString("2. **必须**使用双换行符 `\\n\\n` 来分割不同的句子或观点。\n")
		b.WriteString("3. 每一个 `\\n\\n` 将会被前端识别为气泡的分割点，请利用这一点来模拟多条消息连发的效果。\n")
	}

	if len(worldbooks) > 0 {
		b.WriteString("【世界观与法则】\n")
		for _, wb := range worldbooks {
			fmt.Fprintf(&b, "- %s: %s\n", wb.Title, wb.Content)
		}
		b.WriteString("\n")
	}

	if session.Settings.SystemPrompt != "" {
		fmt.Fprintf(&b, "【Char设定】\n%s\n\n", session.Settings.SystemPrompt)
	}
	if session.Settings.UserPersona != "" {
		fmt.Fprintf(&b, "【User设定】\n%s\n\n", session.Settings.UserPersona)
	}
	if session.Settings.LongTermMemory != "" {
		fmt.Fprintf(&b, "【长期记忆】\n%s\n\n", session.Settings.LongTermMemory)
	}
	if session.Settings.ShortTermMemory != "" {
		fmt.Fprintf(&b, "【短期记忆】\n%s\n\n", session.Settings.ShortTermMemory)
	}

	if len(stickers) > 0 {
		b.WriteString("【可用表情包】\n")
		b.WriteString("严禁编造链接。只能使用以下列表中的链接发送图片。\n")
		b.WriteString("发送格式: `[STICKER: 链接]`\n")
		for _, s := range stickers {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.URL)
		}
		b.WriteString("\n")
	}

	b.WriteString("【发送照片】\n")
	b.WriteString("如果你想发送一张自拍、风景照或物品照片，请使用格式：`[PHOTO: 照片内容的详细描述]`。\n")
	b.WriteString("例如：`[PHOTO: 一只正在晒太阳的橘猫]`。\n")
	b.WriteString("系统会自动将其转换为一张照片卡片。\n\n")

	b.WriteString("\n【交互模式指令】\n")
	if session.Settings.EnableLongText {
		b.WriteString("1. 当前为【长文/小说模式】，输出完整长段落。\n")
		if session.Settings.NovelStyle != "" {
			fmt.Fprintf(&b, "2. 风格: %s\n", session.Settings.NovelStyle)
		}
	} else {
		b.WriteString("1. 当前为【即时聊天模式】，请模拟即时通讯软件。\n")
		b.WriteString("2. **Output pure text only.** Do NOT wrap your entire response in quotation marks.\n")
	}

	if session.Settings.EnableTranslation {
		b.WriteString("\n<DialogueRule>\n")
		b.WriteString("- All **spoken dialogues by {{char}}** must be written in Cantonese colloquial Chinese, with occasional Standard Chinese and English mixed in.\n")
		b.WriteString("- Each spoken line must be immediately followed by a Standard Chinese translation tag.\n")
		b.WriteString("- Do NOT use quotation marks around the main response.\n")
		b.WriteString("- Format example:\n")
		b.WriteString("  你喺度做乜呀？\n\n[TRANSLATION]: (你在干嘛呀？)\n")
		b.WriteString("- Inner monologues, narration, and environmental descriptions are **not bound** by this rule.\n")
		b.WriteString("</DialogueRule>\n")
	}

	b.WriteString("\n【通用功能】\n")
	b.WriteString("1. 引用: `[QUOTE:原文]`\n2. 状态: `[STATUS:状态名]`\n3. 撤回: `[RECALL]`\n4. 心声: 用【】包裹放在开头。\n")
	b.WriteString("5. 表情包: `[STICKER: 链接]`\n")
	b.WriteString("6. 如果用户发送了图片，请根据图片内容自然回复。\n")

	return b.String()
}

// ProjectHistory converts the most recent HistoryWindow messages into
// the request payload shape. Fake photos collapse into a text note,
// user quotes are rendered as a prefix line, and real image messages
// take the multimodal parts form.
func ProjectHistory(session *Session) []cloud.ChatMessage {
	msgs := session.Messages
	if len(msgs) > HistoryWindow {
		msgs = msgs[len(msgs)-HistoryWindow:]
	}

	out := make([]cloud.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if m.FakePhoto != "" {
			content = fmt.Sprintf("(发送了一张照片，内容是：%s)", m.FakePhoto)
		}
		if m.Role == RoleUser && m.Quote != nil {
			content = fmt.Sprintf("(引用: %q)\n%s", m.Quote.Content, content)
		}

		if m.FakePhoto == "" && hasProjectableImage(m.Image) {
			if content == "" {
				content = "（发送了一张图片）"
			}
			out = append(out, cloud.NewImageMessage(m.Role, content, m.Image))
			continue
		}

		if content == "" {
			content = "(空)"
		}
		out = append(out, cloud.NewTextMessage(m.Role, content))
	}
	return out
}

// BuildRequestMessages prepends the system prompt to the projected
// history.
func BuildRequestMessages(session *Session, stickers []Sticker, worldbooks []WorldbookEntry) []cloud.ChatMessage {
	msgs := []cloud.ChatMessage{
		cloud.NewSystemMessage(BuildSystemPrompt(session, stickers, worldbooks)),
	}
	return append(msgs, ProjectHistory(session)...)
}

// hasProjectableImage reports whether ref is an image the endpoint can
// fetch or decode.
func hasProjectableImage(ref string) bool {
	return strings.HasPrefix(ref, "http") || strings.HasPrefix(ref, "data:image")
}
