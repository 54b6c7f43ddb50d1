// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/tata/internal/cloud"
)

func TestBuildSystemPrompt_Sections(t *testing.T) {
	s := &Session{
		ID:   "s1",
		Name: "小雨",
		Settings: Settings{
			SystemPrompt:   "温柔的邻家女孩",
			UserPersona:    "大学生",
			LongTermMemory: "第一次见面在图书馆",
		},
	}
	stickers := []Sticker{{Name: "开心", URL: "http://x/happy.png"}}
	worldbooks := []WorldbookEntry{{Title: "校园", Content: "故事发生在大学城"}}

	prompt := BuildSystemPrompt(s, stickers, worldbooks)

	for _, want := range []string{
		"【重要指令】",
		"【强制要求】",
		"【排版约束 - 气泡分割】",
		"【世界观与法则】\n- 校园: 故事发生在大学城",
		"【Char设定】\n温柔的邻家女孩",
		"【User设定】\n大学生",
		"【长期记忆】\n第一次见面在图书馆",
		"【可用表情包】",
		"- 开心: http://x/happy.png",
		"【即时聊天模式】",
		"【通用功能】",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "【短期记忆】") {
		t.Error("empty memory block should be omitted")
	}
	if strings.Contains(prompt, "<DialogueRule>") {
		t.Error("translation rule present without the toggle")
	}
}

func TestBuildSystemPrompt_LongTextMode(t *testing.T) {
	s := &Session{ID: "s1", Settings: Settings{
		EnableLongText: true,
		NovelStyle:     "细腻写实",
	}}

	prompt := BuildSystemPrompt(s, nil, nil)

	if strings.Contains(prompt, "【排版约束 - 气泡分割】") {
		t.Error("bubble splitting rules must be dropped in long-text mode")
	}
	if !strings.Contains(prompt, "【长文/小说模式】") {
		t.Error("long-text mode instruction missing")
	}
	if !strings.Contains(prompt, "风格: 细腻写实") {
		t.Error("novel style missing")
	}
}

func TestBuildSystemPrompt_TranslationRule(t *testing.T) {
	s := &Session{ID: "s1", Settings: Settings{EnableTranslation: true}}

	prompt := BuildSystemPrompt(s, nil, nil)

	if !strings.Contains(prompt, "<DialogueRule>") {
		t.Error("dialogue rule missing with translation enabled")
	}
	if !strings.Contains(prompt, "[TRANSLATION]: (你在干嘛呀？)") {
		t.Error("format example missing")
	}
}

func TestProjectHistory_Window(t *testing.T) {
	s := &Session{ID: "s1"}
	for i := 0; i < HistoryWindow+5; i++ {
		s.Messages = append(s.Messages, Message{
			Role: RoleUser, Type: TypeText, Content: fmt.Sprintf("m%d", i),
		})
	}

	got := ProjectHistory(s)

	if len(got) != HistoryWindow {
		t.Fatalf("len = %d", len(got))
	}
	if got[len(got)-1].Content != fmt.Sprintf("m%d", HistoryWindow+4) {
		t.Errorf("window must end at the newest message, got %v", got[len(got)-1].Content)
	}
}

func TestProjectHistory_Projections(t *testing.T) {
	s := &Session{ID: "s1", Messages: []Message{
		{Role: RoleUser, Type: TypeText, Content: "看",
			Quote: &Quote{Name: "小雨", Content: "晚安"}},
		{Role: RoleAssistant, Type: TypeImage, Content: "",
			FakePhoto: "一只橘猫"},
		{Role: RoleUser, Type: TypeImage, Content: "",
			Image: "data:image/png;base64,xxxx"},
		{Role: RoleUser, Type: TypeText, Content: ""},
	}}

	got := ProjectHistory(s)
	if len(got) != 4 {
		t.Fatalf("len = %d", len(got))
	}

	if got[0].Content != "(引用: \"晚安\")\n看" {
		t.Errorf("quote projection = %q", got[0].Content)
	}
	if got[1].Content != "(发送了一张照片，内容是：一只橘猫)" {
		t.Errorf("fake photo projection = %q", got[1].Content)
	}
	parts, ok := got[2].Content.([]cloud.ContentPart)
	if !ok {
		t.Fatalf("image message content = %T", got[2].Content)
	}
	if parts[0].Text != "（发送了一张图片）" || parts[1].ImageURL.URL != "data:image/png;base64,xxxx" {
		t.Errorf("image parts = %+v", parts)
	}
	if got[3].Content != "(空)" {
		t.Errorf("empty projection = %q", got[3].Content)
	}
}

func TestBuildRequestMessages_SystemFirst(t *testing.T) {
	s := &Session{ID: "s1", Messages: []Message{
		{Role: RoleUser, Type: TypeText, Content: "在吗"},
	}}

	got := BuildRequestMessages(s, nil, nil)

	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Role != "system" {
		t.Errorf("first role = %q", got[0].Role)
	}
	if got[1].Content != "在吗" {
		t.Errorf("history = %v", got[1].Content)
	}
}
