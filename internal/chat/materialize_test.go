// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestUpsert_GrowsWithBlanks(t *testing.T) {
	s := &Session{ID: "s1"}

	Upsert(s, 2, ParseResult{MsgType: TypeText, Content: "三"})

	if len(s.Messages) != 3 {
		t.Fatalf("len = %d", len(s.Messages))
	}
	for i := 0; i < 2; i++ {
		if s.Messages[i].Role != RoleAssistant || s.Messages[i].Content != "" {
			t.Errorf("filler %d = %+v", i, s.Messages[i])
		}
	}
	if s.Messages[2].Content != "三" {
		t.Errorf("target = %+v", s.Messages[2])
	}
}

func TestUpsert_RefinementClearsStaleFields(t *testing.T) {
	s := &Session{ID: "s1"}

	Upsert(s, 0, ParseResult{
		MsgType:    TypeImage,
		Content:    "",
		StickerURL: "http://x/y.png",
		Quote:      &Quote{Name: "小雨", Content: "早"},
	})
	Upsert(s, 0, ParseResult{MsgType: TypeText, Content: "改主意了"})

	msg := s.Messages[0]
	if msg.Image != "" {
		t.Errorf("image not cleared: %q", msg.Image)
	}
	if msg.Quote != nil {
		t.Error("quote not cleared")
	}
	if msg.Content != "改主意了" || msg.Type != TypeText {
		t.Errorf("msg = %+v", msg)
	}
}

func TestUpsert_StickyFieldsSurviveRefinement(t *testing.T) {
	s := &Session{ID: "s1"}

	Upsert(s, 0, ParseResult{
		MsgType:     TypeText,
		Content:     "嗯",
		OS:          "其实很开心",
		Translation: "其实我在笑",
	})
	// Later pass over the same bubble, tag already stripped.
	Upsert(s, 0, ParseResult{MsgType: TypeText, Content: "嗯。"})

	msg := s.Messages[0]
	if msg.OS != "其实很开心" {
		t.Errorf("OS = %q", msg.OS)
	}
	if msg.Translation != "其实我在笑" {
		t.Errorf("Translation = %q", msg.Translation)
	}
	if msg.Content != "嗯。" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestUpsert_RecallBecomesSystemNotice(t *testing.T) {
	s := &Session{ID: "s1", Messages: []Message{
		{Role: RoleAssistant, Type: TypeText, Content: "说错话了"},
	}}

	Upsert(s, 0, ParseResult{
		IsRecall:        true,
		Content:         recalledContent,
		OriginalContent: "说错话了",
	})

	msg := s.Messages[0]
	if msg.Role != RoleSystem || !msg.IsRecall {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Content != recalledContent || msg.OriginalContent != "说错话了" {
		t.Errorf("content = %q original = %q", msg.Content, msg.OriginalContent)
	}
}

func TestPruneEmpty(t *testing.T) {
	s := &Session{ID: "s1", Messages: []Message{
		{Role: RoleUser, Type: TypeText, Content: ""},
		{Role: RoleAssistant, Type: TypeText, Content: "  "},
		{Role: RoleAssistant, Type: TypeText, Content: "", OS: "没说出口"},
		{Role: RoleAssistant, Type: TypeText, Content: "在"},
	}}

	if removed := PruneEmpty(s); removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	if len(s.Messages) != 3 {
		t.Fatalf("len = %d", len(s.Messages))
	}
	// A blank user message is not the cycle's garbage to collect.
	if s.Messages[0].Role != RoleUser {
		t.Error("user message pruned")
	}
	if s.Messages[1].OS != "没说出口" {
		t.Error("monologue-only bubble pruned")
	}
}
