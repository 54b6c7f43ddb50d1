// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
)

func testSession() *Session {
	return &Session{
		ID:   "s1",
		Name: "小雨",
		Settings: Settings{
			ActiveStickerIDs: []string{"http://x/y.png"},
		},
	}
}

// =============================================================================
// RECALL
// =============================================================================

func TestParse_Recall(t *testing.T) {
	s := testSession()
	res := Parse("这句话不想让你看到[RECALL]", s)

	if !res.IsRecall {
		t.Fatal("expected recall")
	}
	if res.Content != "对方撤回了一条消息" {
		t.Errorf("content = %q", res.Content)
	}
	if res.OriginalContent != "这句话不想让你看到" {
		t.Errorf("original = %q", res.OriginalContent)
	}
}

func TestParse_RecallEmptyOriginal(t *testing.T) {
	res := Parse("[RECALL]", testSession())
	if res.OriginalContent != "(内容已撤回)" {
		t.Errorf("original = %q", res.OriginalContent)
	}
}

func TestParse_RecallShortCircuitsOtherTags(t *testing.T) {
	s := testSession()
	res := Parse("【心声】[STATUS:开心][RECALL]", s)

	if !res.IsRecall {
		t.Fatal("expected recall")
	}
	// Tags inside a recalled segment stay in the preserved original.
	if !strings.Contains(res.OriginalContent, "[STATUS:开心]") {
		t.Errorf("original lost embedded tags: %q", res.OriginalContent)
	}
	if s.Status != "" {
		t.Errorf("recall must not apply status, got %q", s.Status)
	}
}

// =============================================================================
// TRANSLATION
// =============================================================================

func TestParse_Translation(t *testing.T) {
	res := Parse("你喺度做乜呀？\n[TRANSLATION]: (你在干嘛呀？)", testSession())
	if res.Content != "你喺度做乜呀？" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Translation != "(你在干嘛呀？)" {
		t.Errorf("translation = %q", res.Translation)
	}
}

func TestParse_TranslationCaseAndColonVariants(t *testing.T) {
	for _, raw := range []string{
		"喂[translation] 喂2",
		"喂[TRANSLATION]：喂2",
		"喂[Translation]:喂2",
	} {
		res := Parse(raw, testSession())
		if res.Translation != "喂2" {
			t.Errorf("Parse(%q).Translation = %q", raw, res.Translation)
		}
		if res.Content != "喂" {
			t.Errorf("Parse(%q).Content = %q", raw, res.Content)
		}
	}
}

func TestParse_TranslationOnlyPromoted(t *testing.T) {
	res := Parse("[TRANSLATION]: 其实我想你", testSession())
	if res.Content != "其实我想你" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Translation != "" {
		t.Errorf("translation should be cleared, got %q", res.Translation)
	}
}

// =============================================================================
// PHOTO AND STICKER
// =============================================================================

func TestParse_FakePhoto(t *testing.T) {
	res := Parse("[PHOTO: 一只正在晒太阳的橘猫]", testSession())
	if res.MsgType != TypeImage {
		t.Errorf("type = %q", res.MsgType)
	}
	if res.FakePhoto != "一只正在晒太阳的橘猫" {
		t.Errorf("caption = %q", res.FakePhoto)
	}
	if res.StickerURL != fakePhotoImage {
		t.Errorf("image = %q", res.StickerURL)
	}
}

func TestParse_StickerActive(t *testing.T) {
	res := Parse("[STICKER: http://x/y.png]", testSession())
	if res.StickerURL != "http://x/y.png" {
		t.Errorf("sticker = %q", res.StickerURL)
	}
	if res.MsgType != TypeImage {
		t.Errorf("type = %q", res.MsgType)
	}
}

func TestParse_StickerInactiveStrippedSilently(t *testing.T) {
	res := Parse("看这个[STICKER: http://evil/z.png]", testSession())
	if res.StickerURL != "" {
		t.Errorf("inactive sticker kept: %q", res.StickerURL)
	}
	if res.Content != "看这个" {
		t.Errorf("content = %q", res.Content)
	}
	if res.MsgType != TypeText {
		t.Errorf("type = %q", res.MsgType)
	}
}

func TestParse_StickerWithTextStaysText(t *testing.T) {
	res := Parse("给你[STICKER: http://x/y.png]", testSession())
	if res.MsgType != TypeText {
		t.Errorf("type = %q", res.MsgType)
	}
	if res.StickerURL != "http://x/y.png" {
		t.Errorf("sticker = %q", res.StickerURL)
	}
}

// =============================================================================
// TRANSFER
// =============================================================================

func TestParse_Transfer(t *testing.T) {
	res := Parse("[TRANSFER: 52.1, 拿去买奶茶]", testSession())
	if res.MsgType != TypeTransfer {
		t.Fatalf("type = %q", res.MsgType)
	}
	if res.Transfer == nil {
		t.Fatal("nil transfer")
	}
	if res.Transfer.Amount != "52.10" {
		t.Errorf("amount = %q", res.Transfer.Amount)
	}
	if res.Transfer.Remark != "拿去买奶茶" {
		t.Errorf("remark = %q", res.Transfer.Remark)
	}
	if res.Transfer.Status != TransferPending {
		t.Errorf("status = %q", res.Transfer.Status)
	}
	if res.Content != "[转账]" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestParse_TransferDefaultRemark(t *testing.T) {
	res := Parse("[TRANSFER: 100]", testSession())
	if res.Transfer == nil {
		t.Fatal("nil transfer")
	}
	if res.Transfer.Remark != "转账给朋友" {
		t.Errorf("remark = %q", res.Transfer.Remark)
	}
	if res.Transfer.Amount != "100.00" {
		t.Errorf("amount = %q", res.Transfer.Amount)
	}
}

func TestParse_TransferFullWidthSeparators(t *testing.T) {
	res := Parse("[TRANSFER：520，我爱你]", testSession())
	if res.Transfer == nil {
		t.Fatal("nil transfer")
	}
	if res.Transfer.Amount != "520.00" || res.Transfer.Remark != "我爱你" {
		t.Errorf("got %q / %q", res.Transfer.Amount, res.Transfer.Remark)
	}
}

// =============================================================================
// STATUS AND QUOTE
// =============================================================================

func TestParse_StatusSideEffect(t *testing.T) {
	s := testSession()
	res := Parse("我出门啦[STATUS:外出中]", s)
	if s.Status != "外出中" {
		t.Errorf("session status = %q", s.Status)
	}
	if res.Content != "我出门啦" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestParse_Quote(t *testing.T) {
	s := testSession()
	s.Settings.UserName = "阿明"
	res := Parse("[QUOTE:昨晚那家店]我也觉得好吃", s)
	if res.Quote == nil {
		t.Fatal("nil quote")
	}
	if res.Quote.Name != "阿明" {
		t.Errorf("quote name = %q", res.Quote.Name)
	}
	if res.Quote.Content != "昨晚那家店" {
		t.Errorf("quote content = %q", res.Quote.Content)
	}
}

func TestParse_QuoteSpeakerFallback(t *testing.T) {
	res := Parse("[QUOTE:好]嗯", testSession())
	if res.Quote == nil || res.Quote.Name != "我" {
		t.Fatalf("quote = %+v", res.Quote)
	}
}

func TestParse_QuoteDroppedWhenContentEmpty(t *testing.T) {
	res := Parse("[QUOTE:好]", testSession())
	if res.Quote != nil {
		t.Errorf("quote should be dropped, got %+v", res.Quote)
	}
}

// =============================================================================
// MONOLOGUE
// =============================================================================

func TestParse_Monologue(t *testing.T) {
	res := Parse("【她皱了眉】你来了。", testSession())
	if res.OS != "她皱了眉" {
		t.Errorf("os = %q", res.OS)
	}
	if res.Content != "你来了。" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestParse_MonologueUnclosedRecovery(t *testing.T) {
	res := Parse("好的。【其实我不想去", testSession())
	if res.OS != "其实我不想去" {
		t.Errorf("os = %q", res.OS)
	}
	if res.Content != "好的。" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestParse_MonologueUnclosedEmptyFallback(t *testing.T) {
	res := Parse("好的。【", testSession())
	if res.OS != "..." {
		t.Errorf("os = %q", res.OS)
	}
}

func TestParse_MonologueLabelStripped(t *testing.T) {
	for _, raw := range []string{
		"【心声: 有点紧张】嗨",
		"【OS：有点紧张】嗨",
		"【monologue: 有点紧张】嗨",
	} {
		res := Parse(raw, testSession())
		if res.OS != "有点紧张" {
			t.Errorf("Parse(%q).OS = %q", raw, res.OS)
		}
	}
}

func TestParse_MonologueBracketContainingQuoteTag(t *testing.T) {
	// Precedence: the quote tag is consumed before the monologue
	// brackets, so the brackets close around the remaining text.
	res := Parse("【他在想[QUOTE:上次的话]什么】嗯", testSession())
	if res.Quote == nil {
		t.Fatal("quote should match inside brackets")
	}
	if res.OS != "他在想什么" {
		t.Errorf("os = %q", res.OS)
	}
}

// =============================================================================
// GENERAL
// =============================================================================

func TestParse_PlainTextTrimmed(t *testing.T) {
	res := Parse("  你好\n", testSession())
	if res.Content != "你好" {
		t.Errorf("content = %q", res.Content)
	}
	if res.MsgType != TypeText {
		t.Errorf("type = %q", res.MsgType)
	}
}

func TestParse_CombinedTags(t *testing.T) {
	s := testSession()
	res := Parse("【好想她】[STATUS:想念中]晚安[QUOTE:早点睡]", s)
	if res.OS != "好想她" {
		t.Errorf("os = %q", res.OS)
	}
	if s.Status != "想念中" {
		t.Errorf("status = %q", s.Status)
	}
	if res.Quote == nil || res.Quote.Content != "早点睡" {
		t.Fatalf("quote = %+v", res.Quote)
	}
	if res.Content != "晚安" {
		t.Errorf("content = %q", res.Content)
	}
}
