// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
)

func sessionWithPendingTransfer() *Session {
	return &Session{
		ID: "s1",
		Messages: []Message{
			{Role: RoleUser, Type: TypeText, Content: "给你转了点钱"},
			{
				Role: RoleUser, Type: TypeTransfer, Content: "[转账]",
				Transfer: &Transfer{Amount: "52.00", Remark: "奶茶钱", Status: TransferPending},
			},
		},
	}
}

func TestResolveCommands_Receive(t *testing.T) {
	s := sessionWithPendingTransfer()
	out := ResolveCommands("谢谢你[CMD:RECEIVE]", s)

	if out != "谢谢你" {
		t.Errorf("segment = %q", out)
	}
	if s.Messages[1].Transfer.Status != TransferReceived {
		t.Errorf("status = %q", s.Messages[1].Transfer.Status)
	}

	card := s.Messages[len(s.Messages)-1]
	if card.Role != RoleAssistant || card.Type != TypeTransfer {
		t.Fatalf("unexpected card: %+v", card)
	}
	if card.Transfer.Amount != "52.00" || card.Transfer.Remark != "已收款" {
		t.Errorf("card transfer = %+v", card.Transfer)
	}
	if card.Transfer.Status != TransferReceived {
		t.Errorf("card status = %q", card.Transfer.Status)
	}
}

func TestResolveCommands_Return(t *testing.T) {
	s := sessionWithPendingTransfer()
	ResolveCommands("[CMD:RETURN]不用啦", s)

	if s.Messages[1].Transfer.Status != TransferReturned {
		t.Errorf("status = %q", s.Messages[1].Transfer.Status)
	}
	card := s.Messages[len(s.Messages)-1]
	if card.Transfer.Remark != "已退还" || card.Transfer.Status != TransferReturned {
		t.Errorf("card transfer = %+v", card.Transfer)
	}
}

func TestResolveCommands_NoPendingDiscardsSilently(t *testing.T) {
	s := &Session{ID: "s1"}
	out := ResolveCommands("好的[CMD:RECEIVE]", s)

	if out != "好的" {
		t.Errorf("segment = %q", out)
	}
	if len(s.Messages) != 0 {
		t.Errorf("no card expected, got %d messages", len(s.Messages))
	}
}

func TestResolveCommands_MostRecentPendingWins(t *testing.T) {
	s := &Session{
		ID: "s1",
		Messages: []Message{
			{Role: RoleUser, Type: TypeTransfer, Transfer: &Transfer{Amount: "1.00", Status: TransferPending}},
			{Role: RoleUser, Type: TypeTransfer, Transfer: &Transfer{Amount: "2.00", Status: TransferPending}},
		},
	}
	ResolveCommands("[CMD:RECEIVE]", s)

	if s.Messages[1].Transfer.Status != TransferReceived {
		t.Error("most recent pending transfer should flip first")
	}
	if s.Messages[0].Transfer.Status != TransferPending {
		t.Error("older transfer must stay pending")
	}
}

func TestResolveCommands_MultipleTokens(t *testing.T) {
	s := &Session{
		ID: "s1",
		Messages: []Message{
			{Role: RoleUser, Type: TypeTransfer, Transfer: &Transfer{Amount: "1.00", Status: TransferPending}},
			{Role: RoleUser, Type: TypeTransfer, Transfer: &Transfer{Amount: "2.00", Status: TransferPending}},
		},
	}
	out := ResolveCommands("[CMD:RECEIVE]收一个[CMD:RETURN]退一个", s)

	if strings.Contains(out, "[CMD:") {
		t.Errorf("tokens not stripped: %q", out)
	}
	if s.Messages[1].Transfer.Status != TransferReceived {
		t.Errorf("first token target = %q", s.Messages[1].Transfer.Status)
	}
	if s.Messages[0].Transfer.Status != TransferReturned {
		t.Errorf("second token target = %q", s.Messages[0].Transfer.Status)
	}
}

func TestResolveCommands_IgnoresAssistantTransfers(t *testing.T) {
	s := &Session{
		ID: "s1",
		Messages: []Message{
			{Role: RoleAssistant, Type: TypeTransfer, Transfer: &Transfer{Amount: "9.00", Status: TransferPending}},
		},
	}
	ResolveCommands("[CMD:RECEIVE]", s)

	if s.Messages[0].Transfer.Status != TransferPending {
		t.Error("assistant transfers are not user transfers")
	}
	if len(s.Messages) != 1 {
		t.Errorf("no card expected, got %d messages", len(s.Messages))
	}
}

func TestStripCommands(t *testing.T) {
	if out := StripCommands("[CMD:RECEIVE]谢谢[CMD:RETURN]"); out != "谢谢" {
		t.Errorf("out = %q", out)
	}
	if out := StripCommands("没有指令"); out != "没有指令" {
		t.Errorf("out = %q", out)
	}
}
