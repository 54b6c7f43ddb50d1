// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive terminal frontend for tata.
//
// It is a thin driver over the store, orchestrator and notification
// center: a liner-based REPL with input history, slash commands for
// session and message management, and lipgloss-rendered chat bubbles.
//
// Interactive Commands:
//
//	/sessions             List sessions
//	/open N               Open session by list position
//	/new NAME             Create a session
//	/delete               Delete the open session
//	/rename NAME          Rename the open session
//	/history              Redraw the conversation
//	/recall N             Recall your message at index N
//	/edit N TEXT          Rewrite message N
//	/del N [N...]         Delete messages by index
//	/clear                Clear the conversation
//	/regen                Discard replies after your last turn and regenerate
//	/quote N TEXT         Reply to message N with TEXT
//	/photo DESC           Send a described photo
//	/transfer AMT [NOTE]  Send a transfer
//	/set KEY VALUE        Adjust session settings
//	/help                 Show available commands
//	/quit                 Exit
package cli
