// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the message synthesis engine for tata.
//
// The engine turns a single opaque chat-completion text stream into a
// sequence of discrete, typed conversation bubbles inside a session.
// It is built from small cooperating pieces:
//
//   - Parser: maps one raw text segment to a structured ParseResult,
//     honoring the embedded markup protocol (recall, translation,
//     photo, sticker, transfer, status, quote, inner monologue).
//   - Resolver: consumes [CMD:RECEIVE]/[CMD:RETURN] tokens and settles
//     pending transfers before the parser ever sees the text.
//   - Segmenter: splits the accumulating response on blank lines, the
//     canonical bubble boundary for both streaming and batch calls.
//   - Materializer: idempotent upsert of a ParseResult into a message
//     slot, safe to repeat while a stream progressively reveals text.
//   - Pacer: times bubble reveals (fixed pause while streaming, a
//     length-based typing cadence for batch responses).
//   - Orchestrator: owns the generation lifecycle per session and
//     drives all of the above against a SessionStore.
//
// All session mutation during a generation happens on the single
// goroutine running Orchestrator.Generate; concurrent generations are
// only allowed on distinct sessions.
package chat
