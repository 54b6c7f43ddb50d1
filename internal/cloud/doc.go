// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the client for OpenAI-compatible chat
// completion endpoints.
//
// Any provider exposing the /chat/completions contract works: the
// base URL, API key and model are all caller-supplied. Both batch JSON
// and SSE streaming responses are supported.
//
// # Key Types
//
//   - Client: HTTP client with retry, backoff and rate limiting
//   - ChatMessage: chat message, plain text or multimodal parts
//   - ChatResponse: parsed batch completion
//   - SSEReader: Server-Sent Events reader for streaming responses
//
// # Usage
//
// Create a client and send a chat request:
//
//	client := cloud.NewClient(apiKey).
//	    WithBaseURL("https://api.example.com/v1").
//	    WithModel("gpt-4o-mini")
//	resp, err := client.Chat(ctx, []cloud.ChatMessage{
//	    cloud.NewTextMessage("user", "Hello"),
//	})
//
// API keys are never logged; telemetry uses a short fingerprint.
package cloud
