// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns all mutable conversation state: sessions, the
// sticker library, and worldbooks.
//
// Every mutation goes through Store.Update, which runs the caller's
// function under the store's lock and then writes the session through
// to SQLite. Readers get deep snapshots and never observe partial
// writes. Change events fan out to subscribers on buffered channels;
// a slow subscriber drops events rather than blocking the writer.
package store
