// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/tata/internal/chat"
)

// =============================================================================
// TYPES
// =============================================================================

// Sticker node types.
const (
	NodeFolder = "folder"
	NodeImage  = "image"
)

// StickerNode is one node of the sticker library tree: folders hold
// children, images hold a URL.
type StickerNode struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	URL      string        `json:"url,omitempty"`
	Children []StickerNode `json:"children,omitempty"`
}

// Worldbook is one lore entry that can be projected into the system
// prompt.
type Worldbook struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // only "book" entries are usable
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Event signals that a session changed.
type Event struct {
	SessionID string
}

// subscriber channel depth. Slow readers drop events past this.
const eventBuffer = 16

// =============================================================================
// STORE
// =============================================================================

// Store is the single-writer container for all conversation state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*chat.Session
	order    []string // session ids, display order

	stickers   []StickerNode
	worldbooks []Worldbook

	viewing string
	subs    []chan Event

	db  *DB
	log zerolog.Logger
}

// New creates a store backed by db, loading any persisted state.
// A nil db gives a memory-only store; tests use this.
func New(db *DB) (*Store, error) {
	s := &Store{
		sessions: make(map[string]*chat.Session),
		db:       db,
		log:      zerolog.Nop(),
	}
	if db == nil {
		return s, nil
	}

	sessions, err := db.LoadSessions()
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		// A hard kill mid-cycle can persist a set busy flag; clear it so
		// the session is generatable again after restart.
		sess.IsGenerating = false
		s.sessions[sess.ID] = sess
		s.order = append(s.order, sess.ID)
	}
	if s.stickers, err = db.LoadStickers(); err != nil {
		return nil, err
	}
	if s.worldbooks, err = db.LoadWorldbooks(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithLogger attaches a logger for persistence telemetry.
func (s *Store) WithLogger(log zerolog.Logger) *Store {
	s.log = log
	return s
}

// Close flushes nothing (writes are through) and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// =============================================================================
// SESSION ACCESS
// =============================================================================

// Update runs fn on the session under the store lock, persists the
// result, and notifies subscribers. Returns false when the id is
// unknown; fn does not run in that case.
func (s *Store) Update(id string, fn func(*chat.Session)) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(sess)
	s.persistLocked(sess)
	s.mu.Unlock()

	s.publish(Event{SessionID: id})
	return true
}

// Snapshot returns a deep copy of the session, safe to read and mutate
// outside the lock.
func (s *Store) Snapshot(id string) (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Sessions returns deep copies of all sessions in display order.
func (s *Store) Sessions() []*chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Session, 0, len(s.order))
	for _, id := range s.order {
		if sess, ok := s.sessions[id]; ok {
			out = append(out, sess.Clone())
		}
	}
	return out
}

// CreateSession registers a new session at the top of the list.
func (s *Store) CreateSession(sess *chat.Session) {
	s.mu.Lock()
	if sess.Settings.FontSize == 0 {
		sess.Settings.FontSize = 13
	}
	s.sessions[sess.ID] = sess
	s.order = append([]string{sess.ID}, s.order...)
	s.persistLocked(sess)
	s.mu.Unlock()

	s.publish(Event{SessionID: sess.ID})
}

// DeleteSession removes a session and its persisted document.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.viewing == id {
		s.viewing = ""
	}
	if s.db != nil {
		if err := s.db.DeleteSession(id); err != nil {
			s.log.Error().Err(err).Str("session", id).Msg("failed to delete session")
		}
	}
	s.mu.Unlock()

	s.publish(Event{SessionID: id})
	return true
}

// SetViewing records which session the user is looking at; "" means
// none. Cross-session notifications key off this.
func (s *Store) SetViewing(id string) {
	s.mu.Lock()
	s.viewing = id
	s.mu.Unlock()
}

// CurrentViewing returns the id of the session being viewed, or "".
func (s *Store) CurrentViewing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewing
}

// persistLocked writes one session through to the database. Caller
// holds the lock. Persistence failures are logged, not propagated:
// in-memory state is already the source of truth for the cycle.
func (s *Store) persistLocked(sess *chat.Session) {
	if s.db == nil {
		return
	}
	pos := 0
	for i, id := range s.order {
		if id == sess.ID {
			pos = i
			break
		}
	}
	if err := s.db.SaveSession(sess, pos); err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}
}

// =============================================================================
// STICKERS AND WORLDBOOKS
// =============================================================================

// SetStickers replaces the sticker library tree.
func (s *Store) SetStickers(roots []StickerNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stickers = roots
	if s.db != nil {
		if err := s.db.SaveStickers(roots); err != nil {
			s.log.Error().Err(err).Msg("failed to persist stickers")
		}
	}
}

// Stickers returns the sticker library tree roots.
func (s *Store) Stickers() []StickerNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StickerNode(nil), s.stickers...)
}

// ActiveStickers flattens the tree into the stickers whose URL appears
// in the active set, preserving tree order.
func (s *Store) ActiveStickers(activeIDs []string) []chat.Sticker {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}
	var out []chat.Sticker
	var walk func(nodes []StickerNode)
	walk = func(nodes []StickerNode) {
		for _, n := range nodes {
			if n.Type == NodeFolder {
				walk(n.Children)
				continue
			}
			if active[n.URL] {
				out = append(out, chat.Sticker{Name: n.Name, URL: n.URL})
			}
		}
	}
	walk(s.stickers)
	return out
}

// SetWorldbooks replaces the worldbook entries.
func (s *Store) SetWorldbooks(books []Worldbook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worldbooks = books
	if s.db != nil {
		if err := s.db.SaveWorldbooks(books); err != nil {
			s.log.Error().Err(err).Msg("failed to persist worldbooks")
		}
	}
}

// Worldbooks returns all worldbook entries.
func (s *Store) Worldbooks() []Worldbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Worldbook(nil), s.worldbooks...)
}

// ActiveWorldbooks returns the book entries whose id is in the active
// set, in library order.
func (s *Store) ActiveWorldbooks(activeIDs []string) []chat.WorldbookEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}
	var out []chat.WorldbookEntry
	for _, wb := range s.worldbooks {
		if wb.Type == "book" && active[wb.ID] {
			out = append(out, chat.WorldbookEntry{Title: wb.Title, Content: wb.Content})
		}
	}
	return out
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel receiving an event per session change.
// The channel is buffered; events past the buffer are dropped for that
// subscriber rather than blocking writers.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	s.subs = append(s.subs, ch)
	return ch
}

// publish fans an event out to all subscribers, non-blocking.
func (s *Store) publish(ev Event) {
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
