// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/tata/internal/chat"
	"github.com/jeranaias/tata/internal/config"
	"github.com/jeranaias/tata/internal/notify"
	"github.com/jeranaias/tata/internal/store"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	r.loadHistory()
	return r
}

func (r *lineReader) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

// readInput reads one line, recording non-empty input in the history.
func (r *lineReader) readInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists history with owner-only permissions.
func (r *lineReader) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

func (r *lineReader) close() {
	r.saveHistory()
	r.line.Close()
}

// =============================================================================
// CLI
// =============================================================================

// CLI is the interactive frontend: one open session at a time, slash
// commands for everything else.
type CLI struct {
	store  *store.Store
	orch   *chat.Orchestrator
	center *notify.Center
	input  *lineReader
	log    zerolog.Logger

	mu      sync.Mutex
	current string             // open session id, "" = session list
	printed int                // messages of the open session already drawn
	cancel  context.CancelFunc // cancels the in-flight generation
}

// New wires the CLI to its collaborators.
func New(st *store.Store, orch *chat.Orchestrator, center *notify.Center) *CLI {
	return &CLI{
		store:  st,
		orch:   orch,
		center: center,
		log:    zerolog.Nop(),
	}
}

// WithLogger attaches a logger.
func (c *CLI) WithLogger(log zerolog.Logger) *CLI {
	c.log = log
	return c
}

// Run drives the REPL until /quit or EOF.
func (c *CLI) Run() error {
	c.input = newLineReader()
	defer c.input.close()

	// Ctrl+C cancels the generation in flight instead of killing the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			c.mu.Lock()
			cancel := c.cancel
			c.cancel = nil
			c.mu.Unlock()
			if cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	go c.watchEvents()
	go c.watchNotifications()

	c.printWelcome()

	for {
		input, err := c.input.readInput(c.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				continue
			}
			// EOF (Ctrl+D) exits.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := c.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if c.currentSession() == "" {
			fmt.Println(infoStyle.Render("no session open; /sessions lists them, /open N opens one"))
			continue
		}
		c.generate(chat.UserInput{Text: input})
	}
}

func (c *CLI) prompt() string {
	id := c.currentSession()
	if id == "" {
		return promptStyle.Render("tata> ")
	}
	if s, ok := c.store.Snapshot(id); ok {
		return promptStyle.Render(displayName(s) + "> ")
	}
	return promptStyle.Render("tata> ")
}

func (c *CLI) printWelcome() {
	fmt.Println(welcomeStyle.Render("tata - terminal chat"))
	fmt.Println(infoStyle.Render("/help for commands, /sessions to get started"))
	fmt.Println()
}

func (c *CLI) currentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// =============================================================================
// GENERATION
// =============================================================================

// generate runs one synthesis cycle for the open session, revealing
// bubbles as the event watcher sees them land.
func (c *CLI) generate(input chat.UserInput) {
	id := c.currentSession()

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	// The user's own turn is echoed on the prompt line; skip drawing it
	// again. Transfer and photo turns are appended via the store before
	// this call, so printed already counts them.
	if s, ok := c.store.Snapshot(id); ok {
		c.printed = len(s.Messages)
		if input.Text != "" || input.Image != "" {
			c.printed++
		}
	}
	c.mu.Unlock()

	err := c.orch.Generate(ctx, id, input)

	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()
	cancel()

	// Draw whatever the watcher has not caught up with.
	c.flushReveals(id, true)

	switch {
	case errors.Is(err, chat.ErrBusy):
		fmt.Println(warningStyle.Render("already typing, hold on"))
	case err != nil && !errors.Is(err, context.Canceled):
		c.log.Debug().Err(err).Str("session", id).Msg("generation failed")
	}
}

// watchEvents draws newly finished bubbles of the open session as store
// events arrive.
func (c *CLI) watchEvents() {
	for ev := range c.store.Subscribe() {
		if ev.SessionID != c.currentSession() {
			continue
		}
		c.flushReveals(ev.SessionID, false)
	}
}

// flushReveals prints messages past the printed mark. While a cycle is
// in flight the last message may be a preview still refining, so it is
// held back until final is set.
func (c *CLI) flushReveals(id string, final bool) {
	s, ok := c.store.Snapshot(id)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.current {
		return
	}

	limit := len(s.Messages)
	if !final && s.IsGenerating {
		limit--
	}
	if c.printed > len(s.Messages) {
		// Cleanup pruned messages out from under the mark.
		c.printed = len(s.Messages)
	}
	for i := c.printed; i < limit; i++ {
		fmt.Print(renderMessage(s, i, &s.Messages[i]))
	}
	if limit > c.printed {
		c.printed = limit
	}
}

// watchNotifications prints cross-session notifications.
func (c *CLI) watchNotifications() {
	for n := range c.center.Subscribe() {
		if n.SessionID != "" && n.SessionID == c.currentSession() {
			continue
		}
		fmt.Printf("\n%s %s\n", noticeStyle.Render("["+n.Title+"]"), n.Content)
	}
}
