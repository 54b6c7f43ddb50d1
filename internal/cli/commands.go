// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/tata/internal/chat"
	"github.com/jeranaias/tata/internal/store"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches one slash command. The bool result is true
// when the REPL should exit.
func (c *CLI) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	// Rejoin for commands whose trailing argument is free text.
	rest := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h":
		c.printHelp()
		return false, nil

	case "/sessions", "/ls":
		fmt.Print(renderSessionList(c.store.Sessions(), c.currentSession()))
		return false, nil

	case "/open", "/o":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open N")
		}
		return false, c.openSession(args[0])

	case "/new":
		if rest == "" {
			return false, fmt.Errorf("usage: /new NAME")
		}
		return false, c.newSession(rest)

	case "/delete":
		return false, c.deleteSession()

	case "/rename":
		if rest == "" {
			return false, fmt.Errorf("usage: /rename NAME")
		}
		return false, c.withOpenSession(func(id string) error {
			c.store.Update(id, func(s *chat.Session) { s.Name = rest })
			return nil
		})

	case "/history":
		return false, c.withOpenSession(func(id string) error {
			s, _ := c.store.Snapshot(id)
			fmt.Print(renderConversation(s))
			c.mu.Lock()
			c.printed = len(s.Messages)
			c.mu.Unlock()
			return nil
		})

	case "/recall":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /recall N")
		}
		return false, c.withOpenSession(func(id string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad index %q", args[0])
			}
			if !c.store.RecallUserMessage(id, idx) {
				return fmt.Errorf("message %d is not yours to recall", idx)
			}
			return nil
		})

	case "/edit":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: /edit N TEXT")
		}
		return false, c.withOpenSession(func(id string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad index %q", args[0])
			}
			text := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
			if !c.store.EditMessageContent(id, idx, text) {
				return fmt.Errorf("message %d cannot be edited", idx)
			}
			return nil
		})

	case "/del":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /del N [N...]")
		}
		return false, c.withOpenSession(func(id string) error {
			indices := make([]int, 0, len(args))
			for _, a := range args {
				idx, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("bad index %q", a)
				}
				indices = append(indices, idx)
			}
			c.store.DeleteMessages(id, indices)
			return nil
		})

	case "/clear":
		return false, c.withOpenSession(func(id string) error {
			c.store.ClearHistory(id)
			c.mu.Lock()
			c.printed = 0
			c.mu.Unlock()
			fmt.Println(infoStyle.Render("history cleared"))
			return nil
		})

	case "/regen":
		return false, c.withOpenSession(func(id string) error {
			if !c.store.TruncateAfterLastUser(id) {
				return fmt.Errorf("nothing to regenerate")
			}
			go c.generate(chat.UserInput{})
			return nil
		})

	case "/set":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: /set KEY VALUE (persona|user|name|translation|longtext)")
		}
		value := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return false, c.setSetting(strings.ToLower(args[0]), value)

	case "/quote":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: /quote N TEXT")
		}
		return false, c.quoteReply(args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0])))

	case "/photo":
		if rest == "" {
			return false, fmt.Errorf("usage: /photo DESCRIPTION")
		}
		return false, c.sendPhoto(rest)

	case "/transfer":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /transfer AMOUNT [NOTE]")
		}
		note := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return false, c.sendTransfer(args[0], note)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (c *CLI) printHelp() {
	fmt.Print(infoStyle.Render(`Commands:
  /sessions             list sessions
  /open N               open session N
  /new NAME             create a session
  /delete               delete the open session
  /rename NAME          rename the open session
  /history              redraw the conversation
  /recall N             recall your message N
  /edit N TEXT          rewrite message N
  /del N [N...]         delete messages
  /clear                clear the conversation
  /regen                regenerate the last reply
  /quote N TEXT         reply to message N
  /photo DESC           send a described photo
  /transfer AMT [NOTE]  send a transfer
  /set KEY VALUE        persona|user|name|translation|longtext
  /quit                 exit
`))
}

// withOpenSession runs fn against the open session, or errors when none
// is open.
func (c *CLI) withOpenSession(fn func(id string) error) error {
	id := c.currentSession()
	if id == "" {
		return fmt.Errorf("no session open")
	}
	return fn(id)
}

// setSetting updates one per-session setting.
func (c *CLI) setSetting(key, value string) error {
	return c.withOpenSession(func(id string) error {
		var bad error
		c.store.Update(id, func(s *chat.Session) {
			switch key {
			case "persona":
				s.Settings.SystemPrompt = value
			case "user":
				s.Settings.UserPersona = value
			case "name":
				s.Settings.UserName = value
			case "translation":
				s.Settings.EnableTranslation = value == "on"
			case "longtext":
				s.Settings.EnableLongText = value == "on"
			default:
				bad = fmt.Errorf("unknown setting %q", key)
			}
		})
		return bad
	})
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// openSession switches to the session at 1-based list position.
func (c *CLI) openSession(arg string) error {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("bad position %q", arg)
	}
	sessions := c.store.Sessions()
	if pos < 1 || pos > len(sessions) {
		return fmt.Errorf("no session at position %d", pos)
	}
	s := sessions[pos-1]

	c.mu.Lock()
	c.current = s.ID
	c.printed = len(s.Messages)
	c.mu.Unlock()
	c.store.SetViewing(s.ID)
	c.center.Dismiss()

	fmt.Print(renderConversation(s))
	return nil
}

func (c *CLI) newSession(name string) error {
	s := &chat.Session{
		ID:   uuid.NewString(),
		Name: name,
	}
	c.store.CreateSession(s)

	c.mu.Lock()
	c.current = s.ID
	c.printed = 0
	c.mu.Unlock()
	c.store.SetViewing(s.ID)

	fmt.Println(infoStyle.Render("created " + name))
	return nil
}

func (c *CLI) deleteSession() error {
	return c.withOpenSession(func(id string) error {
		c.store.DeleteSession(id)
		c.mu.Lock()
		c.current = ""
		c.printed = 0
		c.mu.Unlock()
		c.store.SetViewing("")
		fmt.Println(infoStyle.Render("session deleted"))
		return nil
	})
}

// =============================================================================
// MESSAGE COMMANDS
// =============================================================================

// quoteReply sends a reply quoting message N.
func (c *CLI) quoteReply(indexArg, text string) error {
	return c.withOpenSession(func(id string) error {
		idx, err := strconv.Atoi(indexArg)
		if err != nil {
			return fmt.Errorf("bad index %q", indexArg)
		}
		s, _ := c.store.Snapshot(id)
		if idx < 0 || idx >= len(s.Messages) {
			return fmt.Errorf("no message %d", idx)
		}
		quoted := s.Messages[idx]

		name := displayName(s)
		if quoted.Role == chat.RoleUser {
			name = s.Settings.UserDisplayName()
		}
		go c.generate(chat.UserInput{
			Text:  text,
			Quote: &chat.Quote{Name: name, Content: quoted.Content},
		})
		return nil
	})
}

// sendPhoto appends a described-photo turn and triggers a reply.
func (c *CLI) sendPhoto(description string) error {
	return c.withOpenSession(func(id string) error {
		c.store.SendUserMessage(id, store.UserMessage{
			Type:      chat.TypeImage,
			FakePhoto: description,
		})
		go c.generate(chat.UserInput{})
		return nil
	})
}

// sendTransfer appends a pending transfer turn and triggers a reply.
func (c *CLI) sendTransfer(amountArg, note string) error {
	return c.withOpenSession(func(id string) error {
		amount, err := strconv.ParseFloat(amountArg, 64)
		if err != nil || amount < 0 {
			return fmt.Errorf("bad amount %q", amountArg)
		}
		c.store.SendUserMessage(id, store.UserMessage{
			Text: "[转账]",
			Type: chat.TypeTransfer,
			Transfer: &chat.Transfer{
				ID:        uuid.NewString(),
				Amount:    fmt.Sprintf("%.2f", amount),
				Remark:    note,
				Status:    chat.TransferPending,
				CreatedAt: time.Now().UnixMilli(),
			},
		})
		go c.generate(chat.UserInput{})
		return nil
	})
}
