// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package avatar renders deterministic letter avatars as SVG data
// URIs. Used wherever a session or notification has no picture of its
// own.
package avatar

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var (
	cjkRe   = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
	digitRe = regexp.MustCompile(`^\d+$`)
)

// Generate returns a circular letter avatar for name as a base64 SVG
// data URI. CJK names show their last character, numeric names their
// first two digits, Latin names their initials. The user role renders
// dark-on-light, everything else light-on-dark.
func Generate(name, role string) string {
	fallback := "AI"
	if role == "user" {
		fallback = "Me"
	}
	safeName := strings.TrimSpace(name)
	if safeName == "" {
		safeName = fallback
	}

	text := pickGlyphs(safeName)

	bg, fg := "#1a1a1a", "#ffffff"
	if role == "user" {
		bg, fg = "#ffffff", "#1a1a1a"
	}

	svg := fmt.Sprintf(`
    <svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
        <circle cx="50" cy="50" r="50" fill="%s"/>
        <text x="50" y="50" dy=".35em" fill="%s" font-size="40" font-family="sans-serif" font-weight="bold" text-anchor="middle">
            %s
        </text>
    </svg>`, bg, fg, text)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// pickGlyphs chooses the one or two characters drawn in the circle.
func pickGlyphs(name string) string {
	runes := []rune(name)

	if cjkRe.MatchString(name) {
		return string(runes[len(runes)-1:])
	}
	if digitRe.MatchString(name) {
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return string(runes)
	}
	if len(runes) <= 2 {
		return strings.ToUpper(name)
	}

	parts := strings.Split(name, " ")
	if len(parts) > 1 && parts[0] != "" && parts[1] != "" {
		first := []rune(parts[0])
		second := []rune(parts[1])
		return strings.ToUpper(string(first[0]) + string(second[0]))
	}
	return strings.ToUpper(string(runes[:2]))
}
