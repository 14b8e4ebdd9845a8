package cmd

import (
	"fmt"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// langState describes how far a manifest language has progressed through
// the build.
type langState int

const (
	stateMissing  langState = iota // never fetched
	stateFetched                   // sources on disk, no archive yet
	stateCompiled                  // parser archive present
)

type langEntry struct {
	name    string
	aliases []string
	state   langState
}

// formatLanguages renders the list output:
//
//	⚡ 14 languages │ 12 compiled
//	  ✓ bash           sh shell zsh
//	  · diff           patch
//	  ✗ regex
func formatLanguages(entries []langEntry) string {
	compiled := 0
	for _, e := range entries {
		if e.state == stateCompiled {
			compiled++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ %d languages%s │ %d compiled\n",
		colorBold, len(entries), colorReset, compiled))

	for _, e := range entries {
		var glyph string
		switch e.state {
		case stateCompiled:
			glyph = colorGreen + "✓" + colorReset
		case stateFetched:
			glyph = colorYellow + "·" + colorReset
		default:
			glyph = colorGray + "✗" + colorReset
		}

		sb.WriteString(fmt.Sprintf("  %s %s%-14s%s", glyph, colorCyan, e.name, colorReset))
		if len(e.aliases) > 0 {
			sb.WriteString(fmt.Sprintf(" %s%s%s", colorGray, strings.Join(e.aliases, " "), colorReset))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
