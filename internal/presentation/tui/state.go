package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tabstate/pkg/domain"
)

// StateMarkdown describes a browser state as a markdown document.
func StateMarkdown(state domain.BrowserState, revision uint64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Browser state\n\nRevision **%d**, %d tab(s)", revision, len(state.Tabs))
	if state.SelectedTabID != "" {
		fmt.Fprintf(&b, ", selected `%s`", state.SelectedTabID)
	}
	b.WriteString(".\n\n")

	if len(state.Tabs) == 0 {
		b.WriteString("_No tabs._\n")
		return b.String()
	}

	b.WriteString("| | Tab | Title | URL | Progress | Flags |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, tab := range state.Tabs {
		marker := ""
		if tab.ID == state.SelectedTabID {
			marker = "▶"
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %d%% | %s |\n",
			marker, tab.ID, cell(tab.Content.Title), cell(tab.Content.URL), tab.Content.Progress, flags(tab))
	}

	for _, tab := range state.Tabs {
		if tab.Engine.LastError != "" {
			fmt.Fprintf(&b, "\n> `%s`: %s\n", tab.ID, cell(tab.Engine.LastError))
		}
	}
	return b.String()
}

func flags(tab domain.TabSessionState) string {
	var f []string
	if tab.Content.Private {
		f = append(f, "private")
	}
	if tab.Content.Loading {
		f = append(f, "loading")
	}
	if tab.Content.SecurityInfo.Secure {
		f = append(f, "secure")
	}
	if tab.Engine.SessionID == "" {
		f = append(f, "unlinked")
	}
	if tab.Engine.Crashed {
		f = append(f, "crashed")
	}
	return strings.Join(f, " ")
}

// cell escapes text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// RenderState writes state to w through render.
func RenderState(w io.Writer, render Renderer, state domain.BrowserState, revision uint64) error {
	out, err := render(StateMarkdown(state, revision))
	if err != nil {
		return fmt.Errorf("render state: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
