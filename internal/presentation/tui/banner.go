package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text, color string
}{
	{" _        _         _        _       ", "#38bdf8"},
	{"| |_ __ _| |__  ___| |_ __ _| |_ ___ ", "#22d3ee"},
	{"| __/ _` | '_ \\/ __| __/ _` | __/ _ \\", "#2dd4bf"},
	{"| || (_| | |_) \\__ \\ || (_| | ||  __/", "#34d399"},
	{" \\__\\__,_|_.__/|___/\\__\\__,_|\\__\\___|", "#4ade80"},
}

// PrintBanner writes the tabstate banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
