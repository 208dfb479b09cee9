// Package tui holds the terminal presentation of the chat REPL.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"      _       _    __ _               ",
	"  ___| | ___ | |_ / _| | _____      __",
	" / __| |/ _ \\| __| |_| |/ _ \\ \\ /\\ / /",
	" \\__ \\ | (_) | |_|  _| | (_) \\ V  V / ",
	" |___/_|\\___/ \\__|_| |_|\\___/ \\_/\\_/  ",
}

var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// PrintBanner writes the ASCII banner with the version and the graph name.
func PrintBanner(w io.Writer, version, graph string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	meta := fmt.Sprintf(" v%s", strings.TrimSpace(version))
	if graph != "" {
		meta += " · " + graph
	}
	fmt.Fprintln(w, termenv.String(meta).Faint())
	fmt.Fprintln(w, termenv.String(" type /help for commands").Faint())
	fmt.Fprintln(w)
}
