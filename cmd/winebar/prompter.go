package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// terminalPrompter asks yes/no questions on the controlling terminal.
type terminalPrompter struct {
	in *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(os.Stdin)}
}

func (p *terminalPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *terminalPrompter) Info(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

func (p *terminalPrompter) Warn(msg string) {
	fmt.Fprintln(os.Stderr, colorYellow("Warning: ")+msg)
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

// colorEnabled respects --no-color and the NO_COLOR convention
// (https://no-color.org).
func colorEnabled() bool {
	return !noColor && os.Getenv("NO_COLOR") == ""
}

func colorGreen(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiGreen + s + ansiReset
}

func colorRed(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiRed + s + ansiReset
}

func colorYellow(s string) string {
	if !colorEnabled() {
		return s
	}
	return ansiYellow + s + ansiReset
}
