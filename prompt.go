package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// terminalPrompter reads prompt responses from standard input.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

func (p *terminalPrompter) RequestOneTimeCode() (string, bool) {
	fmt.Fprint(p.out, "Enter the verification code sent to your devices (empty to cancel): ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", false
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", false
	}
	return code, true
}

func (p *terminalPrompter) RequestConfirmation(message string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", message)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
