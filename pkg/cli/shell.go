// pkg/cli/shell.go
package cli

import (
	"bufio"
	"io"
	"strings"
)

// Shell reads commands line by line and keeps a bounded history. Commands
// are single-line; there is no continuation syntax.
type Shell struct {
	// reader reads input lines
	reader *bufio.Reader

	// output writes prompts and normal output
	output io.Writer

	// errOutput writes error messages
	errOutput io.Writer

	// prompt is shown before every command
	prompt string

	// history stores entered commands for recall
	history []string

	// maxHistory is the maximum number of history entries to keep
	maxHistory int
}

// NewShell creates a shell over the given input/output streams. If
// errOutput is nil, errors are written to output.
func NewShell(input io.Reader, output, errOutput io.Writer) *Shell {
	var reader *bufio.Reader
	if input != nil {
		reader = bufio.NewReader(input)
	}
	if errOutput == nil {
		errOutput = output
	}
	return &Shell{
		reader:     reader,
		output:     output,
		errOutput:  errOutput,
		prompt:     "acorn> ",
		history:    make([]string, 0),
		maxHistory: 1000,
	}
}

// SetPrompt changes the prompt string.
func (s *Shell) SetPrompt(prompt string) {
	s.prompt = prompt
}

// ReadCommand shows the prompt and reads one command line. It returns the
// trimmed line and whether EOF was reached.
func (s *Shell) ReadCommand() (string, bool) {
	if s.output != nil {
		io.WriteString(s.output, s.prompt)
	}
	if s.reader == nil {
		return "", true
	}

	line, err := s.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line != "" {
		s.AddHistory(line)
	}
	return line, err != nil
}

// AddHistory appends a command to the history, skipping immediate
// duplicates.
func (s *Shell) AddHistory(cmd string) {
	if len(s.history) > 0 && s.history[len(s.history)-1] == cmd {
		return
	}
	s.history = append(s.history, cmd)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// History returns a copy of the command history.
func (s *Shell) History() []string {
	result := make([]string, len(s.history))
	copy(result, s.history)
	return result
}
