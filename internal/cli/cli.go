package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// History keeps the most recent commands entered in a shell
type History struct {
	commands []string
	position int
	maxSize  int
}

// NewHistory creates a history holding at most maxSize commands
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &History{
		commands: make([]string, 0, maxSize),
		maxSize:  maxSize,
	}
}

func (h *History) Len() int {
	return len(h.commands)
}

// Add appends command, skipping empty input and repeats of the last command
func (h *History) Add(command string) {
	if command == "" || (len(h.commands) > 0 && h.commands[len(h.commands)-1] == command) {
		return
	}

	h.commands = append(h.commands, command)
	if len(h.commands) > h.maxSize {
		h.commands = h.commands[1:]
	}
	h.position = len(h.commands)
}

// Previous moves one command back. It returns "" once the oldest command was returned.
func (h *History) Previous() string {
	if len(h.commands) == 0 {
		return ""
	}
	if h.position >= len(h.commands) {
		h.position = len(h.commands) - 1
		return h.commands[h.position]
	}
	if h.position > 0 {
		h.position--
		return h.commands[h.position]
	}
	return ""
}

// Next moves one command forward. It returns "" when back at the current input.
func (h *History) Next() string {
	if len(h.commands) == 0 {
		return ""
	}
	if h.position < len(h.commands)-1 {
		h.position++
		return h.commands[h.position]
	}
	h.position = len(h.commands)
	return ""
}

// ResetPosition moves back to the current input
func (h *History) ResetPosition() {
	h.position = len(h.commands)
}

// Entries returns the commands oldest first
func (h *History) Entries() []string {
	return append([]string(nil), h.commands...)
}

// Split breaks a command line into words. Single and double quotes group
// words; inside double quotes a backslash escapes the next character.
func Split(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, errors.New("unbalanced quotes")
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}

// ExecFunc runs one parsed command line, writing its reply to out
type ExecFunc func(ctx context.Context, out io.Writer, args []string) error

// Shell is a read-eval-print loop over an ExecFunc
type Shell struct {
	Prompt  string
	Banner  string
	Help    string
	Exec    ExecFunc
	History *History
}

// Run reads commands from in until EOF, quit or ctx is done. A terminal on
// both ends gets line editing with history; anything else is read line by
// line without prompts.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if s.History == nil {
		s.History = NewHistory(100)
	}

	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && term.IsTerminal(int(inFile.Fd())) && term.IsTerminal(int(outFile.Fd())) {
		return s.runTerminal(ctx, inFile, out)
	}
	return s.runLines(ctx, in, out, false)
}

func (s *Shell) runTerminal(ctx context.Context, in *os.File, out io.Writer) error {
	if s.Banner != "" {
		fmt.Fprintln(out, s.Banner)
	}

	fd := int(in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(out, "Warning: could not set terminal to raw mode, line editing is off: %v\n", err)
		return s.runLines(ctx, in, out, true)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, s.Prompt)

	for ctx.Err() == nil {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t)
				return nil
			}
			return err
		}
		if s.handle(ctx, t, line) {
			break
		}
	}
	fmt.Fprintln(t, "Goodbye!")
	return nil
}

func (s *Shell) runLines(ctx context.Context, in io.Reader, out io.Writer, prompt bool) error {
	reader := bufio.NewReader(in)

	for ctx.Err() == nil {
		if prompt {
			fmt.Fprint(out, s.Prompt)
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if line != "" && s.handle(ctx, out, line) {
			return nil
		}
		if err != nil {
			if prompt {
				fmt.Fprintln(out)
			}
			return nil
		}
	}
	return ctx.Err()
}

// handle runs one input line and reports whether the shell should stop
func (s *Shell) handle(ctx context.Context, out io.Writer, line string) bool {
	line = strings.TrimSpace(line)

	switch line {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(out, s.Help)
		return false
	case "clear":
		fmt.Fprint(out, "\033[H\033[2J")
		return false
	case "history":
		for i, c := range s.History.Entries() {
			fmt.Fprintf(out, "%4d  %s\n", i+1, c)
		}
		return false
	}

	s.History.Add(line)

	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(out, "(error) %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	if err := s.Exec(ctx, out, args); err != nil {
		fmt.Fprintf(out, "(error) %v\n", err)
	}
	return false
}
