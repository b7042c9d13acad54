package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

type answer int

const (
	answerNo answer = iota
	answerYes
	answerAll
	answerQuit
)

// prompter asks the user yes/no questions.
type prompter interface {
	Confirm(question string) (answer, error)
	Close() error
}

// newPrompter is replaced in tests.
var newPrompter = newReadlinePrompter

type readlinePrompter struct {
	rl *readline.Instance
}

func newReadlinePrompter(cmd *cobra.Command) (prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) Confirm(question string) (answer, error) {
	p.rl.SetPrompt(question)
	for {
		line, err := p.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return answerQuit, nil
		}
		if err != nil {
			return answerQuit, err
		}
		if a, ok := parseAnswer(line); ok {
			return a, nil
		}
	}
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}

func parseAnswer(s string) (answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return answerYes, true
	case "", "n", "no":
		return answerNo, true
	case "a", "all":
		return answerAll, true
	case "q", "quit":
		return answerQuit, true
	}
	return answerNo, false
}
