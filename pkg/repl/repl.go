package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

type REPL struct {
	Commands map[string]func(string, *REPLConfig) error
	Help     map[string]string
}

type REPLConfig struct {
	Writer io.Writer
}

func NewRepl() *REPL {
	r := &REPL{make(map[string]func(string, *REPLConfig) error), make(map[string]string)}
	return r
}

// Add a command, along with its help string, to the set of commands
func (r *REPL) AddCommand(trigger string, handler func(string, *REPLConfig) error, help string) {
	if trigger == "" || trigger[0] == '.' {
		return
	}
	r.Help[trigger] = help
	r.Commands[trigger] = handler
}

// Return all REPL usage information as a string
func (r *REPL) HelpString() string {
	var sb strings.Builder
	sb.WriteString("Commands\n")
	for k, v := range r.Help {
		sb.WriteString(fmt.Sprintf("\t%s: %s\n", k, v))
	}
	return sb.String()
}

func (r *REPL) Run() {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Printf("cannot init the repl: %v\n", err)
		return
	}
	defer rl.Close()
	replConfig := &REPLConfig{Writer: rl.Stdout()}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt { // ctrl-c clears the line
			continue
		}
		if err != nil { // ctrl-d / closed stdin
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		command := strings.Split(input, " ")[0]
		handler, ok := r.Commands[command]

		if !ok {
			io.WriteString(replConfig.Writer, fmt.Sprintf("Invalid command: %s\n", command))
			io.WriteString(replConfig.Writer, r.HelpString())
			continue
		}
		if err := handler(input, replConfig); err != nil {
			io.WriteString(replConfig.Writer, fmt.Sprintf("Error: %v\n", err))
		}
	}
}
