package cmd

import (
	"fmt"
	"sort"
	"strings"

	"typedkv/internal/resp"
)

// Registry maps upper-case command names to commands. It is read-only once
// the server starts, so lookups take no lock.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry creates an empty command registry
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command, 32)}
}

// Register adds a command, replacing any command of the same name
func (r *Registry) Register(cmd *Command) {
	r.commands[strings.ToUpper(cmd.Name)] = cmd
}

// Get retrieves a command by case-insensitive name
func (r *Registry) Get(name string) (*Command, bool) {
	cmd, ok := r.commands[strings.ToUpper(name)]
	return cmd, ok
}

// Execute runs words[0] with the remaining words as arguments
func (r *Registry) Execute(words []string) (resp.Value, error) {
	if len(words) == 0 {
		return resp.Value{}, &CommandError{"ERR empty command"}
	}
	name := words[0]
	cmd, ok := r.Get(name)
	if !ok {
		return resp.Value{}, &CommandError{fmt.Sprintf("ERR unknown command '%s'", name)}
	}

	n := len(words)
	if (cmd.Arity > 0 && n != cmd.Arity) || (cmd.Arity < 0 && n < -cmd.Arity) {
		return resp.Value{}, wrongArgs(cmd.Name)
	}
	return cmd.Handler(words[1:])
}

// List returns the registered command names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
