package command

import (
	"fmt"
	"slices"
	"strings"
)

// Registry resolves subcommand words, names and aliases alike, to commands.
type Registry struct {
	ordered []*Command
	index   map[string]*Command
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: Names and aliases are lowercase.
// Postcondition: Returns an error if any word is claimed twice.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{index: make(map[string]*Command)}
	for i := range cmds {
		cmd := &cmds[i]
		if prev, taken := r.index[cmd.Name]; taken {
			if prev.Name == cmd.Name {
				return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
			}
			return nil, fmt.Errorf("command name %q is already an alias of %q", cmd.Name, prev.Name)
		}
		r.index[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			if prev, taken := r.index[alias]; taken {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, prev.Name, cmd.Name)
			}
			r.index[alias] = cmd
		}
		r.ordered = append(r.ordered, cmd)
	}
	slices.SortFunc(r.ordered, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return r, nil
}

// DefaultRegistry indexes BuiltinCommands. It panics if they collide.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve finds the command for word, ignoring case.
func (r *Registry) Resolve(word string) (*Command, bool) {
	cmd, ok := r.index[strings.ToLower(word)]
	return cmd, ok
}

// Commands returns every command ordered by name.
func (r *Registry) Commands() []*Command {
	return slices.Clone(r.ordered)
}

// CommandsByCategory groups Commands by category.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.ordered {
		out[cmd.Category] = append(out[cmd.Category], cmd)
	}
	return out
}

// HelpText lists usage and help for every command, player commands first.
func (r *Registry) HelpText() string {
	byCat := r.CommandsByCategory()
	var b strings.Builder
	b.WriteString("**Combot commands**")
	for _, cat := range []string{CategoryPlayer, CategoryReferee, CategorySystem} {
		for _, cmd := range byCat[cat] {
			fmt.Fprintf(&b, "\n• `%s` - %s", cmd.Usage(), cmd.Help)
		}
	}
	return b.String()
}
