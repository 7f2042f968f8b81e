// Package command provides the /combot subcommand registry, parser, and
// built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryPlayer  = "player"
	CategoryReferee = "referee"
	CategorySystem  = "system"
)

// Handler identifiers mapping subcommands to combat operations.
const (
	HandlerIdentify   = "identify"
	HandlerStart      = "start"
	HandlerInitiative = "initiative"
	HandlerAct        = "act"
	HandlerEdit       = "edit"
	HandlerNewRound   = "new_round"
	HandlerEnd        = "end"
	HandlerTracker    = "tracker"
	HandlerHelp       = "help"
)

// Command defines a /combot subcommand.
type Command struct {
	// Name is the canonical subcommand name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (player, referee, system).
	Category string
	// Handler maps to the combat operation.
	Handler string
	// Arg names the required free-text argument; empty when none is taken.
	Arg string
}

// Usage renders the invocation syntax, e.g. "/combot act <text>".
func (c *Command) Usage() string {
	if c.Arg == "" {
		return Prefix + " " + c.Name
	}
	return Prefix + " " + c.Name + " <" + c.Arg + ">"
}

// BuiltinCommands returns all built-in /combot subcommands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "identify", Aliases: []string{"id", "sheet"}, Help: "Link your character sheet to this channel", Category: CategoryPlayer, Handler: HandlerIdentify, Arg: "url"},
		{Name: "initiative", Aliases: []string{"init", "join"}, Help: "Roll initiative and join the combat", Category: CategoryPlayer, Handler: HandlerInitiative},
		{Name: "act", Aliases: []string{"a"}, Help: "Perform a combat action or answer a pending prompt", Category: CategoryPlayer, Handler: HandlerAct, Arg: "text"},
		{Name: "edit-act", Aliases: []string{"edit", "redo"}, Help: "Edit/redo your last combat action", Category: CategoryPlayer, Handler: HandlerEdit, Arg: "text"},

		{Name: "start-combat", Aliases: []string{"start"}, Help: "Start a new combat encounter", Category: CategoryReferee, Handler: HandlerStart, Arg: "text"},
		{Name: "new-round", Aliases: []string{"round", "next"}, Help: "Start a new combat round", Category: CategoryReferee, Handler: HandlerNewRound},
		{Name: "end-combat", Aliases: []string{"end"}, Help: "End the combat in this channel", Category: CategoryReferee, Handler: HandlerEnd},

		{Name: "tracker", Aliases: []string{"status"}, Help: "Show the combat tracker", Category: CategorySystem, Handler: HandlerTracker},
		{Name: "help", Aliases: []string{"?"}, Help: "List commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
