package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status     *StatusCommand
	List       *ListCommand
	Open       *OpenCommand
	SaveLink   *SaveLinkCommand
	SaveNote   *SaveNoteCommand
	AddTask    *AddTaskCommand
	ToggleTask *ToggleTaskCommand
	Remove     *RemoveCommand
	Prune      *PruneCommand
	Settings   *SettingsCommand
	Export     *ExportCommand
	Import     *ImportCommand
	Clear      *ClearCommand
	Serve      *ServeCommand
	MCP        *MCPCommand
	Ping       *PingCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "prodhelper"
	parser.LongDescription = "Save links, notes and tasks from the browser, and manage them from the terminal."

	cmds := &commands{
		Status:     &StatusCommand{globals: &globals, version: version},
		List:       &ListCommand{globals: &globals, version: version},
		Open:       &OpenCommand{globals: &globals, version: version},
		SaveLink:   &SaveLinkCommand{globals: &globals, version: version},
		SaveNote:   &SaveNoteCommand{globals: &globals, version: version},
		AddTask:    &AddTaskCommand{globals: &globals, version: version},
		ToggleTask: &ToggleTaskCommand{globals: &globals, version: version},
		Remove:     &RemoveCommand{globals: &globals, version: version},
		Prune:      &PruneCommand{globals: &globals, version: version},
		Settings:   &SettingsCommand{globals: &globals, version: version},
		Export:     &ExportCommand{globals: &globals, version: version},
		Import:     &ImportCommand{globals: &globals, version: version},
		Clear:      &ClearCommand{globals: &globals, version: version},
		Serve:      &ServeCommand{globals: &globals, version: version},
		MCP:        &MCPCommand{globals: &globals, version: version},
		Ping:       &PingCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show counts, settings and daemon state", "Show collection counts, days since install, feature toggles, badge and daemon state.", cmds.Status)
	parser.AddCommand("list", "List saved links, notes or tasks", "List one collection newest first, with optional text and age filters.", cmds.List)
	parser.AddCommand("open", "Print a saved item", "Print a single saved link, note or task by ID.", cmds.Open)
	parser.AddCommand("save-link", "Save a link", "Save a URL and title to the links collection.", cmds.SaveLink)
	parser.AddCommand("save-note", "Save a note", "Save a free-form note to the notes collection.", cmds.SaveNote)
	parser.AddCommand("add-task", "Add a task", "Add a task to the tasks collection.", cmds.AddTask)
	parser.AddCommand("toggle-task", "Toggle a task", "Flip a task between completed and pending.", cmds.ToggleTask)
	parser.AddCommand("rm", "Delete an item", "Delete one link, note or task by ID.", cmds.Remove)
	parser.AddCommand("prune", "Remove completed tasks", "Remove completed tasks, optionally only those older than a duration.", cmds.Prune)
	parser.AddCommand("settings", "Show or change feature toggles", "Show feature toggles, or change them with --set key=on|off.", cmds.Settings)
	parser.AddCommand("export", "Export a backup", "Export all data and settings as a JSON backup document.", cmds.Export)
	parser.AddCommand("import", "Import a backup", "Replace all data and settings with a JSON backup document.", cmds.Import)
	parser.AddCommand("clear", "Delete ALL data", "Delete ALL data and reset settings. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("serve", "Start the local daemon", "Start the local HTTP daemon the browser extension talks to.", cmds.Serve)
	parser.AddCommand("mcp", "Serve MCP tools over stdio", "Expose the collections as Model Context Protocol tools over stdio.", cmds.MCP)
	parser.AddCommand("ping", "Check the coordinator answers", "Send a PING message and print the reply.", cmds.Ping)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand; go-flags would reject it.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("prodhelper %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
