package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand shows collection counts, settings, badge and daemon state.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ListCommand prints one collection, newest first.
type ListCommand struct {
	Query string `long:"query" short:"q" description:"Only items containing this text (case-insensitive)"`
	Since string `long:"since" description:"Only items newer than duration (e.g., 7d, 24h, 2w)"`
	Limit int    `long:"limit" description:"Maximum results (0 for all)" default:"20"`

	Args struct {
		Collection string `positional-arg-name:"collection" description:"links | notes | tasks"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// OpenCommand prints a single saved item.
type OpenCommand struct {
	ID     int64  `long:"id" description:"Item ID (required)"`
	Format string `long:"format" description:"Output format: full | md | json | url | text" default:"full"`

	globals *GlobalFlags
	version string
}

// SaveLinkCommand saves a link the way the content script does.
type SaveLinkCommand struct {
	URL   string `long:"url" description:"URL to save (required)"`
	Title string `long:"title" description:"Page title (defaults to the URL)"`

	globals *GlobalFlags
	version string
}

// SaveNoteCommand saves a free-form note.
type SaveNoteCommand struct {
	Text      string `long:"text" description:"Note text (required)"`
	URL       string `long:"url" description:"Page the note was taken from"`
	PageTitle string `long:"page-title" description:"Title of that page"`

	globals *GlobalFlags
	version string
}

// AddTaskCommand adds a to-do item.
type AddTaskCommand struct {
	Text string `long:"text" description:"Task text (required)"`

	globals *GlobalFlags
	version string
}

// ToggleTaskCommand flips a task's completed flag.
type ToggleTaskCommand struct {
	ID int64 `long:"id" description:"Task ID (required)"`

	globals *GlobalFlags
	version string
}

// RemoveCommand deletes one item from a collection.
type RemoveCommand struct {
	ID int64 `long:"id" description:"Item ID (required)"`

	Args struct {
		Collection string `positional-arg-name:"collection" description:"links | notes | tasks"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// PruneCommand removes completed tasks.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Only tasks created before this duration (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// SettingsCommand shows or changes feature toggles.
type SettingsCommand struct {
	Set []string `long:"set" description:"key=on|off (repeatable); keys: floatingButton, notifications, contextMenu"`

	globals *GlobalFlags
	version string
}

// ExportCommand writes a backup document to the configured sink.
type ExportCommand struct {
	Dir string `long:"dir" description:"Write to this directory instead of the configured backup sink"`

	globals *GlobalFlags
	version string
}

// ImportCommand replaces all data with a backup document.
type ImportCommand struct {
	File   string `long:"file" description:"Backup file to import"`
	Backup string `long:"backup" description:"Name of a backup in the configured sink"`
	Force  bool   `long:"force" description:"Skip confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // nil means os.Stdin
}

// ClearCommand deletes ALL data with safety confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // nil means os.Stdin
}

// ServeCommand starts the local daemon.
type ServeCommand struct {
	Host     string `long:"host" description:"Override daemon host"`
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// MCPCommand serves the collections as MCP tools over stdio.
type MCPCommand struct {
	globals *GlobalFlags
	version string
}

// PingCommand checks the coordinator is answering.
type PingCommand struct {
	globals *GlobalFlags
	version string
}
