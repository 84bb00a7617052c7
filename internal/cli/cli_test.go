package cli

import (
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly builds a parser whose commands are parsed but never executed.
func parseOnly(args ...string) (*GlobalFlags, *commands, error) {
	parser, globals, cmds := buildParser("test")
	parser.Options &^= goflags.PrintErrors
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	return globals, cmds, err
}

func TestVersionFlag(t *testing.T) {
	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("0.1.0-test", []string{"--version"})
	})

	assert.NoError(t, err)
	assert.Contains(t, output, "prodhelper 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})

	assert.Equal(t, "prodhelper 1.2.3", strings.TrimSpace(output))
}

func TestVersionAfterDoubleDashIsNotAFlag(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"save-note", "--", "--version"})
	})
	assert.NotContains(t, output, "prodhelper 1.2.3")
}

func TestAllSubcommandsExist(t *testing.T) {
	expected := []string{
		"status", "list", "open", "save-link", "save-note", "add-task", "toggle-task",
		"rm", "prune", "settings", "export", "import", "clear", "serve", "mcp", "ping",
	}
	parser, _, _ := buildParser("test")

	for _, name := range expected {
		cmd := parser.Find(name)
		assert.NotNil(t, cmd, "subcommand %q should exist", name)
	}
}

func TestSubcommandsRecognized(t *testing.T) {
	cases := [][]string{
		{"status"},
		{"list", "links"},
		{"open", "--id", "42"},
		{"save-link", "--url", "https://example.com", "--title", "Example"},
		{"save-note", "--text", "hello"},
		{"add-task", "--text", "buy milk"},
		{"toggle-task", "--id", "7"},
		{"rm", "notes", "--id", "7"},
		{"prune", "--older-than", "30d"},
		{"settings", "--set", "notifications=off"},
		{"export", "--dir", "/tmp/backups"},
		{"import", "--file", "backup.json", "--force"},
		{"clear", "--all"},
		{"serve", "--port", "9000"},
		{"mcp"},
		{"ping"},
	}
	for _, args := range cases {
		_, _, err := parseOnly(args...)
		assert.NoError(t, err, "args %v", args)
	}
}

func TestUnknownSubcommandFails(t *testing.T) {
	_, _, err := parseOnly("nonexistent")
	require.Error(t, err)
}

func TestHelpFlagDoesNotError(t *testing.T) {
	captureOutput(t, func() {
		assert.NoError(t, RunWithArgs("test", []string{"--help"}))
	})
}

func TestGlobalFlags(t *testing.T) {
	globals, _, err := parseOnly("--json", "--verbose", "--config", "/tmp/test.yaml", "status")
	require.NoError(t, err)
	assert.True(t, globals.JSON)
	assert.True(t, globals.Verbose)
	assert.Equal(t, "/tmp/test.yaml", globals.Config)
}

func TestListFlagsDefaults(t *testing.T) {
	_, cmds, err := parseOnly("list", "tasks")
	require.NoError(t, err)

	assert.Equal(t, "tasks", cmds.List.Args.Collection)
	assert.Equal(t, 20, cmds.List.Limit)
	assert.Empty(t, cmds.List.Since)
	assert.Empty(t, cmds.List.Query)
}

func TestOpenFormatFlag(t *testing.T) {
	_, cmds, err := parseOnly("open", "--id", "1700000000000", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "json", cmds.Open.Format)
	assert.Equal(t, int64(1700000000000), cmds.Open.ID)
}

func TestSettingsSetRepeatable(t *testing.T) {
	_, cmds, err := parseOnly("settings", "--set", "notifications=off", "--set", "contextMenu=on")
	require.NoError(t, err)
	assert.Equal(t, []string{"notifications=off", "contextMenu=on"}, cmds.Settings.Set)
}

func TestPruneDryRunFlag(t *testing.T) {
	_, cmds, err := parseOnly("prune", "--dry-run")
	require.NoError(t, err)
	assert.True(t, cmds.Prune.DryRun)
}

// Argument validation happens before any config or store is opened.
func TestRequiredArguments(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"open"}, "--id is required"},
		{[]string{"save-link", "--title", "Test"}, "--url is required"},
		{[]string{"save-note"}, "--text is required"},
		{[]string{"add-task", "--text", "   "}, "--text is required"},
		{[]string{"toggle-task"}, "--id is required"},
		{[]string{"rm", "links"}, "--id is required"},
		{[]string{"rm", "bookmarks", "--id", "1"}, "unknown collection"},
		{[]string{"list"}, "collection is required"},
		{[]string{"list", "links", "--since", "soon"}, "invalid duration"},
		{[]string{"prune", "--older-than", "x"}, "invalid duration"},
		{[]string{"settings", "--set", "notifications"}, "expected key=on|off"},
		{[]string{"settings", "--set", "notifications=maybe"}, "use on or off"},
		{[]string{"import"}, "exactly one of --file or --backup"},
		{[]string{"import", "--file", "a.json", "--backup", "b.json"}, "exactly one of --file or --backup"},
		{[]string{"clear"}, "clear requires --all flag for safety"},
		{[]string{"serve", "--log-level", "loud"}, "loud"},
	}
	for _, tc := range cases {
		err := RunWithArgs("test", tc.args)
		require.Error(t, err, "args %v", tc.args)
		assert.Contains(t, err.Error(), tc.want, "args %v", tc.args)
	}
}
