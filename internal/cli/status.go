package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	ExtensionVersion  string            `json:"extension_version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	Stats             messaging.Stats   `json:"stats"`
	InstalledAt       string            `json:"installed_at"`
	LastModified      string            `json:"last_modified,omitempty"`
	Badge             coordinator.Badge `json:"badge"`
	Settings          settings.Settings `json:"settings"`
	DaemonRunning     bool              `json:"daemon_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *StatusCommand) run(ctx context.Context, rt *runtime) error {
	opts := rt.options(console{})
	stats, err := opts.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	prefs, err := opts.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		ExtensionVersion:  rt.cfg.Extension.Version,
		DatabasePath:      rt.dbPath,
		DatabaseSizeBytes: getDatabaseSize(rt.db, rt.dbPath),
		Stats:             stats,
		InstalledAt:       time.UnixMilli(stats.InstallTime).UTC().Format(time.RFC3339),
		Badge:             coordinator.BadgeFor(stats.LinksCount, stats.NotesCount, stats.TasksCount),
		Settings:          prefs,
		DaemonRunning:     rt.remote || checkDaemon(rt.cfg.DaemonURL()),
	}
	if mod, err := rt.store.LastModified(ctx); err == nil && !mod.IsZero() {
		out.LastModified = mod.UTC().Format(time.RFC3339)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	c.printHuman(out)
	return nil
}

func (c *StatusCommand) printHuman(s statusJSON) {
	fmt.Println("Productivity Helper Status")
	fmt.Println("==========================")
	fmt.Printf("Version:       %s (extension %s)\n", s.Version, s.ExtensionVersion)
	fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes))
	fmt.Printf("Links:         %s\n", formatNumber(int64(s.Stats.LinksCount)))
	fmt.Printf("Notes:         %s\n", formatNumber(int64(s.Stats.NotesCount)))
	fmt.Printf("Tasks:         %s\n", formatNumber(int64(s.Stats.TasksCount)))

	installed := time.UnixMilli(s.Stats.InstallTime).Local().Format("2006-01-02")
	fmt.Printf("Installed:     %s (%d days ago)\n", installed, s.Stats.DaysSinceInstall)
	if s.LastModified != "" {
		fmt.Printf("Last change:   %s\n", s.LastModified)
	}
	if s.Badge.Text == "" {
		fmt.Println("Badge:         (none)")
	} else {
		fmt.Printf("Badge:         %s\n", s.Badge.Text)
	}

	fmt.Println()
	fmt.Println("Settings:")
	console{showSettings: true}.RenderSettings(s.Settings)

	fmt.Println()
	if s.DaemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkDaemon attempts an HTTP GET to the daemon's status endpoint.
// Returns true if the daemon responds within 1 second.
func checkDaemon(baseURL string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(baseURL + "/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
