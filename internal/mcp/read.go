package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// RegisterReadTools adds the read-only tools.
func RegisterReadTools(s *server.MCPServer, store settings.Reader, sender messaging.Sender) {
	s.AddTool(pingTool(), pingHandler(sender))
	s.AddTool(listItemsTool(), listItemsHandler(store))
	s.AddTool(statsTool(), statsHandler(sender))
}

// --- ping ---

func pingTool() mcp.Tool {
	return mcp.NewTool("ping",
		mcp.WithDescription("Check that the coordinator answers; returns its version and clock."),
	)
}

func pingHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var pong messaging.Pong
		if err := sender.Send(ctx, messaging.TypePing, nil, &pong); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("pong %s (version %s)", pong.Time, pong.Version)), nil
	}
}

// --- list_items ---

func listItemsTool() mcp.Tool {
	return mcp.NewTool("list_items",
		mcp.WithDescription("List saved links, notes or tasks, newest first."),
		mcp.WithString("collection",
			mcp.Description("One of: links, notes, tasks"),
			mcp.Required(),
		),
		mcp.WithString("query",
			mcp.Description("Only items whose text, title or URL contains this (case-insensitive)."),
		),
	)
}

func listItemsHandler(store settings.Reader) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("collection", "")
		query := strings.ToLower(strings.TrimSpace(req.GetString("query", "")))

		var lines []string
		switch name {
		case "links":
			items, err := read[collection.Link](ctx, store, storage.KeySavedLinks)
			if err != nil {
				return toolError(err)
			}
			for _, l := range items {
				if matches(query, l.Title, l.URL) {
					lines = append(lines, fmt.Sprintf("%d  %s  %s  %s", l.ID, day(l.Timestamp), l.Title, l.URL))
				}
			}
		case "notes":
			items, err := read[collection.Note](ctx, store, storage.KeySavedNotes)
			if err != nil {
				return toolError(err)
			}
			for _, n := range items {
				if matches(query, n.Text, n.PageTitle, n.URL) {
					lines = append(lines, fmt.Sprintf("%d  %s  %s", n.ID, day(n.Timestamp), n.Text))
				}
			}
		case "tasks":
			items, err := read[collection.Task](ctx, store, storage.KeyTasks)
			if err != nil {
				return toolError(err)
			}
			for _, t := range items {
				if matches(query, t.Text) {
					box := "[ ]"
					if t.Completed {
						box = "[x]"
					}
					lines = append(lines, fmt.Sprintf("%d  %s %s", t.ID, box, t.Text))
				}
			}
		default:
			return toolError(fmt.Errorf("unknown collection %q (expected links, notes or tasks)", name))
		}

		if len(lines) == 0 {
			return mcp.NewToolResultText("No items."), nil
		}
		return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
	}
}

// --- get_stats ---

func statsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Counts of saved links, notes and tasks, and days since install."),
	)
}

func statsHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var resp struct {
			messaging.Stats
			Error string `json:"error"`
		}
		if err := sender.Send(ctx, messaging.TypeGetStats, nil, &resp); err != nil {
			return toolError(err)
		}
		if resp.Error != "" {
			return toolError(fmt.Errorf("%s", resp.Error))
		}
		return mcp.NewToolResultText(fmt.Sprintf("links: %d\nnotes: %d\ntasks: %d\ndays since install: %d",
			resp.LinksCount, resp.NotesCount, resp.TasksCount, resp.DaysSinceInstall)), nil
	}
}

func read[T any](ctx context.Context, store settings.Reader, key string) ([]T, error) {
	vals, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var items []T
	if _, err := vals.Decode(key, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func day(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
