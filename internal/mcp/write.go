package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
)

// RegisterWriteTools adds the tools that change saved data.
func RegisterWriteTools(s *server.MCPServer, sender messaging.Sender) {
	s.AddTool(saveLinkTool(), saveLinkHandler(sender))
	s.AddTool(saveNoteTool(), saveNoteHandler(sender))
	s.AddTool(addTaskTool(), addTaskHandler(sender))
	s.AddTool(toggleTaskTool(), toggleTaskHandler(sender))
	s.AddTool(deleteItemTool(), deleteItemHandler(sender))
}

// --- save_link ---

func saveLinkTool() mcp.Tool {
	return mcp.NewTool("save_link",
		mcp.WithDescription("Save a link."),
		mcp.WithString("url", mcp.Description("Link URL"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Link title; defaults to the URL")),
	)
}

func saveLinkHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data := messaging.LinkData{
			URL:    req.GetString("url", ""),
			Title:  req.GetString("title", ""),
			Source: string(collection.SourcePopup),
		}
		return send(ctx, sender, messaging.TypeSaveLink, data, "Link saved")
	}
}

// --- save_note ---

func saveNoteTool() mcp.Tool {
	return mcp.NewTool("save_note",
		mcp.WithDescription("Save a note, optionally tied to a page."),
		mcp.WithString("text", mcp.Description("Note text"), mcp.Required()),
		mcp.WithString("url", mcp.Description("Page URL")),
		mcp.WithString("page_title", mcp.Description("Page title")),
	)
}

func saveNoteHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data := messaging.NoteData{
			Text:      req.GetString("text", ""),
			URL:       req.GetString("url", ""),
			PageTitle: req.GetString("page_title", ""),
			Source:    string(collection.SourcePopup),
		}
		return send(ctx, sender, messaging.TypeSaveNote, data, "Note saved")
	}
}

// --- add_task ---

func addTaskTool() mcp.Tool {
	return mcp.NewTool("add_task",
		mcp.WithDescription("Add an open task."),
		mcp.WithString("text", mcp.Description("Task text"), mcp.Required()),
	)
}

func addTaskHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return send(ctx, sender, messaging.TypeAddTask, messaging.TaskData{Text: req.GetString("text", "")}, "Task added")
	}
}

// --- toggle_task ---

func toggleTaskTool() mcp.Tool {
	return mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip a task between open and completed."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	)
}

func toggleTaskHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := parseID(req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}
		return send(ctx, sender, messaging.TypeToggleTask, messaging.IDData{ID: id}, "Task toggled")
	}
}

// --- delete_item ---

func deleteItemTool() mcp.Tool {
	return mcp.NewTool("delete_item",
		mcp.WithDescription("Delete a link, note or task by id. Deleting a missing id succeeds."),
		mcp.WithString("collection", mcp.Description("One of: links, notes, tasks"), mcp.Required()),
		mcp.WithString("id", mcp.Description("Item id"), mcp.Required()),
	)
}

var deleteTypes = map[string]messaging.Type{
	"links": messaging.TypeDeleteLink,
	"notes": messaging.TypeDeleteNote,
	"tasks": messaging.TypeDeleteTask,
}

func deleteItemHandler(sender messaging.Sender) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.GetString("collection", "")
		t, ok := deleteTypes[name]
		if !ok {
			return toolError(fmt.Errorf("unknown collection %q (expected links, notes or tasks)", name))
		}
		id, err := parseID(req.GetString("id", ""))
		if err != nil {
			return toolError(err)
		}
		return send(ctx, sender, t, messaging.IDData{ID: id}, "Deleted")
	}
}

func send(ctx context.Context, sender messaging.Sender, t messaging.Type, data any, done string) (*mcp.CallToolResult, error) {
	var res messaging.Result
	if err := sender.Send(ctx, t, data, &res); err != nil {
		return toolError(err)
	}
	if !res.Success {
		return toolError(fmt.Errorf("%s", res.Error))
	}
	if res.ID != 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s (id %d)", done, res.ID)), nil
	}
	return mcp.NewToolResultText(done), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
