// Package mcp exposes the message API as Model Context Protocol tools over
// stdio. Writes are sent to the coordinator; lists read the store.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
)

// NewServer builds an MCP server with every tool registered.
func NewServer(version string, store settings.Reader, sender messaging.Sender) *server.MCPServer {
	s := server.NewMCPServer(
		"prodhelper-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	RegisterReadTools(s, store, sender)
	RegisterWriteTools(s, sender)
	return s
}

// ServeStdio serves s on stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
