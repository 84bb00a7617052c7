package cli

import (
	"context"

	"github.com/runnerr0/prodhelper/internal/mcp"
)

// Execute implements the go-flags Commander interface for MCPCommand.
func (c *MCPCommand) Execute(args []string) error {
	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("serving MCP over stdio", "remote", rt.remote)
	return mcp.ServeStdio(mcp.NewServer(c.version, rt.store, rt.sender))
}
