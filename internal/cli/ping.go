package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/prodhelper/internal/messaging"
)

// Execute implements the go-flags Commander interface for PingCommand.
func (c *PingCommand) Execute(args []string) error {
	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt)
}

func (c *PingCommand) run(ctx context.Context, rt *runtime) error {
	var pong messaging.Pong
	if err := rt.sender.Send(ctx, messaging.TypePing, nil, &pong); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !pong.OK {
		return fmt.Errorf("ping: coordinator answered not ok")
	}

	via := "in-process"
	if rt.remote {
		via = "daemon"
	}
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"pong": pong, "via": via})
	}
	fmt.Printf("pong from %s coordinator (version %s, %s)\n", via, pong.Version, pong.Time)
	return nil
}
