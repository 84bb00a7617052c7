package cli

import (
	"context"
	"fmt"
	"strings"
)

type settingChange struct {
	key   string
	value bool
}

func parseSettingChanges(pairs []string) ([]settingChange, error) {
	changes := make([]settingChange, 0, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q (expected key=on|off)", p)
		}
		v, err := parseToggle(raw)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
		changes = append(changes, settingChange{key: key, value: v})
	}
	return changes, nil
}

// Execute implements the go-flags Commander interface for SettingsCommand.
func (c *SettingsCommand) Execute(args []string) error {
	changes, err := parseSettingChanges(c.Set)
	if err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.run(ctx, rt, changes)
}

func (c *SettingsCommand) run(ctx context.Context, rt *runtime, changes []settingChange) error {
	jsonOut := c.globals != nil && c.globals.JSON
	opts := rt.options(console{json: jsonOut})

	for _, ch := range changes {
		if err := statusErr(opts.SaveSetting(ctx, ch.key, ch.value)); err != nil {
			return fmt.Errorf("%s: %w", ch.key, err)
		}
	}

	view := console{json: jsonOut, showSettings: true}
	prefs, err := rt.options(view).LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if jsonOut {
		return printJSON(prefs)
	}
	return nil
}
