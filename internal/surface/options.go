package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runnerr0/prodhelper/internal/backup"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

// ConfirmFunc asks the user to approve a destructive action.
type ConfirmFunc func(prompt string) bool

// OptionsRenderer draws the options page.
type OptionsRenderer interface {
	StatusRenderer
	RenderSettings(settings.Settings)
	RenderStats(messaging.Stats)
}

// Options controls the settings page.
type Options struct {
	store  settings.Reader
	sender messaging.Sender
	view   OptionsRenderer
	logger *slog.Logger
	now    func() time.Time
}

// NewOptions wires the options page.
func NewOptions(store settings.Reader, sender messaging.Sender, view OptionsRenderer, logger *slog.Logger) *Options {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Options{store: store, sender: sender, view: view, logger: logger, now: time.Now}
}

// LoadSettings renders the current preferences.
func (o *Options) LoadSettings(ctx context.Context) (settings.Settings, error) {
	s, err := settings.Load(ctx, o.store)
	if err != nil {
		return settings.Settings{}, err
	}
	o.view.RenderSettings(s)
	return s, nil
}

// LoadStats asks the coordinator for usage numbers and renders them.
func (o *Options) LoadStats(ctx context.Context) (messaging.Stats, error) {
	var resp struct {
		messaging.Stats
		Error string `json:"error"`
	}
	if err := o.sender.Send(ctx, messaging.TypeGetStats, nil, &resp); err != nil {
		return messaging.Stats{}, err
	}
	if resp.Error != "" {
		return messaging.Stats{}, errors.New(resp.Error)
	}
	o.view.RenderStats(resp.Stats)
	return resp.Stats, nil
}

// SaveSetting writes one preference and re-renders.
func (o *Options) SaveSetting(ctx context.Context, key string, value bool) Status {
	full, err := settings.Normalize(key)
	if err != nil {
		return o.show(failure(err.Error()))
	}

	var res messaging.Result
	if err := o.sender.Send(ctx, messaging.TypeSetSetting, messaging.SettingData{Key: full, Value: value}, &res); err != nil || !res.Success {
		o.logger.Error("save setting failed", "key", full, "error", errOr(err, res.Error))
		return o.show(failure("Error saving setting"))
	}

	state := "disabled"
	if value {
		state = "enabled"
	}
	if _, err := o.LoadSettings(ctx); err != nil {
		o.logger.Warn("reload settings failed", "error", err)
	}
	return o.show(success(fmt.Sprintf("%s %s!", settings.Label(full), state)))
}

// Export writes a backup document to sink and returns its location.
func (o *Options) Export(ctx context.Context, sink backup.Sink) (string, Status) {
	version, err := readString(ctx, o.store, storage.KeyVersion)
	if err != nil {
		o.logger.Error("export failed", "error", err)
		return "", o.show(failure("Error exporting data"))
	}
	now := o.now()
	doc, err := backup.Export(ctx, o.store, version, now)
	if err != nil {
		o.logger.Error("export failed", "error", err)
		return "", o.show(failure("Error exporting data"))
	}
	data, err := backup.Encode(doc)
	if err != nil {
		o.logger.Error("export failed", "error", err)
		return "", o.show(failure("Error exporting data"))
	}
	loc, err := sink.Put(ctx, backup.Filename(now), data)
	if err != nil {
		o.logger.Error("export failed", "error", err)
		return "", o.show(failure("Error exporting data"))
	}
	return loc, o.show(success("Data exported!"))
}

// ImportPrompt is the confirmation text for an import of sum.
func ImportPrompt(sum backup.Summary) string {
	return fmt.Sprintf("This will replace all current data. Continue?\n\nLinks: %d\nNotes: %d\nTasks: %d",
		sum.Links, sum.Notes, sum.Tasks)
}

// ClearPrompt is the confirmation text for clearing everything.
const ClearPrompt = "This removes ALL saved data (links, notes, tasks and settings).\n\nThis cannot be undone. Continue?"

// Import validates data locally, asks for confirmation and only then sends
// it to the coordinator. A declined prompt changes nothing.
func (o *Options) Import(ctx context.Context, data []byte, confirm ConfirmFunc) Status {
	plan, err := backup.Parse(data)
	if err != nil {
		o.logger.Warn("invalid backup", "error", err)
		return o.show(failure("Invalid backup file"))
	}
	if confirm != nil && !confirm(ImportPrompt(plan.Summary())) {
		return Status{}
	}

	var res messaging.Result
	if err := o.sender.Send(ctx, messaging.TypeImportData, rawJSON(data), &res); err != nil || !res.Success {
		o.logger.Error("import failed", "error", errOr(err, res.Error))
		return o.show(failure("Error importing data. Check the file."))
	}
	o.reload(ctx)
	return o.show(success("Data imported!"))
}

// ClearAll erases everything after confirmation.
func (o *Options) ClearAll(ctx context.Context, confirm ConfirmFunc) Status {
	if confirm != nil && !confirm(ClearPrompt) {
		return Status{}
	}
	var res messaging.Result
	if err := o.sender.Send(ctx, messaging.TypeClearData, nil, &res); err != nil || !res.Success {
		o.logger.Error("clear failed", "error", errOr(err, res.Error))
		return o.show(failure("Error clearing data"))
	}
	o.reload(ctx)
	return o.show(success("All data removed!"))
}

func (o *Options) reload(ctx context.Context) {
	if _, err := o.LoadSettings(ctx); err != nil {
		o.logger.Warn("reload settings failed", "error", err)
	}
	if _, err := o.LoadStats(ctx); err != nil {
		o.logger.Warn("reload stats failed", "error", err)
	}
}

func (o *Options) show(st Status) Status {
	o.view.RenderStatus(st)
	return st
}

// rawJSON passes an already-encoded document through Send unchanged.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) { return r, nil }

func errOr(err error, msg string) error {
	if err != nil {
		return err
	}
	return errors.New(msg)
}
