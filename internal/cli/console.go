package cli

import (
	"fmt"
	"os"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/surface"
)

// console renders the surfaces on a terminal. JSON mode keeps stdout for
// the command's own document, so statuses go to stderr there. A quiet
// console shows no statuses; the command reports the outcome itself.
type console struct {
	json         bool
	quiet        bool
	showSettings bool
	showStats    bool
}

func (c console) RenderStatus(st surface.Status) {
	if c.quiet || st.Message == "" || st.Kind == surface.KindError {
		return
	}
	if c.json {
		fmt.Fprintln(os.Stderr, st.Message)
		return
	}
	fmt.Println(st.Message)
}

func (c console) RenderSettings(s settings.Settings) {
	if !c.showSettings || c.json {
		return
	}
	for _, key := range settings.Keys() {
		state := "disabled"
		if s.Get(key) {
			state = "enabled"
		}
		fmt.Printf("  %-20s %s\n", settings.Label(key), state)
	}
}

func (c console) RenderStats(s messaging.Stats) {
	if !c.showStats || c.json {
		return
	}
	fmt.Printf("Links: %d  Notes: %d  Tasks: %d\n", s.LinksCount, s.NotesCount, s.TasksCount)
}

// Lists are printed by `list`; the popup's re-fetch after a write only
// confirms the write landed.
func (console) RenderLinks([]collection.Link) {}
func (console) RenderNotes([]collection.Note) {}
func (console) RenderTasks([]collection.Task) {}

// statusErr turns a failed status into an error for the exit code.
func statusErr(st surface.Status) error {
	if st.Kind == surface.KindError {
		return fmt.Errorf("%s", st.Message)
	}
	return nil
}

// popupErr fails on anything but success, warnings included.
func popupErr(st surface.Status) error {
	if !st.OK() {
		return fmt.Errorf("%s", st.Message)
	}
	return nil
}

func (rt *runtime) options(view console) *surface.Options {
	return surface.NewOptions(rt.store, rt.sender, view, rt.logger)
}

// popup drives writes the way the toolbar popup does. Its statuses stay
// quiet so each command prints a single result.
func (rt *runtime) popup() *surface.Popup {
	return surface.NewPopup(rt.store, rt.sender, console{quiet: true}, rt.logger)
}
