package surface

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/prodhelper/internal/backup"
	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
)

type fakeView struct {
	mu       sync.Mutex
	links    []collection.Link
	notes    []collection.Note
	tasks    []collection.Task
	settings settings.Settings
	stats    messaging.Stats
	statuses []Status
}

func (v *fakeView) RenderLinks(l []collection.Link) {
	v.mu.Lock()
	v.links = l
	v.mu.Unlock()
}

func (v *fakeView) RenderNotes(n []collection.Note) {
	v.mu.Lock()
	v.notes = n
	v.mu.Unlock()
}

func (v *fakeView) RenderTasks(t []collection.Task) {
	v.mu.Lock()
	v.tasks = t
	v.mu.Unlock()
}

func (v *fakeView) RenderSettings(s settings.Settings) {
	v.mu.Lock()
	v.settings = s
	v.mu.Unlock()
}

func (v *fakeView) RenderStats(s messaging.Stats) {
	v.mu.Lock()
	v.stats = s
	v.mu.Unlock()
}

func (v *fakeView) RenderStatus(s Status) {
	v.mu.Lock()
	v.statuses = append(v.statuses, s)
	v.mu.Unlock()
}

func (v *fakeView) lastStatus() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return Status{}
	}
	return v.statuses[len(v.statuses)-1]
}

// failingSender never reaches the coordinator.
type failingSender struct{}

func (failingSender) Send(context.Context, messaging.Type, any, any) error {
	return messaging.ErrChannelClosed
}

type stack struct {
	store  *storage.SQLiteStore
	sender messaging.Sender
	coord  *coordinator.Coordinator
}

func newStack(t *testing.T) *stack {
	t.Helper()
	store, db, err := storage.Open(context.Background(), storage.Options{
		Driver: storage.DriverCGO,
		Path:   filepath.Join(t.TempDir(), "surface.db"),
	})
	require.NoError(t, err)

	coord := coordinator.New(store, "1.0.0", coordinator.Options{})
	router := messaging.NewRouter(nil)
	coord.Register(router)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		store.Close()
		db.Close()
	})

	_, err = coord.Boot(context.Background())
	require.NoError(t, err)

	return &stack{
		store:  store,
		sender: messaging.NewClient(messaging.LocalTransport{Router: router}, time.Second),
		coord:  coord,
	}
}

func TestPopup_SaveAndRefetch(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)
	ctx := context.Background()

	st := p.SaveCurrentLink(ctx, Page{Title: "Go", URL: "https://go.dev"})
	require.True(t, st.OK(), st.Message)
	require.Len(t, view.links, 1)
	assert.Equal(t, collection.SourcePopup, view.links[0].Source)
	assert.Equal(t, "Link saved!", view.lastStatus().Message)

	st = p.SaveNote(ctx, "  remember this ")
	require.True(t, st.OK())
	require.Len(t, view.notes, 1)
	assert.Equal(t, "remember this", view.notes[0].Text)

	st = p.AddTask(ctx, "ship it")
	require.True(t, st.OK())
	require.Len(t, view.tasks, 1)
	assert.False(t, view.tasks[0].Completed)

	assert.Equal(t, KindWarning, p.AddTask(ctx, "   ").Kind)
}

// Blank input must be visible to the user, the same way the content script
// reports an empty selection.
func TestPopup_BlankTextWarningIsRendered(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)
	ctx := context.Background()

	st := p.SaveNote(ctx, " \n\t")
	assert.Equal(t, KindWarning, st.Kind)
	assert.Equal(t, st, view.lastStatus())

	st = p.AddTask(ctx, "")
	assert.Equal(t, KindWarning, st.Kind)
	assert.Equal(t, "Nothing to add", view.lastStatus().Message)
	assert.Len(t, view.statuses, 2)

	n, err := collection.Tasks(s.store).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPopup_SavePageNoteReportsID(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)
	ctx := context.Background()

	st := p.SavePageNote(ctx, "quote", Page{Title: "Doc", URL: "https://doc"})
	require.True(t, st.OK(), st.Message)
	require.Len(t, view.notes, 1)
	assert.Equal(t, view.notes[0].ID, st.ID)
	assert.Equal(t, "https://doc", view.notes[0].URL)
	assert.Equal(t, "Doc", view.notes[0].PageTitle)
	assert.Equal(t, collection.SourcePopup, view.notes[0].Source)
}

func TestPopup_DispatchActions(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)
	ctx := context.Background()

	require.True(t, p.AddTask(ctx, "a").OK())
	require.True(t, p.SaveCurrentLink(ctx, Page{URL: "https://a"}).OK())
	taskID := view.tasks[0].ID
	linkID := view.links[0].ID

	require.True(t, p.Dispatch(ctx, Action{Kind: ActionToggleTask, ID: taskID}).OK())
	require.Len(t, view.tasks, 1)
	assert.True(t, view.tasks[0].Completed)

	require.True(t, p.Dispatch(ctx, Action{Kind: ActionDeleteTask, ID: taskID}).OK())
	assert.Empty(t, view.tasks)

	require.True(t, p.Dispatch(ctx, Action{Kind: ActionDeleteLink, ID: linkID}).OK())
	assert.Empty(t, view.links)

	// Deleting again is a no-op, not an error.
	assert.True(t, p.Dispatch(ctx, Action{Kind: ActionDeleteLink, ID: linkID}).OK())

	st := p.Dispatch(ctx, Action{Kind: "archive", ID: 1})
	assert.Equal(t, KindError, st.Kind)
}

func TestPopup_SeesSiblingWritesOnRefresh(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)
	content := NewContent(s.store, s.sender, nil, nil)
	ctx := context.Background()

	require.True(t, content.SavePage(ctx, Page{Title: "x", URL: "https://x"}).OK())
	require.NoError(t, p.Refresh(ctx))
	require.Len(t, view.links, 1)
	assert.Equal(t, collection.SourceContentScript, view.links[0].Source)
}

func TestPopup_Ping(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, s.sender, view, nil)

	st := p.Ping(context.Background())
	assert.True(t, st.OK())
	assert.Contains(t, st.Message, "Pong!")

	offline := NewPopup(s.store, failingSender{}, view, nil)
	assert.Equal(t, KindError, offline.Ping(context.Background()).Kind)
}

func TestPopup_ChannelFailureLeavesStoreUntouched(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	p := NewPopup(s.store, failingSender{}, view, nil)
	ctx := context.Background()

	st := p.SaveCurrentLink(ctx, Page{URL: "https://lost"})
	assert.Equal(t, KindError, st.Kind)
	assert.Equal(t, "Error saving link", view.lastStatus().Message)

	n, err := collection.Links(s.store).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestContent_EmptySelectionWarns(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	c := NewContent(s.store, s.sender, view, nil)
	ctx := context.Background()

	st := c.SaveSelection(ctx, "   ", Page{URL: "https://p"})
	assert.Equal(t, KindWarning, st.Kind)
	assert.Equal(t, "No text selected", st.Message)

	st = c.SaveSelection(ctx, "quote", Page{Title: "P", URL: "https://p"})
	require.True(t, st.OK())
	notes, err := collection.Notes(s.store).List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "P", notes[0].PageTitle)
	assert.True(t, c.FloatingButtonEnabled(ctx))
}

func TestOptions_SettingsAndStats(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	o := NewOptions(s.store, s.sender, view, nil)
	ctx := context.Background()

	got, err := o.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), got)

	st := o.SaveSetting(ctx, "floatingButton", false)
	require.True(t, st.OK())
	assert.Equal(t, "Floating button disabled!", st.Message)
	assert.False(t, view.settings.FloatingButtonEnabled)

	content := NewContent(s.store, s.sender, nil, nil)
	assert.False(t, content.FloatingButtonEnabled(ctx))

	assert.Equal(t, KindError, o.SaveSetting(ctx, "bogus", true).Kind)

	stats, err := o.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.LinksCount)
	assert.Equal(t, 0, stats.DaysSinceInstall)
}

func TestOptions_ExportImportClear(t *testing.T) {
	s := newStack(t)
	view := &fakeView{}
	o := NewOptions(s.store, s.sender, view, nil)
	p := NewPopup(s.store, s.sender, view, nil)
	ctx := context.Background()

	require.True(t, p.AddTask(ctx, "keep").OK())
	require.True(t, p.SaveNote(ctx, "note").OK())

	sink, err := backup.NewFileSink(t.TempDir())
	require.NoError(t, err)
	loc, st := o.Export(ctx, sink)
	require.True(t, st.OK(), st.Message)
	assert.Contains(t, loc, "productivity-helper-backup-")

	data, err := sink.Get(ctx, filepath.Base(loc))
	require.NoError(t, err)

	var prompts []string
	decline := func(p string) bool { prompts = append(prompts, p); return false }
	accept := func(string) bool { return true }

	assert.Equal(t, Status{}, o.ClearAll(ctx, decline))
	n, err := collection.Tasks(s.store).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.True(t, o.ClearAll(ctx, accept).OK())
	n, err = collection.Tasks(s.store).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, Status{}, o.Import(ctx, data, decline))
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Tasks: 1")
	assert.Contains(t, prompts[1], "Notes: 1")

	st = o.Import(ctx, data, accept)
	require.True(t, st.OK(), st.Message)
	assert.Equal(t, 1, view.stats.TasksCount)
	assert.Equal(t, 1, view.stats.NotesCount)

	st = o.Import(ctx, []byte(`{"savedLinks": "not-an-array"}`), accept)
	assert.Equal(t, KindError, st.Kind)
	assert.Equal(t, "Invalid backup file", st.Message)
	n, err = collection.Tasks(s.store).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, success("x").OK())
	assert.False(t, warning("x").OK())
	assert.EqualError(t, errOr(nil, "boom"), "boom")
	assert.True(t, errors.Is(errOr(messaging.ErrChannelClosed, ""), messaging.ErrChannelClosed))
}
