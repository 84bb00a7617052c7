package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/prodhelper/internal/collection"
	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/metrics"
	"github.com/runnerr0/prodhelper/internal/storage"
	"github.com/runnerr0/prodhelper/internal/surface"
)

type fixture struct {
	srv   *Server
	coord *coordinator.Coordinator
	store *storage.SQLiteStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store, db, err := storage.Open(context.Background(), storage.Options{
		Driver: storage.DriverPureGo,
		Path:   filepath.Join(t.TempDir(), "daemon.db"),
	})
	require.NoError(t, err)

	m := metrics.New()
	coord := coordinator.New(store, "1.0.0", coordinator.Options{Counts: m})
	router := messaging.NewRouter(nil)
	router.SetObserver(m)
	coord.Register(router)

	t.Cleanup(func() {
		store.Close()
		db.Close()
	})
	return &fixture{srv: New(coord, router, store, m, opts, nil), coord: coord, store: store}
}

// start runs the coordinator and boots it, serving through httptest.
func (f *fixture) start(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.coord.Run(ctx)
	}()
	_, err := f.coord.Boot(context.Background())
	require.NoError(t, err)

	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return ts
}

func post(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestMessageEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	ts := f.start(t)

	resp := post(t, ts.URL+"/message", "", messaging.Request{
		Type: messaging.TypeSaveLink,
		Data: json.RawMessage(`{"title":"Go","url":"https://go.dev"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res messaging.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.NotZero(t, res.ID)

	resp = post(t, ts.URL+"/message", "", messaging.Request{Type: "NOPE"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"unrecognized message type"}`, readBody(t, resp))
}

func TestMessageEndpoint_ThroughHTTPTransport(t *testing.T) {
	f := newFixture(t, Options{AuthToken: "s3cret"})
	ts := f.start(t)

	client := messaging.NewClient(messaging.HTTPTransport{BaseURL: ts.URL, Token: "s3cret"}, time.Second)
	ctx := context.Background()

	var res messaging.Result
	require.NoError(t, client.Send(ctx, messaging.TypeAddTask, messaging.TaskData{Text: "from http"}, &res))
	assert.True(t, res.Success)

	var stats messaging.Stats
	require.NoError(t, client.Send(ctx, messaging.TypeGetStats, nil, &stats))
	assert.Equal(t, 1, stats.TasksCount)

	err := client.Send(ctx, "NOPE", nil, nil)
	assert.ErrorIs(t, err, messaging.ErrUnrecognizedRequest)

	bad := messaging.NewClient(messaging.HTTPTransport{BaseURL: ts.URL, Token: "wrong"}, time.Second)
	err = bad.Send(ctx, messaging.TypePing, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAuth_StatusIsPublic(t *testing.T) {
	f := newFixture(t, Options{AuthToken: "tok"})
	ts := f.start(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.OK)
	assert.Equal(t, "1.0.0", st.Version)

	resp2, err := http.Get(ts.URL + "/settings")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestMenuClickAndReads(t *testing.T) {
	f := newFixture(t, Options{})
	ts := f.start(t)

	resp := post(t, ts.URL+"/menu-click", "", coordinator.Click{
		MenuItemID:    coordinator.MenuSaveSelection,
		SelectionText: "a quote",
		PageURL:       "https://example.com",
		PageTitle:     "Example",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, ts.URL+"/menu-click", "", coordinator.Click{MenuItemID: "bogus"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, ts.URL+"/menu-click", "", coordinator.Click{MenuItemID: coordinator.MenuSaveLink})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	get, err := http.Get(ts.URL + "/collections/notes")
	require.NoError(t, err)
	defer get.Body.Close()
	var notes []collection.Note
	require.NoError(t, json.NewDecoder(get.Body).Decode(&notes))
	require.Len(t, notes, 1)
	assert.Equal(t, collection.SourceContextMenu, notes[0].Source)

	get2, err := http.Get(ts.URL + "/collections/bookmarks")
	require.NoError(t, err)
	defer get2.Body.Close()
	assert.Equal(t, http.StatusNotFound, get2.StatusCode)

	menus, err := http.Get(ts.URL + "/menus")
	require.NoError(t, err)
	defer menus.Body.Close()
	assert.Contains(t, readBody(t, menus), coordinator.MenuSaveLink)

	require.Eventually(t, func() bool {
		return f.coord.Badge().Text == "1"
	}, 2*time.Second, 10*time.Millisecond)
	badge, err := http.Get(ts.URL + "/badge")
	require.NoError(t, err)
	defer badge.Body.Close()
	var b coordinator.Badge
	require.NoError(t, json.NewDecoder(badge.Body).Decode(&b))
	assert.Equal(t, "1", b.Text)
	assert.Equal(t, coordinator.BadgeColor, b.Color)
}

func TestContentEndpoints(t *testing.T) {
	f := newFixture(t, Options{AuthToken: "tok"})
	ts := f.start(t)
	ctx := context.Background()

	resp := post(t, ts.URL+"/content/save-page", "", ContentRequest{URL: "https://nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/content/save-page", "tok", ContentRequest{Title: "Go", URL: "https://go.dev"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st surface.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, surface.KindSuccess, st.Kind)
	assert.Equal(t, "Page saved!", st.Message)

	resp = post(t, ts.URL+"/content/save-selection", "tok", ContentRequest{Text: "  ", URL: "https://go.dev"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, surface.KindWarning, st.Kind)
	assert.Equal(t, "No text selected", st.Message)

	resp = post(t, ts.URL+"/content/save-selection", "tok", ContentRequest{Text: "a quote", Title: "Go", URL: "https://go.dev"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	links, err := collection.Links(f.store).List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, collection.SourceContentScript, links[0].Source)

	notes, err := collection.Notes(f.store).List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "a quote", notes[0].Text)
	assert.Equal(t, "Go", notes[0].PageTitle)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/content/config", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	cfg, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer cfg.Body.Close()
	assert.JSONEq(t, `{"floatingButtonEnabled":true}`, readBody(t, cfg))
}

func TestExportAndMetrics(t *testing.T) {
	f := newFixture(t, Options{})
	ts := f.start(t)

	post(t, ts.URL+"/message", "", messaging.Request{Type: messaging.TypeAddTask, Data: json.RawMessage(`{"text":"x"}`)})

	resp, err := http.Get(ts.URL + "/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "productivity-helper-backup-")
	body := readBody(t, resp)
	assert.Contains(t, body, `"exportDate"`)
	assert.Contains(t, body, `"text": "x"`)

	m, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	text := readBody(t, m)
	assert.Contains(t, text, `prodhelper_messages_total{outcome="ok",type="ADD_TASK"} 1`)
}

func TestMessageEndpoint_BodyLimit(t *testing.T) {
	f := newFixture(t, Options{MaxRequestSize: 64})
	ts := f.start(t)

	resp := post(t, ts.URL+"/message", "", messaging.Request{
		Type: messaging.TypeSaveNote,
		Data: json.RawMessage(`{"text":"` + strings.Repeat("x", 200) + `"}`),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	f := newFixture(t, Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.srv.Run(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/status"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.coord.Menus().Items()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
