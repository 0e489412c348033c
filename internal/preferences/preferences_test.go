package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/five82/mediagrab/internal/backup"
	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/bridge/bridgetest"
	"github.com/five82/mediagrab/internal/debounce"
	"github.com/five82/mediagrab/internal/model"
	"github.com/five82/mediagrab/internal/state"
)

type harness struct {
	store *Store
	fake  *bridgetest.Fake
	mem   *backup.Memory
	clock *debounce.Manual
}

func newHarness(t *testing.T) harness {
	t.Helper()
	h := harness{
		fake:  bridgetest.New(),
		mem:   backup.NewMemory(),
		clock: debounce.NewManual(),
	}
	h.fake.Respond(bridge.CmdSavePreferences, nil)
	h.store = New(h.fake, WithBackup(h.mem), WithSaveDelay(DefaultSaveDelay, h.clock.AfterFunc))
	return h
}

func savedPreferences(t *testing.T, call bridgetest.Call) model.Preferences {
	t.Helper()
	var args struct {
		Preferences model.Preferences `json:"preferences"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		t.Fatalf("decode save args: %v", err)
	}
	return args.Preferences
}

func TestSetters_CoalesceIntoOneSave(t *testing.T) {
	h := newHarness(t)

	qualities := []string{"480p", "720p", "1080p", "best", "720p"}
	for _, q := range qualities {
		h.store.SetQuality(q)
		h.clock.Advance(50 * time.Millisecond)
	}
	if got := len(h.fake.Calls(bridge.CmdSavePreferences)); got != 0 {
		t.Fatalf("saves during burst = %d, want 0", got)
	}

	h.clock.Advance(DefaultSaveDelay)
	calls := h.fake.Calls(bridge.CmdSavePreferences)
	if len(calls) != 1 {
		t.Fatalf("saves = %d, want 1", len(calls))
	}
	if got := savedPreferences(t, calls[0]).Quality; got != "720p" {
		t.Fatalf("saved quality = %q, want 720p", got)
	}
}

func TestSetters_UpdateMemoryAndBackupSynchronously(t *testing.T) {
	h := newHarness(t)

	h.store.SetOutputFolder("/media/videos")
	h.store.SetFormat(model.FormatAudioMP3)
	h.store.SetEmbedSubtitles(true)
	h.store.SetCookiesFromBrowser("firefox")
	h.store.SetCookiesFilePath("/tmp/cookies.txt")
	h.store.SetCheckUpdatesOnStartup(false)
	h.store.SetProxyEnabled(true)
	h.store.SetProxyURL("socks5://127.0.0.1:1080")
	h.store.SetBandwidthLimit("5M")
	h.store.SetFilenameTemplate("%(title)s.%(ext)s")

	got := h.store.Get()
	want := model.Preferences{
		OutputFolder:          "/media/videos",
		Format:                model.FormatAudioMP3,
		Quality:               model.QualityBest,
		EmbedSubtitles:        true,
		CookiesFromBrowser:    "firefox",
		CookiesFilePath:       "/tmp/cookies.txt",
		CheckUpdatesOnStartup: false,
		ProxyEnabled:          true,
		ProxyURL:              "socks5://127.0.0.1:1080",
		BandwidthLimit:        "5M",
		FilenameTemplate:      "%(title)s.%(ext)s",
		ScheduledDownloads:    []model.ScheduledDownload{},
	}
	if got.OutputFolder != want.OutputFolder || got.Format != want.Format || got.Quality != want.Quality ||
		got.EmbedSubtitles != want.EmbedSubtitles || got.CookiesFromBrowser != want.CookiesFromBrowser ||
		got.CookiesFilePath != want.CookiesFilePath || got.CheckUpdatesOnStartup != want.CheckUpdatesOnStartup ||
		got.ProxyEnabled != want.ProxyEnabled || got.ProxyURL != want.ProxyURL ||
		got.BandwidthLimit != want.BandwidthLimit || got.FilenameTemplate != want.FilenameTemplate {
		t.Fatalf("preferences = %+v, want %+v", got, want)
	}

	var backedUp model.Preferences
	if ok, err := h.mem.Load(backup.KeyPreferences, &backedUp); err != nil || !ok {
		t.Fatalf("backup missing: %v %v", ok, err)
	}
	if backedUp.FilenameTemplate != want.FilenameTemplate {
		t.Fatalf("backup not current: %+v", backedUp)
	}
}

func TestFlushAndClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.store.Flush(ctx); err != nil {
		t.Fatalf("Flush with nothing pending returned error: %v", err)
	}
	if got := len(h.fake.Calls(bridge.CmdSavePreferences)); got != 0 {
		t.Fatalf("saves = %d, want 0", got)
	}

	h.store.SetFormat(model.FormatAudioBest)
	if !h.store.SavePending() {
		t.Fatal("SavePending() = false after a setter")
	}
	if err := h.store.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if h.store.SavePending() {
		t.Fatal("SavePending() = true after Flush")
	}
	if got := len(h.fake.Calls(bridge.CmdSavePreferences)); got != 1 {
		t.Fatalf("saves after Flush = %d, want 1", got)
	}
	h.clock.Advance(time.Second)
	if got := len(h.fake.Calls(bridge.CmdSavePreferences)); got != 1 {
		t.Fatalf("timer fired after Flush: saves = %d", got)
	}

	h.store.SetQuality(model.Quality1080p)
	if err := h.store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	calls := h.fake.Calls(bridge.CmdSavePreferences)
	if len(calls) != 2 || savedPreferences(t, calls[1]).Quality != model.Quality1080p {
		t.Fatalf("Close did not flush pending change: %d calls", len(calls))
	}
	if h.clock.Active() != 0 {
		t.Fatalf("timers left after Close: %d", h.clock.Active())
	}

	h.store.SetQuality(model.Quality480p)
	h.clock.Advance(time.Second)
	if got := len(h.fake.Calls(bridge.CmdSavePreferences)); got != 2 {
		t.Fatalf("save scheduled after Close: %d calls", got)
	}
	if err := h.store.Initialize(ctx); !errors.Is(err, state.ErrClosed) {
		t.Fatalf("Initialize after Close = %v, want ErrClosed", err)
	}
}

func TestSaveFailureRecorded(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(bridge.CmdSavePreferences, "disk full")

	h.store.SetQuality(model.Quality720p)
	h.clock.Advance(DefaultSaveDelay)

	st := h.store.Snapshot()
	if !strings.Contains(st.Error, "disk full") {
		t.Fatalf("Error = %q, want save failure", st.Error)
	}
	if st.Preferences.Quality != model.Quality720p {
		t.Fatalf("in-memory value lost: %q", st.Preferences.Quality)
	}

	h.fake.Respond(bridge.CmdSavePreferences, nil)
	h.store.SetQuality(model.Quality1080p)
	if err := h.store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if st := h.store.Snapshot(); st.Error != "" {
		t.Fatalf("Error not cleared after successful save: %q", st.Error)
	}
}

func TestInitialize(t *testing.T) {
	t.Run("loads once", func(t *testing.T) {
		h := newHarness(t)
		loaded := model.DefaultPreferences()
		loaded.Quality = model.Quality480p
		loaded.ScheduledDownloads = nil
		h.fake.Respond(bridge.CmdLoadPreferences, loaded)

		for i := 0; i < 2; i++ {
			if err := h.store.Initialize(context.Background()); err != nil {
				t.Fatalf("Initialize returned error: %v", err)
			}
		}
		if got := len(h.fake.Calls(bridge.CmdLoadPreferences)); got != 1 {
			t.Fatalf("load calls = %d, want 1", got)
		}
		st := h.store.Snapshot()
		if !st.Loaded || st.Preferences.Quality != model.Quality480p {
			t.Fatalf("state = %+v", st)
		}
		if st.Preferences.ScheduledDownloads == nil {
			t.Fatal("ScheduledDownloads is nil after load")
		}
	})

	t.Run("failure keeps defaults and records error", func(t *testing.T) {
		h := newHarness(t)
		h.fake.Fail(bridge.CmdLoadPreferences, "store corrupt")

		if err := h.store.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize returned error: %v", err)
		}
		st := h.store.Snapshot()
		if st.Loaded {
			t.Fatal("Loaded = true after failed load")
		}
		if !strings.Contains(st.Error, "store corrupt") {
			t.Fatalf("Error = %q", st.Error)
		}
		if st.Preferences.Format != model.FormatVideoMP4 || st.Preferences.Quality != model.QualityBest {
			t.Fatalf("defaults not kept: %+v", st.Preferences)
		}
	})

	t.Run("failure falls back to backup", func(t *testing.T) {
		h := newHarness(t)
		cached := model.DefaultPreferences()
		cached.Format = model.FormatAudioMP3
		if err := h.mem.Save(backup.KeyPreferences, cached); err != nil {
			t.Fatalf("seed backup: %v", err)
		}
		h.fake.Fail(bridge.CmdLoadPreferences, "offline")

		if err := h.store.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize returned error: %v", err)
		}
		if got := h.store.Get().Format; got != model.FormatAudioMP3 {
			t.Fatalf("Format = %q, want backup value", got)
		}
	})

	t.Run("edit during load wins", func(t *testing.T) {
		h := newHarness(t)
		h.fake.Handle(bridge.CmdLoadPreferences, func(context.Context, json.RawMessage) (any, error) {
			h.store.SetQuality(model.Quality720p)
			loaded := model.DefaultPreferences()
			loaded.Quality = model.Quality480p
			return loaded, nil
		})

		if err := h.store.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize returned error: %v", err)
		}
		st := h.store.Snapshot()
		if st.Preferences.Quality != model.Quality720p || !st.Loaded {
			t.Fatalf("state = %+v, want local edit kept", st)
		}
	})
}

func TestScheduledDownloads(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cfg := model.DownloadConfig{URL: "https://example.com/later", Format: model.FormatVideoMP4}

	sd := h.store.AddScheduledDownload(cfg, at)
	if sd.ID == "" || !sd.Enabled || sd.ScheduledTime != at.UnixMilli() {
		t.Fatalf("scheduled = %+v", sd)
	}
	if got := h.store.Get().ScheduledDownloads; len(got) != 1 || got[0].Config.URL != cfg.URL {
		t.Fatalf("scheduled list = %+v", got)
	}

	if !h.store.ToggleScheduledDownload(sd.ID) {
		t.Fatal("Toggle returned false for known id")
	}
	if h.store.Get().ScheduledDownloads[0].Enabled {
		t.Fatal("Toggle did not disable")
	}
	if h.store.ToggleScheduledDownload("missing") {
		t.Fatal("Toggle returned true for unknown id")
	}

	if !h.store.RemoveScheduledDownload(sd.ID) {
		t.Fatal("Remove returned false for known id")
	}
	if h.store.RemoveScheduledDownload(sd.ID) {
		t.Fatal("second Remove returned true")
	}
	if got := h.store.Get().ScheduledDownloads; len(got) != 0 {
		t.Fatalf("scheduled list after remove = %+v", got)
	}
}

func TestResetToDefaults(t *testing.T) {
	h := newHarness(t)
	h.store.SetFormat(model.FormatAudioMP3)
	h.store.AddScheduledDownload(model.DownloadConfig{URL: "https://example.com"}, time.Now())

	h.store.ResetToDefaults()
	got := h.store.Get()
	if got.Format != model.FormatVideoMP4 || len(got.ScheduledDownloads) != 0 {
		t.Fatalf("preferences after reset = %+v", got)
	}

	h.clock.Advance(DefaultSaveDelay)
	if calls := h.fake.Calls(bridge.CmdSavePreferences); len(calls) != 1 {
		t.Fatalf("saves = %d, want 1", len(calls))
	}
}
