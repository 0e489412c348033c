package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/mediagrab/internal/model"
)

type fakeBackend struct {
	mu        sync.Mutex
	calls     map[string][]string
	responses map[string]string
}

func newFakeBackend(t *testing.T, overrides map[string]string) (*fakeBackend, string) {
	t.Helper()
	fb := &fakeBackend{
		calls: make(map[string][]string),
		responses: map[string]string{
			"load_preferences":  `{"outputFolder":"/tmp/out","format":"video-mp4","quality":"best","scheduledDownloads":[]}`,
			"save_preferences":  ``,
			"history_get_all":   `[]`,
			"history_get_stats": `{}`,
			"queue_get_all":     `[]`,
		},
	}
	for k, v := range overrides {
		fb.responses[k] = v
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			_, _ = io.WriteString(w, `{"events":[],"next":0}`)
			return
		}
		command := strings.TrimPrefix(r.URL.Path, "/api/invoke/")
		body, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fb.calls[command] = append(fb.calls[command], string(body))
		resp, ok := fb.responses[command]
		fb.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"unknown command"}`)
			return
		}
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return fb, srv.URL
}

func (fb *fakeBackend) callsTo(command string) []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.calls[command]...)
}

// writeConfig points a config file at backendURL and a temp data dir.
func writeConfig(t *testing.T, backendURL string) (configPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	configPath = filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("backend_url = %q\ndata_dir = %q\n", backendURL, dataDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return configPath, dataDir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAddCommand_QueuesWithResolvedConfig(t *testing.T) {
	fb, url := newFakeBackend(t, map[string]string{
		"queue_add": `{"id":7,"config":{"url":"https://example.com/v"},"status":"pending"}`,
	})
	cfgPath, _ := writeConfig(t, url)

	out, _, err := execute(t, "--config", cfgPath, "add", "https://example.com/v", "--format", "audio-mp3")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "queued #7 https://example.com/v (audio-mp3, best)") {
		t.Fatalf("unexpected output %q", out)
	}

	calls := fb.callsTo("queue_add")
	if len(calls) != 1 {
		t.Fatalf("queue_add calls = %d, want 1", len(calls))
	}
	for _, want := range []string{`"format":"audio-mp3"`, `"outputFolder":"/tmp/out"`, `"url":"https://example.com/v"`} {
		if !strings.Contains(calls[0], want) {
			t.Fatalf("queue_add body %s missing %s", calls[0], want)
		}
	}
}

func TestAddCommand_ExpandsPlaylist(t *testing.T) {
	fb, url := newFakeBackend(t, map[string]string{
		"fetch_playlist_info": `{"id":"PL1","title":"Mix","entries":[{"id":"a","url":"https://www.youtube.com/watch?v=a"},{"id":"b","url":"https://www.youtube.com/watch?v=b"}]}`,
		"queue_add":           `{"id":7,"status":"pending"}`,
	})
	cfgPath, _ := writeConfig(t, url)
	list := "https://www.youtube.com/playlist?list=PL1"

	out, _, err := execute(t, "--config", cfgPath, "add", list)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, `playlist "Mix": 2 entries`) {
		t.Fatalf("unexpected output %q", out)
	}
	calls := fb.callsTo("queue_add")
	if len(calls) != 2 {
		t.Fatalf("queue_add calls = %d, want 2", len(calls))
	}
	for i, want := range []string{"watch?v=a", "watch?v=b"} {
		if !strings.Contains(calls[i], want) {
			t.Fatalf("queue_add %d body %s missing %s", i, calls[i], want)
		}
	}

	if _, _, err := execute(t, "--config", cfgPath, "add", "--no-playlist", list); err != nil {
		t.Fatalf("add --no-playlist: %v", err)
	}
	calls = fb.callsTo("queue_add")
	if len(calls) != 3 || !strings.Contains(calls[2], "playlist?list=PL1") {
		t.Fatalf("queue_add calls = %v, want the playlist URL queued as is", calls)
	}
	if n := len(fb.callsTo("fetch_playlist_info")); n != 1 {
		t.Fatalf("fetch_playlist_info calls = %d, want 1", n)
	}
}

func TestDoctorCommand(t *testing.T) {
	tools := `{"allAvailable":true,"ytdlpAvailable":true,"ffmpegAvailable":true,"ffprobeAvailable":true,"ytdlpVersion":"2025.09.26","ffmpegVersion":"7.1"}`

	t.Run("reports an available update", func(t *testing.T) {
		fb, url := newFakeBackend(t, map[string]string{
			"check_executables":  tools,
			"check_ytdlp_update": `{"currentVersion":"2025.09.26","latestVersion":"2025.10.22","updateAvailable":true}`,
		})
		cfgPath, _ := writeConfig(t, url)
		out, _, err := execute(t, "--config", cfgPath, "doctor")
		if err != nil {
			t.Fatalf("doctor: %v", err)
		}
		for _, want := range []string{"yt-dlp", "2025.09.26", "7.1", "2025.10.22 is available"} {
			if !strings.Contains(out, want) {
				t.Fatalf("output %q missing %q", out, want)
			}
		}
		if n := len(fb.callsTo("update_ytdlp")); n != 0 {
			t.Fatalf("update_ytdlp called %d times without --update", n)
		}
	})

	t.Run("update and debug report", func(t *testing.T) {
		fb, url := newFakeBackend(t, map[string]string{
			"check_executables":  tools,
			"check_ytdlp_update": `{"currentVersion":"2025.09.26","latestVersion":"2025.10.22","updateAvailable":true}`,
			"update_ytdlp":       `{"success":true,"updated":true,"message":"yt-dlp updated to 2025.10.22","version":"2025.10.22"}`,
			"copy_debug_info":    `{"appVersion":"0.4.0","osInfo":"linux x86_64","recentLogs":"","memoryInfo":"8 GB"}`,
		})
		cfgPath, _ := writeConfig(t, url)
		out, _, err := execute(t, "--config", cfgPath, "doctor", "--update", "--debug")
		if err != nil {
			t.Fatalf("doctor: %v", err)
		}
		if n := len(fb.callsTo("update_ytdlp")); n != 1 {
			t.Fatalf("update_ytdlp calls = %d, want 1", n)
		}
		for _, want := range []string{"yt-dlp updated to 2025.10.22", "App:     0.4.0", "Memory:  8 GB"} {
			if !strings.Contains(out, want) {
				t.Fatalf("output %q missing %q", out, want)
			}
		}
	})

	t.Run("missing tools fail the command", func(t *testing.T) {
		fb, url := newFakeBackend(t, map[string]string{
			"check_executables":     `{"allAvailable":false,"ytdlpAvailable":true,"error":"ffmpeg not found"}`,
			"check_ytdlp_update":    `{"currentVersion":"2025.10.22"}`,
			"get_ytdlp_version_cmd": `"2025.10.22"`,
		})
		cfgPath, _ := writeConfig(t, url)
		out, _, err := execute(t, "--config", cfgPath, "doctor")
		if err == nil || !strings.Contains(err.Error(), "missing tools: ffmpeg, ffprobe") {
			t.Fatalf("err = %v", err)
		}
		if !strings.Contains(out, "ffmpeg not found") || !strings.Contains(out, "up to date") {
			t.Fatalf("unexpected output %q", out)
		}
		if n := len(fb.callsTo("get_ytdlp_version_cmd")); n != 1 {
			t.Fatalf("get_ytdlp_version_cmd calls = %d, want 1", n)
		}
	})
}

func TestAddCommand_RejectsBadInputBeforeConnecting(t *testing.T) {
	fb, url := newFakeBackend(t, nil)
	cfgPath, _ := writeConfig(t, url)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid url", []string{"add", "ftp://example.com/v"}, "invalid url"},
		{"unknown format", []string{"add", "https://example.com/v", "--format", "flac"}, `unknown format "flac"`},
		{"missing url", []string{"add"}, "requires at least 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath}, tt.args...)
			_, _, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
	if n := len(fb.callsTo("load_preferences")); n != 0 {
		t.Fatalf("backend contacted %d times", n)
	}
}

func TestQueueCommand_ListsItems(t *testing.T) {
	_, url := newFakeBackend(t, map[string]string{
		"queue_get_all": `[{"id":1,"config":{"url":"https://example.com/a"},"status":"downloading","progress":42.5,"speed":"1MiB/s","title":"First"}]`,
	})
	cfgPath, _ := writeConfig(t, url)

	out, _, err := execute(t, "--config", cfgPath, "queue")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	for _, want := range []string{"First", "downloading", "42.5%", "1 items: 0 pending, 1 active"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQueueRemoveCommand_UnknownID(t *testing.T) {
	fb, url := newFakeBackend(t, nil)
	cfgPath, _ := writeConfig(t, url)

	_, _, err := execute(t, "--config", cfgPath, "queue", "remove", "9")
	if err == nil || !strings.Contains(err.Error(), "queue item #9 not found") {
		t.Fatalf("err = %v", err)
	}
	if n := len(fb.callsTo("queue_remove")); n != 0 {
		t.Fatalf("queue_remove called %d times", n)
	}
}

func TestScheduleAddCommand_SavesPreferencesOnExit(t *testing.T) {
	fb, url := newFakeBackend(t, nil)
	cfgPath, _ := writeConfig(t, url)

	out, _, err := execute(t, "--config", cfgPath, "schedule", "add", "https://example.com/later", "--at", "2h")
	if err != nil {
		t.Fatalf("schedule add: %v", err)
	}
	if !strings.HasPrefix(out, "scheduled ") {
		t.Fatalf("unexpected output %q", out)
	}
	saves := fb.callsTo("save_preferences")
	if len(saves) != 1 {
		t.Fatalf("save_preferences calls = %d, want 1", len(saves))
	}
	if !strings.Contains(saves[0], "https://example.com/later") || !strings.Contains(saves[0], `"enabled":true`) {
		t.Fatalf("saved preferences missing the scheduled download: %s", saves[0])
	}
}

func TestLogsCommand_FiltersByLevel(t *testing.T) {
	_, url := newFakeBackend(t, nil)
	cfgPath, dataDir := writeConfig(t, url)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	lines := strings.Join([]string{
		`{"level":"info","component":"queue","time":"2025-10-08T21:01:05Z","message":"queued download"}`,
		`{"level":"warn","component":"queue","time":"2025-10-08T21:01:06Z","message":"queue remove failed"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dataDir, "mediagrab.log"), []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, _, err := execute(t, "--config", cfgPath, "logs", "--level", "warn")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "queue remove failed") || strings.Contains(out, "queued download") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "--config", cfgPath, "logs", "--component", "history")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.HasPrefix(out, "No log entries") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestReadBatchFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
		wantErr string
	}{
		{
			name: "valid",
			content: `- url: https://example.com/a
- url: https://example.com/b
  format: audio-mp3
  output_folder: /music
  at: 2h
`,
			wantLen: 2,
		},
		{name: "missing url", content: "- format: audio-mp3\n", wantErr: "entry 1: invalid url"},
		{name: "bad quality", content: "- url: https://example.com/a\n  quality: 4k\n", wantErr: `entry 1: unknown quality "4k"`},
		{name: "empty", content: "", wantErr: "no entries"},
		{name: "not a list", content: "url: https://example.com/a\n", wantErr: "parse batch file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "batch.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			entries, err := readBatchFile(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readBatchFile: %v", err)
			}
			if len(entries) != tt.wantLen {
				t.Fatalf("entries = %d, want %d", len(entries), tt.wantLen)
			}
			if e := entries[1]; e.Format != model.FormatAudioMP3 || e.OutputFolder != "/music" || e.At != "2h" {
				t.Fatalf("entry 2 = %+v", e)
			}
		})
	}
}

func TestPlanBatch(t *testing.T) {
	now := time.Date(2025, 10, 8, 20, 0, 0, 0, time.UTC)
	jobs, err := planBatch([]batchEntry{
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b", At: "30m"},
	}, now)
	if err != nil {
		t.Fatalf("planBatch: %v", err)
	}
	if !jobs[0].at.IsZero() {
		t.Fatalf("unscheduled entry got time %v", jobs[0].at)
	}
	if want := now.Add(30 * time.Minute); !jobs[1].at.Equal(want) {
		t.Fatalf("scheduled at %v, want %v", jobs[1].at, want)
	}

	if _, err := planBatch([]batchEntry{{URL: "https://example.com/a", At: "someday"}}, now); err == nil {
		t.Fatalf("expected error for unparseable time")
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2025, 10, 8, 20, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2h", want: now.Add(2 * time.Hour)},
		{in: "+90m", want: now.Add(90 * time.Minute)},
		{in: "21:30", want: time.Date(2025, 10, 8, 21, 30, 0, 0, time.UTC)},
		{in: "19:00", want: time.Date(2025, 10, 9, 19, 0, 0, 0, time.UTC)},
		{in: "2025-10-09 08:15", want: time.Date(2025, 10, 9, 8, 15, 0, 0, time.UTC)},
		{in: "2025-10-09T08:15:00Z", want: time.Date(2025, 10, 9, 8, 15, 0, 0, time.UTC)},
		{in: "-1h", wantErr: true},
		{in: "", wantErr: true},
		{in: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWhen(tt.in, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseWhen(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWhen(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("parseWhen(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveScheduledID(t *testing.T) {
	list := []model.ScheduledDownload{
		{ID: "abc12345-0000"},
		{ID: "abc99999-0000"},
		{ID: "def00000-0000"},
	}
	tests := []struct {
		prefix  string
		want    string
		wantErr string
	}{
		{prefix: "def", want: "def00000-0000"},
		{prefix: "abc12345-0000", want: "abc12345-0000"},
		{prefix: "abc", wantErr: "matches 2"},
		{prefix: "zzz", wantErr: "no scheduled download"},
		{prefix: " ", wantErr: "required"},
	}
	for _, tt := range tests {
		got, err := resolveScheduledID(list, tt.prefix)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolveScheduledID(%q) err = %v, want %q", tt.prefix, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolveScheduledID(%q) = %q, %v; want %q", tt.prefix, got, err, tt.want)
		}
	}
}

func TestParseQueueID(t *testing.T) {
	if id, err := parseQueueID("12"); err != nil || id != 12 {
		t.Fatalf("parseQueueID(12) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, err := parseQueueID(bad); err == nil {
			t.Errorf("parseQueueID(%q) succeeded", bad)
		}
	}
}

func TestPrintHistory_LimitsRows(t *testing.T) {
	now := time.Date(2025, 10, 8, 20, 0, 0, 0, time.UTC)
	size := uint64(3 << 20)
	items := []model.HistoryItem{
		{ID: "1", Title: "Newest", Status: model.HistoryCompleted, Format: model.FormatVideoMP4, FileSize: &size, DownloadedAt: now.Add(-time.Hour).Unix()},
		{ID: "2", Title: "Older", Status: model.HistoryFailed, DownloadedAt: now.Add(-48 * time.Hour).Unix()},
	}
	stats := model.DownloadStats{TotalDownloads: 2, SuccessfulDownloads: 1, FailedDownloads: 1, TotalBytesDownloaded: size}

	var buf bytes.Buffer
	printHistory(&buf, items, stats, 1, now)
	out := buf.String()
	for _, want := range []string{"2 downloads, 1 succeeded, 1 failed, 3.0 MiB downloaded", "Newest", "1 hour ago", "1 more not shown"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Older") {
		t.Fatalf("limit ignored:\n%s", out)
	}
}
