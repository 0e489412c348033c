package playlist

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/five82/mediagrab/internal/bridge"
	"github.com/five82/mediagrab/internal/bridge/bridgetest"
	"github.com/five82/mediagrab/internal/model"
)

type recordingQueue struct {
	added  []model.DownloadConfig
	reject map[string]bool
}

func (q *recordingQueue) AddToQueue(_ context.Context, cfg model.DownloadConfig) (model.QueueItem, error) {
	if q.reject[cfg.URL] {
		return model.QueueItem{}, errors.New("rejected")
	}
	q.added = append(q.added, cfg)
	return model.QueueItem{ID: int64(len(q.added)), Config: cfg, Status: model.QueuePending}, nil
}

func urls(configs []model.DownloadConfig) []string {
	out := make([]string, 0, len(configs))
	for _, c := range configs {
		out = append(out, c.URL)
	}
	return out
}

var twoEntries = model.PlaylistInfo{
	ID:    "PL1",
	Title: "Mix",
	Entries: []model.PlaylistEntry{
		{ID: "a", Title: "First", URL: "https://www.youtube.com/watch?v=a", PlaylistIndex: 1},
		{ID: "b", Title: "Second", URL: "https://www.youtube.com/watch?v=b", PlaylistIndex: 2},
		{ID: "c", Title: "No URL", PlaylistIndex: 3},
	},
}

func TestIsPlaylist(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		respond any
		fail    bool
		want    bool
		checked bool
	}{
		{name: "empty", url: " ", want: false},
		{name: "youtube list param", url: "https://www.youtube.com/watch?v=x&list=PL1", want: true},
		{name: "youtube playlist path", url: "https://youtube.com/playlist?list=PL1", want: true},
		{name: "backend says yes", url: "https://vimeo.com/showcase/1", respond: true, want: true, checked: true},
		{name: "backend says no", url: "https://vimeo.com/1", respond: false, want: false, checked: true},
		{name: "backend fails", url: "https://vimeo.com/2", fail: true, want: false, checked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := bridgetest.New()
			if tt.fail {
				fake.Fail(bridge.CmdCheckIsPlaylist, "yt-dlp missing")
			} else {
				fake.Respond(bridge.CmdCheckIsPlaylist, tt.respond)
			}
			if got := New(fake).IsPlaylist(context.Background(), tt.url); got != tt.want {
				t.Fatalf("IsPlaylist(%q) = %v, want %v", tt.url, got, tt.want)
			}
			if calls := len(fake.Calls(bridge.CmdCheckIsPlaylist)); (calls == 1) != tt.checked {
				t.Fatalf("check_is_playlist calls = %d, checked = %v", calls, tt.checked)
			}
		})
	}
}

func TestExpand_SingleVideoPassesThrough(t *testing.T) {
	fake := bridgetest.New()
	fake.Respond(bridge.CmdCheckIsPlaylist, false)
	cfg := model.DownloadConfig{URL: "https://example.com/v/1", Format: model.FormatAudioMP3}

	configs, info, err := New(fake).Expand(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if info != nil {
		t.Fatalf("playlist = %+v, want nil", info)
	}
	if !reflect.DeepEqual(configs, []model.DownloadConfig{cfg}) {
		t.Fatalf("configs = %+v", configs)
	}
	if n := len(fake.Calls(bridge.CmdFetchPlaylistInfo)); n != 0 {
		t.Fatalf("fetch_playlist_info calls = %d, want 0", n)
	}
}

func TestExpand_PlaylistKeepsSettingsPerEntry(t *testing.T) {
	fake := bridgetest.New()
	fake.Respond(bridge.CmdFetchPlaylistInfo, twoEntries)
	cfg := model.DownloadConfig{URL: "https://www.youtube.com/playlist?list=PL1", Format: model.FormatAudioMP3, OutputFolder: "/music"}

	configs, info, err := New(fake).Expand(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if info == nil || info.Title != "Mix" {
		t.Fatalf("playlist = %+v", info)
	}
	want := []string{"https://www.youtube.com/watch?v=a", "https://www.youtube.com/watch?v=b"}
	if got := urls(configs); !reflect.DeepEqual(got, want) {
		t.Fatalf("urls = %v, want %v", got, want)
	}
	for _, c := range configs {
		if c.Format != model.FormatAudioMP3 || c.OutputFolder != "/music" {
			t.Fatalf("entry lost settings: %+v", c)
		}
	}
}

func TestExpand_Errors(t *testing.T) {
	t.Run("fetch fails", func(t *testing.T) {
		fake := bridgetest.New()
		fake.Fail(bridge.CmdFetchPlaylistInfo, "URL is not a playlist")
		_, _, err := New(fake).Expand(context.Background(), model.DownloadConfig{URL: "https://youtube.com/playlist?list=x"})
		var cmdErr *bridge.CommandError
		if !errors.As(err, &cmdErr) {
			t.Fatalf("err = %v, want CommandError", err)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		fake := bridgetest.New()
		fake.Respond(bridge.CmdFetchPlaylistInfo, model.PlaylistInfo{Title: "Empty"})
		_, info, err := New(fake).Expand(context.Background(), model.DownloadConfig{URL: "https://youtube.com/playlist?list=x"})
		if !errors.Is(err, ErrEmpty) {
			t.Fatalf("err = %v, want ErrEmpty", err)
		}
		if info == nil || info.Title != "Empty" {
			t.Fatalf("playlist = %+v", info)
		}
	})
}

func TestEnqueue(t *testing.T) {
	t.Run("one item per entry", func(t *testing.T) {
		fake := bridgetest.New()
		fake.Respond(bridge.CmdFetchPlaylistInfo, twoEntries)
		q := &recordingQueue{}

		res, err := New(fake).Enqueue(context.Background(), q, model.DownloadConfig{URL: "https://youtube.com/playlist?list=PL1"})
		if err != nil {
			t.Fatalf("Enqueue returned error: %v", err)
		}
		if len(res.Added) != 2 || len(q.added) != 2 {
			t.Fatalf("added = %d / %d, want 2", len(res.Added), len(q.added))
		}
		if got := res.Summary(); got != `Queued 2 of 2 from "Mix"` {
			t.Fatalf("Summary = %q", got)
		}
	})

	t.Run("rejected entry does not stop the rest", func(t *testing.T) {
		fake := bridgetest.New()
		fake.Respond(bridge.CmdFetchPlaylistInfo, twoEntries)
		q := &recordingQueue{reject: map[string]bool{"https://www.youtube.com/watch?v=a": true}}

		res, err := New(fake).Enqueue(context.Background(), q, model.DownloadConfig{URL: "https://youtube.com/playlist?list=PL1"})
		if err == nil || !strings.Contains(err.Error(), "watch?v=a") {
			t.Fatalf("err = %v, want the rejected URL", err)
		}
		if res.Failed != 1 || len(res.Added) != 1 || q.added[0].URL != "https://www.youtube.com/watch?v=b" {
			t.Fatalf("result = %+v, queued %v", res, urls(q.added))
		}
	})

	t.Run("single video", func(t *testing.T) {
		fake := bridgetest.New()
		fake.Respond(bridge.CmdCheckIsPlaylist, false)
		q := &recordingQueue{}
		res, err := New(fake).Enqueue(context.Background(), q, model.DownloadConfig{URL: "https://example.com/v/1"})
		if err != nil {
			t.Fatalf("Enqueue returned error: %v", err)
		}
		if res.Summary() != "Added to queue" {
			t.Fatalf("Summary = %q", res.Summary())
		}
	})
}
