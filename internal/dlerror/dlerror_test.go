package dlerror

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"", KindGeneric},
		{"something odd happened", KindGeneric},
		{"Invalid URL: not a link", KindInvalidURL},
		{"ERROR: Unsupported URL: https://example.com", KindInvalidURL},
		{"Output folder not accessible: /mnt/x", KindFolder},
		{"Video is private", KindPrivate},
		{"ERROR: [youtube] abc123: Private video. Sign in if you've been granted access", KindPrivate},
		{"Age restricted content - try enabling cookie import", KindAgeRestricted},
		{"Sign in to confirm your age", KindAgeRestricted},
		{"Content not available in your region", KindRegionLocked},
		{"This video is not available in your country", KindRegionLocked},
		{"Video not found", KindNotFound},
		{"ERROR: Video unavailable", KindNotFound},
		{"Rate limited - please wait and try again", KindRateLimited},
		{"ERROR: HTTP Error 429: Too Many Requests", KindRateLimited},
		{"Authentication required", KindAuth},
		{"Timeout: read timed out", KindTimeout},
		{"Network error: Unable to download webpage: Connection refused", KindNetwork},
		{"Download failed: exit status 1", KindDownloadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := Classify(tt.msg); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestKindBehaviour(t *testing.T) {
	tests := []struct {
		kind       Kind
		retryable  bool
		cookies    bool
		suggestion bool
	}{
		{KindNetwork, true, false, true},
		{KindTimeout, true, false, true},
		{KindRateLimited, true, false, true},
		{KindDownloadFailed, true, false, false},
		{KindAuth, false, true, true},
		{KindPrivate, false, true, true},
		{KindAgeRestricted, false, true, true},
		{KindNotFound, false, false, false},
		{KindRegionLocked, false, false, false},
		{KindInvalidURL, false, false, true},
		{KindGeneric, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Retryable(); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
			if got := tt.kind.SuggestCookies(); got != tt.cookies {
				t.Errorf("SuggestCookies() = %v, want %v", got, tt.cookies)
			}
			if got := tt.kind.Suggestion() != ""; got != tt.suggestion {
				t.Errorf("Suggestion() present = %v, want %v", got, tt.suggestion)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	if got := ClassifyError(nil); got != KindGeneric {
		t.Fatalf("ClassifyError(nil) = %q", got)
	}
	if got := ClassifyError(errors.New("start_download: Video not found")); got != KindNotFound {
		t.Fatalf("ClassifyError = %q, want notFound", got)
	}
}
