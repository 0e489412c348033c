// Package dlerror classifies backend download failure messages so the UI can
// decide whether to offer a retry or point the user at cookie import.
package dlerror

import "strings"

// Kind is a download failure category.
type Kind string

const (
	KindGeneric        Kind = "generic"
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindRateLimited    Kind = "rateLimited"
	KindAuth           Kind = "auth"
	KindPrivate        Kind = "private"
	KindAgeRestricted  Kind = "ageRestricted"
	KindNotFound       Kind = "notFound"
	KindRegionLocked   Kind = "regionLocked"
	KindInvalidURL     Kind = "invalidURL"
	KindFolder         Kind = "folder"
	KindDownloadFailed Kind = "downloadFailed"
)

type rule struct {
	kind Kind
	// match reports whether the lower-cased message belongs to kind.
	match func(msg string) bool
}

func containsAny(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{KindInvalidURL, func(m string) bool {
		return containsAny(m, "invalid url", "unsupported url", "no video formats")
	}},
	{KindFolder, func(m string) bool {
		return containsAny(m, "folder not accessible", "cannot write to folder", "folder does not exist", "not a directory")
	}},
	{KindPrivate, func(m string) bool {
		return containsAny(m, "private video", "video is private")
	}},
	{KindAgeRestricted, func(m string) bool {
		return containsAny(m, "age restricted", "age-restricted", "confirm your age", "verify your age")
	}},
	{KindRegionLocked, func(m string) bool {
		return containsAny(m, "not available in your region", "geo-restricted") ||
			(strings.Contains(m, "not available") && strings.Contains(m, "country"))
	}},
	{KindNotFound, func(m string) bool {
		return containsAny(m, "video not found", "video unavailable", "does not exist", "http error 404")
	}},
	{KindRateLimited, func(m string) bool {
		return containsAny(m, "rate limit", "429", "too many requests")
	}},
	{KindAuth, func(m string) bool {
		return containsAny(m, "authentication required", "sign in", "login required", "log in")
	}},
	{KindTimeout, func(m string) bool {
		return containsAny(m, "timed out", "timeout")
	}},
	{KindNetwork, func(m string) bool {
		return containsAny(m, "network error", "unable to download", "connection")
	}},
	{KindDownloadFailed, func(m string) bool {
		return strings.HasPrefix(m, "download failed")
	}},
}

// Classify maps a backend error message to a Kind.
func Classify(message string) Kind {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return KindGeneric
	}
	for _, r := range rules {
		if r.match(msg) {
			return r.kind
		}
	}
	return KindGeneric
}

// ClassifyError classifies err's message. A nil error is generic.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	return Classify(err.Error())
}

// Retryable reports whether trying the same download again may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimited, KindDownloadFailed:
		return true
	default:
		return false
	}
}

// SuggestCookies reports whether importing browser cookies may help.
func (k Kind) SuggestCookies() bool {
	switch k {
	case KindAuth, KindPrivate, KindAgeRestricted:
		return true
	default:
		return false
	}
}

// Suggestion returns a short hint for the user, or "" when there is none.
func (k Kind) Suggestion() string {
	switch k {
	case KindPrivate:
		return "Ensure you have access to this video"
	case KindAgeRestricted, KindAuth:
		return "Enable cookie import in settings"
	case KindRateLimited:
		return "Wait a few minutes before retrying"
	case KindNetwork, KindTimeout:
		return "Check your internet connection"
	case KindFolder:
		return "Choose a different output folder"
	case KindInvalidURL:
		return "Check the URL and try again"
	default:
		return ""
	}
}
