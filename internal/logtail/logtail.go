package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Read returns at most maxLines from the end of the file at path.
// A maxLines of zero or less returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one decoded zerolog JSON line.
type Entry struct {
	Time      time.Time
	Level     zerolog.Level
	Component string
	Message   string
	Error     string
	Fields    map[string]any
	Raw       string
}

// Parse decodes a zerolog JSON line. Lines that are not JSON objects come
// back as a message-only entry with ok false.
func Parse(line string) (Entry, bool) {
	entry := Entry{Raw: line, Level: zerolog.NoLevel}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		entry.Message = trimmed
		return entry, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		entry.Message = trimmed
		return entry, false
	}

	for key, value := range raw {
		switch key {
		case zerolog.TimestampFieldName:
			if s, ok := value.(string); ok {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					entry.Time = ts
				}
			}
		case zerolog.LevelFieldName:
			if s, ok := value.(string); ok {
				if lvl, err := zerolog.ParseLevel(s); err == nil {
					entry.Level = lvl
				}
			}
		case zerolog.MessageFieldName:
			entry.Message, _ = value.(string)
		case zerolog.ErrorFieldName:
			entry.Error = fmt.Sprint(value)
		case "component":
			entry.Component, _ = value.(string)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]any)
			}
			entry.Fields[key] = value
		}
	}
	return entry, true
}

// ParseLines decodes every line, skipping blanks.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, _ := Parse(line)
		entries = append(entries, entry)
	}
	return entries
}

// Filter keeps entries at or above minLevel whose component matches.
// An empty component matches everything. Unparsed lines always pass.
func Filter(entries []Entry, minLevel zerolog.Level, component string) []Entry {
	component = strings.TrimSpace(component)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Level != zerolog.NoLevel && e.Level < minLevel {
			continue
		}
		if component != "" && e.Level != zerolog.NoLevel && !strings.EqualFold(e.Component, component) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Format renders an entry as a single plain-text line:
//
//	2025-10-08 21:01:05 INFO  [queue] reloaded items=3
func Format(e Entry) string {
	if e.Level == zerolog.NoLevel && e.Time.IsZero() && e.Component == "" {
		return e.Message
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", LevelLabel(e.Level))
	if e.Component != "" {
		b.WriteString(" [")
		b.WriteString(e.Component)
		b.WriteByte(']')
	}
	if e.Message != "" {
		b.WriteByte(' ')
		b.WriteString(e.Message)
	}
	if e.Error != "" {
		b.WriteString(" error=")
		b.WriteString(e.Error)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// LevelLabel returns the upper-case display label for a level.
func LevelLabel(level zerolog.Level) string {
	switch level {
	case zerolog.NoLevel:
		return "-"
	default:
		return strings.ToUpper(level.String())
	}
}
