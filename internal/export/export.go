// Package export renders a conversation transcript as text or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/capitalize-ai/weather-chat/internal/model"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat resolves a format name; an empty name means text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// FileExtension returns the file extension for the format.
func (f Format) FileExtension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".txt"
}

// MimeType returns the MIME type for the format.
func (f Format) MimeType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Filename returns the download name for an export made at now.
func Filename(f Format, now time.Time) string {
	return "weather-chat-" + now.UTC().Format("2006-01-02") + f.FileExtension()
}

// localeLayout matches the en-US toLocaleString rendering.
const localeLayout = "1/2/2006, 3:04:05 PM"

// Options control the text export.
type Options struct {
	Location   *time.Location
	UserLabel  string
	AgentLabel string
}

// DefaultOptions returns local time with "You" and "Agent" labels.
func DefaultOptions() Options {
	return Options{
		Location:   time.Local,
		UserLabel:  "You",
		AgentLabel: "Agent",
	}
}

// Text renders one "[timestamp] label: content" line per entry, separated by
// blank lines.
func Text(entries []model.Entry, opts Options) string {
	def := DefaultOptions()
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.UserLabel == "" {
		opts.UserLabel = def.UserLabel
	}
	if opts.AgentLabel == "" {
		opts.AgentLabel = def.AgentLabel
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		label := opts.AgentLabel
		if e.Role == model.RoleUser {
			label = opts.UserLabel
		}
		ts := e.CreatedAt.In(opts.Location).Format(localeLayout)
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, label, e.Content))
	}
	return strings.Join(lines, "\n\n")
}

// Document is the structured export.
type Document struct {
	ExportDate   string           `json:"exportDate"`
	MessageCount int              `json:"messageCount"`
	Messages     []DocumentRecord `json:"messages"`
}

// DocumentRecord is one exported entry.
type DocumentRecord struct {
	ID        string     `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
	Error     bool       `json:"error"`
}

// NewDocument builds the structured export of entries made at now.
func NewDocument(entries []model.Entry, now time.Time) Document {
	doc := Document{
		ExportDate:   isoTime(now),
		MessageCount: len(entries),
		Messages:     make([]DocumentRecord, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Messages = append(doc.Messages, DocumentRecord{
			ID:        e.ID,
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: isoTime(e.CreatedAt),
			Error:     e.Failed,
		})
	}
	return doc
}

// JSON renders the structured export, indented by two spaces.
func JSON(entries []model.Entry, now time.Time) ([]byte, error) {
	return json.MarshalIndent(NewDocument(entries, now), "", "  ")
}

// isoTime formats like JavaScript's toISOString: UTC, millisecond precision.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
