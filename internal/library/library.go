// Package library scans the presentations directory and models the
// selectable list the navigation mode drives.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// presentationExts are the file types the converter pipeline accepts.
var presentationExts = map[string]bool{
	".ppt":  true,
	".pptx": true,
	".pdf":  true,
}

// Entry is one presentation file in the library.
type Entry struct {
	Name string
	Path string
}

// Scan lists the presentation files in dir, sorted by name.
func Scan(dir string, logger *logrus.Logger) ([]Entry, error) {
	if logger == nil {
		logger = logrus.New()
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan presentations directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if !presentationExts[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		entries = append(entries, Entry{
			Name: f.Name(),
			Path: filepath.Join(dir, f.Name()),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	logger.WithFields(logrus.Fields{
		"dir":   dir,
		"count": len(entries),
	}).Info("Scanned presentations directory")
	return entries, nil
}

// List is the selectable presentation list. The selection moves one step at
// a time and clamps at both ends. Not safe for concurrent use; mutate only
// from the UI goroutine.
type List struct {
	entries  []Entry
	selected int
	onChange func()
}

// NewList creates a List with the first entry selected.
func NewList(entries []Entry) *List {
	return &List{entries: entries}
}

// SetOnChange registers a redraw callback fired whenever the selection
// moves.
func (l *List) SetOnChange(fn func()) {
	l.onChange = fn
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the underlying entries in display order.
func (l *List) Entries() []Entry {
	return l.entries
}

// SelectedIndex returns the current selection index (0 when empty).
func (l *List) SelectedIndex() int {
	return l.selected
}

// Selected returns the selected entry; ok is false for an empty list.
func (l *List) Selected() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[l.selected], true
}

// MoveUp moves the selection one entry up, clamped at the top.
func (l *List) MoveUp() {
	l.moveTo(l.selected - 1)
}

// MoveDown moves the selection one entry down, clamped at the bottom.
func (l *List) MoveDown() {
	l.moveTo(l.selected + 1)
}

func (l *List) moveTo(idx int) {
	if idx < 0 || idx >= len(l.entries) || idx == l.selected {
		return
	}
	l.selected = idx
	if l.onChange != nil {
		l.onChange()
	}
}
