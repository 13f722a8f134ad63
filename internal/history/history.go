// Package history implements RazzShell's in-memory command history
// ring and its on-disk session.save persistence.
package history

import (
	"bufio"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

// Ring is a simple append-only, 1-indexed history list. Line-editing
// libraries layer search and editing on top of a structure like this;
// Ring only needs to support what the history_clear, commands,
// repeat, and session-save built-ins require.
type Ring struct {
	lines []string
}

// New returns an empty Ring.
func New() *Ring { return &Ring{} }

// Add appends a line to the history, skipping blank/whitespace-only
// lines.
func (h *Ring) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	h.lines = append(h.lines, line)
}

// Clear empties the in-memory history without touching any on-disk
// session file.
func (h *Ring) Clear() { h.lines = nil }

// Lines returns a copy of the recorded lines in order, for the
// `commands` built-in listing; element i is history entry number i+1.
func (h *Ring) Lines() []string {
	cp := make([]string, len(h.lines))
	copy(cp, h.lines)
	return cp
}

// At returns the 1-indexed history entry n, or "" ok=false if out of
// range.
func (h *Ring) At(n int) (string, bool) {
	if n < 1 || n > len(h.lines) {
		return "", false
	}
	return h.lines[n-1], true
}

// Save writes the history to path, one LF-terminated line per record,
// with no escaping (lines containing LFs are unsupported). The write
// is atomic via write-temp-then-rename so a crash mid-save can never
// truncate a previously saved file.
func Save(path string, h *Ring) error {
	var b strings.Builder
	for _, l := range h.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return renameio.WriteFile(path, []byte(b.String()), 0o644)
}

// Load reads path into h, replacing its current contents. A missing
// file is not an error.
func Load(path string, h *Ring) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	h.lines = lines
	return nil
}
