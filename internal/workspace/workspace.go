// Package workspace holds the open tabs, one flow graph each, and converts
// them to and from the rows the database stores.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"factory/planner/internal/db"
	"factory/planner/internal/flow"
)

var (
	ErrTabNotFound  = errors.New("tab not found")
	ErrAmbiguousTab = errors.New("ambiguous tab reference")
)

// Tab is one named graph.
type Tab struct {
	ID    string
	Graph *flow.Graph
}

// NewTab wraps g in a tab with a fresh id.
func NewTab(g *flow.Graph) *Tab {
	return &Tab{ID: uuid.NewString(), Graph: g}
}

func (t *Tab) Name() string { return t.Graph.Name }

// Workspace is the ordered list of tabs and the selected one.
type Workspace struct {
	Tabs     []*Tab
	Selected int
}

func New() *Workspace {
	return &Workspace{}
}

// Add appends a tab and returns its index.
func (w *Workspace) Add(t *Tab) int {
	w.Tabs = append(w.Tabs, t)
	return len(w.Tabs) - 1
}

// Remove drops the tab at index i. The selection follows the selected tab;
// removing the selected tab selects the one that took its place, or the
// new last tab.
func (w *Workspace) Remove(i int) error {
	if i < 0 || i >= len(w.Tabs) {
		return fmt.Errorf("%w: index %d", ErrTabNotFound, i)
	}
	w.Tabs = append(w.Tabs[:i], w.Tabs[i+1:]...)
	if w.Selected > i || w.Selected >= len(w.Tabs) {
		w.Selected--
	}
	if w.Selected < 0 {
		w.Selected = 0
	}
	return nil
}

func (w *Workspace) Select(i int) error {
	if i < 0 || i >= len(w.Tabs) {
		return fmt.Errorf("%w: index %d", ErrTabNotFound, i)
	}
	w.Selected = i
	return nil
}

// Current returns the selected tab.
func (w *Workspace) Current() (*Tab, error) {
	if w.Selected < 0 || w.Selected >= len(w.Tabs) {
		return nil, fmt.Errorf("%w: workspace has no tabs", ErrTabNotFound)
	}
	return w.Tabs[w.Selected], nil
}

// Resolve finds a tab index by full ID, ID prefix, exact name, or position.
func (w *Workspace) Resolve(reference string) (int, error) {
	// 1. Exact ID match
	for i, t := range w.Tabs {
		if t.ID == reference {
			return i, nil
		}
	}

	// 2. ID prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		prefix := strings.ToLower(reference)
		var matches []int
		for i, t := range w.Tabs {
			if strings.HasPrefix(t.ID, prefix) {
				matches = append(matches, i)
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
			// fall through to name
		default:
			return -1, w.ambiguous(reference, matches)
		}
	}

	// 3. Name match, ignoring case and accents
	folded := foldName(reference)
	var named []int
	for i, t := range w.Tabs {
		if foldName(t.Name()) == folded {
			named = append(named, i)
		}
	}
	switch len(named) {
	case 1:
		return named[0], nil
	case 0:
		// fall through to position
	default:
		return -1, w.ambiguous(reference, named)
	}

	// 4. Position
	if i, err := strconv.Atoi(reference); err == nil && i >= 0 && i < len(w.Tabs) {
		return i, nil
	}

	return -1, fmt.Errorf("%w: %s", ErrTabNotFound, reference)
}

func (w *Workspace) ambiguous(reference string, matches []int) error {
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %d %s %s", m, ShortID(w.Tabs[m].ID), w.Tabs[m].Name())
	}
	return fmt.Errorf("%w '%s'. %d matches:\n%s\nUse a full tab ID instead",
		ErrAmbiguousTab, reference, len(matches), strings.Join(lines, "\n"))
}

// foldName lowercases s and strips combining marks, so "Fábrica" and
// "fabrica" compare equal.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// ShortID returns the first eight characters of a tab id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

// Rows encodes every tab for storage, in tab order.
func (w *Workspace) Rows() ([]db.TabRow, error) {
	rows := make([]db.TabRow, len(w.Tabs))
	for i, t := range w.Tabs {
		data, err := json.Marshal(t.Graph.Save())
		if err != nil {
			return nil, fmt.Errorf("encoding tab %s: %w", t.ID, err)
		}
		rows[i] = db.TabRow{ID: t.ID, Name: t.Name(), Position: i, Data: string(data)}
	}
	return rows, nil
}

// FromSnapshot rebuilds a workspace from a stored save. Tabs that fail to
// decode or validate are skipped and reported; the rest load normally.
func FromSnapshot(snap *db.Snapshot, recipes flow.Recipes, opts ...flow.Option) (*Workspace, []error) {
	w := New()
	var skipped []error
	for _, row := range snap.Tabs {
		rec, err := flow.Decode(bytes.NewReader([]byte(row.Data)))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("tab %s: %w", ShortID(row.ID), err))
			continue
		}
		g, err := flow.FromRecord(rec, recipes, opts...)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("tab %s: %w", ShortID(row.ID), err))
			continue
		}
		if g.Name == "" {
			g.Name = row.Name
		}
		w.Add(&Tab{ID: row.ID, Graph: g})
	}
	w.Selected = snap.Meta.Selected
	if w.Selected >= len(w.Tabs) {
		w.Selected = len(w.Tabs) - 1
	}
	if w.Selected < 0 {
		w.Selected = 0
	}
	return w, skipped
}
