// Package scores persists and ranks the top-scores table, grounded on
// game.py's _read_top_scores/_store_top_scores/_calc_top_scores.
package scores

import (
	"encoding/json"
	"math/rand"
	"os"
	"sort"
)

// Entry is one row of the top-scores table.
type Entry struct {
	Name  string
	Score int
}

// Table is the capped, descending-sorted top-scores list.
type Table struct {
	path    string
	max     int
	entries []Entry
}

// Load reads the persisted JSON array of [name, score] pairs from path.
// A missing file is not an error — it yields an empty table, matching
// game.py's FileNotFoundError handling.
func Load(path string, max int) (*Table, error) {
	t := &Table{path: path, max: max}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return t, nil
	}

	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		var name string
		var score int
		if err := json.Unmarshal(pair[0], &name); err != nil {
			continue
		}
		if err := json.Unmarshal(pair[1], &score); err != nil {
			continue
		}
		t.entries = append(t.entries, Entry{Name: name, Score: score})
	}
	return t, nil
}

// Update applies a finished player's score: it replaces the entry
// stored under that name only if the new score is strictly greater
// than the prior one (top-score monotonicity, spec.md §8).
func (t *Table) Update(name string, score int) {
	if score <= 0 {
		return
	}
	for i := range t.entries {
		if t.entries[i].Name == name {
			if score <= t.entries[i].Score {
				return
			}
			t.entries[i].Score = score
			t.resort()
			return
		}
	}
	t.entries = append(t.entries, Entry{Name: name, Score: score})
	t.resort()
}

func (t *Table) resort() {
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Score > t.entries[j].Score })
	if len(t.entries) > t.max {
		t.entries = t.entries[:t.max]
	}
}

// Entries returns a copy of the current table, descending by score.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// WithColorHint pairs each entry with a random palette color, matching
// the `top_scores` wire payload's [name, score, colorHint] shape (the
// original assigns a fresh random color hint per broadcast rather than
// persisting one, per game.py's top_scores property).
func (t *Table) WithColorHint(numColors int) [][3]any {
	out := make([][3]any, len(t.entries))
	for i, e := range t.entries {
		out[i] = [3]any{e.Name, e.Score, 1 + rand.Intn(numColors)}
	}
	return out
}

// Save persists the table as a JSON array of [name, score] pairs.
func (t *Table) Save() error {
	pairs := make([][2]any, len(t.entries))
	for i, e := range t.entries {
		pairs[i] = [2]any{e.Name, e.Score}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	return os.WriteFile(t.path, data, 0o644)
}
