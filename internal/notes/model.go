package notes

import "time"

// Note is a single markdown-flavored note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Collection is an ordered list of notes under a shared name (a "topic").
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Notes     []Note    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is an immutable copy of every collection at one instant.
type Snapshot struct {
	Collections []Collection
	Version     uint64
}

// TotalNotes returns the number of notes across all collections.
func (s Snapshot) TotalNotes() int {
	total := 0
	for _, c := range s.Collections {
		total += len(c.Notes)
	}
	return total
}

// Clone returns a deep copy so callers can hold it across suspension points.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Collections: cloneCollections(s.Collections), Version: s.Version}
}

func cloneCollections(in []Collection) []Collection {
	if len(in) == 0 {
		return nil
	}
	out := make([]Collection, len(in))
	for i, c := range in {
		out[i] = c
		if len(c.Notes) > 0 {
			out[i].Notes = make([]Note, len(c.Notes))
			copy(out[i].Notes, c.Notes)
		} else {
			out[i].Notes = nil
		}
	}
	return out
}
