package filesync

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/five82/notebook/internal/notes"
)

const (
	// IndexFileName is the summary file written at the end of every pass.
	IndexFileName = "README.md"

	noteExt         = ".md"
	maxBaseNameLen  = 100
	maxNameBytes    = 255
	untitledNote    = "Untitled Note"
	dateLayout      = "1/2/2006"
	exportTimestamp = "2006-01-02T15:04:05.000Z"
	indexFooter     = "*This file is automatically generated by Notebook*"
)

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// File is one rendered output file.
type File struct {
	Name    string
	Content string
}

// Serializer renders snapshots into Markdown files. The zero value formats
// dates in the local time zone.
type Serializer struct {
	Location *time.Location
}

// FileName returns the output name for a note in collection. Two notes that
// produce the same name overwrite each other.
func FileName(collection, title string) string {
	return sanitize(collection+"_"+noteTitle(title)) + noteExt
}

func noteTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return untitledNote
	}
	return title
}

func sanitize(s string) string {
	s = forbiddenChars.ReplaceAllString(s, "_")
	s = whitespaceRun.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > maxBaseNameLen {
		s = string(r[:maxBaseNameLen])
	}
	// Most filesystems limit a name to 255 bytes.
	for len(s)+len(noteExt) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}

// Note renders a single note.
func (s Serializer) Note(c notes.Collection, n notes.Note) File {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", noteTitle(n.Title))
	fmt.Fprintf(&b, "Created: %s\n", s.date(n.CreatedAt))
	fmt.Fprintf(&b, "Updated: %s\n", s.date(n.UpdatedAt))
	fmt.Fprintf(&b, "Topic: %s\n\n", c.Name)
	b.WriteString("---\n\n")
	b.WriteString(n.Content)
	b.WriteString("\n")
	return File{Name: FileName(c.Name, n.Title), Content: b.String()}
}

// Index renders the README summarising every collection.
func (s Serializer) Index(collections []notes.Collection, now time.Time) File {
	total := 0
	blocks := make([]string, 0, len(collections))
	for _, c := range collections {
		total += len(c.Notes)
		blocks = append(blocks, fmt.Sprintf("### %s\n- Notes: %d\n- Created: %s\n- Updated: %s\n",
			c.Name, len(c.Notes), s.date(c.CreatedAt), s.date(c.UpdatedAt)))
	}

	var b strings.Builder
	b.WriteString("# Notebook Export\n\n")
	fmt.Fprintf(&b, "Export Date: %s\n", now.UTC().Format(exportTimestamp))
	fmt.Fprintf(&b, "Total Note Lists: %d\n", len(collections))
	fmt.Fprintf(&b, "Total Notes: %d\n\n", total)
	b.WriteString("## Note Lists\n\n")
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("\n\n---\n\n")
	b.WriteString(indexFooter)
	b.WriteString("\n")
	return File{Name: IndexFileName, Content: b.String()}
}

// Render returns the note files in snapshot order followed by the index.
func (s Serializer) Render(snap notes.Snapshot, now time.Time) []File {
	files := make([]File, 0, snap.TotalNotes()+1)
	for _, c := range snap.Collections {
		for _, n := range c.Notes {
			files = append(files, s.Note(c, n))
		}
	}
	return append(files, s.Index(snap.Collections, now))
}

func (s Serializer) date(t time.Time) string {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateLayout)
}
