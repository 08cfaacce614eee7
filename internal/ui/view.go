package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/notebook/internal/filesync"
	"github.com/five82/notebook/internal/logtail"
	"github.com/five82/notebook/internal/state"
)

const maxSummaryRows = 6

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.picking != nil {
		return m.place(m.renderPicker())
	}
	if m.showHelp {
		return m.place(m.renderHelp())
	}

	styles := m.theme.Styles()
	logs := styles.Panel.
		Width(max(10, m.width-2)).
		Render(m.logView.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderStatusLine(),
		m.renderSummary(),
		logs,
		m.renderCommandBar(),
	)
}

func (m Model) place(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderHeader renders the top bar: state badge, backend and pass counters.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	st := m.status

	parts := []string{
		bg.Render("notebook", styles.Logo),
		styles.StateStyle(string(st.State)).Render(strings.ToUpper(stateLabel(st.State))),
	}
	if st.Active() {
		parts = append(parts, styles.StateStyle(string(st.Phase)).Render(string(st.Phase)))
	}
	parts = append(parts,
		bg.Render("Backend:", styles.MutedText)+bg.Space()+bg.Render(backendLabel(st.Backend), styles.Text),
		bg.Render("Syncs:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", st.SyncCount), styles.Text),
		bg.Render("Last:", styles.MutedText)+bg.Space()+bg.Render(formatLastSync(st.LastSync, time.Now()), styles.Text),
	)
	if st.LastPassFailures > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d failed", st.LastPassFailures), styles.WarningText))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Spaces(2)))
}

// renderStatusLine shows the session error, else the last action result,
// else what the user can do next.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	switch {
	case m.status.Error != "":
		return " " + styles.DangerText.Render(m.status.Error)
	case m.message != "" && m.messageErr:
		return " " + styles.WarningText.Render(m.message)
	case m.message != "":
		return " " + styles.SuccessText.Render(m.message)
	case m.busy:
		return " " + styles.InfoText.Render("Working...")
	}
	return " " + styles.MutedText.Render(m.hint())
}

func (m Model) hint() string {
	if !m.caps.Supported() {
		return "File sync is not available here. Configure a data directory."
	}
	switch m.status.State {
	case state.StateActive:
		return "Notes are mirrored automatically after each change."
	case state.StatePaused:
		return "Sync is paused. Press space to resume."
	case state.StateNeedsResetup:
		return "Press f to choose the sync folder again."
	}
	if m.caps.Sandboxed {
		return "Press a to sync into the private notes folder, or f to choose a folder."
	}
	return "Press f to choose a folder for your notes."
}

func (m Model) summaryHeight() int {
	n := len(m.snapshot.Collections)
	if n > maxSummaryRows {
		n = maxSummaryRows + 1
	}
	return n + 1
}

// renderSummary lists note collections with their note counts.
func (m Model) renderSummary() string {
	styles := m.theme.Styles()
	cols := m.snapshot.Collections
	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("Note lists: %d", len(cols))))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("Notes: %d", m.snapshot.TotalNotes())))
	if m.syncDir != "" && m.status.Backend == string(filesync.KindSandboxed) {
		b.WriteString("  ")
		b.WriteString(styles.FaintText.Render(truncateMiddle(m.syncDir, 50)))
	}
	for i, c := range cols {
		if i == maxSummaryRows {
			b.WriteString("\n   ")
			b.WriteString(styles.FaintText.Render(fmt.Sprintf("... %d more", len(cols)-maxSummaryRows)))
			break
		}
		b.WriteString("\n   ")
		b.WriteString(styles.Text.Render(truncate(c.Name, 40)))
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %d notes", len(c.Notes))))
	}
	return b.String()
}

func (m Model) renderLogLines() string {
	if len(m.logs) == 0 {
		return m.theme.Styles().FaintText.Render("No log entries yet")
	}
	styles := m.theme.Styles()
	lines := make([]string, 0, len(m.logs))
	for _, e := range m.logs {
		lines = append(lines, formatEntry(e, styles))
	}
	return strings.Join(lines, "\n")
}

func formatEntry(e logtail.Entry, styles Styles) string {
	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
	}
	if e.Level != "" {
		parts = append(parts, levelStyle(e.Level, styles).Render(fmt.Sprintf("%-5s", e.Level)))
	}
	if e.Logger != "" {
		parts = append(parts, styles.InfoText.Render("["+e.Logger+"]"))
	}
	parts = append(parts, styles.Text.Render(e.Message))
	if f := e.FieldString(); f != "" {
		parts = append(parts, styles.MutedText.Render(f))
	}
	return strings.Join(parts, " ")
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.MutedText
	default:
		return styles.SuccessText
	}
}

// renderCommandBar renders the key hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	pauseLabel := "Pause"
	if m.status.State == state.StatePaused {
		pauseLabel = "Resume"
	}
	commands := []cmd{
		{"a", "Setup"},
		{"f", "Folder"},
		{"s", "Sync"},
		{"space", pauseLabel},
		{"e", "Export"},
		{"x", "Disable"},
		{"r", "Reset"},
		{"?", "Help"},
		{"q", "Quit"},
	}
	segments := make([]string, 0, len(commands)+1)
	colon := bg.Render(":", styles.FaintText)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

type helpItem struct{ key, desc string }

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	items := []helpItem{
		{"a", "Set up sync (private folder first, else choose one)"},
		{"f", "Choose a folder for sync"},
		{"s", "Sync now"},
		{"space", "Pause or resume automatic sync"},
		{"e", "Export the private folder to another folder"},
		{"x", "Disable sync and forget the folder"},
		{"r", "Reset sync so it can be set up again"},
		{"j/k", "Scroll the log"},
		{"T", "Cycle theme"},
		{"?/esc", "Close help"},
		{"q", "Quit"},
	}
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, it := range items {
		b.WriteString(styles.AccentText.Render(fmt.Sprintf("%-7s", it.key)))
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(it.desc))
		b.WriteString("\n")
	}
	return styles.Overlay.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderPicker() string {
	styles := m.theme.Styles()
	title := "Choose a folder for note sync"
	if m.picking.purpose == filesync.PurposeExport {
		title = "Choose a folder to export notes into"
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.Text.Bold(true).Render(title),
		"",
		m.picking.input.View(),
		"",
		styles.FaintText.Render("enter to confirm, esc to cancel"),
	)
	return styles.Overlay.Render(body)
}

func stateLabel(s state.SessionState) string {
	switch s {
	case state.StateNeedsResetup:
		return "needs setup"
	case "":
		return string(state.StateUninitialized)
	default:
		return string(s)
	}
}

func backendLabel(b string) string {
	switch filesync.BackendKind(b) {
	case filesync.KindSandboxed:
		return "private folder"
	case filesync.KindUserSelected:
		return "chosen folder"
	default:
		return "none"
	}
}

// formatLastSync renders a relative time for recent passes.
func formatLastSync(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return t.Local().Format("Jan 2 15:04")
	}
}
