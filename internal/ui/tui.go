package ui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ismail180205/HippoMind/internal/session"
)

// phase is the model's position in the interaction loop.
type phase int

const (
	phaseLoading phase = iota
	phaseBrowse
	phaseAnswer
	phaseBacktrack
	phaseDone
)

type snapshotMsg struct{ snap *session.Snapshot }
type opErrMsg struct{ err error }

// findModel drives one narrowing session.
type findModel struct {
	ctx    context.Context
	driver Driver
	query  string

	phase   phase
	snap    *session.Snapshot
	opErr   error
	spinner spinner.Model
	input   textinput.Model
	styles  Styles
}

func newFindModel(ctx context.Context, driver Driver, query string, styles Styles) *findModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.CharLimit = 500

	return &findModel{
		ctx:     ctx,
		driver:  driver,
		query:   query,
		phase:   phaseLoading,
		spinner: sp,
		input:   in,
		styles:  styles,
	}
}

func (m *findModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSearch())
}

func (m *findModel) startSearch() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.driver.Create(m.ctx, m.query)
		if err != nil {
			return opErrMsg{err}
		}
		return snapshotMsg{snap}
	}
}

func (m *findModel) op(f func() (*session.Snapshot, error)) tea.Cmd {
	m.phase = phaseLoading
	return func() tea.Msg {
		snap, err := f()
		if err != nil {
			return opErrMsg{err}
		}
		return snapshotMsg{snap}
	}
}

func (m *findModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = msg.snap
		m.opErr = nil
		switch msg.snap.Status {
		case session.StatusFollowup:
			m.input.SetValue("")
			m.input.Focus()
			m.phase = phaseAnswer
			return m, textinput.Blink
		case session.StatusFound:
			m.phase = phaseDone
			return m, tea.Quit
		default:
			m.phase = phaseBrowse
			return m, nil
		}

	case opErrMsg:
		m.opErr = msg.err
		// A failed operation leaves the session unchanged; fall back to
		// browsing the last snapshot, or give up if there is none.
		if m.snap == nil {
			m.phase = phaseDone
			return m, tea.Quit
		}
		if m.snap.Status == session.StatusFollowup {
			m.phase = phaseAnswer
			return m, nil
		}
		m.phase = phaseBrowse
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *findModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.phase = phaseDone
		return m, tea.Quit
	}

	switch m.phase {
	case phaseAnswer:
		return m.handleAnswerKey(msg)
	case phaseBacktrack:
		return m.handleBacktrackKey(msg)
	case phaseBrowse:
		return m.handleBrowseKey(msg)
	}
	return m, nil
}

func (m *findModel) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case key == "q", key == "esc":
		m.phase = phaseDone
		return m, tea.Quit

	case key == "?":
		id := m.snap.SessionID
		return m, m.op(func() (*session.Snapshot, error) {
			return m.driver.AskForHelp(m.ctx, id)
		})

	case key == "b":
		m.input.SetValue("")
		m.input.Placeholder = "node id"
		m.input.Focus()
		m.phase = phaseBacktrack
		return m, textinput.Blink

	case len(key) == 1 && key >= "1" && key <= "9":
		if m.snap.Status != session.StatusClusters {
			return m, nil
		}
		n, _ := strconv.Atoi(key)
		if n > len(m.snap.Clusters) {
			return m, nil
		}
		id, clusterID := m.snap.SessionID, m.snap.Clusters[n-1].ID
		return m, m.op(func() (*session.Snapshot, error) {
			return m.driver.Pick(m.ctx, id, clusterID)
		})
	}
	return m, nil
}

func (m *findModel) handleAnswerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		answer := strings.TrimSpace(m.input.Value())
		if answer == "" {
			return m, nil
		}
		m.input.Blur()
		id := m.snap.SessionID
		return m, m.op(func() (*session.Snapshot, error) {
			return m.driver.AnswerFollowup(m.ctx, id, answer)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *findModel) handleBacktrackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.phase = phaseBrowse
		return m, nil
	case tea.KeyEnter:
		nodeID, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil {
			return m, nil
		}
		m.input.Blur()
		id := m.snap.SessionID
		return m, m.op(func() (*session.Snapshot, error) {
			return m.driver.Backtrack(m.ctx, id, nodeID)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *findModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render(fmt.Sprintf("Finding: %q", m.query)))
	sb.WriteString("\n\n")

	if m.phase == phaseLoading {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" searching...\n")
		return sb.String()
	}

	if m.snap == nil {
		if m.opErr != nil {
			sb.WriteString(m.styles.Error.Render(m.opErr.Error()))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	if m.opErr != nil {
		sb.WriteString(m.styles.Error.Render(m.opErr.Error()))
		sb.WriteString("\n\n")
	}

	m.viewSnapshot(&sb)

	switch m.phase {
	case phaseAnswer:
		sb.WriteString("\n")
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Hint.Render("enter to answer, ctrl+c to quit"))
	case phaseBacktrack:
		sb.WriteString("\n")
		sb.WriteString(m.styles.Hint.Render("backtrack to node: "))
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Hint.Render("enter to confirm, esc to cancel"))
	default:
		sb.WriteString("\n")
		sb.WriteString(m.styles.Hint.Render("1-9 pick a group · ? ask for a question · b backtrack · q quit"))
	}
	sb.WriteString("\n")

	return sb.String()
}

func (m *findModel) viewSnapshot(sb *strings.Builder) {
	snap := m.snap

	switch snap.Status {
	case session.StatusClusters:
		sb.WriteString(m.styles.Hint.Render(fmt.Sprintf("Round %d · %d candidate files", snap.Round, len(snap.Files))))
		sb.WriteString("\n\n")
		for i, c := range snap.Clusters {
			sb.WriteString(m.styles.Number.Render(fmt.Sprintf("%d. ", i+1)))
			sb.WriteString(m.styles.Label.Render(c.Label))
			sb.WriteString(m.styles.Hint.Render(fmt.Sprintf(" (%d files)", len(c.Files))))
			sb.WriteString("\n")
			for _, f := range c.Files {
				sb.WriteString(m.styles.File.Render("   " + f))
				sb.WriteString("\n")
			}
		}

	case session.StatusFollowup:
		sb.WriteString(m.styles.Hint.Render(fmt.Sprintf("Question %d of %d", snap.FollowupCount+1, snap.MaxFollowups)))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Question.Render(snap.PendingQuestion))
		sb.WriteString("\n")

	case session.StatusFound:
		sb.WriteString(m.styles.Found.Render("Found: " + snap.FoundFile))
		sb.WriteString("\n")
		if snap.FoundSummary != "" {
			sb.WriteString(m.styles.File.Render(snap.FoundSummary))
			sb.WriteString("\n")
		}

	case session.StatusExhausted:
		sb.WriteString(m.styles.Label.Render("Cannot narrow further. Remaining candidates:"))
		sb.WriteString("\n")
		for _, f := range snap.RemainingFiles {
			sb.WriteString(m.styles.File.Render("   " + f))
			sb.WriteString("\n")
		}
	}

	if len(snap.NavTree) > 1 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Hint.Render("Path:"))
		sb.WriteString("\n")
		for _, n := range snap.NavTree {
			line := fmt.Sprintf("%s[%d] %s", strings.Repeat("  ", n.Depth), n.NodeID, n.Label)
			switch {
			case n.NodeID == snap.CurrentNavNode:
				sb.WriteString(m.styles.Current.Render(line))
			case n.IsOnPath:
				sb.WriteString(m.styles.File.Render(line))
			default:
				sb.WriteString(m.styles.Dim.Render(line))
			}
			sb.WriteString("\n")
		}
	}
}

// RunTUI runs the bubbletea narrowing loop. The session is deleted when
// the loop ends.
func RunTUI(ctx context.Context, driver Driver, query string, cfg Config) error {
	styles := DefaultStyles()
	if cfg.NoColor || DetectNoColor() {
		styles = NoColorStyles()
	}

	model := newFindModel(ctx, driver, query, styles)

	var opts []tea.ProgramOption
	if f, ok := cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return err
	}

	fm := final.(*findModel)
	if fm.snap != nil {
		driver.Delete(fm.snap.SessionID)
		// Leave the result on screen after the program exits.
		if fm.snap.Status == session.StatusFound {
			fmt.Fprintf(cfg.Output, "\nFound: %s\n", fm.snap.FoundFile)
			if fm.snap.FoundSummary != "" {
				fmt.Fprintf(cfg.Output, "%s\n", fm.snap.FoundSummary)
			}
		}
	}
	if fm.opErr != nil && fm.snap == nil {
		return fm.opErr
	}
	return nil
}
