package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/compere-go/internal/simulation"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color

	// Rating tiers
	TierHigh   lipgloss.Color
	TierMid    lipgloss.Color
	TierLow    lipgloss.Color
	TierBottom lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray

	TierHigh:   lipgloss.Color("#22C55E"),
	TierMid:    lipgloss.Color("#EAB308"),
	TierLow:    lipgloss.Color("#F97316"),
	TierBottom: lipgloss.Color("#EF4444"),
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) tierStyle(rating float64) lipgloss.Style {
	var c lipgloss.Color
	switch simulation.RatingTier(rating) {
	case simulation.TierHigh:
		c = t.TierHigh
	case simulation.TierMid:
		c = t.TierMid
	case simulation.TierLow:
		c = t.TierLow
	default:
		c = t.TierBottom
	}
	return lipgloss.NewStyle().Foreground(c)
}

// tierStyle colours a rating with the default theme.
func tierStyle(rating float64) lipgloss.Style {
	return defaultTheme.tierStyle(rating)
}

// stepMsg carries one simulation step.
type stepMsg simulation.Progress

// finishedMsg carries the simulation result.
type finishedMsg simulation.Result

// progressModel is the bubbletea model for a running simulation.
type progressModel struct {
	scenario simulation.Scenario
	cancel   context.CancelFunc
	step     simulation.Progress
	result   *simulation.Result
	progress progress.Model
	theme    Theme
	quitting bool
}

// newProgressModel creates a new progress model.
func newProgressModel(scenario simulation.Scenario, cancel context.CancelFunc) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		scenario: scenario,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Stop the run; the final result still arrives.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case stepMsg:
		m.step = simulation.Progress(msg)
		return m, nil

	case finishedMsg:
		r := simulation.Result(msg)
		m.result = &r
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.result != nil {
		return m.finalView()
	}

	if m.step.Phase == "" {
		return fmt.Sprintf("Seeding %s...\n", m.scenario.Name)
	}

	var pct float64
	if m.step.Total > 0 {
		pct = float64(m.step.Done) / float64(m.step.Total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.step.Phase))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d %s", m.step.Done, m.step.Total, m.step.Phase)

	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop")
	if m.quitting {
		hint = m.theme.hintStyle().Render("Stopping...")
	}

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	r := m.result
	var b strings.Builder

	switch {
	case m.quitting:
		b.WriteString(m.theme.hintStyle().Render("Stopped early") + "\n\n")
	case r.Created == 0 && len(r.Errors) > 0:
		b.WriteString(m.theme.errorStyle().Render("✗ Simulation failed") + "\n\n")
	default:
		b.WriteString(m.theme.completedStyle().Render("✓ Completed") + "\n\n")
	}
	writeResult(&b, r, m.theme)
	return b.String()
}

func writeResult(b *strings.Builder, r *simulation.Result, theme Theme) {
	fmt.Fprintf(b, "  Comparisons created: %d\n", r.Created)
	fmt.Fprintf(b, "  Duration:            %s\n", r.Duration.Round(time.Millisecond))
	if len(r.Errors) > 0 {
		b.WriteString(theme.errorStyle().Render(fmt.Sprintf("\nWarnings (%d):\n", len(r.Errors))))
		for _, e := range r.Errors {
			fmt.Fprintf(b, "  • %s\n", e)
		}
	}
}

// RunSimulationProgress runs a simulation behind the interactive progress UI.
// Returns the simulation result; Ctrl+C stops the run between steps.
func RunSimulationProgress(ctx context.Context, scenario simulation.Scenario, count int, opts simulation.Options) (simulation.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newProgressModel(scenario, cancel)
	p := tea.NewProgram(model)

	opts.OnProgress = func(s simulation.Progress) {
		p.Send(stepMsg(s))
	}
	resCh := make(chan simulation.Result, 1)
	go func() {
		res := simulation.SimulateComparisons(ctx, entityStore, comparisonStore, scenario, count, opts)
		resCh <- res
		p.Send(finishedMsg(res))
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		return <-resCh, fmt.Errorf("progress UI error: %w", err)
	}
	return <-resCh, nil
}
