package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

type taskDoneMsg struct {
	err error
}

// SpinnerModel shows a spinner with a label until its task finishes
type SpinnerModel struct {
	spinner spinner.Model
	label   string
	task    func() error
	err     error
	done    bool
}

// NewSpinnerModel creates a model that runs task and quits when it returns
func NewSpinnerModel(label string, task func() error) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return SpinnerModel{
		spinner: s,
		label:   label,
		task:    task,
	}
}

// Init implements tea.Model
func (m SpinnerModel) Init() tea.Cmd {
	task := m.task
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: task()}
	})
}

// Update implements tea.Model
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + SpinnerLabelStyle.Render(m.label) + "\n"
}

// Err returns the task's error once the model has finished
func (m SpinnerModel) Err() error {
	return m.err
}

// RunWithSpinner runs task while a spinner is drawn on stdout. When stdout
// is not a terminal the task runs without any output.
func RunWithSpinner(label string, task func() error) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return task()
	}
	return runSpinner(os.Stdout, label, task)
}

func runSpinner(out io.Writer, label string, task func() error) error {
	p := tea.NewProgram(NewSpinnerModel(label, task), tea.WithOutput(out), tea.WithInput(nil))
	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(SpinnerModel).Err()
}
