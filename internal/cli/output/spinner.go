package output

import (
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner shows progress for a blocking operation in text mode.
type Spinner struct {
	renderer *Renderer
	program  *tea.Program
	done     chan struct{}
	once     sync.Once
}

type stopMsg struct{}

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	stopping bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.stopping = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.stopping {
		return ""
	}
	return m.spinner.View() + " " + m.message
}

// NewSpinner creates a spinner drawing on the renderer's stderr.
func (r *Renderer) NewSpinner(message string) *Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = r.styles.Info

	model := spinnerModel{spinner: s, message: message}
	return &Spinner{
		renderer: r,
		program:  tea.NewProgram(model, tea.WithOutput(r.errOut), tea.WithInput(nil), tea.WithoutSignalHandler()),
		done:     make(chan struct{}),
	}
}

// Start runs the spinner in the background.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
}

func (s *Spinner) stop() {
	s.once.Do(func() {
		s.program.Send(stopMsg{})
		<-s.done
	})
}

// Success stops the spinner and prints a success line.
func (s *Spinner) Success(msg string) {
	s.stop()
	s.renderer.Success(msg)
}

// Fail stops the spinner and prints a failure line on stderr.
func (s *Spinner) Fail(msg string) {
	s.stop()
	s.renderer.Error(msg)
}
