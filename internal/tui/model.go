// Package tui is the interactive terminal front end for the recipe endpoint.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/socialchef/pantry/internal/client"
)

// Generator sends ingredients to the recipe endpoint. *client.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, ingredients string) (int, client.Response, error)
}

type resultMsg struct {
	status int
	resp   client.Response
	err    error
}

type keyMap struct {
	Submit key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "generate")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

type model struct {
	ctx      context.Context
	gen      Generator
	view     *client.View
	textarea textarea.Model
	spinner  spinner.Model
	width    int
}

func newModel(ctx context.Context, gen Generator) model {
	ta := textarea.New()
	ta.Placeholder = "e.g., chicken, rice, vegetables, spices..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(4)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return model{
		ctx:      ctx,
		gen:      gen,
		view:     client.NewView(),
		textarea: ta,
		spinner:  sp,
		width:    80,
	}
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, gen Generator) error {
	p := tea.NewProgram(newModel(ctx, gen), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd { return textarea.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textarea.SetWidth(max(msg.Width-4, 10))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Submit):
			return m.submit()
		}
		if m.view.State() == client.StateSubmitting {
			return m, nil
		}

	case resultMsg:
		if msg.err != nil {
			m.view.Fail(msg.err)
		} else {
			m.view.Complete(msg.status, msg.resp)
		}
		cmd := m.textarea.Focus()
		return m, cmd

	case spinner.TickMsg:
		if m.view.State() != client.StateSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.view.Input = m.textarea.Value()
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	m.view.Input = m.textarea.Value()
	ingredients, ok := m.view.Submit()
	if !ok {
		return m, nil
	}
	m.textarea.Blur()
	return m, tea.Batch(m.spinner.Tick, m.generate(ingredients))
}

func (m model) generate(ingredients string) tea.Cmd {
	ctx, gen := m.ctx, m.gen
	return func() tea.Msg {
		status, resp, err := gen.Generate(ctx, ingredients)
		return resultMsg{status: status, resp: resp, err: err}
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pantry recipe generator"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Available ingredients (separated by commas):"))
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n\n")

	switch m.view.State() {
	case client.StateSubmitting:
		b.WriteString(m.spinner.View() + " Generating your recipe...")
		b.WriteString("\n")
	case client.StateSuccess:
		b.WriteString(panel(m.width).Render(m.view.Recipe()))
		b.WriteString("\n")
		if note := m.view.Note(); note != "" {
			b.WriteString(noteStyle.Render(note))
			b.WriteString("\n")
		}
	}

	if msg := m.view.Error(); msg != "" {
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}

	help := keys.Submit.Help().Key + " " + keys.Submit.Help().Desc + " • " + keys.Quit.Help().Key + " " + keys.Quit.Help().Desc
	if !m.view.CanSubmit() {
		help = keys.Quit.Help().Key + " " + keys.Quit.Help().Desc
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}
