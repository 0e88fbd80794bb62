package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	asyncStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	ctx      context.Context
	err      error
	log      *zap.Logger
	rt       *runtime.Runtime
	module   *runtime.Module
	dir      string
	filename string
	result   string
	rewrites []string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

// funcInfo is one callable entry: a module function or Class.method.
type funcInfo struct {
	name  string
	fn    runtime.Func
	bound bool
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(ctx context.Context, dir, filename string, log *zap.Logger) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		log:      log,
		dir:      dir,
		filename: filename,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err      error
	rt       *runtime.Runtime
	mod      *runtime.Module
	funcs    []funcInfo
	rewrites []string
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	rt, err := runtime.New(
		runtime.WithFS(os.DirFS(m.dir)),
		runtime.WithLogger(m.log),
		runtime.WithStdout(&strings.Builder{}),
	)
	if err != nil {
		return loadedMsg{err: err}
	}

	mod, err := rt.LoadFile(m.ctx, m.filename)
	if err != nil {
		rt.Close()
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, c := range mod.Classes() {
		for _, meth := range c.Methods {
			if strings.HasPrefix(meth.Name, "__") {
				continue
			}
			funcs = append(funcs, funcInfo{name: c.Name + "." + meth.Name, fn: meth, bound: true})
		}
	}
	for _, f := range mod.Functions() {
		funcs = append(funcs, funcInfo{name: f.Name, fn: f})
	}
	if len(funcs) == 0 {
		rt.Close()
		return loadedMsg{err: fmt.Errorf("%s defines nothing callable", m.filename)}
	}

	var rewrites []string
	for _, rep := range mod.Rewrites() {
		rewrites = append(rewrites, fmt.Sprintf("%s (magic %s)", rep.Class, rep.Magic))
	}

	return loadedMsg{rt: rt, mod: mod, funcs: funcs, rewrites: rewrites}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.rt != nil {
				m.rt.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.rt = msg.rt
		m.module = msg.mod
		m.rewrites = msg.rewrites

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// prepareInputs creates one field per parameter. The receiver of a method
// is supplied by the call.
func (m *interactiveModel) prepareInputs() {
	params := m.funcs[m.selected].params()
	m.inputs = make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Placeholder = "value"
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.module == nil {
		return callResultMsg{err: fmt.Errorf("module not loaded")}
	}

	f := m.funcs[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = parseArg(input.Value())
	}

	results, err := m.module.NewSession().Add(f.name, args...).Run(m.ctx)
	if err != nil {
		return callResultMsg{err: err}
	}
	r := results[0]
	return callResultMsg{result: fmt.Sprintf("%s\n\n%s", interp.Repr(r.Value), helpStyle.Render(
		"took "+r.Span.Duration().Round(time.Microsecond).String()))}
}

func (f funcInfo) params() []string {
	if f.bound && len(f.fn.Params) > 0 {
		return f.fn.Params[1:]
	}
	return f.fn.Params
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("noasync"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	for _, r := range m.rewrites {
		b.WriteString(helpStyle.Render("rewrote " + r))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatFunc(f)))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	prefix := ""
	if f.fn.Async {
		prefix = asyncStyle.Render("async ")
	}
	return prefix + funcStyle.Render(f.name) + "(" + strings.Join(f.params(), ", ") + ")"
}

func runInteractive(ctx context.Context, dir, filename string, log *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(ctx, dir, filename, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
