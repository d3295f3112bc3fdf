package cli

import (
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// MockCommand is a Command that records what it was given and returns
// canned results.
type MockCommand struct {
	Name       string
	Args       []string
	OutputData []byte
	OutputErr  error
	RunErr     error
	// RunFunc replaces Run when set.
	RunFunc func(c *MockCommand) error
	Env     []string
	Dir     string
	StdinR  io.Reader
	StdoutW io.Writer
	StderrW io.Writer
}

func (c *MockCommand) Output() ([]byte, error) {
	return c.OutputData, c.OutputErr
}

func (c *MockCommand) CombinedOutput() ([]byte, error) {
	return c.OutputData, c.OutputErr
}

func (c *MockCommand) Run() error {
	if c.RunFunc != nil {
		return c.RunFunc(c)
	}
	if c.StdoutW != nil && len(c.OutputData) > 0 {
		_, _ = c.StdoutW.Write(c.OutputData)
	}
	return c.RunErr
}

func (c *MockCommand) SetStdout(w io.Writer) { c.StdoutW = w }
func (c *MockCommand) SetStderr(w io.Writer) { c.StderrW = w }
func (c *MockCommand) SetStdin(r io.Reader)  { c.StdinR = r }
func (c *MockCommand) SetEnv(env []string)   { c.Env = append(c.Env, env...) }
func (c *MockCommand) SetDir(dir string)     { c.Dir = dir }

// MockExecutor records every command that passes validation.
type MockExecutor struct {
	Commands      []ExecSpec
	Created       []*MockCommand
	DefaultOutput []byte
	DefaultErr    error
	DefaultRunErr error
	// CommandFunc builds the command for a spec; nil results fall back to defaults.
	CommandFunc func(spec ExecSpec) *MockCommand
	// Missing lists binaries that fail as if not installed.
	Missing map[string]bool
}

func (m *MockExecutor) Command(name string, args []string, validators ...ExecValidator) (Command, error) {
	spec := ExecSpec{Name: name, Args: args}
	if err := validate(spec, validators); err != nil {
		return nil, err
	}
	m.Commands = append(m.Commands, spec)

	var cmd *MockCommand
	if m.CommandFunc != nil {
		cmd = m.CommandFunc(spec)
	}
	if cmd == nil {
		cmd = &MockCommand{OutputData: m.DefaultOutput, OutputErr: m.DefaultErr, RunErr: m.DefaultRunErr}
	}
	cmd.Name, cmd.Args = name, args
	if m.Missing[name] {
		cmd.OutputErr = errNotInstalled(name)
		cmd.RunErr = errNotInstalled(name)
		cmd.RunFunc = nil
	}
	m.Created = append(m.Created, cmd)
	return cmd, nil
}

// LastCommand returns the most recent command, or a zero spec.
func (m *MockExecutor) LastCommand() ExecSpec {
	if len(m.Commands) == 0 {
		return ExecSpec{}
	}
	return m.Commands[len(m.Commands)-1]
}

// HasCommand reports whether name was executed.
func (m *MockExecutor) HasCommand(name string) bool {
	for _, cmd := range m.Commands {
		if cmd.Name == name {
			return true
		}
	}
	return false
}

// CommandLines renders each recorded command as "name arg arg".
func (m *MockExecutor) CommandLines() []string {
	lines := make([]string, 0, len(m.Commands))
	for _, cmd := range m.Commands {
		lines = append(lines, strings.TrimSpace(cmd.Name+" "+strings.Join(cmd.Args, " ")))
	}
	return lines
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

func commandHasArgs(spec ExecSpec, args ...string) bool {
	if len(spec.Args) != len(args) {
		return false
	}
	for i := range args {
		if spec.Args[i] != args[i] {
			return false
		}
	}
	return true
}

func errNotInstalled(name string) error {
	return &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// errExit stands in for a process that exited non-zero.
func errExit() error {
	return &exec.ExitError{}
}

func newTestToolbox(mock *MockExecutor, strict bool) *Toolbox {
	return NewToolbox(mock, zap.NewNop(), strict)
}

func quietPrinter() *Printer {
	return &Printer{Quiet: true}
}
