package cli

import (
	"errors"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// execCommand is a test seam for stubbing command creation in tests.
var execCommand = exec.Command

// Command represents a command that can be executed.
type Command interface {
	Output() ([]byte, error)
	CombinedOutput() ([]byte, error)
	Run() error
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	SetStdin(r io.Reader)
	SetEnv(env []string)
	SetDir(dir string)
}

// Executor creates commands for execution.
type Executor interface {
	Command(name string, args []string, validators ...ExecValidator) (Command, error)
}

// execCmd wraps exec.Cmd to implement Command.
type execCmd struct {
	cmd *exec.Cmd
}

func (c *execCmd) Output() ([]byte, error)         { return c.cmd.Output() }
func (c *execCmd) CombinedOutput() ([]byte, error) { return c.cmd.CombinedOutput() }
func (c *execCmd) Run() error                      { return c.cmd.Run() }
func (c *execCmd) SetStdout(w io.Writer)           { c.cmd.Stdout = w }
func (c *execCmd) SetStderr(w io.Writer)           { c.cmd.Stderr = w }
func (c *execCmd) SetStdin(r io.Reader)            { c.cmd.Stdin = r }
func (c *execCmd) SetDir(dir string)               { c.cmd.Dir = dir }

// SetEnv appends env to the inherited process environment.
func (c *execCmd) SetEnv(env []string) {
	if c.cmd.Env == nil {
		c.cmd.Env = c.cmd.Environ()
	}
	c.cmd.Env = append(c.cmd.Env, env...)
}

// osExecutor is the production implementation using os/exec.
type osExecutor struct{}

func (osExecutor) Command(name string, args []string, validators ...ExecValidator) (Command, error) {
	if err := validate(ExecSpec{Name: name, Args: args}, validators); err != nil {
		return nil, err
	}
	return &execCmd{cmd: execCommand(name, args...)}, nil
}

var execExecutor Executor = osExecutor{}

// ExecSpec is what validators inspect before a command is built.
type ExecSpec struct {
	Name string
	Args []string
}

// ExecValidator rejects a command before it is built.
type ExecValidator func(ExecSpec) error

func validate(spec ExecSpec, validators []ExecValidator) error {
	for _, v := range validators {
		if err := v(spec); err != nil {
			return err
		}
	}
	return nil
}

func AllowlistBins(allowed ...string) ExecValidator {
	return func(spec ExecSpec) error {
		if !lo.Contains(allowed, spec.Name) {
			return errors.New("exec: binary not allowed")
		}
		return nil
	}
}

func NoShellMeta() ExecValidator {
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "&|;<>()$`\\") {
				return errors.New("exec: shell metacharacters not allowed")
			}
		}
		return nil
	}
}

func NoControlChars() ExecValidator {
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "\r\n\t") {
				return errors.New("exec: control characters not allowed")
			}
		}
		return nil
	}
}

// PathUnder rejects paths outside root. Relative paths are resolved against
// root; flags are skipped.
func PathUnder(root string) ExecValidator {
	absRoot := root
	if abs, err := filepath.Abs(root); err == nil {
		absRoot = abs
	}
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if arg == "-" || strings.HasPrefix(arg, "-") {
				continue
			}
			path := arg
			if !filepath.IsAbs(path) {
				path = filepath.Join(absRoot, path)
			}
			rel, err := filepath.Rel(absRoot, filepath.Clean(path))
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return errors.New("exec: path escapes root")
			}
		}
		return nil
	}
}

// isToolMissing reports whether err means the binary could not be found,
// either on PATH or at an absolute location.
func isToolMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// exitCode returns the exit code when err is a non-zero process exit.
func exitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
