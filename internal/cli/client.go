package cli

import (
	"io"

	"go.uber.org/zap"
)

// Binaries kubigo is allowed to launch.
const (
	BinBrew       = "brew"
	BinMinikube   = "minikube"
	BinKubectl    = "kubectl"
	BinDocker     = "docker"
	BinVBoxManage = "VBoxManage"
	BinOpen       = "open"
	BinLaunchctl  = "launchctl"
	BinPython     = "python3"
	// BinDockerApp is the Docker Desktop executable, used for its uninstaller.
	BinDockerApp = "/Applications/Docker.app/Contents/MacOS/Docker"
)

var allowedBins = []string{
	BinBrew, BinMinikube, BinKubectl, BinDocker, BinVBoxManage,
	BinOpen, BinLaunchctl, BinPython, BinDockerApp,
}

// ToolClient wraps execution of one external binary with validation.
type ToolClient struct {
	bin        string
	exec       Executor
	validators []ExecValidator
	strict     bool
	logger     *zap.Logger
}

// Bin returns the binary this client launches.
func (c *ToolClient) Bin() string { return c.bin }

// CommandArgs builds a command for the client's binary after validating args.
func (c *ToolClient) CommandArgs(args []string) (Command, error) {
	return c.exec.Command(c.bin, args, c.validators...)
}

// Output runs the binary and returns stdout.
func (c *ToolClient) Output(args []string) ([]byte, error) {
	cmd, err := c.CommandArgs(args)
	if err != nil {
		return nil, err
	}
	return cmd.Output()
}

// Run runs the binary with output discarded.
func (c *ToolClient) Run(args []string) error {
	cmd, err := c.CommandArgs(args)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// RunWithOutput runs the binary, piping to the provided writers.
func (c *ToolClient) RunWithOutput(args []string, stdout, stderr io.Writer) error {
	cmd, err := c.CommandArgs(args)
	if err != nil {
		return err
	}
	cmd.SetStdout(stdout)
	cmd.SetStderr(stderr)
	return cmd.Run()
}

// Exists runs the binary and reports whether it exited zero.
// A missing binary is returned as an error.
func (c *ToolClient) Exists(args []string) (bool, error) {
	err := c.Run(args)
	if err == nil {
		return true, nil
	}
	if _, ok := exitCode(err); ok {
		return false, nil
	}
	return false, err
}

// Step runs the binary as one step of a lifecycle sequence. The step fails
// when the binary cannot be launched or the arguments are rejected. A
// non-zero exit is logged and ignored unless the client is strict.
func (c *ToolClient) Step(args []string, stdout, stderr io.Writer) error {
	return c.StepWithEnv(args, nil, stdout, stderr)
}

// StepWithEnv is Step with extra KEY=VALUE environment entries.
func (c *ToolClient) StepWithEnv(args, env []string, stdout, stderr io.Writer) error {
	return c.StepInDir("", args, env, stdout, stderr)
}

// StepInDir is StepWithEnv run from dir. An empty dir keeps the current
// working directory.
func (c *ToolClient) StepInDir(dir string, args, env []string, stdout, stderr io.Writer) error {
	cmd, err := c.CommandArgs(args)
	if err != nil {
		return err
	}
	if dir != "" {
		cmd.SetDir(dir)
	}
	if len(env) > 0 {
		cmd.SetEnv(env)
	}
	cmd.SetStdout(stdout)
	cmd.SetStderr(stderr)
	err = cmd.Run()
	if err == nil {
		return nil
	}
	if code, ok := exitCode(err); ok && !c.strict {
		c.logger.Warn("Command exited non-zero, continuing",
			zap.String("bin", c.bin),
			zap.Strings("args", args),
			zap.Int("exit_code", code),
		)
		return nil
	}
	return err
}

// Toolbox hands out ToolClients that share one executor and policy.
type Toolbox struct {
	exec       Executor
	validators []ExecValidator
	strict     bool
	logger     *zap.Logger
}

// NewToolbox creates a Toolbox with the default validators.
func NewToolbox(exec Executor, logger *zap.Logger, strict bool) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{
		exec: exec,
		validators: []ExecValidator{
			AllowlistBins(allowedBins...),
			NoControlChars(), // Prevent argument smuggling via control chars
			NoShellMeta(),
		},
		strict: strict,
		logger: logger,
	}
}

// Tool returns a client for bin. Extra validators are appended to the defaults.
func (t *Toolbox) Tool(bin string, extra ...ExecValidator) *ToolClient {
	validators := make([]ExecValidator, 0, len(t.validators)+len(extra))
	validators = append(validators, t.validators...)
	validators = append(validators, extra...)
	return &ToolClient{
		bin:        bin,
		exec:       t.exec,
		validators: validators,
		strict:     t.strict,
		logger:     t.logger,
	}
}

// DefaultToolbox returns a Toolbox backed by os/exec and DefaultCLIConfig.
func DefaultToolbox(logger *zap.Logger) *Toolbox {
	return NewToolbox(execExecutor, logger, DefaultCLIConfig.Strict)
}
