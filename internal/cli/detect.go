package cli

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"kubigo/pkg/status"
)

type toolCheck struct {
	name string
	bin  string
	args []string
	set  func(h *ClusterHandle, installed bool)
}

var toolChecks = []toolCheck{
	{
		name: "VirtualBox", bin: BinVBoxManage, args: []string{"--version"},
		set: func(h *ClusterHandle, v bool) { h.VirtualBoxInstalled = v },
	},
	{
		name: "kubectl", bin: BinKubectl, args: []string{"config", "view"},
		set: func(h *ClusterHandle, v bool) { h.KubectlInstalled = v },
	},
	{
		name: "minikube", bin: BinMinikube, args: []string{"version"},
		set: func(h *ClusterHandle, v bool) { h.MinikubeInstalled = v },
	},
	{
		name: "Docker", bin: BinDocker, args: []string{"ps", "-a"},
		set: func(h *ClusterHandle, v bool) { h.DockerInstalled = v },
	},
}

// isInstalled reports whether runner's binary can be launched. The exit
// code is ignored; only a missing binary means not installed.
func isInstalled(runner ToolRunner, args []string) bool {
	err := runner.Run(args)
	return err == nil || !isToolMissing(err)
}

// NewClusterHandle detects the host tools and returns a fresh handle.
func NewClusterHandle(tools *Toolbox, workDir, fallbackPython string, logger *zap.Logger) *ClusterHandle {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ClusterHandle{
		Description: handleDescription,
		WorkDir:     workDir,
		Status:      status.Initialized,
	}
	for _, c := range toolChecks {
		installed := isInstalled(tools.Tool(c.bin), c.args)
		c.set(h, installed)
		logger.Debug("Detected tool", zap.String("tool", c.name), zap.Bool("installed", installed))
	}
	h.PythonVersion = detectPythonVersion(tools.Tool(BinPython), fallbackPython)
	return h
}

// detectPythonVersion parses "Python X.Y.Z" from python3 --version. Older
// interpreters print it on stderr, so combined output is read.
func detectPythonVersion(runner ToolRunner, fallback string) string {
	cmd, err := runner.CommandArgs([]string{"--version"})
	if err != nil {
		return fallback
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fallback
	}
	return parsePythonVersion(string(out), fallback)
}

func parsePythonVersion(out, fallback string) string {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "Python" {
		return fallback
	}
	return fields[1]
}

// HandleSession loads the persisted handle, creating it on first use.
type HandleSession struct {
	store  *StateStore
	tools  *Toolbox
	cfg    CLIConfig
	logger *zap.Logger
	getwd  func() (string, error)
}

func NewHandleSession(store *StateStore, tools *Toolbox, cfg CLIConfig, logger *zap.Logger) *HandleSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandleSession{store: store, tools: tools, cfg: cfg, logger: logger, getwd: os.Getwd}
}

// Open returns the saved handle with WorkDir set to the current directory,
// or detects the host tools when nothing was saved.
func (s *HandleSession) Open() (*ClusterHandle, error) {
	wd, err := s.getwd()
	if err != nil {
		return nil, wrapWithSentinel(ErrGetWorkingDirectoryFailed, err, "failed to get working directory")
	}
	h, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if h == nil {
		s.logger.Debug("No saved cluster state, detecting host tools", zap.String("path", s.store.Path()))
		return NewClusterHandle(s.tools, wd, s.cfg.PythonVersion, s.logger), nil
	}
	h.WorkDir = wd
	if h.PythonVersion == "" {
		h.PythonVersion = s.cfg.PythonVersion
	}
	return h, nil
}

// Run opens the handle, calls fn and saves the handle even when fn fails.
// fn's error takes precedence over a save error.
func (s *HandleSession) Run(fn func(h *ClusterHandle) error) error {
	h, err := s.Open()
	if err != nil {
		return err
	}
	runErr := fn(h)
	if saveErr := s.store.Save(h); saveErr != nil {
		if runErr != nil {
			s.logger.Warn("Failed to save cluster state", zap.Error(saveErr))
			return runErr
		}
		return saveErr
	}
	return runErr
}

// Reset forgets the saved handle.
func (s *HandleSession) Reset() error {
	return s.store.Reset()
}

// DefaultHandleSession returns a session over the configured state directory.
func DefaultHandleSession(logger *zap.Logger) *HandleSession {
	return NewHandleSession(NewStateStore(DefaultCLIConfig.StateDir), DefaultToolbox(logger), DefaultCLIConfig, logger)
}
