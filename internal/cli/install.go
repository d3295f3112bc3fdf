package cli

// This file implements the "install" command. Missing tools are installed
// with Homebrew; tools found on the host before the first run are left alone.

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kubigo/pkg/status"
)

type toolStep struct {
	bin  string
	args []string
}

type installTarget struct {
	name      string
	installed func(h *ClusterHandle) bool
	notice    string
	steps     []toolStep
	sentinel  error
}

var installTargets = []installTarget{
	{
		name:      "Docker",
		installed: func(h *ClusterHandle) bool { return h.DockerInstalled },
		steps: []toolStep{
			{bin: BinBrew, args: []string{"install", "--cask", "docker"}},
			{bin: BinOpen, args: []string{"/Applications/Docker.app"}},
		},
		sentinel: ErrInstallDockerFailed,
	},
	{
		name:      "VirtualBox",
		installed: func(h *ClusterHandle) bool { return h.VirtualBoxInstalled },
		notice:    "Installing VirtualBox, your password may be requested by sudo",
		steps: []toolStep{
			{bin: BinBrew, args: []string{"install", "--cask", "virtualbox"}},
		},
		sentinel: ErrInstallVirtualBoxFailed,
	},
	{
		name:      "kubectl",
		installed: func(h *ClusterHandle) bool { return h.KubectlInstalled },
		steps: []toolStep{
			{bin: BinBrew, args: []string{"install", "kubectl"}},
			{bin: BinBrew, args: []string{"link", "kubernetes-cli"}},
		},
		sentinel: ErrInstallKubectlFailed,
	},
	{
		name:      "minikube",
		installed: func(h *ClusterHandle) bool { return h.MinikubeInstalled },
		steps: []toolStep{
			{bin: BinBrew, args: []string{"install", "minikube"}},
		},
		sentinel: ErrInstallMinikubeFailed,
	},
}

// InstallManager installs the tools the cluster needs.
type InstallManager struct {
	tools   *Toolbox
	printer *Printer
	logger  *zap.Logger
}

func NewInstallManager(tools *Toolbox, printer *Printer, logger *zap.Logger) *InstallManager {
	return &InstallManager{tools: tools, printer: printer, logger: logger}
}

// Install installs Docker, VirtualBox, kubectl and minikube in that order.
// The status becomes installed only when every tool succeeded.
func (m *InstallManager) Install(h *ClusterHandle) error {
	m.printer.Section("Installing cluster tools")
	for _, target := range installTargets {
		if target.installed(h) {
			m.printer.Info(target.name + " is already installed")
			continue
		}
		if err := m.installOne(target); err != nil {
			return err
		}
		m.printer.Success(target.name + " installed successfully")
	}
	h.Status = status.Installed
	return nil
}

func (m *InstallManager) installOne(target installTarget) error {
	if target.notice != "" {
		m.printer.Warn(target.notice)
	}
	for _, step := range target.steps {
		m.logger.Debug("Running install step", zap.String("tool", target.name), zap.String("bin", step.bin), zap.Strings("args", step.args))
		runner := m.tools.Tool(step.bin)
		if err := runner.Step(step.args, m.printer.out(), m.printer.errOut()); err != nil {
			wrappedErr := stepError(target.sentinel, err, target.sentinel.Error(), stepContext(runner, step.args))
			return reportError(m.printer, m.logger, wrappedErr, target.sentinel.Error())
		}
	}
	return nil
}

// NewInstallCmd returns the install command.
func NewInstallCmd(logger *zap.Logger) *cobra.Command {
	return NewInstallCmdWithManager(NewInstallManager(DefaultToolbox(logger), DefaultPrinter, logger), DefaultHandleSession(logger))
}

// NewInstallCmdWithManager returns the install command using the provided manager.
func NewInstallCmdWithManager(mgr *InstallManager, session *HandleSession) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install Docker, VirtualBox, kubectl and minikube",
		Long: `Install the tools the local cluster needs with Homebrew.
Tools that were already on this machine before kubigo first ran are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(mgr.Install)
		},
	}
}

func stepContext(runner ToolRunner, args []string) map[string]any {
	return map[string]any{
		"bin":  runner.Bin(),
		"args": strings.Join(args, " "),
	}
}

// reportError prints msg, logs err in debug mode and returns err.
func reportError(p *Printer, logger *zap.Logger, err error, msg string) error {
	p.Error(msg)
	logStructuredError(logger, err, msg)
	return err
}
