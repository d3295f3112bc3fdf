package cli

// This file implements the "delete" command: stop and delete minikube,
// then remove the tools kubigo installed.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kubigo/pkg/status"
)

// kubectlPaths are removed when kubectl is torn down. A leading ~ is the
// user's home directory.
var kubectlPaths = []string{
	"~/.kube",
	"~/.minikube",
	"/usr/local/bin/localkube",
	"/usr/local/bin/minikube",
	"/usr/local/bin/kubectl",
	"/etc/kubernetes",
	"/usr/local/Cellar/minikube",
	"/usr/local/Cellar/kubernetes-cli",
}

var kubectlServices = []string{"*kubelet*.mount", "localkube.service"}

// removeAll is a test seam for os.RemoveAll.
var removeAll = os.RemoveAll

// DeleteOptions selects components to remove. A nil field means "remove
// only if kubigo installed it".
type DeleteOptions struct {
	Docker     *bool
	Kubectl    *bool
	VirtualBox *bool
}

func resolveRemoval(flag *bool, preinstalled bool) bool {
	if flag != nil {
		return *flag
	}
	return !preinstalled
}

// TeardownManager deletes the cluster and optionally its tools.
type TeardownManager struct {
	tools   *Toolbox
	home    string
	printer *Printer
	logger  *zap.Logger
}

// NewTeardownManager creates a TeardownManager. home expands ~ in kubectl paths.
func NewTeardownManager(tools *Toolbox, home string, printer *Printer, logger *zap.Logger) *TeardownManager {
	return &TeardownManager{tools: tools, home: home, printer: printer, logger: logger}
}

// DefaultTeardownManager returns a TeardownManager using default clients.
func DefaultTeardownManager(logger *zap.Logger) *TeardownManager {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("Failed to get home directory", zap.Error(err))
	}
	return NewTeardownManager(DefaultToolbox(logger), home, DefaultPrinter, logger)
}

// Delete stops and deletes minikube, then removes the selected components.
// Component failures are printed and do not abort. Only a minikube failure
// is returned; it sets not responding.
func (m *TeardownManager) Delete(h *ClusterHandle, opts DeleteOptions) error {
	minikube := m.tools.Tool(BinMinikube)
	done := m.printer.SpinnerStart("Deleting minikube cluster")
	for _, args := range [][]string{{"stop"}, {"delete"}} {
		if err := minikube.Step(args, io.Discard, io.Discard); err != nil {
			h.Status = status.NotResponding
			done(false, ErrDeleteFailed.Error())
			wrappedErr := stepError(ErrDeleteFailed, err, ErrDeleteFailed.Error(), stepContext(minikube, args))
			logStructuredError(m.logger, wrappedErr, ErrDeleteFailed.Error())
			return wrappedErr
		}
	}
	done(true, "Minikube cluster deleted")

	if resolveRemoval(opts.Docker, h.DockerInstalled) {
		m.component("Docker", m.removeDocker)
	} else {
		m.printer.Info("Docker kept alive on your machine")
	}
	if resolveRemoval(opts.Kubectl, h.KubectlInstalled) {
		m.component("kubectl", m.removeKubectl)
	} else {
		m.printer.Info("kubectl kept alive on your machine")
	}
	if resolveRemoval(opts.VirtualBox, h.VirtualBoxInstalled) {
		m.component("VirtualBox", m.removeVirtualBox)
	} else {
		m.printer.Info("VirtualBox kept alive on your machine")
	}

	h.Status = status.Deleted
	return nil
}

func (m *TeardownManager) component(name string, remove func() error) {
	if err := remove(); err != nil {
		msg := fmt.Sprintf("%s could not be removed: %s", name, err)
		m.printer.Error(msg)
		logStructuredError(m.logger, err, msg)
		return
	}
	m.printer.Success(name + " removed")
}

func (m *TeardownManager) removeDocker() error {
	runner := m.tools.Tool(BinDockerApp)
	args := []string{"--uninstall"}
	if err := runner.Step(args, m.printer.out(), m.printer.errOut()); err != nil {
		return stepError(ErrUninstallDockerFailed, err, ErrUninstallDockerFailed.Error(), stepContext(runner, args))
	}
	return nil
}

func (m *TeardownManager) removeKubectl() error {
	// A relative home would turn ~/.kube into ./.kube.
	if !filepath.IsAbs(m.home) {
		cause := newWithSentinelAndContext(ErrGetHomeDirectoryFailed, ErrGetHomeDirectoryFailed.Error(),
			map[string]any{"home": m.home})
		return wrapWithSentinel(ErrUninstallKubectlFailed,
			cause, fmt.Sprintf("%s: %s", ErrUninstallKubectlFailed.Error(), ErrGetHomeDirectoryFailed.Error()))
	}
	var failed []string
	for _, p := range kubectlPaths {
		path := m.expandHome(p)
		if err := removeAll(path); err != nil {
			m.logger.Warn("Failed to remove path", zap.String("path", path), zap.Error(err))
			failed = append(failed, path)
		}
	}
	launchctl := m.tools.Tool(BinLaunchctl)
	for _, svc := range kubectlServices {
		args := []string{"stop", svc}
		if err := launchctl.Step(args, io.Discard, io.Discard); err != nil {
			return stepError(ErrUninstallKubectlFailed, err, ErrUninstallKubectlFailed.Error(), stepContext(launchctl, args))
		}
	}
	if len(failed) > 0 {
		return newWithSentinelAndContext(ErrUninstallKubectlFailed,
			fmt.Sprintf("%s: %s", ErrUninstallKubectlFailed.Error(), strings.Join(failed, ", ")),
			map[string]any{"paths": failed})
	}
	return nil
}

func (m *TeardownManager) removeVirtualBox() error {
	runner := m.tools.Tool(BinBrew)
	args := []string{"uninstall", "--cask", "--force", "virtualbox"}
	if err := runner.Step(args, m.printer.out(), m.printer.errOut()); err != nil {
		return stepError(ErrUninstallVirtualBoxFailed, err, ErrUninstallVirtualBoxFailed.Error(), stepContext(runner, args))
	}
	return nil
}

func (m *TeardownManager) expandHome(p string) string {
	if p == "~" {
		return m.home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(m.home, p[2:])
	}
	return p
}

// NewDeleteCmd returns the delete command.
func NewDeleteCmd(logger *zap.Logger) *cobra.Command {
	return NewDeleteCmdWithManager(DefaultTeardownManager(logger), DefaultHandleSession(logger))
}

// NewDeleteCmdWithManager returns the delete command using the provided manager.
func NewDeleteCmdWithManager(mgr *TeardownManager, session *HandleSession) *cobra.Command {
	var docker, kubectl, virtualbox bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the cluster and the tools kubigo installed",
		Long: `Stop and delete minikube, then remove Docker, kubectl and VirtualBox.
Without a flag, a tool is removed only if it was not on this machine before
kubigo first ran. Pass --docker=false to keep Docker, --kubectl to force
removing kubectl, and so on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := DeleteOptions{
				Docker:     changedBool(cmd, "docker", docker),
				Kubectl:    changedBool(cmd, "kubectl", kubectl),
				VirtualBox: changedBool(cmd, "virtualbox", virtualbox),
			}
			return session.Run(func(h *ClusterHandle) error {
				return mgr.Delete(h, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&docker, "docker", false, "Remove Docker")
	cmd.Flags().BoolVar(&kubectl, "kubectl", false, "Remove kubectl, minikube binaries and their files")
	cmd.Flags().BoolVar(&virtualbox, "virtualbox", false, "Remove VirtualBox")
	return cmd
}

// changedBool returns &value when the flag was given, nil otherwise.
func changedBool(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
