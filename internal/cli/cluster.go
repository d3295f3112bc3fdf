package cli

// This file implements the cluster lifecycle commands: start, stop,
// status, dashboard and reset.

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"

	"kubigo/internal/kube"
	"kubigo/pkg/errx"
	"kubigo/pkg/status"
)

// ClusterReader reads cluster objects through the Kubernetes API.
type ClusterReader interface {
	Nodes(ctx context.Context) ([]kube.NodeSummary, error)
	PodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error)
}

// ClusterReaderFactory connects to the cluster behind kubeContext.
type ClusterReaderFactory func(kubeContext string, timeout time.Duration) (ClusterReader, error)

// open connects with the configured context. Failures match ErrKubeClientFailed.
func (f ClusterReaderFactory) open(cfg CLIConfig) (ClusterReader, error) {
	reader, err := f(cfg.KubeContext, cfg.KubeTimeout)
	if err != nil {
		return nil, wrapWithSentinelAndContext(ErrKubeClientFailed, err, ErrKubeClientFailed.Error(),
			map[string]any{"kube_context": cfg.KubeContext})
	}
	return reader, nil
}

func newKubeReader(kubeContext string, timeout time.Duration) (ClusterReader, error) {
	c, err := kube.NewClient(kubeContext, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// StartOptions configures minikube start.
type StartOptions struct {
	CPUs          string
	Memory        string
	Trace         bool
	SkipPreflight bool
}

// ClusterManager drives minikube through the cluster lifecycle.
type ClusterManager struct {
	tools     *Toolbox
	preflight *Preflight
	readers   ClusterReaderFactory
	cfg       CLIConfig
	printer   *Printer
	logger    *zap.Logger
}

// NewClusterManager creates a ClusterManager. readers may be nil to skip
// reads through the Kubernetes API.
func NewClusterManager(tools *Toolbox, preflight *Preflight, readers ClusterReaderFactory, cfg CLIConfig, printer *Printer, logger *zap.Logger) *ClusterManager {
	return &ClusterManager{
		tools:     tools,
		preflight: preflight,
		readers:   readers,
		cfg:       cfg,
		printer:   printer,
		logger:    logger,
	}
}

// DefaultClusterManager returns a ClusterManager using default clients.
func DefaultClusterManager(logger *zap.Logger) *ClusterManager {
	return NewClusterManager(DefaultToolbox(logger), NewPreflight(nil), newKubeReader, DefaultCLIConfig, DefaultPrinter, logger)
}

// Start runs minikube start. Success sets running, failure sets crashed.
// A rejected preflight leaves the status unchanged.
func (m *ClusterManager) Start(ctx context.Context, h *ClusterHandle, opts StartOptions) error {
	cpus := lo.Ternary(opts.CPUs != "", opts.CPUs, fmt.Sprint(m.cfg.CPUs))
	memory := lo.Ternary(opts.Memory != "", opts.Memory, m.cfg.Memory)

	if !opts.SkipPreflight && m.preflight != nil {
		if err := m.preflight.Check(ctx, cpus, memory); err != nil {
			return reportError(m.printer, m.logger, err, errx.UserString(err))
		}
	}

	runner := m.tools.Tool(BinMinikube)
	args := []string{"start", "--driver=" + m.cfg.Driver, "--cpus=" + cpus, "--memory=" + memory}
	m.logger.Debug("Starting minikube", zap.Strings("args", args))

	stdout, stderr := io.Discard, io.Discard
	done := func(bool, string) {}
	if opts.Trace {
		stdout, stderr = m.printer.out(), m.printer.errOut()
	} else {
		done = m.printer.SpinnerStart("Starting minikube cluster")
	}

	if err := runner.Step(args, stdout, stderr); err != nil {
		h.Status = status.Crashed
		done(false, ErrStartFailed.Error())
		wrappedErr := stepError(ErrStartFailed, err, ErrStartFailed.Error(), stepContext(runner, args))
		logStructuredError(m.logger, wrappedErr, ErrStartFailed.Error())
		return wrappedErr
	}
	h.Status = status.Running
	done(true, "Minikube cluster is running")
	return nil
}

// Stop runs minikube stop. Success sets stopped, failure sets not responding.
func (m *ClusterManager) Stop(h *ClusterHandle) error {
	runner := m.tools.Tool(BinMinikube)
	args := []string{"stop"}
	done := m.printer.SpinnerStart("Stopping minikube cluster")
	if err := runner.Step(args, io.Discard, io.Discard); err != nil {
		h.Status = status.NotResponding
		done(false, ErrStopFailed.Error())
		wrappedErr := stepError(ErrStopFailed, err, ErrStopFailed.Error(), stepContext(runner, args))
		logStructuredError(m.logger, wrappedErr, ErrStopFailed.Error())
		return wrappedErr
	}
	h.Status = status.Stopped
	done(true, "Minikube cluster stopped")
	return nil
}

// Status passes minikube status through and reports the handle. It never
// changes the status and never fails because the cluster is down.
func (m *ClusterManager) Status(ctx context.Context, h *ClusterHandle, format string) error {
	if !lo.Contains(outputFormats, format) {
		err := newWithSentinelAndContext(ErrInvalidOutputFormat, ErrInvalidOutputFormat.Error(), map[string]any{"output": format})
		return reportError(m.printer, m.logger, err, ErrInvalidOutputFormat.Error())
	}

	runner := m.tools.Tool(BinMinikube)
	var captured bytes.Buffer
	stdout := m.printer.out()
	if format != OutputTable {
		stdout = &captured
	}

	reachable := true
	if err := runner.RunWithOutput([]string{"status"}, stdout, m.printer.errOut()); err != nil {
		reachable = false
		if _, exited := exitCode(err); !exited {
			if format == OutputTable {
				m.printer.Warn(ErrStatusUnavailable.Error())
			} else {
				m.printer.WarnErr(ErrStatusUnavailable.Error())
			}
			logStructuredError(m.logger, stepError(ErrStatusUnavailable, err, ErrStatusUnavailable.Error(), nil), ErrStatusUnavailable.Error())
		}
	}

	report := StatusReport{Cluster: h, Minikube: strings.TrimSpace(captured.String())}
	if reachable {
		report.Nodes = m.readNodes(ctx)
	}
	return m.printer.RenderReport(format, report)
}

func (m *ClusterManager) readNodes(ctx context.Context) []kube.NodeSummary {
	if m.readers == nil {
		return nil
	}
	reader, err := m.readers.open(m.cfg)
	if err != nil {
		m.logger.Debug("Cluster API not available", zap.Error(err))
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.KubeTimeout)
	defer cancel()
	nodes, err := reader.Nodes(ctx)
	if err != nil {
		m.logger.Debug("Failed to list nodes", zap.Error(err))
		return nil
	}
	return nodes
}

// Dashboard runs minikube dashboard, which blocks until interrupted.
func (m *ClusterManager) Dashboard(h *ClusterHandle) error {
	runner := m.tools.Tool(BinMinikube)
	args := []string{"dashboard"}
	m.printer.Info("Opening the Kubernetes dashboard, press Ctrl+C to stop")
	if err := runner.Step(args, m.printer.out(), m.printer.errOut()); err != nil {
		wrappedErr := stepError(ErrDashboardFailed, err, ErrDashboardFailed.Error(), stepContext(runner, args))
		return reportError(m.printer, m.logger, wrappedErr, ErrDashboardFailed.Error())
	}
	return nil
}

// NewStartCmd returns the start command.
func NewStartCmd(logger *zap.Logger) *cobra.Command {
	return NewStartCmdWithManager(DefaultClusterManager(logger), DefaultHandleSession(logger))
}

// NewStartCmdWithManager returns the start command using the provided manager.
func NewStartCmdWithManager(mgr *ClusterManager, session *HandleSession) *cobra.Command {
	var opts StartOptions
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the minikube cluster",
		Long: `Start minikube on VirtualBox with the requested CPUs and memory.
The request is checked against the CPUs and memory of this machine first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(func(h *ClusterHandle) error {
				return mgr.Start(cmd.Context(), h, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CPUs, "cpus", "", "Number of CPUs for the cluster (default from config, 2)")
	cmd.Flags().StringVar(&opts.Memory, "memory", "", "Memory for the cluster such as 2G or 2048mb (default from config, 2G)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Show minikube output")
	cmd.Flags().BoolVar(&opts.SkipPreflight, "skip-preflight", false, "Do not check host CPUs and memory")
	return cmd
}

// NewStopCmd returns the stop command.
func NewStopCmd(logger *zap.Logger) *cobra.Command {
	return NewStopCmdWithManager(DefaultClusterManager(logger), DefaultHandleSession(logger))
}

// NewStopCmdWithManager returns the stop command using the provided manager.
func NewStopCmdWithManager(mgr *ClusterManager, session *HandleSession) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the minikube cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(mgr.Stop)
		},
	}
}

// NewStatusCmd returns the status command.
func NewStatusCmd(logger *zap.Logger) *cobra.Command {
	return NewStatusCmdWithManager(DefaultClusterManager(logger), DefaultHandleSession(logger))
}

// NewStatusCmdWithManager returns the status command using the provided manager.
func NewStatusCmdWithManager(mgr *ClusterManager, session *HandleSession) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show minikube status and the recorded cluster state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(func(h *ClusterHandle) error {
				return mgr.Status(cmd.Context(), h, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format: table, yaml or json")
	return cmd
}

// NewDashboardCmd returns the dashboard command.
func NewDashboardCmd(logger *zap.Logger) *cobra.Command {
	return NewDashboardCmdWithManager(DefaultClusterManager(logger), DefaultHandleSession(logger))
}

// NewDashboardCmdWithManager returns the dashboard command using the provided manager.
func NewDashboardCmdWithManager(mgr *ClusterManager, session *HandleSession) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the Kubernetes dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(mgr.Dashboard)
		},
	}
}

// NewResetCmd returns the reset command.
func NewResetCmd(logger *zap.Logger) *cobra.Command {
	return NewResetCmdWithSession(DefaultHandleSession(logger), DefaultPrinter)
}

// NewResetCmdWithSession returns the reset command using the provided session.
func NewResetCmdWithSession(session *HandleSession, printer *Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the recorded cluster state",
		Long: `Remove the saved cluster state. The next command detects the
installed tools again and starts from the initialized status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.Reset(); err != nil {
				return reportError(printer, session.logger, err, "Failed to reset cluster state")
			}
			printer.Success("Cluster state reset")
			return nil
		},
	}
}
