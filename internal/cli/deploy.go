package cli

// This file implements the "deploy" command: package a Python API script
// into an image built inside minikube, run it as a pod and expose it.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kubigo/internal/kube"
	"kubigo/pkg/dockerfile"
)

// routePlaceholder is appended to the service URL as a hint for the API route.
const routePlaceholder = "/<your_route>"

var deploymentNameReplacer = strings.NewReplacer("_", "-", "/", "-")

// DeployOptions are the deploy command inputs.
type DeployOptions struct {
	Script       string
	Requirements string
	Port         string
	Name         string
}

// DeployManager runs the deploy sequence.
type DeployManager struct {
	tools   *Toolbox
	readers ClusterReaderFactory
	cfg     CLIConfig
	printer *Printer
	logger  *zap.Logger
}

// NewDeployManager creates a DeployManager. readers may be nil to skip the
// pod phase read.
func NewDeployManager(tools *Toolbox, readers ClusterReaderFactory, cfg CLIConfig, printer *Printer, logger *zap.Logger) *DeployManager {
	return &DeployManager{tools: tools, readers: readers, cfg: cfg, printer: printer, logger: logger}
}

// DefaultDeployManager returns a DeployManager using default clients.
func DefaultDeployManager(logger *zap.Logger) *DeployManager {
	return NewDeployManager(DefaultToolbox(logger), newKubeReader, DefaultCLIConfig, DefaultPrinter, logger)
}

// DeploymentName applies the naming rule: empty means fallback, and
// underscores and slashes become dashes.
func DeploymentName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return deploymentNameReplacer.Replace(name)
}

// Deploy builds the image and replaces the pod and service named after the
// deployment. The cluster status is not changed.
func (m *DeployManager) Deploy(ctx context.Context, h *ClusterHandle, opts DeployOptions) error {
	name := DeploymentName(opts.Name, m.cfg.DeploymentName)
	m.printer.Section("Deploying " + name)

	port, err := m.validateInputs(h.WorkDir, opts)
	if err != nil {
		return err
	}

	path, err := m.writeDockerfile(h, opts, port)
	if err != nil {
		return reportError(m.printer, m.logger, err, ErrDockerfileFailed.Error())
	}
	h.DockerfilePath = path
	m.printer.Success("Successfully built Dockerfile")

	if err := m.buildImage(h.WorkDir); err != nil {
		return reportError(m.printer, m.logger, err, ErrBuildImageFailed.Error())
	}
	m.printer.Success("Successfully built Docker image")

	kubectl := m.tools.Tool(BinKubectl)
	if err := m.replaceObject(kubectl, "pod", name); err != nil {
		return reportError(m.printer, m.logger, err, ErrRemoveExistingFailed.Error())
	}
	runArgs := []string{"run", name, "--image=" + m.cfg.Image, "--image-pull-policy=Never"}
	if err := kubectl.Step(runArgs, m.printer.out(), m.printer.errOut()); err != nil {
		wrappedErr := stepError(ErrCreateDeploymentFailed, err, ErrCreateDeploymentFailed.Error(), stepContext(kubectl, runArgs))
		return reportError(m.printer, m.logger, wrappedErr, ErrCreateDeploymentFailed.Error())
	}
	m.printer.Success("Successfully created deployment " + name)

	if err := m.replaceObject(kubectl, "service", name); err != nil {
		return reportError(m.printer, m.logger, err, ErrRemoveExistingFailed.Error())
	}
	exposeArgs := []string{"expose", "pod", name, "--port=" + strconv.Itoa(port), "--type=NodePort"}
	if err := kubectl.Step(exposeArgs, m.printer.out(), m.printer.errOut()); err != nil {
		wrappedErr := stepError(ErrExposeServiceFailed, err, ErrExposeServiceFailed.Error(), stepContext(kubectl, exposeArgs))
		return reportError(m.printer, m.logger, wrappedErr, ErrExposeServiceFailed.Error())
	}
	m.printer.Success("Successfully exposed service " + name)

	url, err := m.serviceURL(name)
	if err != nil {
		return reportError(m.printer, m.logger, err, ErrServiceURLFailed.Error())
	}
	h.ServiceURL = url
	m.printer.Success("Your deployment is ready and you can access the API via: " + url)

	m.reportPodPhase(ctx, name)
	return nil
}

// validateInputs checks both files are readable, printing their first
// lines, and parses the port.
func (m *DeployManager) validateInputs(workDir string, opts DeployOptions) (int, error) {
	inputs := []struct {
		label    string
		path     string
		sentinel error
	}{
		{label: "script", path: opts.Script, sentinel: ErrScriptNotFound},
		{label: "requirements", path: opts.Requirements, sentinel: ErrRequirementsNotFound},
	}
	for _, in := range inputs {
		line, err := firstLine(resolvePath(workDir, in.path))
		if err != nil {
			wrappedErr := wrapWithSentinelAndContext(in.sentinel, err, in.sentinel.Error(), map[string]any{"path": in.path})
			return 0, reportError(m.printer, m.logger, wrappedErr, in.sentinel.Error())
		}
		m.printer.Info(fmt.Sprintf("First line of the %s file: %s", in.label, preview(line)))
	}

	port, err := strconv.Atoi(strings.TrimSpace(opts.Port))
	if err != nil || port < 1 || port > 65535 {
		wrappedErr := wrapWithSentinelAndContext(ErrInvalidPort, err, ErrInvalidPort.Error(), map[string]any{"port": opts.Port})
		return 0, reportError(m.printer, m.logger, wrappedErr, ErrInvalidPort.Error())
	}
	return port, nil
}

func (m *DeployManager) writeDockerfile(h *ClusterHandle, opts DeployOptions, port int) (string, error) {
	script, err := dockerfile.ContextPath(h.WorkDir, opts.Script)
	if err != nil {
		return "", wrapWithSentinelAndContext(ErrDockerfileFailed, err, ErrDockerfileFailed.Error(), map[string]any{"path": opts.Script})
	}
	requirements, err := dockerfile.ContextPath(h.WorkDir, opts.Requirements)
	if err != nil {
		return "", wrapWithSentinelAndContext(ErrDockerfileFailed, err, ErrDockerfileFailed.Error(), map[string]any{"path": opts.Requirements})
	}
	python := h.PythonVersion
	if python == "" {
		python = m.cfg.PythonVersion
	}
	path, err := dockerfile.Write(h.WorkDir, dockerfile.Spec{
		PythonVersion: python,
		Script:        script,
		Requirements:  requirements,
		Port:          port,
	})
	if err != nil {
		return "", wrapWithSentinelAndContext(ErrDockerfileFailed, err, ErrDockerfileFailed.Error(), map[string]any{"dir": h.WorkDir})
	}
	m.logger.Debug("Wrote Dockerfile", zap.String("path", path))
	return path, nil
}

// replaceObject deletes kind/name when kubectl get finds it.
func (m *DeployManager) replaceObject(kubectl ToolRunner, kind, name string) error {
	getArgs := []string{"get", kind, name}
	exists, err := kubectl.Exists(getArgs)
	if err != nil {
		return stepError(ErrRemoveExistingFailed, err, ErrRemoveExistingFailed.Error(), stepContext(kubectl, getArgs))
	}
	if !exists {
		return nil
	}
	m.printer.Info(fmt.Sprintf("Removing existing %s %s", kind, name))
	deleteArgs := []string{"delete", kind, name}
	if err := kubectl.Step(deleteArgs, m.printer.out(), m.printer.errOut()); err != nil {
		return stepError(ErrRemoveExistingFailed, err, ErrRemoveExistingFailed.Error(), stepContext(kubectl, deleteArgs))
	}
	return nil
}

// serviceURL asks minikube for the NodePort URL of the service.
func (m *DeployManager) serviceURL(name string) (string, error) {
	minikube := m.tools.Tool(BinMinikube)
	args := []string{"service", name, "--url"}
	out, err := minikube.Output(args)
	if err != nil {
		return "", stepError(ErrServiceURLFailed, err, ErrServiceURLFailed.Error(), stepContext(minikube, args))
	}
	url := pickURL(string(out))
	if url == "" {
		return "", newWithSentinelAndContext(ErrServiceURLFailed, "minikube returned no service url", stepContext(minikube, args))
	}
	return url + routePlaceholder, nil
}

// pickURL returns the first http line of out, or the trimmed output.
func pickURL(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line
		}
	}
	return strings.TrimSpace(out)
}

// reportPodPhase prints the pod phase once. Failures only reach the debug log.
func (m *DeployManager) reportPodPhase(ctx context.Context, name string) {
	if m.readers == nil {
		return
	}
	reader, err := m.readers.open(m.cfg)
	if err != nil {
		m.logger.Debug("Cluster API not available", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.KubeTimeout)
	defer cancel()
	phase, err := reader.PodPhase(ctx, kube.DefaultNamespace, name)
	if err != nil {
		m.logger.Debug("Failed to read pod phase", zap.String("pod", name), zap.Error(err))
		return
	}
	m.printer.Info(fmt.Sprintf("Pod %s is %s", name, phase))
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func firstLine(path string) (string, error) {
	// #nosec G304 -- the user names the file to deploy.
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	// No line length limit: minified or generated scripts can be long.
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// previewLength caps how much of a first line is printed.
const previewLength = 120

func preview(line string) string {
	if len(line) <= previewLength {
		return line
	}
	return line[:previewLength] + "..."
}

// NewDeployCmd returns the deploy command.
func NewDeployCmd(logger *zap.Logger) *cobra.Command {
	return NewDeployCmdWithManager(DefaultDeployManager(logger), DefaultHandleSession(logger))
}

// NewDeployCmdWithManager returns the deploy command using the provided manager.
func NewDeployCmdWithManager(mgr *DeployManager, session *HandleSession) *cobra.Command {
	var opts DeployOptions
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a Python API script to the cluster",
		Long: `Build a Docker image from a Python script and its requirements file
inside minikube, run it as a pod and expose it as a NodePort service.
Files must live under the current directory, which is the build context.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Run(func(h *ClusterHandle) error {
				return mgr.Deploy(cmd.Context(), h, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Script, "script", "", "Path to the Python API script")
	cmd.Flags().StringVar(&opts.Requirements, "requirements", "", "Path to the pip requirements file")
	cmd.Flags().StringVar(&opts.Port, "port", "", "Port the API listens on, such as 8000")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Deployment name (default from config, kubigo-deployment)")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("requirements")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}
