package cli

// This file defines error handling utilities for the CLI, including:
//   - Sentinel errors per domain (cluster, install, deploy, teardown, ...)
//   - Error wrapping functions that integrate with the errx error system
//   - Structured error logging with context
//   - Debug mode management for error output

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"kubigo/pkg/errx"
)

var (
	debugMode   bool
	debugModeMu sync.RWMutex
)

// SetDebugMode sets the global debug mode flag.
// When enabled, logStructuredError will output structured error logs to terminal.
func SetDebugMode(enabled bool) {
	debugModeMu.Lock()
	defer debugModeMu.Unlock()
	debugMode = enabled
}

// IsDebugMode returns whether debug mode is enabled.
func IsDebugMode() bool {
	debugModeMu.RLock()
	defer debugModeMu.RUnlock()
	return debugMode
}

type errorSpec struct {
	code        string
	description string
}

// newSentinelError creates a sentinel error and registers it in errorSpecs in one step.
func newSentinelError(msg string, code, description string) error {
	err := errors.New(msg)
	errorSpecs[err] = errorSpec{code: code, description: description}
	return err
}

// errorSpecs maps sentinel errors to their error codes and descriptions.
// Must be declared before sentinel errors to ensure proper initialization order.
var errorSpecs = make(map[error]errorSpec)

// lookupSpec provides a lookup function for errx.FromSentinel.
func lookupSpec(sentinel error) (code, description string) {
	spec := specFor(sentinel)
	return spec.code, spec.description
}

// newWithSentinel creates a new error categorized by the sentinel's code.
func newWithSentinel(base error, msg string) error {
	if base == nil {
		return errx.CreateByCode(errx.CodeCLI, errx.DescCLI, msg, nil)
	}
	return errx.FromSentinel(base, lookupSpec, msg, nil)
}

// wrapWithSentinel wraps a cause error categorized by the sentinel's code.
func wrapWithSentinel(base, cause error, msg string) error {
	if base == nil {
		return errx.CreateByCode(errx.CodeCLI, errx.DescCLI, msg, cause)
	}
	return errx.FromSentinel(base, lookupSpec, msg, cause)
}

// wrapWithSentinelAndContext wraps an error with additional structured context
// such as the binary, arguments or file involved.
func wrapWithSentinelAndContext(base, cause error, msg string, context map[string]any) error {
	err := wrapWithSentinel(base, cause, msg)
	if errxErr, ok := err.(*errx.Error); ok && len(context) > 0 {
		return errxErr.WithContextMap(context)
	}
	return err
}

// newWithSentinelAndContext is newWithSentinel with structured context.
func newWithSentinelAndContext(base error, msg string, context map[string]any) error {
	return wrapWithSentinelAndContext(base, nil, msg, context)
}

// stepError wraps a failed lifecycle step. When the cause is a missing
// binary the result also matches ErrToolMissing.
func stepError(base, cause error, msg string, context map[string]any) error {
	if isToolMissing(cause) {
		cause = wrapWithSentinel(ErrToolMissing, cause, ErrToolMissing.Error())
	}
	return wrapWithSentinelAndContext(base, cause, msg, context)
}

// Sentinel errors for CLI operations.
var (
	// CLI errors.
	ErrGetWorkingDirectoryFailed = newSentinelError("get working directory", errx.CodeCLI, errx.DescCLI)
	ErrGetHomeDirectoryFailed    = newSentinelError("failed to get home directory", errx.CodeCLI, errx.DescCLI)
	ErrInvalidOutputFormat       = newSentinelError("output should be one of table, yaml, json", errx.CodeCLI, errx.DescCLI)
	ErrUnknownObjectKind         = newSentinelError("kind should be one of deployments, services, pods", errx.CodeCLI, errx.DescCLI)
	ErrNothingToRemove           = newSentinelError("nothing to remove, pass --pod, --service or --deployment", errx.CodeCLI, errx.DescCLI)

	// Step errors shared by every verb.
	ErrToolMissing = newSentinelError("required tool is not installed", errx.CodeCLI, errx.DescCLI)

	// Cluster errors.
	ErrStartFailed        = newSentinelError("starting minikube failed", errx.CodeCluster, errx.DescCluster)
	ErrStopFailed         = newSentinelError("could not stop minikube", errx.CodeCluster, errx.DescCluster)
	ErrDeleteFailed       = newSentinelError("could not delete minikube entirely", errx.CodeCluster, errx.DescCluster)
	ErrStatusUnavailable  = newSentinelError("Minikube cluster is not responding", errx.CodeCluster, errx.DescCluster)
	ErrDashboardFailed    = newSentinelError("minikube dashboard failed", errx.CodeCluster, errx.DescCluster)
	ErrGetObjectsFailed   = newSentinelError("could not get the list of objects", errx.CodeCluster, errx.DescCluster)
	ErrDeleteObjectFailed = newSentinelError("could not delete your object", errx.CodeCluster, errx.DescCluster)
	ErrKubeClientFailed   = newSentinelError("could not reach the cluster API", errx.CodeCluster, errx.DescCluster)

	// Install errors.
	ErrInstallDockerFailed     = newSentinelError("could not install Docker", errx.CodeInstall, errx.DescInstall)
	ErrInstallVirtualBoxFailed = newSentinelError("could not install VirtualBox", errx.CodeInstall, errx.DescInstall)
	ErrInstallKubectlFailed    = newSentinelError("could not install kubectl, check if you have Homebrew installed", errx.CodeInstall, errx.DescInstall)
	ErrInstallMinikubeFailed   = newSentinelError("could not install minikube", errx.CodeInstall, errx.DescInstall)

	// Deploy errors.
	ErrScriptNotFound         = newSentinelError("could not find the script file", errx.CodeDeploy, errx.DescDeploy)
	ErrRequirementsNotFound   = newSentinelError("could not find the requirements file", errx.CodeDeploy, errx.DescDeploy)
	ErrInvalidPort            = newSentinelError("port should be a number such as 8000", errx.CodeDeploy, errx.DescDeploy)
	ErrDockerfileFailed       = newSentinelError("could not build a Dockerfile", errx.CodeDeploy, errx.DescDeploy)
	ErrDockerEnvFailed        = newSentinelError("could not read the minikube docker environment", errx.CodeDeploy, errx.DescDeploy)
	ErrBuildImageFailed       = newSentinelError("could not build a Docker image", errx.CodeDeploy, errx.DescDeploy)
	ErrRemoveExistingFailed   = newSentinelError("could not remove the existing deployment", errx.CodeDeploy, errx.DescDeploy)
	ErrCreateDeploymentFailed = newSentinelError("could not create a deployment", errx.CodeDeploy, errx.DescDeploy)
	ErrExposeServiceFailed    = newSentinelError("could not expose the service", errx.CodeDeploy, errx.DescDeploy)
	ErrServiceURLFailed       = newSentinelError("could not get the url of the service", errx.CodeDeploy, errx.DescDeploy)

	// Teardown errors.
	ErrUninstallDockerFailed     = newSentinelError("could not uninstall Docker", errx.CodeTeardown, errx.DescTeardown)
	ErrUninstallKubectlFailed    = newSentinelError("could not remove kubectl and its files", errx.CodeTeardown, errx.DescTeardown)
	ErrUninstallVirtualBoxFailed = newSentinelError("could not uninstall VirtualBox", errx.CodeTeardown, errx.DescTeardown)

	// Config errors.
	ErrReadConfigFailed = newSentinelError("failed to read config", errx.CodeConfig, errx.DescConfig)

	// State errors.
	ErrReadStateFailed  = newSentinelError("failed to read cluster state", errx.CodeState, errx.DescState)
	ErrWriteStateFailed = newSentinelError("failed to save cluster state", errx.CodeState, errx.DescState)
	ErrResetStateFailed = newSentinelError("failed to reset cluster state", errx.CodeState, errx.DescState)

	// Preflight errors.
	ErrInvalidCPUs        = newSentinelError("cpus should be a positive number", errx.CodePreflight, errx.DescPreflight)
	ErrInvalidMemory      = newSentinelError("memory should look like 2G or 2048mb", errx.CodePreflight, errx.DescPreflight)
	ErrInsufficientCPUs   = newSentinelError("not enough CPUs on this machine", errx.CodePreflight, errx.DescPreflight)
	ErrInsufficientMemory = newSentinelError("not enough memory on this machine", errx.CodePreflight, errx.DescPreflight)
	ErrHostInspectFailed  = newSentinelError("could not inspect host resources", errx.CodePreflight, errx.DescPreflight)
)

func specFor(base error) errorSpec {
	spec, ok := errorSpecs[base]
	if ok {
		return spec
	}
	return errorSpec{code: errx.CodeCLI, description: errx.DescCLI}
}

// logStructuredError logs an error with structured fields to terminal.
// Only logs when debug mode is enabled (via --debug flag).
//
// Fields extracted from errx.Error:
// - error.code: "71000"
// - error.category: "Cluster lifecycle error"
// - error.context.bin: "minikube"
// - error.context.args: "start --driver=virtualbox ..."
// - error.chain: one line per wrapped error, when there is a cause
func logStructuredError(logger *zap.Logger, err error, msg string) {
	if logger == nil || err == nil || !IsDebugMode() {
		return
	}

	var errxErr *errx.Error
	if errors.As(err, &errxErr) {
		fields := []zap.Field{
			zap.String("error.code", errxErr.Code()),
			zap.String("error.category", errxErr.Description()),
			zap.String("error.message", errxErr.Message()),
			zap.Error(err),
		}

		if ctx := errxErr.Context(); ctx != nil {
			for key, value := range ctx {
				fields = append(fields, zap.Any("error.context."+key, value))
			}
		}

		// Distinct field name to avoid a duplicate "error" field
		if cause := errxErr.Cause(); cause != nil {
			fields = append(fields, zap.NamedError("error.cause", cause))
			fields = append(fields, zap.String("error.chain", errx.DebugString(err)))
		}

		logger.Error(msg, fields...)
	} else {
		logger.Error(msg, zap.Error(err))
	}
}
