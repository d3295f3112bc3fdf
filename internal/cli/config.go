package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"kubigo/pkg/errx"
)

const (
	defaultDriver         = "virtualbox"
	defaultCPUs           = 2
	defaultMemory         = "2G"
	defaultImage          = "kubigo-image:latest"
	defaultDeploymentName = "kubigo-deployment"
	defaultPythonVersion  = "3.11"
	defaultKubeContext    = "minikube"
	defaultKubeTimeout    = 10 * time.Second

	configFileName = "config.yaml"
	stateDirName   = ".kubigo"
	envPrefix      = "KUBIGO"
	envHome        = "KUBIGO_HOME"
)

// CLIConfig holds settings read from <state dir>/config.yaml and KUBIGO_*
// environment variables. Environment values win over the file.
type CLIConfig struct {
	StateDir       string
	Driver         string
	CPUs           int
	Memory         string
	Image          string
	DeploymentName string
	PythonVersion  string
	Strict         bool
	KubeContext    string
	KubeTimeout    time.Duration
}

// DefaultCLIConfig is loaded once at startup. configLoadErr is set when the
// config file exists but could not be read; ReportConfigError logs it.
var DefaultCLIConfig, configLoadErr = loadCLIConfig()

// ReportConfigError warns when the config file was ignored at startup.
func ReportConfigError(logger *zap.Logger) {
	reportConfigError(logger, configLoadErr)
}

func reportConfigError(logger *zap.Logger, err error) {
	if logger == nil || err == nil {
		return
	}
	fields := []zap.Field{zap.Error(err)}
	var errxErr *errx.Error
	if errors.As(err, &errxErr) {
		if path, ok := errxErr.Context()["path"].(string); ok {
			fields = append(fields, zap.String("path", path))
		}
	}
	logger.Warn("Config file ignored, using defaults and environment", fields...)
}

// StateDir returns KUBIGO_HOME or ~/.kubigo.
func StateDir() string {
	if dir := strings.TrimSpace(os.Getenv(envHome)); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return stateDirName
	}
	return filepath.Join(home, stateDirName)
}

// loadCLIConfig reads configuration, falling back to defaults for missing
// or invalid values. A missing config file is not an error; one that exists
// but cannot be read or parsed is skipped and returned as ErrReadConfigFailed.
func loadCLIConfig() (CLIConfig, error) {
	dir := StateDir()
	v := newConfigViper(dir)
	var readErr error
	if err := v.ReadInConfig(); err != nil && !isConfigMissing(err) {
		path := filepath.Join(dir, configFileName)
		readErr = wrapWithSentinelAndContext(ErrReadConfigFailed, err, ErrReadConfigFailed.Error()+": "+path,
			map[string]any{"path": path})
	}

	return CLIConfig{
		StateDir:       dir,
		Driver:         stringOr(v.GetString("driver"), defaultDriver),
		CPUs:           positiveIntOr(v.GetString("cpus"), defaultCPUs),
		Memory:         stringOr(v.GetString("memory"), defaultMemory),
		Image:          stringOr(v.GetString("image"), defaultImage),
		DeploymentName: stringOr(v.GetString("deployment_name"), defaultDeploymentName),
		PythonVersion:  stringOr(v.GetString("python_version"), defaultPythonVersion),
		Strict:         boolOr(v.GetString("strict"), false),
		KubeContext:    stringOr(v.GetString("kube_context"), defaultKubeContext),
		KubeTimeout:    durationOr(v.GetString("kube_timeout"), defaultKubeTimeout),
	}, readErr
}

func isConfigMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

func newConfigViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, configFileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for _, key := range []string{
		"driver", "cpus", "memory", "image", "deployment_name",
		"python_version", "strict", "kube_context", "kube_timeout",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

func stringOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func positiveIntOr(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolOr(value string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
