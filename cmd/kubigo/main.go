package main

import (
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"kubigo/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	debug   = false
)

// logLevel is raised to debug once flags are parsed.
var logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)

func main() {
	logger, err := newConsoleLogger(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// client-go and controller-runtime log through the same sink.
	ctrllog.SetLogger(zapr.NewLogger(logger))
	cli.ReportConfigError(logger)

	initCommands(logger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kubigo",
	Short: "Local Kubernetes cluster manager for macOS",
	Long: `kubigo manages a local minikube cluster on VirtualBox:
- install Docker, VirtualBox, kubectl and minikube
- start, stop and delete the cluster
- deploy a Python API script as a pod behind a NodePort service`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set debug mode globally so logStructuredError can check it
		cli.SetDebugMode(debug)
		if debug {
			logLevel.SetLevel(zap.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode with structured error logging")
}

func initCommands(logger *zap.Logger) {
	rootCmd.AddCommand(cli.NewInstallCmd(logger))
	rootCmd.AddCommand(cli.NewStartCmd(logger))
	rootCmd.AddCommand(cli.NewStatusCmd(logger))
	rootCmd.AddCommand(cli.NewDeployCmd(logger))
	rootCmd.AddCommand(cli.NewStopCmd(logger))
	rootCmd.AddCommand(cli.NewDeleteCmd(logger))
	rootCmd.AddCommand(cli.NewDashboardCmd(logger))
	rootCmd.AddCommand(cli.NewGetCmd(logger))
	rootCmd.AddCommand(cli.NewRemoveCmd(logger))
	rootCmd.AddCommand(cli.NewResetCmd(logger))
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kubigo version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(rootCmd.Version)
		},
	}
}

// newConsoleLogger returns a human-friendly console logger on stderr.
// Warnings show by default; --debug lowers level to Debug.
func newConsoleLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = level
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
