package cli

// This file defines the ToolRunner interface the lifecycle managers depend on.
// *ToolClient implements it; tests may substitute their own.

import "io"

// ToolRunner captures the methods managers use to drive one external binary.
type ToolRunner interface {
	Bin() string
	CommandArgs(args []string) (Command, error)
	Output(args []string) ([]byte, error)
	Run(args []string) error
	RunWithOutput(args []string, stdout, stderr io.Writer) error
	Exists(args []string) (bool, error)
	Step(args []string, stdout, stderr io.Writer) error
	StepWithEnv(args, env []string, stdout, stderr io.Writer) error
	StepInDir(dir string, args, env []string, stdout, stderr io.Writer) error
}

var _ ToolRunner = (*ToolClient)(nil)
