package cli

// This file implements "get" and "remove" for the objects deploy creates.

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var objectKinds = []string{"deployments", "services", "pods"}

// RemoveOptions names objects to delete. Empty names are skipped.
type RemoveOptions struct {
	Pod        string
	Service    string
	Deployment string
}

// ObjectManager lists and deletes cluster objects through kubectl.
type ObjectManager struct {
	tools   *Toolbox
	printer *Printer
	logger  *zap.Logger
}

func NewObjectManager(tools *Toolbox, printer *Printer, logger *zap.Logger) *ObjectManager {
	return &ObjectManager{tools: tools, printer: printer, logger: logger}
}

// DefaultObjectManager returns an ObjectManager using default clients.
func DefaultObjectManager(logger *zap.Logger) *ObjectManager {
	return NewObjectManager(DefaultToolbox(logger), DefaultPrinter, logger)
}

// Get passes kubectl get <kind> through.
func (m *ObjectManager) Get(kind string) error {
	if !lo.Contains(objectKinds, kind) {
		err := newWithSentinelAndContext(ErrUnknownObjectKind, ErrUnknownObjectKind.Error(), map[string]any{"kind": kind})
		return reportError(m.printer, m.logger, err, ErrUnknownObjectKind.Error())
	}
	kubectl := m.tools.Tool(BinKubectl)
	args := []string{"get", kind}
	if err := kubectl.Step(args, m.printer.out(), m.printer.errOut()); err != nil {
		msg := "could not get the list of " + kind
		wrappedErr := stepError(ErrGetObjectsFailed, err, msg, stepContext(kubectl, args))
		return reportError(m.printer, m.logger, wrappedErr, msg)
	}
	return nil
}

// Remove deletes the named pod, service and deployment in that order and
// stops at the first failure.
func (m *ObjectManager) Remove(opts RemoveOptions) error {
	targets := lo.Filter([][2]string{
		{"pod", opts.Pod},
		{"service", opts.Service},
		{"deployment", opts.Deployment},
	}, func(t [2]string, _ int) bool { return t[1] != "" })
	if len(targets) == 0 {
		err := newWithSentinel(ErrNothingToRemove, ErrNothingToRemove.Error())
		return reportError(m.printer, m.logger, err, ErrNothingToRemove.Error())
	}

	kubectl := m.tools.Tool(BinKubectl)
	for _, t := range targets {
		kind, name := t[0], t[1]
		args := []string{"delete", kind, name}
		if err := kubectl.Step(args, m.printer.out(), m.printer.errOut()); err != nil {
			msg := "could not delete your " + kind
			wrappedErr := stepError(ErrDeleteObjectFailed, err, msg, stepContext(kubectl, args))
			return reportError(m.printer, m.logger, wrappedErr, msg)
		}
		m.printer.Success(fmt.Sprintf("Deleted %s %s", kind, name))
	}
	return nil
}

// NewGetCmd returns the get command.
func NewGetCmd(logger *zap.Logger) *cobra.Command {
	return NewGetCmdWithManager(DefaultObjectManager(logger))
}

// NewGetCmdWithManager returns the get command using the provided manager.
func NewGetCmdWithManager(mgr *ObjectManager) *cobra.Command {
	return &cobra.Command{
		Use:       "get deployments|services|pods",
		Short:     "List deployments, services or pods",
		Args:      cobra.ExactArgs(1),
		ValidArgs: objectKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Get(args[0])
		},
	}
}

// NewRemoveCmd returns the remove command.
func NewRemoveCmd(logger *zap.Logger) *cobra.Command {
	return NewRemoveCmdWithManager(DefaultObjectManager(logger))
}

// NewRemoveCmdWithManager returns the remove command using the provided manager.
func NewRemoveCmdWithManager(mgr *ObjectManager) *cobra.Command {
	var opts RemoveOptions
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete a pod, service or deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Remove(opts)
		},
	}
	cmd.Flags().StringVar(&opts.Pod, "pod", "", "Pod to delete")
	cmd.Flags().StringVar(&opts.Service, "service", "", "Service to delete")
	cmd.Flags().StringVar(&opts.Deployment, "deployment", "", "Deployment to delete")
	return cmd
}
