// Package kube reads node and pod information from the local cluster
// through client-go.
package kube

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/units"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// DefaultNamespace is where kubectl run places the deployed pod.
const DefaultNamespace = "default"

// NodeSummary is one row of the node table shown by status.
type NodeSummary struct {
	Name       string `json:"name"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	InternalIP string `json:"internalIP"`
	CPU        string `json:"cpu"`
	Memory     string `json:"memory"`
}

// Client wraps a clientset.
type Client struct {
	cs kubernetes.Interface
}

// NewClient builds a client for kubeContext from the default kubeconfig
// loading rules. timeout bounds each API request.
func NewClient(kubeContext string, timeout time.Duration) (*Client, error) {
	cfg, err := config.GetConfigWithContext(kubeContext)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig context %q: %w", kubeContext, err)
	}
	cfg.Timeout = timeout
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &Client{cs: cs}, nil
}

// NewClientFromInterface wraps an existing clientset.
func NewClientFromInterface(cs kubernetes.Interface) *Client {
	return &Client{cs: cs}
}

// Nodes lists the cluster nodes.
func (c *Client) Nodes(ctx context.Context) ([]NodeSummary, error) {
	list, err := c.cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	out := make([]NodeSummary, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, summarizeNode(&list.Items[i]))
	}
	return out, nil
}

// PodPhase returns the phase of one pod.
func (c *Client) PodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error) {
	pod, err := c.cs.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("get pod %s/%s: %w", namespace, name, err)
	}
	return pod.Status.Phase, nil
}

func summarizeNode(node *corev1.Node) NodeSummary {
	s := NodeSummary{
		Name:    node.Name,
		Version: node.Status.NodeInfo.KubeletVersion,
	}
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			s.Ready = cond.Status == corev1.ConditionTrue
		}
	}
	for _, addr := range node.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			s.InternalIP = addr.Address
			break
		}
	}
	if cpu, ok := node.Status.Capacity[corev1.ResourceCPU]; ok {
		s.CPU = cpu.String()
	}
	if mem, ok := node.Status.Capacity[corev1.ResourceMemory]; ok {
		s.Memory = units.Base2Bytes(mem.Value()).String()
	}
	return s
}
