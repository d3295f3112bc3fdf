package cli

import (
	"encoding/json"

	"github.com/samber/lo"
	"sigs.k8s.io/yaml"

	"kubigo/internal/kube"
)

// Output formats accepted by status.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

var outputFormats = []string{OutputTable, OutputYAML, OutputJSON}

// StatusReport is what status prints in machine-readable formats.
type StatusReport struct {
	Cluster  *ClusterHandle     `json:"cluster"`
	Minikube string             `json:"minikube,omitempty"`
	Nodes    []kube.NodeSummary `json:"nodes,omitempty"`
}

// RenderReport prints r as tables, YAML or JSON.
func (p *Printer) RenderReport(format string, r StatusReport) error {
	switch format {
	case OutputYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		p.Printf("%s", data)
	case OutputJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		p.Printf("%s\n", data)
	default:
		p.Section("Cluster")
		p.TableBoxed(handleRows(r.Cluster))
		if len(r.Nodes) > 0 {
			p.Section("Nodes")
			p.Table(nodeRows(r.Nodes))
		}
	}
	return nil
}

func handleRows(h *ClusterHandle) [][]string {
	if h == nil {
		return nil
	}
	rows := [][]string{
		{"Field", "Value"},
		{"Description", h.Description},
		{"Status", colorStatus(h)},
		{"Working directory", h.WorkDir},
		{"VirtualBox pre-installed", yesNo(h.VirtualBoxInstalled)},
		{"kubectl pre-installed", yesNo(h.KubectlInstalled)},
		{"minikube pre-installed", yesNo(h.MinikubeInstalled)},
		{"Docker pre-installed", yesNo(h.DockerInstalled)},
	}
	if h.PythonVersion != "" {
		rows = append(rows, []string{"Python", h.PythonVersion})
	}
	if h.ServiceURL != "" {
		rows = append(rows, []string{"Service URL", h.ServiceURL})
	}
	return rows
}

func nodeRows(nodes []kube.NodeSummary) [][]string {
	header := [][]string{{"Name", "Ready", "Version", "Internal IP", "CPU", "Memory"}}
	return append(header, lo.Map(nodes, func(n kube.NodeSummary, _ int) []string {
		return []string{n.Name, yesNo(n.Ready), n.Version, n.InternalIP, n.CPU, n.Memory}
	})...)
}

func colorStatus(h *ClusterHandle) string {
	if !h.Status.Healthy() {
		return Red(h.Status.String())
	}
	return Green(h.Status.String())
}

func yesNo(b bool) string {
	return lo.Ternary(b, "yes", "no")
}
