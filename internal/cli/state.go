package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kubigo/pkg/status"
)

const (
	handleDescription = "local kubernetes cluster"
	stateFileName     = "state.yaml"
)

// ClusterHandle is the persisted record of the local cluster. The
// *Installed flags describe the host before kubigo installed anything.
type ClusterHandle struct {
	Description         string               `yaml:"description" json:"description"`
	WorkDir             string               `yaml:"workDir" json:"workDir"`
	Status              status.ClusterStatus `yaml:"status" json:"status"`
	VirtualBoxInstalled bool                 `yaml:"virtualBoxInstalled" json:"virtualBoxInstalled"`
	KubectlInstalled    bool                 `yaml:"kubectlInstalled" json:"kubectlInstalled"`
	MinikubeInstalled   bool                 `yaml:"minikubeInstalled" json:"minikubeInstalled"`
	DockerInstalled     bool                 `yaml:"dockerInstalled" json:"dockerInstalled"`
	PythonVersion       string               `yaml:"pythonVersion,omitempty" json:"pythonVersion,omitempty"`
	DockerfilePath      string               `yaml:"dockerfilePath,omitempty" json:"dockerfilePath,omitempty"`
	ServiceURL          string               `yaml:"serviceURL,omitempty" json:"serviceURL,omitempty"`
}

// StateStore keeps the handle in <dir>/state.yaml.
type StateStore struct {
	path string
}

func NewStateStore(dir string) *StateStore {
	return &StateStore{path: filepath.Join(dir, stateFileName)}
}

func (s *StateStore) Path() string { return s.path }

// Load returns the saved handle, or nil when none was saved yet.
func (s *StateStore) Load() (*ClusterHandle, error) {
	// #nosec G304 -- path is scoped to the kubigo state directory.
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, wrapWithSentinelAndContext(ErrReadStateFailed, err,
			fmt.Sprintf("failed to read cluster state: %v", err), map[string]any{"path": s.path})
	}
	var h ClusterHandle
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, wrapWithSentinelAndContext(ErrReadStateFailed, err,
			fmt.Sprintf("failed to parse cluster state: %v", err), map[string]any{"path": s.path})
	}
	if !h.Status.Valid() {
		return nil, wrapWithSentinelAndContext(ErrReadStateFailed, nil,
			fmt.Sprintf("cluster state has unknown status %q", h.Status), map[string]any{"path": s.path})
	}
	return &h, nil
}

// Save writes h, creating the state directory when needed.
func (s *StateStore) Save(h *ClusterHandle) error {
	if h == nil {
		return newWithSentinel(ErrWriteStateFailed, "no cluster state to save")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return wrapWithSentinelAndContext(ErrWriteStateFailed, err,
			fmt.Sprintf("failed to create state directory: %v", err), map[string]any{"path": s.path})
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return wrapWithSentinel(ErrWriteStateFailed, err, fmt.Sprintf("failed to encode cluster state: %v", err))
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return wrapWithSentinelAndContext(ErrWriteStateFailed, err,
			fmt.Sprintf("failed to save cluster state: %v", err), map[string]any{"path": s.path})
	}
	return nil
}

// Reset removes the saved handle. A missing file is not an error.
func (s *StateStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapWithSentinelAndContext(ErrResetStateFailed, err,
			fmt.Sprintf("failed to reset cluster state: %v", err), map[string]any{"path": s.path})
	}
	return nil
}
