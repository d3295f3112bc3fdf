package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kubigo/pkg/status"
)

// stubRemoveAll records removed paths instead of touching the filesystem.
func stubRemoveAll(t *testing.T, fail map[string]bool) *[]string {
	t.Helper()
	var removed []string
	orig := removeAll
	removeAll = func(path string) error {
		removed = append(removed, path)
		if fail[path] {
			return errors.New("permission denied")
		}
		return nil
	}
	t.Cleanup(func() { removeAll = orig })
	return &removed
}

func newTestTeardownManager(mock *MockExecutor) *TeardownManager {
	return NewTeardownManager(newTestToolbox(mock, false), "/Users/me", quietPrinter(), zap.NewNop())
}

func boolPtr(b bool) *bool { return &b }

func TestResolveRemoval(t *testing.T) {
	tests := []struct {
		name         string
		flag         *bool
		preinstalled bool
		want         bool
	}{
		{name: "default removes what kubigo installed", flag: nil, preinstalled: false, want: true},
		{name: "default keeps pre-installed", flag: nil, preinstalled: true, want: false},
		{name: "forced removal", flag: boolPtr(true), preinstalled: true, want: true},
		{name: "forced keep", flag: boolPtr(false), preinstalled: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRemoval(tt.flag, tt.preinstalled))
		})
	}
}

func TestTeardownManager_Delete(t *testing.T) {
	t.Run("removes everything kubigo installed", func(t *testing.T) {
		removed := stubRemoveAll(t, nil)
		mock := &MockExecutor{}
		mgr := newTestTeardownManager(mock)
		h := &ClusterHandle{Status: status.Running}

		require.NoError(t, mgr.Delete(h, DeleteOptions{}))

		assert.Equal(t, []string{
			"minikube stop",
			"minikube delete",
			BinDockerApp + " --uninstall",
			"launchctl stop *kubelet*.mount",
			"launchctl stop localkube.service",
			"brew uninstall --cask --force virtualbox",
		}, mock.CommandLines())
		assert.Contains(t, *removed, "/Users/me/.kube")
		assert.Contains(t, *removed, "/Users/me/.minikube")
		assert.Contains(t, *removed, "/usr/local/bin/kubectl")
		assert.Len(t, *removed, len(kubectlPaths))
		assert.Equal(t, status.Deleted, h.Status)
	})

	t.Run("keeps pre-installed tools", func(t *testing.T) {
		removed := stubRemoveAll(t, nil)
		mock := &MockExecutor{}
		mgr := newTestTeardownManager(mock)
		h := &ClusterHandle{
			Status:              status.Stopped,
			DockerInstalled:     true,
			KubectlInstalled:    true,
			VirtualBoxInstalled: true,
		}

		require.NoError(t, mgr.Delete(h, DeleteOptions{}))
		assert.Equal(t, []string{"minikube stop", "minikube delete"}, mock.CommandLines())
		assert.Empty(t, *removed)
		assert.Equal(t, status.Deleted, h.Status)
	})

	t.Run("flags override the recorded state", func(t *testing.T) {
		stubRemoveAll(t, nil)
		mock := &MockExecutor{}
		mgr := newTestTeardownManager(mock)
		h := &ClusterHandle{DockerInstalled: true}

		require.NoError(t, mgr.Delete(h, DeleteOptions{Docker: boolPtr(true), Kubectl: boolPtr(false), VirtualBox: boolPtr(false)}))
		assert.Equal(t, []string{"minikube stop", "minikube delete", BinDockerApp + " --uninstall"}, mock.CommandLines())
	})

	t.Run("minikube failure sets not responding and skips tools", func(t *testing.T) {
		removed := stubRemoveAll(t, nil)
		mock := &MockExecutor{Missing: map[string]bool{BinMinikube: true}}
		mgr := newTestTeardownManager(mock)
		h := &ClusterHandle{Status: status.Running}

		err := mgr.Delete(h, DeleteOptions{})
		assert.ErrorIs(t, err, ErrDeleteFailed)
		assert.Equal(t, "could not delete minikube entirely", err.Error())
		assert.Equal(t, status.NotResponding, h.Status)
		assert.Equal(t, []string{"minikube stop"}, mock.CommandLines())
		assert.Empty(t, *removed)
	})

	t.Run("component failures do not abort", func(t *testing.T) {
		stubRemoveAll(t, map[string]bool{"/etc/kubernetes": true})
		mock := &MockExecutor{Missing: map[string]bool{BinDockerApp: true}}
		mgr := newTestTeardownManager(mock)
		h := &ClusterHandle{}

		require.NoError(t, mgr.Delete(h, DeleteOptions{}))
		assert.Contains(t, mock.CommandLines(), "brew uninstall --cask --force virtualbox")
		assert.Equal(t, status.Deleted, h.Status)
	})
}

func TestRemoveKubectlReportsFailedPaths(t *testing.T) {
	stubRemoveAll(t, map[string]bool{"/etc/kubernetes": true})
	mgr := newTestTeardownManager(&MockExecutor{})

	err := mgr.removeKubectl()
	assert.ErrorIs(t, err, ErrUninstallKubectlFailed)
	assert.Contains(t, err.Error(), "/etc/kubernetes")
}

func TestRemoveKubectlWithoutHome(t *testing.T) {
	for name, home := range map[string]string{"empty home": "", "relative home": "relative/home"} {
		t.Run(name, func(t *testing.T) {
			removed := stubRemoveAll(t, nil)
			mock := &MockExecutor{}
			mgr := NewTeardownManager(newTestToolbox(mock, false), home, quietPrinter(), zap.NewNop())

			err := mgr.removeKubectl()
			assert.ErrorIs(t, err, ErrUninstallKubectlFailed)
			assert.ErrorIs(t, err, ErrGetHomeDirectoryFailed)
			assert.Empty(t, *removed, "nothing removed relative to the working directory")
			assert.Empty(t, mock.Commands)
		})
	}

	t.Run("delete still finishes", func(t *testing.T) {
		removed := stubRemoveAll(t, nil)
		mock := &MockExecutor{}
		mgr := NewTeardownManager(newTestToolbox(mock, false), "", quietPrinter(), zap.NewNop())
		h := &ClusterHandle{Status: status.Stopped}

		require.NoError(t, mgr.Delete(h, DeleteOptions{Docker: boolPtr(false), VirtualBox: boolPtr(false)}))
		assert.Empty(t, *removed)
		assert.Equal(t, []string{"minikube stop", "minikube delete"}, mock.CommandLines())
		assert.Equal(t, status.Deleted, h.Status)
	})
}

func TestExpandHome(t *testing.T) {
	mgr := newTestTeardownManager(&MockExecutor{})
	assert.Equal(t, "/Users/me", mgr.expandHome("~"))
	assert.Equal(t, "/Users/me/.kube", mgr.expandHome("~/.kube"))
	assert.Equal(t, "/etc/kubernetes", mgr.expandHome("/etc/kubernetes"))
}

func TestNewDeleteCmdFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no flags keeps pre-installed docker",
			args: []string{"--kubectl=false", "--virtualbox=false"},
			want: []string{"minikube stop", "minikube delete"},
		},
		{
			name: "explicit docker removal",
			args: []string{"--docker", "--kubectl=false", "--virtualbox=false"},
			want: []string{"minikube stop", "minikube delete", BinDockerApp + " --uninstall"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubRemoveAll(t, nil)
			// docker is found on the first run, so it counts as pre-installed
			mock := &MockExecutor{}
			session, store := newTestSession(t, mock)
			cmd := NewDeleteCmdWithManager(newTestTeardownManager(mock), session)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())

			checks := len(toolChecks) + 1
			assert.Equal(t, tt.want, mock.CommandLines()[checks:])
			saved, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, status.Deleted, saved.Status)
		})
	}
}
