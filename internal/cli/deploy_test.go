package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"

	"kubigo/pkg/status"
)

const testDockerEnv = `export DOCKER_TLS_VERIFY="1"
export DOCKER_HOST="tcp://192.168.59.100:2376"
export DOCKER_CERT_PATH="/Users/me/.minikube/certs"
export MINIKUBE_ACTIVE_DOCKERD="minikube"
`

func TestDeploymentName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "kubigo-deployment"},
		{in: "  ", want: "kubigo-deployment"},
		{in: "my_api", want: "my-api"},
		{in: "team/my_api", want: "team-my-api"},
		{in: "already-fine", want: "already-fine"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeploymentName(tt.in, "kubigo-deployment"), "input %q", tt.in)
	}
}

// deployWorkspace writes a script and requirements file into a temp dir.
func deployWorkspace(t *testing.T) string {
	t.Helper()
	return writeWorkspace(t, t.TempDir())
}

func writeWorkspace(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("from flask import Flask\napp = Flask(__name__)\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask==3.0.0\n"), 0o600))
	return dir
}

// clusterMock answers docker-env and service --url, and reports whether
// pods and services already exist.
func clusterMock(existing bool) *MockExecutor {
	return &MockExecutor{
		CommandFunc: func(spec ExecSpec) *MockCommand {
			switch {
			case spec.Name == BinMinikube && contains(spec.Args, "docker-env"):
				return &MockCommand{OutputData: []byte(testDockerEnv)}
			case spec.Name == BinMinikube && contains(spec.Args, "service"):
				return &MockCommand{OutputData: []byte("http://192.168.59.100:31000\n")}
			case spec.Name == BinKubectl && len(spec.Args) > 0 && spec.Args[0] == "get" && !existing:
				return &MockCommand{RunErr: errExit()}
			}
			return nil
		},
	}
}

func newTestDeployManager(mock *MockExecutor, readers ClusterReaderFactory) *DeployManager {
	return NewDeployManager(newTestToolbox(mock, false), readers, testConfig(), quietPrinter(), zap.NewNop())
}

func TestDeployManager_Deploy(t *testing.T) {
	t.Run("fresh deployment", func(t *testing.T) {
		dir := deployWorkspace(t)
		mock := clusterMock(false)
		reader := &fakeReader{phase: corev1.PodPending}
		mgr := newTestDeployManager(mock, readerFactory(reader, nil))
		h := &ClusterHandle{WorkDir: dir, Status: status.Running, PythonVersion: "3.12.1"}

		err := mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"})
		require.NoError(t, err)

		want := []string{
			"minikube -p minikube docker-env --shell none",
			"docker build -t kubigo-image:latest .",
			"kubectl get pod kubigo-deployment",
			"kubectl run kubigo-deployment --image=kubigo-image:latest --image-pull-policy=Never",
			"kubectl get service kubigo-deployment",
			"kubectl expose pod kubigo-deployment --port=8000 --type=NodePort",
			"minikube service kubigo-deployment --url",
		}
		if diff := cmp.Diff(want, mock.CommandLines()); diff != "" {
			t.Errorf("commands mismatch (-want +got):\n%s", diff)
		}

		assert.Equal(t, "http://192.168.59.100:31000/<your_route>", h.ServiceURL)
		assert.Equal(t, filepath.Join(dir, "Dockerfile"), h.DockerfilePath)
		assert.Equal(t, status.Running, h.Status, "deploy never changes the status")
		assert.Equal(t, []string{"default/kubigo-deployment"}, reader.pods)

		data, err := os.ReadFile(h.DockerfilePath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "FROM python:3.12.1")
		assert.Contains(t, string(data), "COPY app.py /api/api.py")
		assert.Contains(t, string(data), "EXPOSE 8000")
	})

	t.Run("builds against the minikube docker daemon", func(t *testing.T) {
		mock := clusterMock(false)
		mgr := newTestDeployManager(mock, nil)
		h := &ClusterHandle{WorkDir: deployWorkspace(t)}

		require.NoError(t, mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"}))

		var build *MockCommand
		for _, c := range mock.Created {
			if c.Name == BinDocker {
				build = c
			}
		}
		require.NotNil(t, build)
		assert.Contains(t, build.Env, "DOCKER_HOST=tcp://192.168.59.100:2376")
		assert.Contains(t, build.Env, "DOCKER_TLS_VERIFY=1")
		assert.Equal(t, h.WorkDir, build.Dir)
	})

	t.Run("working directory with shell characters", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "My Project (1)")
		require.NoError(t, os.Mkdir(dir, 0o755))
		writeWorkspace(t, dir)
		mock := clusterMock(false)
		mgr := newTestDeployManager(mock, nil)
		h := &ClusterHandle{WorkDir: dir, Status: status.Running}

		require.NoError(t, mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"}))

		assert.Contains(t, mock.CommandLines(), "docker build -t kubigo-image:latest .")
		var build *MockCommand
		for _, c := range mock.Created {
			if c.Name == BinDocker {
				build = c
			}
		}
		require.NotNil(t, build)
		assert.Equal(t, dir, build.Dir)
		assert.Equal(t, filepath.Join(dir, "Dockerfile"), h.DockerfilePath)
		assert.NotEmpty(t, h.ServiceURL)
	})

	t.Run("replaces existing pod and service", func(t *testing.T) {
		mock := clusterMock(true)
		mgr := newTestDeployManager(mock, nil)
		h := &ClusterHandle{WorkDir: deployWorkspace(t)}

		require.NoError(t, mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "5000", Name: "my_api"}))

		lines := mock.CommandLines()
		assert.Contains(t, lines, "kubectl delete pod my-api")
		assert.Contains(t, lines, "kubectl delete service my-api")
		assert.Contains(t, lines, "kubectl expose pod my-api --port=5000 --type=NodePort")
	})

	t.Run("invalid port stops before any command", func(t *testing.T) {
		for _, port := range []string{"http", "0", "70000", ""} {
			mock := clusterMock(false)
			mgr := newTestDeployManager(mock, nil)
			h := &ClusterHandle{WorkDir: deployWorkspace(t)}

			err := mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: port})
			assert.ErrorIs(t, err, ErrInvalidPort, "port %q", port)
			assert.Empty(t, mock.Commands)
		}
	})

	t.Run("missing files", func(t *testing.T) {
		dir := deployWorkspace(t)
		mgr := newTestDeployManager(clusterMock(false), nil)

		err := mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: dir}, DeployOptions{Script: "missing.py", Requirements: "requirements.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrScriptNotFound)

		err = mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: dir}, DeployOptions{Script: "app.py", Requirements: "missing.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrRequirementsNotFound)
	})

	t.Run("files outside the build context", func(t *testing.T) {
		dir := deployWorkspace(t)
		outside := filepath.Join(t.TempDir(), "other.py")
		require.NoError(t, os.WriteFile(outside, []byte("print()\n"), 0o600))
		mock := clusterMock(false)
		mgr := newTestDeployManager(mock, nil)

		err := mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: dir}, DeployOptions{Script: outside, Requirements: "requirements.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrDockerfileFailed)
		assert.Empty(t, mock.Commands)
	})

	t.Run("docker-env failure fails the build", func(t *testing.T) {
		mock := &MockExecutor{Missing: map[string]bool{BinMinikube: true}}
		mgr := newTestDeployManager(mock, nil)

		err := mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: deployWorkspace(t)}, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrBuildImageFailed)
		assert.ErrorIs(t, err, ErrDockerEnvFailed)
		assert.ErrorIs(t, err, ErrToolMissing)
		assert.False(t, mock.HasCommand(BinDocker))
	})

	t.Run("missing kubectl fails the replace step", func(t *testing.T) {
		mock := clusterMock(false)
		mock.Missing = map[string]bool{BinKubectl: true}
		mgr := newTestDeployManager(mock, nil)

		err := mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: deployWorkspace(t)}, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrRemoveExistingFailed)
		assert.ErrorIs(t, err, ErrToolMissing)
	})

	t.Run("empty service url", func(t *testing.T) {
		mock := clusterMock(false)
		inner := mock.CommandFunc
		mock.CommandFunc = func(spec ExecSpec) *MockCommand {
			if spec.Name == BinMinikube && contains(spec.Args, "service") {
				return &MockCommand{}
			}
			return inner(spec)
		}
		mgr := newTestDeployManager(mock, nil)
		h := &ClusterHandle{WorkDir: deployWorkspace(t)}

		err := mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"})
		assert.ErrorIs(t, err, ErrServiceURLFailed)
		assert.Empty(t, h.ServiceURL)
	})

	t.Run("pod phase read failure is not fatal", func(t *testing.T) {
		mgr := newTestDeployManager(clusterMock(false), readerFactory(&fakeReader{phaseErr: errors.New("forbidden")}, nil))
		h := &ClusterHandle{WorkDir: deployWorkspace(t)}

		assert.NoError(t, mgr.Deploy(context.Background(), h, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"}))
	})
}

func TestFirstLine(t *testing.T) {
	long := strings.Repeat("x", 100*1024)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "newline terminated", content: "import os\nprint()\n", want: "import os"},
		{name: "crlf", content: "flask==3.0.0\r\nrequests\r\n", want: "flask==3.0.0"},
		{name: "no trailing newline", content: "flask==3.0.0", want: "flask==3.0.0"},
		{name: "empty file", content: "", want: ""},
		{name: "line longer than 64KiB", content: long + "\nsecond\n", want: long},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "file")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := firstLine(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := firstLine(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeployLongFirstLine(t *testing.T) {
	dir := t.TempDir()
	script := "x = '" + strings.Repeat("a", 100*1024) + "'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(script), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask==3.0.0\n"), 0o600))
	mgr := newTestDeployManager(clusterMock(false), nil)

	err := mgr.Deploy(context.Background(), &ClusterHandle{WorkDir: dir}, DeployOptions{Script: "app.py", Requirements: "requirements.txt", Port: "8000"})
	assert.NoError(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	got := preview(strings.Repeat("b", 500))
	assert.Len(t, got, previewLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPickURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:50000", pickURL("* Starting tunnel for service api.\nhttp://127.0.0.1:50000\n"))
	assert.Equal(t, "http://10.0.0.1:30000", pickURL("http://10.0.0.1:30000"))
	assert.Equal(t, "", pickURL("\n"))
}

func TestNewDeployCmdRequiresFlags(t *testing.T) {
	mock := clusterMock(false)
	session, _ := newTestSession(t, mock)
	cmd := NewDeployCmdWithManager(newTestDeployManager(mock, nil), session)
	cmd.SetArgs([]string{"--script", "app.py"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Empty(t, mock.Commands)
}
