package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDockerEnv(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "shell none",
			in:   "DOCKER_TLS_VERIFY=1\nDOCKER_HOST=tcp://192.168.59.100:2376\n",
			want: []string{"DOCKER_TLS_VERIFY=1", "DOCKER_HOST=tcp://192.168.59.100:2376"},
		},
		{
			name: "bash exports with comments",
			in:   testDockerEnv + "\n# To point your shell to minikube's docker-daemon, run:\n# eval $(minikube -p minikube docker-env)\n",
			want: []string{
				"DOCKER_TLS_VERIFY=1",
				"DOCKER_HOST=tcp://192.168.59.100:2376",
				"DOCKER_CERT_PATH=/Users/me/.minikube/certs",
				"MINIKUBE_ACTIVE_DOCKERD=minikube",
			},
		},
		{
			name: "garbage lines dropped",
			in:   "not an assignment\nSOME KEY=x\n=novalue\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDockerEnv(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDockerEnvEmptyOutput(t *testing.T) {
	mock := &MockExecutor{DefaultOutput: []byte("\n")}
	mgr := NewDeployManager(newTestToolbox(mock, false), nil, testConfig(), quietPrinter(), zap.NewNop())

	_, err := mgr.dockerEnv()
	assert.ErrorIs(t, err, ErrDockerEnvFailed)
}

func TestBuildImageStrictFailure(t *testing.T) {
	mock := &MockExecutor{
		CommandFunc: func(spec ExecSpec) *MockCommand {
			if spec.Name == BinDocker {
				return &MockCommand{RunErr: errExit()}
			}
			return &MockCommand{OutputData: []byte(testDockerEnv)}
		},
	}
	mgr := NewDeployManager(newTestToolbox(mock, true), nil, testConfig(), quietPrinter(), zap.NewNop())

	err := mgr.buildImage("/work")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildImageFailed)
	assert.Equal(t, "could not build a Docker image: kubigo-image:latest", err.Error())
}
