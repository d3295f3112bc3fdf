package cli

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// minikubeProfile is the profile whose Docker daemon receives the image.
const minikubeProfile = "minikube"

// parseDockerEnv turns the output of minikube docker-env --shell none into
// KEY=VALUE entries. Comments, blank lines and export prefixes are dropped.
func parseDockerEnv(out string) []string {
	return lo.FilterMap(strings.Split(out, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return "", false
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return "", false
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		return key + "=" + value, true
	})
}

// dockerEnv reads the environment that points docker at minikube's daemon.
func (m *DeployManager) dockerEnv() ([]string, error) {
	runner := m.tools.Tool(BinMinikube)
	args := []string{"-p", minikubeProfile, "docker-env", "--shell", "none"}
	out, err := runner.Output(args)
	if err != nil {
		return nil, stepError(ErrDockerEnvFailed, err, ErrDockerEnvFailed.Error(), stepContext(runner, args))
	}
	env := parseDockerEnv(string(out))
	if len(env) == 0 {
		return nil, newWithSentinelAndContext(ErrDockerEnvFailed, "minikube returned no docker environment", stepContext(runner, args))
	}
	m.logger.Debug("Using minikube docker environment", zap.Strings("keys", lo.Map(env, func(kv string, _ int) string {
		key, _, _ := strings.Cut(kv, "=")
		return key
	})))
	return env, nil
}

// buildImage builds the image against minikube's Docker daemon. docker runs
// from dir with "." as the build context, so dir never reaches the argument
// validators.
func (m *DeployManager) buildImage(dir string) error {
	env, err := m.dockerEnv()
	if err != nil {
		return wrapWithSentinel(ErrBuildImageFailed, err, ErrBuildImageFailed.Error())
	}
	runner := m.tools.Tool(BinDocker, PathUnder(dir))
	// #nosec G204 -- image name comes from config, the context is the working directory.
	args := []string{"build", "-t", m.cfg.Image, "."}
	if err := runner.StepInDir(dir, args, env, m.printer.out(), m.printer.errOut()); err != nil {
		ctx := stepContext(runner, args)
		ctx["dir"] = dir
		return stepError(ErrBuildImageFailed, err, fmt.Sprintf("%s: %s", ErrBuildImageFailed.Error(), m.cfg.Image), ctx)
	}
	return nil
}
