// Package errx provides structured, code-based errors for the kubigo CLI.
//
// Every error carries:
//   - a stable 5-digit code (e.g. "71000" for cluster lifecycle errors)
//   - the category description for that code
//   - a short user-facing message
//   - optional key/value context
//   - an optional cause and an optional base sentinel
//
// The first two digits of a code select the domain:
//   - 70xxx: CLI/argument validation
//   - 71xxx: cluster lifecycle (start, stop, delete, status, dashboard)
//   - 72xxx: tool installation
//   - 73xxx: deploy
//   - 74xxx: teardown of installed tools
//   - 75xxx: configuration
//   - 76xxx: persisted cluster state
//   - 77xxx: host preflight
//
// The last three digits are reserved for subcodes.
//
// Example:
//
//	err := errx.Wrap(errx.CodeCluster, errx.DescCluster, "starting minikube failed", runErr).
//		WithContext("driver", "virtualbox").
//		WithBase(cli.ErrStartFailed)
//
//	if errors.Is(err, cli.ErrStartFailed) {
//		// the cluster is now "crashed"
//	}
//
//	fmt.Println(errx.UserString(err))
//	fmt.Println(errx.DebugString(err))
package errx
