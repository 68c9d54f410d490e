// Package main is the entry point for the waitfor CLI.
//
// waitfor blocks until cluster objects reach a desired state: a status
// condition, a field value, or deletion. Targets are addressed dynamically
// (group/version/resource plus name), so custom resources work without any
// code generation.
//
// Usage:
//
//	waitfor v1/pods model-predictor --namespace default
//	waitfor serving.kserve.io/v1beta1/inferenceservices sklearn-iris \
//	    --namespace kserve-test --for condition=Ready --timeout 2m
//	waitfor v1/namespaces scratch --for delete
//	waitfor --file waits.yaml
//	waitfor validate --file waits.yaml
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amp-labs/amp-wait/build"
	"github.com/amp-labs/amp-wait/poll"
	"github.com/amp-labs/amp-wait/shutdown"
	"github.com/amp-labs/amp-wait/waitfor"
)

const appName = "waitfor"

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.buildInfo=$BUILD_INFO_JSON"
var (
	version   = "dev"
	buildInfo = ""
)

// errUsage marks a malformed invocation, as opposed to a wait that ran and
// failed. Usage mistakes exit with code 2, failed waits with code 1.
var errUsage = errors.New("usage error")

var rootCmd = &cobra.Command{
	Use:   "waitfor [GROUP/]VERSION/RESOURCE NAME",
	Short: "Block until a cluster object reaches a desired state",
	Long: `waitfor polls a cluster object until it reaches a desired state, then exits.

The target is addressed by its API group, version and plural resource name,
so any resource works, custom or built in:

  waitfor v1/pods model-predictor --namespace default
  waitfor serving.kserve.io/v1beta1/inferenceservices sklearn-iris \
      --namespace kserve-test --for condition=Ready --timeout 2m

The --for flag picks the state to wait for:

  condition=TYPE           condition TYPE reaches status True (the default
                           is condition=Ready)
  condition=TYPE=STATUS    condition TYPE reaches STATUS
  jsonpath=PATH=VALUE      the field at PATH renders equal to VALUE
  delete                   the object no longer exists

Several waits can run concurrently from a YAML spec file:

  waitfor --file waits.yaml

Logging and telemetry are configured through environment variables
(LOG_LEVEL, LOG_JSON, and friends). --env-file loads additional variables
from a .env, .json or .yaml file; values from the file take precedence
over the process environment. --show-env reports every variable the run
read and where its value came from.

Exit codes:
  0 - the desired state was reached
  1 - a wait timed out or failed
  2 - the invocation or spec file was invalid`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 2 {
			return fmt.Errorf("%w: accepts at most 2 args, received %d", errUsage, len(args))
		}

		return nil
	},
	RunE: runWait,
}

func init() {
	flags := rootCmd.Flags()

	flags.StringP("namespace", "n", "", "namespace of the target object")
	flags.String("for", "condition=Ready", "state to wait for: condition=TYPE[=STATUS], jsonpath=PATH=VALUE, or delete")
	flags.Duration("timeout", poll.DefaultTimeout, "how long to wait before giving up")
	flags.Duration("interval", poll.DefaultInterval, "delay between attempts")
	flags.Bool("absent-ok", false, "keep polling while the object does not exist yet")
	flags.StringP("file", "f", "", "run every wait in the given YAML spec file instead of a single target")
	flags.String("kubeconfig", "", "path to the kubeconfig file (default: standard loading rules)")
	flags.String("context", "", "kubeconfig context to use")
	flags.StringP("output", "o", "", "print the final object in the given format (json, single target only)")
	flags.String("env-file", "", "load environment variables from the given file (.env, .json, or .yaml)")
	flags.Bool("show-env", false, "report which environment variables were read during the run")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
}

// Execute runs the root command under a signal-aware context.
func Execute() {
	ctx := shutdown.SetupHandler()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, waitfor.ErrInvalidSpec) || errors.Is(err, waitfor.ErrInvalidFor) {
		return 2
	}

	return 1
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("waitfor %s\n", version)

		info, ok := build.Parse(buildInfo)
		if !ok {
			return
		}

		fmt.Printf("  commit: %s (%s)\n", info.GitCommit, info.GitBranch)
		fmt.Printf("  built:  %s with %s\n", info.BuildTime, info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
