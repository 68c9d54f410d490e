package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amp-labs/amp-wait/cluster"
	"github.com/amp-labs/amp-wait/contexts"
	"github.com/amp-labs/amp-wait/envutil"
	"github.com/amp-labs/amp-wait/logger"
	"github.com/amp-labs/amp-wait/spans"
	"github.com/amp-labs/amp-wait/telemetry"
	"github.com/amp-labs/amp-wait/waitfor"
)

const telemetryFlushTimeout = 5 * time.Second

func runWait(cmd *cobra.Command, args []string) error {
	// From here on errors mean a wait failed, not that the invocation was
	// malformed; usage output would only add noise.
	cmd.SilenceUsage = true

	flags := cmd.Flags()

	file, _ := flags.GetString("file")

	if file == "" && len(args) != 2 {
		return fmt.Errorf("%w: expected [GROUP/]VERSION/RESOURCE and NAME arguments, or --file", errUsage)
	}

	if file != "" && len(args) > 0 {
		return fmt.Errorf("%w: --file cannot be combined with positional arguments", errUsage)
	}

	output, _ := flags.GetString("output")
	if output != "" && output != "json" {
		return fmt.Errorf("%w: unsupported output format %q", errUsage, output)
	}

	ctx := cmd.Context()

	if envFile, _ := flags.GetString("env-file"); envFile != "" {
		loader := envutil.NewLoader()
		if _, err := loader.LoadFile(envFile); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}

		ctx = loader.EnhanceContext(ctx)
	}

	// Recording must start before the first configuration read, which happens
	// inside ConfigureLogging.
	showEnv, _ := flags.GetBool("show-env")
	if showEnv {
		envutil.EnableDedupKeys(true)
		envutil.EnableRecording(true)
	}

	ctx = logger.WithSubsystem(ctx, appName)
	logger.ConfigureLogging(ctx, appName)

	if showEnv {
		defer reportEnvReads(ctx)
	}

	ctx = setupTelemetry(ctx)
	defer flushTelemetry(ctx)

	kubeconfig, _ := flags.GetString("kubeconfig")
	kubeContext, _ := flags.GetString("context")

	client, err := cluster.NewFromKubeconfig(kubeconfig, kubeContext)
	if err != nil {
		return err
	}

	timeout, _ := flags.GetDuration("timeout")
	interval, _ := flags.GetDuration("interval")
	absentOK, _ := flags.GetBool("absent-ok")

	waiter := waitfor.New(client,
		waitfor.WithTimeout(timeout),
		waitfor.WithInterval(interval),
		waitfor.WithAbsentOK(absentOK),
	)

	if file != "" {
		specs, err := waitfor.LoadSpecs(file)
		if err != nil {
			return err
		}

		return waitfor.All(ctx, waiter, specs)
	}

	spec, err := buildSpec(flags, args)
	if err != nil {
		return err
	}

	obj, err := waiter.Run(ctx, spec)
	if err != nil {
		return err
	}

	if output == "json" && obj != nil {
		encoded, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode object: %w", err)
		}

		fmt.Println(string(encoded))
	}

	return nil
}

// buildSpec assembles the single-target wait from the positional arguments
// and flags. The first argument is [GROUP/]VERSION/RESOURCE, the second the
// object name.
func buildSpec(flags *pflag.FlagSet, args []string) (waitfor.Spec, error) {
	target := args[0]

	parts := strings.Split(target, "/")
	for _, part := range parts {
		if part == "" {
			return waitfor.Spec{}, fmt.Errorf("%w: target must be [GROUP/]VERSION/RESOURCE, got %q", errUsage, target)
		}
	}

	spec := waitfor.Spec{Name: args[1]}

	switch len(parts) {
	case 2:
		spec.Version, spec.Resource = parts[0], parts[1]
	case 3:
		spec.Group, spec.Version, spec.Resource = parts[0], parts[1], parts[2]
	default:
		return waitfor.Spec{}, fmt.Errorf("%w: target must be [GROUP/]VERSION/RESOURCE, got %q", errUsage, target)
	}

	spec.Namespace, _ = flags.GetString("namespace")
	spec.For, _ = flags.GetString("for")

	return spec, nil
}

// setupTelemetry wires trace and log export when the environment enables it.
// The CLI works without a collector; a broken telemetry setup only costs the
// telemetry.
func setupTelemetry(ctx context.Context) context.Context {
	runningEnv := envutil.String(ctx, "RUNNING_ENV").ValueOrElse("local")

	config, err := telemetry.LoadConfigFromEnv(ctx, runningEnv)
	if err != nil {
		logger.Get(ctx).Warn("failed to load telemetry config", "error", err)

		return ctx
	}

	if err := telemetry.Initialize(ctx, config); err != nil {
		logger.Get(ctx).Warn("failed to initialize telemetry", "error", err)

		return ctx
	}

	if handler := telemetry.LogHandler(); handler != nil {
		logger.ConfigureLogging(ctx, appName, logger.WithExtraHandler(handler))
	}

	return spans.WithTracer(ctx, telemetry.Tracer())
}

// reportEnvReads logs every environment variable the run consulted, with its
// source. Values are left out; env files may hold credentials.
func reportEnvReads(ctx context.Context) {
	events := envutil.CollectRecordingEvents(true)

	reads := make([]string, 0, len(events))
	for _, event := range events {
		reads = append(reads, fmt.Sprintf("%s (%s)", event.Key, event.Source))
	}

	slices.Sort(reads)

	logger.Get(ctx).Info("environment variables read", "count", len(reads), "variables", reads)
}

// flushTelemetry exports whatever is still buffered before the process exits.
// The command context may already be cancelled at this point, hence the
// lifecycle-insensitive wrapper.
func flushTelemetry(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(contexts.WithIgnoreLifecycle(ctx), telemetryFlushTimeout)
	defer cancel()

	if err := telemetry.Shutdown(flushCtx); err != nil {
		logger.Get(flushCtx).Warn("failed to flush telemetry", "error", err)
	}
}
