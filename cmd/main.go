package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	interop "github.com/sandarsh/moq-interop-runner"
	"github.com/sandarsh/moq-interop-runner/exitcodes"
	"github.com/sandarsh/moq-interop-runner/flags"
	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/moq/memrelay"
	"github.com/sandarsh/moq-interop-runner/moq/wtransport"
	"github.com/sandarsh/moq-interop-runner/registry"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Error("Failed to setup open telemetry", "message", err)
		os.Exit(exitcodes.RuntimeErr)
	}

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	shutdown()
	if err != nil {
		// Only usage errors get here; action errors exit through exitErrHandler.
		log.Error("Application failed", "message", err)
		os.Exit(exitcodes.RuntimeErr)
	}
}

func newApp() *cli.App {
	// -v belongs to --verbose
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = interop.AppName
	app.Usage = "MoQ relay interop test client"
	app.Description = "moq-interop-client runs a catalogue of session scenarios against a relay and reports TAP"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = exitErrHandler
	return app
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	cli.HandleExitCoder(exitError(err))
}

// exitError maps an action error, possibly joined with a setup prefix by
// cliapp, to the message and exit status the process ends with.
func exitError(err error) cli.ExitCoder {
	msg := err.Error()
	var unknown *registry.UnknownScenarioError
	if errors.As(err, &unknown) {
		msg = fmt.Sprintf("Unknown test: %s", unknown.Name)
	}
	return cli.Exit(msg, interop.ExitCode(err))
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := newLogger(ctx)

	cfg, err := interop.NewConfig(ctx, logger)
	if err != nil {
		if registry.IsUnknownScenario(err) {
			return nil, err
		}
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, interop.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Transports = map[string]moq.Transport{
		memrelay.Scheme:   memrelay.New(memrelay.Config{Log: logger.New("transport", memrelay.Scheme)}),
		wtransport.Scheme: wtransport.New(wtransport.Config{Log: logger.New("transport", wtransport.Scheme)}),
	}

	cfg.Log.Debug("Config", "config", cfg)

	harness, err := interop.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		if registry.IsUnknownScenario(err) {
			return nil, err
		}
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, interop.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	return harness, nil
}

// newLogger builds the process logger. Logs always go to stderr so that stdout
// carries nothing but the report.
func newLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	switch {
	case ctx.Bool(flags.Verbose.Name):
		logCfg.Level = log.LevelDebug
	case !ctx.IsSet(oplog.LevelFlagName):
		logCfg.Level = log.LevelWarn
	}
	l := oplog.NewLogger(os.Stderr, logCfg)
	oplog.SetGlobalLogHandler(l.Handler())
	oplog.SetupDefaults()
	return l
}
