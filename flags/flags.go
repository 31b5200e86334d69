package flags

import (
	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "MOQ_INTEROP"

// DefaultRelayURL is the relay dialled when none is configured.
const DefaultRelayURL = "https://localhost:4443"

// The relay, test, TLS and verbosity flags read the environment variables
// shared by every interop client, so they are not prefixed.
var (
	Relay = &cli.StringFlag{
		Name:    "relay",
		Aliases: []string{"r"},
		Value:   DefaultRelayURL,
		EnvVars: []string{"RELAY_URL"},
		Usage:   "Relay URL to connect to (https:// dials WebTransport, mem:// uses the in-process relay)",
	}
	Test = &cli.StringFlag{
		Name:    "test",
		Aliases: []string{"t"},
		Value:   "",
		EnvVars: []string{"TESTCASE"},
		Usage:   "Run only this test case (default: run all)",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Aliases: []string{"l"},
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST"),
		Usage:   "List available test cases and exit",
	}
	TLSDisableVerify = &cli.BoolFlag{
		Name:    "tls-disable-verify",
		Value:   false,
		EnvVars: []string{"TLS_DISABLE_VERIFY"},
		Usage:   "Disable TLS certificate verification for https relays",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Value:   false,
		EnvVars: []string{"VERBOSE"},
		Usage:   "Enable debug logging",
	}
	ScenarioConfig = &cli.StringFlag{
		Name:    "scenario-config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SCENARIO_CONFIG"),
		Usage:   "Path to a YAML file overriding scenario timeouts and skips",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '5m'). Set to 0 or omit for run-once mode.",
	}
	Summary = &cli.BoolFlag{
		Name:    "summary",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUMMARY"),
		Usage:   "Print a summary table to stderr after each run",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to write per-run results (TAP and JSON) to. Empty disables.",
	}
	Pushgateway = &cli.StringFlag{
		Name:    "metrics.pushgateway",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_PUSHGATEWAY"),
		Usage:   "Prometheus Pushgateway URL to push run metrics to",
	}
)

var optionalFlags = []cli.Flag{
	Relay,
	Test,
	List,
	TLSDisableVerify,
	Verbose,
	ScenarioConfig,
	RunInterval,
	Summary,
	LogDir,
	Pushgateway,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = optionalFlags
}
