// Package cli contains the command line interface for lineprof.
//
// # Commands
//
//   - demo: profile the built-in workload (default)
//   - replay: profile a recorded event trace
//   - browse: explore the profile of a recorded event trace interactively
//   - init: write the current flag values to the configuration file
//
// Reports are printed as annotated source text, JSON, or YAML:
//
//	lineprof demo --size=50 --format=json
//	lineprof demo --record=trace.yaml
//	lineprof replay --file=workload trace.yaml
//
// # Configuration
//
// Flag defaults are read from config.yaml (or config.json) in the user
// configuration directory. The YAML file holds a single mapping named
// config whose keys are flag names:
//
//	config:
//	  format: json
//	  log-level: debug
//
// Run "lineprof init" to generate the file from the current flag values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//
// # Profiling Options
//
// Profiling the profiler itself is only available when built with the pprof
// build tag:
//
//	go build -tags pprof -o lineprof .
//
//   - --pprof-mode: Enable profiling (cpu, mem, mutex, block, ...)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/lineprof/pprof)
package cli
