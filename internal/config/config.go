// Package config parses the CLI flags into a single Config struct. There
// is no env var or config file layer: the external interface is a
// two-form CLI (`prog` / `prog <path>`), and the flags below only tune
// host-side tooling around it.
package config

import "flag"

// Config is the full set of tunables the CLI accepts. cmd/sentra copies
// TraceExec and GCLog into vmcore.Options, StressGC onto the heap, and
// uses DebugServe and Path directly.
type Config struct {
	// StressGC forces a collection on every allocation, for debugging the
	// collector itself.
	StressGC bool
	// GCLog prints a humanized before/after/next heap-size line on every
	// collection.
	GCLog bool
	// DebugServe, when non-empty, is the host:port internal/debugserve
	// listens on for the live disassembly stream.
	DebugServe string
	// TraceExec prints each dispatched instruction via internal/disasm
	// before the VM executes it.
	TraceExec bool

	// Path is the script to run, or "" for the interactive prompt.
	Path string
}

// Parse builds a Config from args (normally os.Args[1:]). The remaining
// positional argument, if any, becomes Path; more than one positional
// argument is a usage error.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("sentra", flag.ContinueOnError)
	var cfg Config
	fs.BoolVar(&cfg.StressGC, "stress-gc", false, "collect garbage on every allocation")
	fs.BoolVar(&cfg.GCLog, "gc-log", false, "log heap size before/after each collection")
	fs.StringVar(&cfg.DebugServe, "debug-serve", "", "serve live disassembly over websocket at host:port")
	fs.BoolVar(&cfg.TraceExec, "trace-exec", false, "print each instruction before executing it")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return Config{}, errTooManyArgs
	}
	if len(rest) == 1 {
		cfg.Path = rest[0]
	}
	return cfg, nil
}

var errTooManyArgs = usageError("usage: sentra [flags] [script]")

type usageError string

func (e usageError) Error() string { return string(e) }
