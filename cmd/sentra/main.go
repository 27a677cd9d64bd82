// Command sentra is a two-form CLI (`sentra` for the interactive prompt,
// `sentra <path>` to run a file once) plus the host-tooling flags added
// around it.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"sentra/internal/config"
	"sentra/internal/debugserve"
	"sentra/internal/disasm"
	"sentra/internal/langerr"
	"sentra/internal/replhistory"
	"sentra/internal/value"
	"sentra/internal/vmcore"
)

// Exit codes: 0 success, 64 usage, 65 compile error, 70 runtime error,
// 74 host I/O failure.
const (
	exitSuccess     = 0
	exitUsage       = 64
	exitCompileErr  = 65
	exitRuntimeErr  = 70
	exitHostFailure = 74
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	opts := vmcore.Options{TraceExec: cfg.TraceExec, GCLog: cfg.GCLog}
	if cfg.TraceExec {
		opts.OnTrace = traceToStderr
	}

	var debugSrv *debugserve.Server
	if cfg.DebugServe != "" {
		debugSrv = debugserve.Start(cfg.DebugServe)
		defer debugSrv.Close()
		if cfg.TraceExec {
			prior := opts.OnTrace
			opts.OnTrace = func(chunk *value.Chunk, offset int) {
				prior(chunk, offset)
				debugSrv.Trace(chunk, offset)
			}
		} else {
			opts.OnTrace = debugSrv.Trace
		}
	}

	heap := value.NewHeap()
	heap.StressGC = cfg.StressGC
	vm := vmcore.New(heap, opts)

	if cfg.Path == "" {
		runPrompt(vm)
		return
	}
	runFile(vm, cfg.Path)
}

func traceToStderr(chunk *value.Chunk, offset int) {
	fmt.Fprintln(os.Stderr, disasm.Format(disasm.Decode(chunk, offset)))
}

// runFile reads path, interprets it once, and exits with the code
// assigned to the outcome.
func runFile(vm *vmcore.VM, path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		log.Print(langerr.WrapHost(err, "could not read "+path))
		os.Exit(exitHostFailure)
	}

	if err := vm.Interpret(string(source)); err != nil {
		reportAndExit(err)
	}
	os.Exit(exitSuccess)
}

// runPrompt implements the interactive form: read one line, interpret
// it, repeat; an empty line terminates. A real terminal gets a "> "
// banner; piped stdin does not.
func runPrompt(vm *vmcore.VM) {
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	history, histErr := openHistory()
	if histErr == nil {
		defer history.Close()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}

		result := ""
		if err := vm.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
			result = err.Error()
		}
		if history != nil {
			history.Append(line, result)
		}
	}
}

func openHistory() (*replhistory.History, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return replhistory.Open(home + "/.sentra_history.db")
}

// reportAndExit prints err's wire-format message and exits with the code
// its taxonomy maps to.
func reportAndExit(err error) {
	fmt.Fprintln(os.Stderr, err)
	switch err.(type) {
	case *langerr.RuntimeError:
		os.Exit(exitRuntimeErr)
	default:
		// Both the compiler's multiErr and any bare *langerr.CompileError
		// map to the same exit code; only RuntimeError gets its own.
		os.Exit(exitCompileErr)
	}
}
