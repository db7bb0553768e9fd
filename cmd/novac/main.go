// Command novac is the pipeline-driving CLI entry point. CLI parsing
// is deliberately thin here: it just resolves a file, an optional
// manifest, and a couple of flags, then hands everything to
// internal/pipeline.
//
// Usage:
//
//	novac run <file.nova> [-verbose] [-ffi <host:port>]
//	novac -help
//
// Uses raw os.Args parsing (no flag package), a recover-and-report
// panic handler wrapping main, and a DEBUG=1 escape hatch to re-panic
// for a real stack trace.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nova-lang/nova/internal/config"
	"github.com/nova-lang/nova/internal/ffi"
	"github.com/nova-lang/nova/internal/manifest"
	"github.com/nova-lang/nova/internal/obs"
	"github.com/nova-lang/nova/internal/pipeline"
	"github.com/nova-lang/nova/internal/rtvalue"
	"github.com/nova-lang/nova/internal/vm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s run <file.nova> [-verbose] [-ffi <host:port>]\n", os.Args[0])
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	if len(os.Args) < 2 || os.Args[1] == "-help" || os.Args[1] == "--help" || os.Args[1] == "help" {
		usage()
		os.Exit(1)
	}

	if os.Args[1] != "run" {
		usage()
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	sourcePath := os.Args[2]

	verbose := false
	ffiAddr := ""
	for i := 3; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-verbose", "--verbose":
			verbose = true
		case "-ffi", "--ffi":
			if i+1 < len(os.Args) {
				ffiAddr = os.Args[i+1]
				i++
			}
		}
	}

	if err := run(sourcePath, verbose, ffiAddr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(sourcePath string, verbose bool, ffiAddr string) error {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	logger, err := obs.New(verbose)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	limits := config.DefaultLimits()
	dir := filepath.Dir(sourcePath)
	manifestPath := filepath.Join(dir, "nova.yaml")
	if m, err := manifest.Load(manifestPath); err == nil {
		logger.Sugar().Infof("loaded manifest for %s %s", m.Name, m.Version)
	}

	if limitsPath := filepath.Join(dir, "nova-limits.yaml"); fileExists(limitsPath) {
		loaded, err := config.LoadLimits(limitsPath)
		if err != nil {
			return fmt.Errorf("loading limits: %w", err)
		}
		limits = loaded
	}

	machine := vm.NewWithLimits(context.Background(), logger, limits)

	if ffiAddr != "" {
		bridge, err := ffi.DialHostBridge(ffiAddr)
		if err != nil {
			return fmt.Errorf("dialing FFI host bridge at %s: %w", ffiAddr, err)
		}
		defer bridge.Close()

		validator := ffi.NewValidator(limits, ffi.Whitelist)
		caller := ffi.NewCaller(validator, bridge, nil, newVMString)
		machine.AttachFFI(caller)
	}

	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		absPath = sourcePath
	}

	ctx := pipeline.NewPipelineContext(absPath, string(src))
	pl := pipeline.New(
		&pipeline.LexProcessor{},
		&pipeline.ParseProcessor{},
		&pipeline.LowerProcessor{},
		&pipeline.OptimizeProcessor{},
		&pipeline.CodegenProcessor{},
		&pipeline.ExecuteProcessor{VM: machine},
	)
	out := pl.Run(ctx)

	for _, d := range out.Errors {
		fmt.Fprintln(os.Stderr, d.Message)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("%d diagnostic(s)", len(out.Errors))
	}

	fmt.Println(out.Result.Inspect())
	return nil
}

func newVMString(s string) rtvalue.Value {
	return rtvalue.Obj(vm.NewObjString(s))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
