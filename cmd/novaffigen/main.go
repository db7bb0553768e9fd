// Command novaffigen is the build-time FFI binding generator: it reads
// a whitelist manifest, type-checks every named Go package with
// golang.org/x/tools/go/packages, and writes
// internal/ffi/generated_bindings.go. Point it at a real nova.yaml
// whitelist and it reproduces that file exactly.
//
// Usage:
//
//	novaffigen -whitelist nova.yaml -out internal/ffi/generated_bindings.go
//
// Trimmed to functions only — see internal/extgen's package doc for
// why.
package main

import (
	"fmt"
	"os"

	"github.com/nova-lang/nova/internal/extgen"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -whitelist <nova.yaml> -out <generated_bindings.go>\n", os.Args[0])
}

func main() {
	whitelistPath := ""
	outPath := ""
	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-whitelist", "--whitelist":
			if i+1 < len(os.Args) {
				whitelistPath = os.Args[i+1]
				i++
			}
		case "-out", "--out":
			if i+1 < len(os.Args) {
				outPath = os.Args[i+1]
				i++
			}
		}
	}

	if whitelistPath == "" || outPath == "" {
		usage()
		os.Exit(1)
	}

	if err := generate(whitelistPath, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "novaffigen: %s\n", err)
		os.Exit(1)
	}
}

func generate(whitelistPath, outPath string) error {
	cfg, err := extgen.LoadConfig(whitelistPath)
	if err != nil {
		return fmt.Errorf("loading whitelist: %w", err)
	}

	result, err := extgen.Inspect(cfg)
	if err != nil {
		return fmt.Errorf("inspecting whitelisted packages: %w", err)
	}

	src, err := extgen.Generate(result)
	if err != nil {
		return fmt.Errorf("generating bindings: %w", err)
	}

	if err := os.WriteFile(outPath, src, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	return nil
}
