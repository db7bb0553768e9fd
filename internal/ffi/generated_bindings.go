package ffi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// Code generated by novaffigen from nova.yaml. DO NOT EDIT.
//
// This file models what cmd/novaffigen emits for a package
// manifest's `ffi:` whitelist section: a fixed (name -> arity) table for
// Validator, and the matching HostFunc table a bridge Server dispatches
// to. Both tables are hand-authored here, in the generator's intended
// output shape, standing in for a manifest naming `strings.ToUpper`,
// `strings.ToLower`, `strings.TrimSpace`, `os.Getenv`, and
// `fmt.Sprintf`-style formatting —
// a small, deliberately boring surface for a handful of whitelisted
// packages.

// Whitelist is the (name -> arity) table NewValidator consumes.
var Whitelist = map[string]int{
	"strings.ToUpper":  1,
	"strings.ToLower":  1,
	"strings.TrimSpace": 1,
	"os.Getenv":        1,
	"fmt.Sprintf1":     2,
}

// HostFuncs is the matching dispatch table a bridge Server resolves
// whitelisted calls against. newString builds each result's string heap
// object the same way codec.go's decodeValue does for a wire string.
func HostFuncs(newString func(string) rtvalue.Value) map[string]HostFunc {
	return map[string]HostFunc{
		"strings.ToUpper": func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return rtvalue.Unit(), err
			}
			return newString(strings.ToUpper(s)), nil
		},
		"strings.ToLower": func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return rtvalue.Unit(), err
			}
			return newString(strings.ToLower(s)), nil
		},
		"strings.TrimSpace": func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return rtvalue.Unit(), err
			}
			return newString(strings.TrimSpace(s)), nil
		},
		"os.Getenv": func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
			s, err := argString(args, 0)
			if err != nil {
				return rtvalue.Unit(), err
			}
			return newString(os.Getenv(s)), nil
		},
		"fmt.Sprintf1": func(_ context.Context, args []rtvalue.Value) (rtvalue.Value, error) {
			format, err := argString(args, 0)
			if err != nil {
				return rtvalue.Unit(), err
			}
			arg, err := argString(args, 1)
			if err != nil {
				return rtvalue.Unit(), err
			}
			return newString(fmt.Sprintf(format, arg)), nil
		},
	}
}

func argString(args []rtvalue.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("ffi: missing argument %d", i)
	}
	s, ok := args[i].Obj.(ffiString)
	if !ok {
		return "", fmt.Errorf("ffi: argument %d is not a string", i)
	}
	return s.StringValue(), nil
}
