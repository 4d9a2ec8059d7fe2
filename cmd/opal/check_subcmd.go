package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/thatsOven/opal-lang/internal/compiler"
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/utils"
	"golang.org/x/sync/errgroup"
)

const MAX_PARALLEL_CHECKS = 8

type checkResult struct {
	File        string            `json:"file"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Imports     []string          `json:"imports"`

	rendered []byte
}

// CheckPrograms implements the check subcommand: each file is compiled without writing the output.
func CheckPrograms(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)
	compileFlags := registerCompileFlags(flags)

	var jsonOutput, native bool
	flags.BoolVar(&jsonOutput, "json", false, "print the results as JSON")
	flags.BoolVar(&native, "native", false, "check the programs as if they were compiled with pyxcompile")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return
	}

	files, err := parseInterleaved(flags, mainSubCommandArgs)
	if err != nil {
		return ERROR_STATUS_CODE
	}
	if len(files) == 0 {
		fmt.Fprintf(errW, "missing script path\n")
		return ERROR_STATUS_CODE
	}

	profile := compiler.HOST_PROFILE
	if native {
		profile = compiler.NATIVE_PROFILE
	}

	results := make([]checkResult, len(files))

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(MAX_PARALLEL_CHECKS)

	for i, file := range files {
		i, file := i, file

		group.Go(func() error {
			results[i] = checkFile(ctx, file, profile, compileFlags, !jsonOutput, errW)
			return nil
		})
	}
	_ = group.Wait()

	var errs []error
	success := true

	for _, result := range results {
		if !result.Success {
			success = false
		}
		if result.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", result.File, result.Error))
		}
	}

	if jsonOutput {
		fmt.Fprintf(outW, "%s\n", utils.Must(json.Marshal(results)))
	} else {
		for _, result := range results {
			outW.Write(result.rendered)
		}
		if err := utils.CombineErrors(errs...); err != nil {
			fmt.Fprintln(errW, err)
		}
	}

	if !success {
		return ERROR_STATUS_CODE
	}
	return 0
}

func checkFile(ctx context.Context, file string, profile *compiler.TargetProfile, flags *compileFlags, render bool, logOut io.Writer) checkResult {
	result := checkResult{File: file}
	rendered := bytes.NewBuffer(nil)

	diagnostics := io.Discard
	if render {
		diagnostics = rendered
	}

	compilation, err := newCompilation(compilationParams{
		input:       file,
		flags:       flags,
		profile:     profile,
		diagnostics: diagnostics,
		out:         io.Discard,
		logOut:      logOut,
		colorFd:     fdOf(logOut),
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.File = compilation.input

	_, ok, err := compilation.compile(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = ok
	result.Diagnostics = utils.EmptySliceIfNil(compilation.compiler.Diagnostics())
	result.Imports = utils.EmptySliceIfNil(compilation.compiler.Imports())
	result.rendered = rendered.Bytes()
	return result
}
