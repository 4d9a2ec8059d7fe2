package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/thatsOven/opal-lang/internal/compiler"
)

const OUTPUT_FILE_PERM = 0o644

// CompileProgram implements the pycompile and pyxcompile subcommands.
func CompileProgram(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	profile := compiler.HOST_PROFILE
	if mainSubCommand == PYXCOMPILE_SUBCMD {
		profile = compiler.NATIVE_PROFILE
	}

	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)
	compileFlags := registerCompileFlags(flags)

	if showHelp(flags, mainSubCommandArgs, outW) {
		return
	}

	args, err := parseInterleaved(flags, mainSubCommandArgs)
	if err != nil {
		return ERROR_STATUS_CODE
	}

	if len(args) == 0 {
		fmt.Fprintf(errW, "input file required for command %q\n", mainSubCommand)
		return ERROR_STATUS_CODE
	}

	start := time.Now()

	compilation, err := newCompilation(compilationParams{
		input:       args[0],
		flags:       compileFlags,
		profile:     profile,
		diagnostics: errW,
		out:         outW,
		logOut:      errW,
		colorFd:     fdOf(errW),
	})
	if err != nil {
		printCompilationError(err, errW)
		return ERROR_STATUS_CODE
	}

	output, ok, err := compilation.compile(context.Background())
	if err != nil {
		printCompilationError(err, errW)
		return ERROR_STATUS_CODE
	}
	if !ok {
		return ERROR_STATUS_CODE
	}

	outputPath := defaultOutputPath(args[0], profile)
	if len(args) > 1 {
		outputPath = args[1]
	}
	outputPath, err = filepath.Abs(outputPath)
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	if err := util.WriteFile(compilation.fs, outputPath, []byte(output), OUTPUT_FILE_PERM); err != nil {
		fmt.Fprintf(errW, "failed to write %s: %s\n", outputPath, err)
		return ERROR_STATUS_CODE
	}

	compilation.logger.Debug().Str("output", outputPath).Strs("imports", compilation.compiler.Imports()).Msg("output written")
	fmt.Fprintf(outW, "Compilation was successful. Elapsed time: %.4f seconds\n", time.Since(start).Seconds())
	return 0
}
