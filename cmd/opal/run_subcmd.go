package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"
	"github.com/thatsOven/opal-lang/internal/compiler"
	"github.com/thatsOven/opal-lang/internal/comptime"
)

// RunProgram implements the run subcommand: the program is compiled to host code in a temporary
// directory and executed with the passed arguments.
func RunProgram(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)
	compileFlags := registerCompileFlags(flags)

	//flags after the file are passed to the program
	if err := flags.Parse(mainSubCommandArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return ERROR_STATUS_CODE
	}

	fpath := flags.Arg(0)
	if fpath == "" {
		fmt.Fprintf(errW, "missing script path\n")
		return ERROR_STATUS_CODE
	}
	programArgs := flags.Args()[1:]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	CancelOnSigintSigterm(cancel)

	compilation, err := newCompilation(compilationParams{
		input:       fpath,
		flags:       compileFlags,
		profile:     compiler.HOST_PROFILE,
		diagnostics: errW,
		out:         outW,
		logOut:      errW,
		colorFd:     fdOf(errW),
	})
	if err != nil {
		printCompilationError(err, errW)
		return ERROR_STATUS_CODE
	}

	output, ok, err := compilation.compile(ctx)
	if err != nil {
		printCompilationError(err, errW)
		return ERROR_STATUS_CODE
	}
	if !ok {
		return ERROR_STATUS_CODE
	}

	if compilation.compiler.Options().Module {
		fmt.Fprintln(errW, "This program is a module and cannot be ran directly. Use the \"pycompile\" or \"pyxcompile\" commands.")
		return ERROR_STATUS_CODE
	}

	runner := compilation.runner
	if runner == nil {
		//comptime being disabled does not prevent running the program
		runner = comptime.NewPythonRunner(comptime.PythonRunnerConfig{
			Python:      compilation.settings.Python,
			RuntimePath: compilation.settings.RuntimePath,
			Logger:      compilation.logger,
		})
	}

	tempDir, removeTempDir, err := CreateTempDir()
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}
	defer removeTempDir()

	//the program is imported as __main__, the name of the file does not matter
	scriptPath := filepath.Join(tempDir, "main"+compiler.HOST_PROFILE.FileExtension)
	if err := util.WriteFile(compilation.fs, scriptPath, []byte(output), OUTPUT_FILE_PERM); err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	compilation.logger.Debug().Str("script", scriptPath).Strs("args", programArgs).Msg("running program")

	err = runner.RunFile(ctx, scriptPath, programArgs, os.Stdin, outW, errW)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}
	return 0
}
