package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5/util"
	"github.com/thatsOven/opal-lang/internal/compiler"
)

const (
	RECOMPILATION_DEBOUNCE_DURATION = 150 * time.Millisecond
	DEFAULT_WATCH_PATTERN           = "*.opal"
)

// WatchProgram implements the watch subcommand: the program is compiled, then recompiled each time
// a file of its directory matching the watch pattern changes. Compilations never overlap.
func WatchProgram(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)
	compileFlags := registerCompileFlags(flags)

	var native bool
	var output, pattern string
	flags.BoolVar(&native, "native", false, "compile to Cython instead of Python")
	flags.StringVar(&output, "o", "", "output file")
	flags.StringVar(&pattern, "pattern", DEFAULT_WATCH_PATTERN, "glob pattern (relative to the directory of the input) of the files whose changes trigger a compilation")

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
	if !doublestar.ValidatePattern(pattern) {
		fmt.Fprintf(errW, "invalid pattern %q\n", pattern)
		return ERROR_STATUS_CODE
	}

	profile := compiler.HOST_PROFILE
	if native {
		profile = compiler.NATIVE_PROFILE
	}
	if output == "" {
		output = defaultOutputPath(args[0], profile)
	}
	output, err = filepath.Abs(output)
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	CancelOnSigintSigterm(cancel)

	var lock sync.Mutex
	recompile := func() {
		lock.Lock()
		defer lock.Unlock()

		start := time.Now()
		result, ok, err := compilation.compile(ctx)
		switch {
		case err != nil:
			printCompilationError(err, errW)
		case !ok:
			fmt.Fprintln(errW, "Compilation failed.")
		default:
			if err := util.WriteFile(compilation.fs, output, []byte(result), OUTPUT_FILE_PERM); err != nil {
				fmt.Fprintf(errW, "failed to write %s: %s\n", output, err)
				return
			}
			fmt.Fprintf(outW, "Compilation was successful. Elapsed time: %.4f seconds\n", time.Since(start).Seconds())
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}
	defer watcher.Close()

	watchedDir := filepath.Dir(compilation.input)
	if err := watcher.Add(watchedDir); err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	recompile()
	fmt.Fprintf(outW, "watching %s\n", filepath.Join(watchedDir, pattern))

	debounced := debounce.New(RECOMPILATION_DEBOUNCE_DURATION)

	for {
		select {
		case <-ctx.Done():
			return 0
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if !isRelevantChange(event, watchedDir, pattern, output) {
				continue
			}
			compilation.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
			debounced(recompile)
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintln(errW, err)
		}
	}
}

// isRelevantChange reports whether event should trigger a compilation.
func isRelevantChange(event fsnotify.Event, dir string, pattern string, output string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	if filepath.Clean(event.Name) == output {
		return false
	}

	relativePath, err := filepath.Rel(dir, event.Name)
	if err != nil {
		return false
	}
	ok, _ := doublestar.Match(pattern, filepath.ToSlash(relativePath))
	return ok
}
