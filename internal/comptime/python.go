package comptime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/thatsOven/opal-lang/internal/diag"
)

const (
	DEFAULT_PYTHON_BINARY = "python3"
	DEFAULT_TIMEOUT       = 30 * time.Second
	LOG_SRC               = "comptime"

	RESULT_MARKER_PREFIX = "_OPAL_COMPTIME_RESULT_"

	//appended to the executed code, %[1]s is the entry function and %[2]s the result marker.
	RESULT_EPILOGUE = `
_OPAL_COMPTIME_VALUE_ = %[1]s()
import sys as _OPAL_SYS_
_OPAL_SYS_.stdout.write("\n%[2]s")
if _OPAL_COMPTIME_VALUE_ is None:
    _OPAL_SYS_.stdout.write("0")
else:
    _OPAL_SYS_.stdout.write("1" + str(_OPAL_COMPTIME_VALUE_))
`

	MODULE_CALLABLES_SCRIPT = `
import importlib, json
_m = importlib.import_module(%s)
print("\n%s" + json.dumps([n for n in dir(_m) if callable(getattr(_m, n))]))
`
)

type PythonRunnerConfig struct {
	Python      string        //interpreter, defaults to DEFAULT_PYTHON_BINARY
	RuntimePath string        //directory added to PYTHONPATH, it contains the runtime library
	Timeout     time.Duration //defaults to DEFAULT_TIMEOUT
	Stdout      io.Writer     //receives what the executed code prints, defaults to io.Discard
	Logger      zerolog.Logger
}

// PythonRunner executes code in a child interpreter process, the code is passed on stdin.
type PythonRunner struct {
	python      string
	runtimePath string
	timeout     time.Duration
	stdout      io.Writer
	logger      zerolog.Logger
}

func NewPythonRunner(config PythonRunnerConfig) *PythonRunner {
	r := &PythonRunner{
		python:      config.Python,
		runtimePath: config.RuntimePath,
		timeout:     config.Timeout,
		stdout:      config.Stdout,
		logger:      diag.ChildLoggerForSource(config.Logger, LOG_SRC),
	}

	if r.python == "" {
		r.python = DEFAULT_PYTHON_BINARY
	}
	if r.timeout <= 0 {
		r.timeout = DEFAULT_TIMEOUT
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	return r
}

func (r *PythonRunner) Run(ctx context.Context, code string, entry string) (Result, error) {
	runId := ulid.Make().String()
	marker := RESULT_MARKER_PREFIX + runId

	script := code + "\n" + fmt.Sprintf(RESULT_EPILOGUE, entry, marker)

	start := time.Now()
	stdout, err := r.exec(ctx, script)
	r.logger.Debug().Str("run", runId).Dur("duration", time.Since(start)).Err(err).Msg("code executed")

	if err != nil {
		return Result{}, err
	}

	output, rest, ok := splitAtMarker(stdout, marker)
	if !ok || rest == "" {
		return Result{}, fmt.Errorf("the result of %s() is missing from the output", entry)
	}

	if output != "" {
		if _, err := io.WriteString(r.stdout, output); err != nil {
			return Result{}, fmt.Errorf("failed to forward the output of %s(): %w", entry, err)
		}
	}

	result := Result{Output: output}
	if rest[0] == '1' {
		result.HasValue = true
		result.Value = rest[1:]
	}
	return result, nil
}

func (r *PythonRunner) ModuleCallables(ctx context.Context, module string) ([]string, error) {
	marker := RESULT_MARKER_PREFIX + ulid.Make().String()

	stdout, err := r.exec(ctx, fmt.Sprintf(MODULE_CALLABLES_SCRIPT, strconv.Quote(module), marker))
	if err != nil {
		return nil, err
	}

	_, rest, ok := splitAtMarker(stdout, marker)
	if !ok {
		return nil, fmt.Errorf("failed to list the members of module %s", module)
	}

	var names []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest)), &names); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the members of module %s: %w", module, err)
	}
	return names, nil
}

// RunFile executes a host file with the runtime on the path.
func (r *PythonRunner) RunFile(ctx context.Context, path string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, r.python, append([]string{path}, args...)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = r.env()

	return cmd.Run()
}

func (r *PythonRunner) exec(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)

	cmd := exec.CommandContext(ctx, r.python, "-")
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = r.env()

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("execution timed out after %s", r.timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ExceptionError{Traceback: stderr.String()}
	}
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", r.python, err)
	}

	return stdout.String(), nil
}

func (r *PythonRunner) env() []string {
	env := os.Environ()
	if r.runtimePath == "" {
		return env
	}

	pythonPath := r.runtimePath
	if existing := os.Getenv("PYTHONPATH"); existing != "" {
		pythonPath += string(os.PathListSeparator) + existing
	}
	return append(env, "PYTHONPATH="+pythonPath)
}

// splitAtMarker splits the output of a script at the last occurrence of the marker line.
func splitAtMarker(stdout string, marker string) (before string, after string, ok bool) {
	index := strings.LastIndex(stdout, "\n"+marker)
	if index < 0 {
		return "", "", false
	}
	return stdout[:index], stdout[index+1+len(marker):], true
}
