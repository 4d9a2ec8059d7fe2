package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"unicode"

	"github.com/posener/complete/v2/install"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
	"github.com/thatsOven/opal-lang/internal/utils"
)

const (
	ERROR_STATUS_CODE = 1
	COMMAND_NAME      = "opal"

	NO_FD = ^uintptr(0)
)

func main() {
	//handle completions
	completer.Complete(COMMAND_NAME)

	statusCode := _main(os.Args, os.Stdout, os.Stderr)
	if statusCode != 0 {
		os.Exit(statusCode)
	}
}

func _main(args []string, outW io.Writer, errW io.Writer) (statusCode int) {
	if len(args) == 1 { //no subcommand specified
		fmt.Fprint(outW, OPAL_CMD_HELP)
		return ERROR_STATUS_CODE
	}

	mainSubCommand := args[1]
	mainSubCommandArgs := args[2:]

	//if the command has the shape help <subcommand> ... we modify the arguments to ask the subcommand to print its help message.
	if mainSubCommand == HELP_SUBCMD && len(mainSubCommandArgs) > 0 && mainSubCommandArgs[0] != "" && unicode.IsLetter(rune(mainSubCommandArgs[0][0])) {
		mainSubCommand = mainSubCommandArgs[0]
		mainSubCommandArgs = []string{"-h"}
	}

	if slices.Contains(HELP_SUBCMD_EQUIVALENTS, mainSubCommand) {
		mainSubCommand = HELP_SUBCMD
	}

	//unknown command
	if !slices.Contains(SUBCOMMANDS, mainSubCommand) {
		fmt.Fprintf(errW, "unknown command '%s'", mainSubCommand)

		closest, _, ok := utils.FindClosestString(context.Background(), SUBCOMMANDS, mainSubCommand, 2)
		if ok {
			fmt.Fprintf(errW, ", did you mean '%s' ?\n", closest)
		} else {
			fmt.Fprint(errW, "\n"+OPAL_CMD_HELP)
		}
		return ERROR_STATUS_CODE
	}

	switch mainSubCommand {
	case HELP_SUBCMD:
		fmt.Fprint(outW, OPAL_CMD_HELP)
		return
	case VERSION_SUBCMD:
		fmt.Fprintln(outW, opalconsts.VERSION_STRING)
		return
	case INSTALL_COMPLETIONS_SUBCMD:
		err := install.Install(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "installed")
		return
	case UNINSTALL_COMPLETIONS_SUBCMD:
		err := install.Uninstall(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "uninstalled")
		return
	case PYCOMPILE_SUBCMD, PYXCOMPILE_SUBCMD:
		return CompileProgram(mainSubCommand, mainSubCommandArgs, outW, errW)
	case CHECK_SUBCMD:
		return CheckPrograms(mainSubCommand, mainSubCommandArgs, outW, errW)
	case RUN_SUBCMD:
		return RunProgram(mainSubCommand, mainSubCommandArgs, outW, errW)
	case WATCH_SUBCMD:
		return WatchProgram(mainSubCommand, mainSubCommandArgs, outW, errW)
	default:
		panic(fmt.Errorf("subcommand %q is not handled", mainSubCommand))
	}
}

// fdOf returns the file descriptor of w if w is a file, NO_FD otherwise.
func fdOf(w io.Writer) uintptr {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return f.Fd()
	}
	return NO_FD
}
