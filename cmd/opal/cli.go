package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
)

const (
	PYCOMPILE_SUBCMD             = "pycompile"
	PYXCOMPILE_SUBCMD            = "pyxcompile"
	CHECK_SUBCMD                 = "check"
	RUN_SUBCMD                   = "run"
	WATCH_SUBCMD                 = "watch"
	VERSION_SUBCMD               = "version"
	INSTALL_COMPLETIONS_SUBCMD   = "install-completions"
	UNINSTALL_COMPLETIONS_SUBCMD = "uninstall-completions"
	HELP_SUBCMD                  = "help"
)

var (
	SUBCOMMANDS = []string{
		PYCOMPILE_SUBCMD, PYXCOMPILE_SUBCMD, CHECK_SUBCMD, RUN_SUBCMD, WATCH_SUBCMD, VERSION_SUBCMD,
		INSTALL_COMPLETIONS_SUBCMD, UNINSTALL_COMPLETIONS_SUBCMD, HELP_SUBCMD,
	}

	HELP_SUBCMD_EQUIVALENTS = []string{"--help", "-help", "-h"}

	SUBCOMMAND_DESCRIPTIONS = [][2]string{
		{PYCOMPILE_SUBCMD, "compile a program to Python: pycompile <file> [output]"},
		{PYXCOMPILE_SUBCMD, "compile a program to Cython: pyxcompile <file> [output]"},
		{CHECK_SUBCMD, "compile programs without writing the output and print the diagnostics"},
		{RUN_SUBCMD, "compile a program to Python and run it: run <file> [arguments]"},
		{WATCH_SUBCMD, "recompile a program each time it or a file of its directory changes"},
		{VERSION_SUBCMD, "print the version of the compiler"},

		{INSTALL_COMPLETIONS_SUBCMD, "install CLI completions by adding the completion command to the detected rc file (supported shells are bash, zsh and fish)"},
		{UNINSTALL_COMPLETIONS_SUBCMD, "uninstall CLI completions by removing the completion command from the detected rc file"},
		{HELP_SUBCMD, "show the general help or command-specific help"},
	}

	SUBCOMMAND_DESCRIPTION_MAP = map[string]string{}

	OPAL_CMD_HELP = "commands:\n"
)

func init() {
	for _, entry := range SUBCOMMAND_DESCRIPTIONS {
		cmd, desc := entry[0], entry[1]
		SUBCOMMAND_DESCRIPTION_MAP[cmd] = desc
		OPAL_CMD_HELP += "\t" + cmd + " - " + desc + "\n"
	}
	OPAL_CMD_HELP += "\nType `opal help <command>` to get command-specific help.\n"
}

// parseInterleaved parses the flags in args even if they follow positional arguments and returns
// the positional arguments. Everything after "--" is positional.
func parseInterleaved(flags *flag.FlagSet, args []string) ([]string, error) {
	var positional []string

	for {
		if err := flags.Parse(args); err != nil {
			return nil, err
		}
		rest := flags.Args()
		if len(rest) == 0 {
			return positional, nil
		}

		//flag.Parse consumes the terminator
		if len(args) >= len(rest)+1 && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}

		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func showHelp(flags *flag.FlagSet, args []string, out io.Writer) bool {
	//only show help
	if slices.Contains(args, "-h") || slices.Contains(args, "--help") {

		cmd := flags.Name()
		if desc, ok := SUBCOMMAND_DESCRIPTION_MAP[cmd]; ok {
			fmt.Fprintln(out, desc)
		}

		flags.SetOutput(out)
		fmt.Fprint(out, "\noptions:\n")
		flags.PrintDefaults()

		return true
	}

	return false
}
