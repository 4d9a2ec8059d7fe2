package opalconsts

import "fmt"

const (
	OPAL_FILE_EXTENSION   = ".opal"
	HOST_FILE_EXTENSION   = ".py"
	NATIVE_FILE_EXTENSION = ".pyx"

	PROJECT_CONFIG_FILENAME = "opal.yaml"
	USER_CONFIG_DIRNAME     = "opal"
	USER_CONFIG_FILENAME    = "config.yaml"

	//name of the directory constant seeded by the CLI
	HOME_DIR_CONST = "HOME_DIR"

	MAIN_UNIT_NAME = "<main>"
)

// Compiler version, the --require option compares against it.
const (
	VERSION_YEAR  = 2023
	VERSION_MONTH = 12
	VERSION_DAY   = 14
)

var (
	VERSION_STRING = fmt.Sprintf("%d.%d.%d", VERSION_YEAR, VERSION_MONTH, VERSION_DAY)

	//characters that cannot appear in a native module name.
	ILLEGAL_MODULE_NAME_CHARS = []string{"-", "(", ")", "[", "]", "{", "}", "!"}
)
