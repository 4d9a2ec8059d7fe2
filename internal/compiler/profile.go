package compiler

import (
	"github.com/thatsOven/opal-lang/internal/diag"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

// A TargetProfile describes the capabilities of the generated dialect, constructs consult
// the profile instead of a global mode.
type TargetProfile struct {
	Name          string
	FileExtension string
	Native        bool

	NativeTypedParams bool //eligible functions are emitted with typed native signatures (cpdef)
	InlineHint        bool //the inline modifier is honored on eligible functions
	NativeLocals      bool //static declarations of native types become native variables (cdef)
	NativeDirectives  bool //$cy directives are emitted
	NativeFiles       bool //$include and $includeDirectory accept native source files
	OperatorMatchOnly bool //match statements without an operator compare with ==

	MainFnHeader string //header of the function defined by main()
	MainFnFrame  diag.FrameKind
	MainGuard    string //header of the block defined by main without parentheses
	MainCall     string //line calling the main function, appended to the output
	Prelude      string //text the output starts with
}

var (
	HOST_PROFILE = &TargetProfile{
		Name:          "host",
		FileExtension: opalconsts.HOST_FILE_EXTENSION,

		MainFnHeader: "def " + opalconsts.MAIN_FN + "()",
		MainFnFrame:  diag.FUNCTION_FRAME,
		MainGuard:    "if __name__=='__main__'",
		MainCall:     `if __name__=="__main__":` + opalconsts.MAIN_FN + "()",
	}

	NATIVE_PROFILE = &TargetProfile{
		Name:          "native",
		FileExtension: opalconsts.NATIVE_FILE_EXTENSION,
		Native:        true,

		NativeTypedParams: true,
		InlineHint:        true,
		NativeLocals:      true,
		NativeDirectives:  true,
		NativeFiles:       true,
		OperatorMatchOnly: true,

		MainFnHeader: "cpdef void " + opalconsts.MAIN_FN + "()",
		MainFnFrame:  diag.COMPILED_FUNCTION_FRAME,
		MainGuard:    `if"` + opalconsts.RUN_AS_MAIN_VAR + `"in ` + opalconsts.ENVIRON_ALIAS,
		MainCall:     `if"` + opalconsts.RUN_AS_MAIN_VAR + `"in ` + opalconsts.ENVIRON_ALIAS + ":" + opalconsts.MAIN_FN + "()",
		Prelude:      opalconsts.NATIVE_PRELUDE,
	}
)

// checkOptions returns a *ConfigError if the program forbids being compiled with this profile.
func (p *TargetProfile) checkOptions(opts Options) error {
	if p.Native && opts.NoCompile {
		return &ConfigError{Msg: `This program cannot be compiled. Use the "pycompile" command or run it directly.`}
	}
	if !p.Native && opts.CompileOnly {
		return &ConfigError{Msg: `This program cannot be ran directly or compiled in Python mode. Use the "pyxcompile" or "compile" commands.`}
	}
	return nil
}
