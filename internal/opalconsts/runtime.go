package opalconsts

// Names of the runtime helpers that generated code depends on.
const (
	CHECK_TYPE_FN      = "_OPAL_CHECK_TYPE_"
	FORCE_TYPE_FN      = "_OPAL_FORCE_TYPE_"
	PRINT_RETURN_FN    = "_OPAL_PRINT_RETURN_"
	MAIN_FN            = "_OPAL_MAIN_FUNCTION_"
	COMPTIME_BLOCK_FN  = "_OPAL_COMPTIME_BLOCK_"
	AUTOMATIC_TYPE_VAR = "_OPAL_AUTOMATIC_TYPE_"
	MATCHED_VAR        = "_OPAL_MATCHED_"
	RUN_AS_MAIN_VAR    = "_OPAL_RUN_AS_MAIN_"
	ENVIRON_ALIAS      = "_ENVIRON_"

	OBJECT_BASE        = "OpalObject"
	NAMESPACE_BASE     = "OpalNamespace"
	ABSTRACT_BASE      = "_ABSTRACT_BASE_CLASS_"
	INTERNALS_MODULE   = "libs._internals"
	TYPEGUARD_CHECK_FN = "typeguard.check_type"
)

// Import lines emitted at most once per compilation.
const (
	HYBRID_CHECK_IMPORT   = "from " + INTERNALS_MODULE + " import " + CHECK_TYPE_FN
	STRICT_CHECK_IMPORT   = "from typeguard import check_type as " + CHECK_TYPE_FN
	FORCE_CHECK_IMPORT    = "from " + INTERNALS_MODULE + " import " + FORCE_TYPE_FN + " as " + CHECK_TYPE_FN
	PRINT_RETURN_IMPORT   = "from " + INTERNALS_MODULE + " import " + PRINT_RETURN_FN
	OBJECT_BASE_IMPORT    = "from " + INTERNALS_MODULE + " import " + OBJECT_BASE
	NAMESPACE_BASE_IMPORT = "from " + INTERNALS_MODULE + " import " + NAMESPACE_BASE
	ABSTRACT_IMPORT       = "from abc import abstractmethod\nfrom abc import ABC as " + ABSTRACT_BASE
	INT_ENUM_IMPORT       = "from enum import IntEnum"

	NATIVE_PRELUDE = "cimport cython\nfrom os import environ as " + ENVIRON_ALIAS
)
