package lex

// Keyword identifies the statement introduced by a token, it is resolved once during lexing.
type Keyword uint8

const (
	NOT_A_KEYWORD Keyword = iota

	KW_NEW
	KW_PROPERTY
	KW_GET
	KW_SET
	KW_DELETE
	KW_NAMESPACE
	KW_PACKAGE
	KW_IMPORT
	KW_ASYNC
	KW_AWAIT
	KW_USE
	KW_UNCHECKED
	KW_RETURN
	KW_BREAK
	KW_CONTINUE
	KW_DECORATOR
	KW_THROW
	KW_SUPER
	KW_DEL
	KW_ASSERT
	KW_YIELD
	KW_EXTERNAL
	KW_GLOBAL
	KW_PRINT_RETURN
	KW_NOT
	KW_INCREMENT
	KW_DECREMENT
	KW_MAIN
	KW_TRY
	KW_CATCH
	KW_SUCCESS
	KW_ELSE
	KW_IF
	KW_ELIF
	KW_WHILE
	KW_WITH
	KW_DO
	KW_FOR
	KW_REPEAT
	KW_MATCH
	KW_ENUM
	KW_ABSTRACT
	KW_IGNORE
	KW_STATIC
	KW_INLINE
	KW_SIGNAL

	KEYWORD_COUNT
)

const (
	PRINT_RETURN_NAME = "_OPAL_PRINT_RETURN_"
	SIGNAL_NAME       = "__OPALSIG"
)

var (
	KEYWORD_STRINGS = [KEYWORD_COUNT]string{
		KW_NEW:          "new",
		KW_PROPERTY:     "property",
		KW_GET:          "get",
		KW_SET:          "set",
		KW_DELETE:       "delete",
		KW_NAMESPACE:    "namespace",
		KW_PACKAGE:      "package",
		KW_IMPORT:       "import",
		KW_ASYNC:        "async",
		KW_AWAIT:        "await",
		KW_USE:          "use",
		KW_UNCHECKED:    "unchecked",
		KW_RETURN:       "return",
		KW_BREAK:        "break",
		KW_CONTINUE:     "continue",
		KW_DECORATOR:    "@",
		KW_THROW:        "throw",
		KW_SUPER:        "super",
		KW_DEL:          "del",
		KW_ASSERT:       "assert",
		KW_YIELD:        "yield",
		KW_EXTERNAL:     "external",
		KW_GLOBAL:       "global",
		KW_PRINT_RETURN: PRINT_RETURN_NAME,
		KW_NOT:          "not",
		KW_INCREMENT:    "++",
		KW_DECREMENT:    "--",
		KW_MAIN:         "main",
		KW_TRY:          "try",
		KW_CATCH:        "catch",
		KW_SUCCESS:      "success",
		KW_ELSE:         "else",
		KW_IF:           "if",
		KW_ELIF:         "elif",
		KW_WHILE:        "while",
		KW_WITH:         "with",
		KW_DO:           "do",
		KW_FOR:          "for",
		KW_REPEAT:       "repeat",
		KW_MATCH:        "match",
		KW_ENUM:         "enum",
		KW_ABSTRACT:     "abstract",
		KW_IGNORE:       "ignore",
		KW_STATIC:       "static",
		KW_INLINE:       "inline",
		KW_SIGNAL:       SIGNAL_NAME,
	}

	keywordsByText = map[string]Keyword{}
)

func init() {
	for kw, s := range KEYWORD_STRINGS {
		if s != "" {
			keywordsByText[s] = Keyword(kw)
		}
	}
}

// KeywordOf returns the keyword spelled by text, or NOT_A_KEYWORD.
func KeywordOf(text string) Keyword {
	return keywordsByText[text]
}

func (k Keyword) String() string {
	if k == NOT_A_KEYWORD || k >= KEYWORD_COUNT {
		return ""
	}
	return KEYWORD_STRINGS[k]
}

// StatementKeywords returns the spelling of every statement keyword, signals excluded.
func StatementKeywords() []string {
	var keywords []string
	for kw := KW_NEW; kw < KEYWORD_COUNT; kw++ {
		if kw == KW_SIGNAL || kw == KW_PRINT_RETURN {
			continue
		}
		keywords = append(keywords, KEYWORD_STRINGS[kw])
	}
	return keywords
}
