package utils

import (
	"bytes"
	"errors"
	"strings"
)

// CombineErrors combines errors into a single error with a multiline message, nil errors are ignored.
// The result is nil if errs is empty.
func CombineErrors(errs ...error) error {
	if len(errs) == 0 {
		return nil
	}

	finalErrBuff := bytes.NewBuffer(nil)

	for _, err := range errs {
		if err != nil {
			finalErrBuff.WriteString(err.Error())
			finalErrBuff.WriteRune('\n')
		}
	}

	if finalErrBuff.Len() == 0 {
		return nil
	}
	return errors.New(strings.TrimRight(finalErrBuff.String(), "\n"))
}
