package main

import (
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

const TEMP_DIR_PREFIX = "opal-"

// CreateTempDir creates a directory for the files of the process, removeDir removes it and its content.
func CreateTempDir() (dir string, removeDir func(), err error) {
	dir = filepath.Join(os.TempDir(), TEMP_DIR_PREFIX+ulid.Make().String())

	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, err
	}

	removeDir = func() {
		os.RemoveAll(dir)
	}
	return
}
