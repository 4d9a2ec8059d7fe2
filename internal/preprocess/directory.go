package preprocess

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/maruel/natural"
	"github.com/thatsOven/opal-lang/internal/opalconsts"
)

var (
	INCLUDABLE_FILE_PATTERNS        = []string{"*" + opalconsts.OPAL_FILE_EXTENSION, "*" + opalconsts.HOST_FILE_EXTENSION}
	NATIVE_INCLUDABLE_FILE_PATTERNS = append(slices.Clone(INCLUDABLE_FILE_PATTERNS), "*"+opalconsts.NATIVE_FILE_EXTENSION)
)

// includeDirectory includes the source and host files of a directory in natural order,
// subdirectories are ignored.
func (p *Preprocessor) includeDirectory(result *strings.Builder, dir string, line int) {
	entries, err := p.fs.ReadDir(dir)
	if err != nil {
		p.reporter.LineError(fmt.Sprintf("cannot read directory %q: %s", dir, err), line)
		return
	}

	patterns := INCLUDABLE_FILE_PATTERNS
	if p.nativeMode() {
		patterns = NATIVE_INCLUDABLE_FILE_PATTERNS
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, entry.Name()); ok {
				names = append(names, entry.Name())
				break
			}
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})

	for _, name := range names {
		p.include(result, filepath.Join(dir, name), line)
	}
}
