package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/caseflow/constants"
)

// AllowedExt checks if a file extension is a batch input format (xlsx/txt/csv).
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.'). Spreadsheet
// lock files ("~$name.xlsx") count as hidden too.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}
