package constants

import "strings"

// InputFormats holds the batch input formats accepted by ingestion.
var InputFormats = []string{"XLSX", "TXT", "CSV"}

// AllowedExtensions holds the file extensions accepted for batch input.
var AllowedExtensions = map[string]struct{}{
	"xlsx": {},
	"txt":  {},
	"csv":  {},
}

// Spreadsheet column headers, matched case-insensitively.
const (
	ColumnCaseNumber = "sagsnummer"
	ColumnOldOwner   = "oldazident"
	ColumnNewOwner   = "newazident"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the input format for a file extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "xlsx":
		return "XLSX"
	case "txt":
		return "TXT"
	case "csv":
		return "CSV"
	default:
		return ""
	}
}
