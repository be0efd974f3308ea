package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for ingestion.
// The pipeline only understands PDF input; scanned pages arrive wrapped
// in PDFs, not as loose images.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether an extension is ingestible.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
