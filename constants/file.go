package constants

import (
	"path/filepath"
	"strings"
)

// AllowedExtensions holds the file extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether path has an allowed document extension.
func IsPDF(path string) bool {
	_, ok := AllowedExtensions[NormalizeExt(filepath.Ext(path))]
	return ok
}

// ResultFileName is the per-document output name: "<stem>_results.json".
func ResultFileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_results.json"
}

// AllResultsFileName is the aggregated batch output written next to the per-document files.
const AllResultsFileName = "all_results.json"
