package sbs

import (
	"fmt"
	"os"
	"path"
	"strings"

	"castsync/internal/config"
)

// Mapper resolves remote track URLs onto local filesystem paths using the
// configured url-to-path prefix mappings.
type Mapper struct {
	mappings            []config.URLMapping
	errorIfFileNotExist bool
}

// NewMapper creates a Mapper from the configured mappings.
func NewMapper(mappings []config.URLMapping, errorIfFileNotExist bool) *Mapper {
	return &Mapper{mappings: mappings, errorIfFileNotExist: errorIfFileNotExist}
}

// RefactorURL rewrites delivery URLs into their canonical on-disk shape.
// Asset URLs (server 3.x and later) and episode archive URLs (1.4/1.6)
// embed the element name twice; the canonical form is
// {base}/{mediapackage}/{version}/{element}.{ext}.
func RefactorURL(rawURL string) string {
	if rewritten, ok := rewriteSegmented(rawURL, "assets/assets/"); ok {
		return rewritten
	}
	if rewritten, ok := rewriteSegmented(rawURL, "/episode/archive/mediapackage/"); ok {
		return rewritten
	}
	if rewritten, ok := rewriteSegmented(rawURL, "/episode/"); ok {
		return rewritten
	}
	return rawURL
}

// rewriteSegmented rebuilds a URL of the form
// {base}{delimiter}{mediapackage}/{element}/{version}/{file} into
// {base}{delimiter}{mediapackage}/{version}/{element}.{ext}.
func rewriteSegmented(rawURL, delimiter string) (string, bool) {
	idx := indexFold(rawURL, delimiter)
	if idx < 0 {
		return "", false
	}
	base := rawURL[:idx]
	rest := rawURL[idx+len(delimiter):]

	segments := strings.Split(rest, "/")
	if len(segments) < 4 {
		return rawURL, true
	}
	file := segments[len(segments)-1]
	version := segments[len(segments)-2]
	element := segments[len(segments)-3]
	mediaPackageID := segments[len(segments)-4]

	ext := strings.TrimPrefix(path.Ext(file), ".")
	return base + delimiter + mediaPackageID + "/" + version + "/" + element + "." + ext, true
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// Path maps a track URL to a local file path. The first mapping producing an
// existing file wins. When no mapping matches, the outcome depends on the
// strict flag: an error, or absence without error.
func (m *Mapper) Path(rawURL string) (string, bool, error) {
	refactored := RefactorURL(rawURL)

	for _, mapping := range m.mappings {
		candidate := strings.Replace(refactored, mapping.URL, mapping.Path, 1)
		if candidate == refactored {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}
	}

	if m.errorIfFileNotExist {
		return "", false, fmt.Errorf("no local path for track %q: check the url_mapping configuration", refactored)
	}
	return "", false, nil
}
