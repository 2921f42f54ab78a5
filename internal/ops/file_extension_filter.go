package ops

import (
	"strings"
)

// ExtensionFilter keeps or drops files based on their extension.
// If 'include' is true, files that don't match are dropped; if 'include'
// is false, files that do match are dropped.
// The matching is case-insensitive and extensions start with a '.'.
type ExtensionFilter struct {
	extensions []string
	include    bool
}

func NewExtensionFilter(extensions []string, include bool) *ExtensionFilter {

	// normalise the extensions and make sure they start with a '.'
	var ext []string
	for _, extension := range extensions {
		extension = strings.ToLower(strings.TrimSpace(extension))
		if len(extension) == 0 {
			continue
		}
		if !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
		ext = append(ext, extension)
	}

	return &ExtensionFilter{
		extensions: ext,
		include:    include,
	}
}

// Keep reports whether the file at path passes the filter. An empty
// filter keeps everything.
func (filter *ExtensionFilter) Keep(path string) bool {
	if filter == nil || len(filter.extensions) == 0 {
		return true
	}

	// see if this file has one of our matching extensions
	lpath := strings.ToLower(path)
	ext_match := false
	for _, ext := range filter.extensions {
		if strings.HasSuffix(lpath, ext) {
			ext_match = true
			break
		}
	}

	// case 1: matching for include
	//    include if filter.include == true && ext_match == true
	//    ... or if ext_match == filter.include
	// case 2: matching for exclude
	//    if filter.include == false && ext_match == false, then we include
	//    ... or if ext_match == filter.include
	return ext_match == filter.include
}
