package toy

import "strings"

// File extensions for binary and debug output.
const (
	Ext      = ".toy"
	DebugExt = ".toy.txt"
)

// OutputPath returns path with the extension matching the output mode.
// Matching is case-insensitive; a binary path gets ".toy" and a debug path
// gets ".toy.txt", reusing a trailing ".toy" when present.
func OutputPath(path string, debug bool) string {
	lower := strings.ToLower(path)
	if debug {
		switch {
		case strings.HasSuffix(lower, DebugExt):
			return path
		case strings.HasSuffix(lower, Ext):
			return path + ".txt"
		default:
			return path + DebugExt
		}
	}
	if strings.HasSuffix(lower, Ext) {
		return path
	}
	return path + Ext
}
