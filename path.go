package xilawasi

import "strings"

// NormalizePath anchors a guest path at the kernel root. Relative paths,
// including "." and "./x", get a "/" inserted in front; nothing is ever
// overwritten. Absolute paths are returned as is.
func NormalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path) + 1)
	b.WriteByte('/')
	b.WriteString(path)
	return b.String()
}
