package splitter

import (
	"path/filepath"
	"strings"
)

const SpecSuffix = ".txt"

// Suffix returns the extension of the final path element, dot included.
// A name whose only dot is the leading one, or that ends in a dot, has no
// suffix.
func Suffix(name string) string {
	name = filepath.Base(name)
	i := strings.LastIndexByte(name, '.')
	if i > 0 && i < len(name)-1 {
		return name[i:]
	}
	return ""
}

// Stem returns the final path element without its suffix.
func Stem(name string) string {
	name = filepath.Base(name)
	if s := Suffix(name); s != "" {
		return name[:len(name)-len(s)]
	}
	return name
}

// IsSpecFile reports whether name carries exactly the .txt suffix.
func IsSpecFile(name string) bool {
	return Suffix(name) == SpecSuffix
}
