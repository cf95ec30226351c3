package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe as a single path segment. The result is
// NFC-normalized, control characters are dropped, whitespace runs collapse to
// one space, and leading dots are removed so exports never become hidden files.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimLeft(b.String(), ".")
}

// StemFileBase names an exported stem after its source file, e.g.
// "My Song.mp3" + "vocals" gives "My Song_vocals". An empty or unusable
// source yields the stem name alone.
func StemFileBase(source, stem string) string {
	base := filepath.Base(strings.TrimSpace(source))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	base = SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if base == "" {
		return stem
	}
	return base + "_" + stem
}
