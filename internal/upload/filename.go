package upload

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxFilenameLen bounds stored names; longer names are cut before the extension.
const maxFilenameLen = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SecureFilename returns a version of name that is safe to use as a single
// path element on any filesystem. Only ASCII letters, digits, '_', '.' and
// '-' survive; path separators become underscores; leading and trailing
// dots and underscores are stripped. The result may be empty.
func SecureFilename(name string) string {
	name = toASCII(name)
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name != "" {
		stem, _, _ := strings.Cut(name, ".")
		if windowsDeviceNames[strings.ToUpper(stem)] {
			name = "_" + name
		}
	}

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) > maxFilenameLen/4 {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}
	return name
}

// toASCII decomposes name (NFKD) and drops everything outside ASCII, so
// accented letters keep their base letter.
func toASCII(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
