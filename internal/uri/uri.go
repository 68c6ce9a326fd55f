// Package uri converts between filesystem paths and the file:// URIs an
// LSP client speaks. Percent-encoding here is deliberately narrow —
// space, the RFC 3986 "reserved" and "sub-delims" punctuation a real
// path can contain (# $ & ( ) + , ; ? @), and a Windows drive-letter
// colon — rather than a general URL-encoder, matching
// lsDocumentUri::SetPath/GetPath.
//
// Grounded on discover.go's filepath.Abs/filepath.ToSlash convention for
// normalizing a path before doing anything else with it.
package uri

import (
	"fmt"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

var escapes = []struct {
	raw     string
	encoded string
}{
	{" ", "%20"},
	{"#", "%23"},
	{"$", "%24"},
	{"&", "%26"},
	{"(", "%28"},
	{")", "%29"},
	{"+", "%2B"},
	{",", "%2C"},
	{";", "%3B"},
	{"?", "%3F"},
	{"@", "%40"},
}

// FromPath converts an absolute filesystem path into a file:// URI.
func FromPath(path string) string {
	p := filepath.ToSlash(path)

	// A Windows drive letter ("C:/...") has its colon encoded so the
	// URI's scheme-separator colon stays unambiguous.
	if len(p) >= 2 && p[1] == ':' && isDriveLetter(p[0]) {
		p = p[:1] + "%3A" + p[2:]
	}

	for _, e := range escapes {
		p = strings.ReplaceAll(p, e.raw, e.encoded)
	}
	return fileScheme + p
}

// ToPath converts a file:// URI back into a filesystem path.
func ToPath(u string) (string, error) {
	if !strings.HasPrefix(u, fileScheme) {
		return "", fmt.Errorf("uri: %q is not a file:// URI", u)
	}
	p := strings.TrimPrefix(u, fileScheme)

	p = strings.ReplaceAll(p, "%3A", ":")
	for _, e := range escapes {
		p = strings.ReplaceAll(p, e.encoded, e.raw)
	}

	// filepath.FromSlash is deliberately not called: an LSP client on
	// any platform sends forward-slashed URIs, and callers that need a
	// native-separator path convert explicitly at the OS boundary.
	return p, nil
}

func isDriveLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
