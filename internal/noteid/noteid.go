package noteid

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans the identity inputs of a note: the file name loses its
// .md extension, both parts are lowercased, trimmed, and have their line
// endings normalized, then they are joined with a newline so a file name
// ending where a title begins cannot collide with a different split.
func Normalize(fileName, title string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	f := normalizePart(strings.TrimSuffix(fileName, ".md"))
	t := normalizePart(title)

	return strings.Join([]string{f, t}, "\n")
}

// New returns the stable card identifier for a note: the SHA-256 of its
// normalized file name and title, as a hex string. Content edits do not
// change the id, so scheduling progress survives note revisions.
func New(fileName, title string) string {
	normalized := Normalize(fileName, title)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
