package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const tagSlugMaxLen = 20

// slugify reduces a display name to the lowercase alphanumeric slug used in
// generated tags.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		if b.Len() >= tagSlugMaxLen {
			break
		}
	}
	return b.String()
}

// newTag builds a tag from the slug plus a random 3-byte hex suffix so two
// networks with the same name still get distinct tags.
func newTag(slug string) (string, error) {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate tag suffix: %w", err)
	}
	return "@" + slug + hex.EncodeToString(suffix), nil
}
