package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var networkNameRegex = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} '&-]{1,118}[\p{L}\p{N}]$`)

var tagSlugRegex = regexp.MustCompile(`^[a-z0-9]{1,20}$`)

var reservedTagSlugs = map[string]struct{}{
	"admin":    {},
	"api":      {},
	"auth":     {},
	"networks": {},
	"members":  {},
	"invites":  {},
	"joins":    {},
	"goals":    {},
	"settings": {},
	"ws":       {},
	"metrics":  {},
	"health":   {},
}

// ValidateNetworkName validates a network display name.
func ValidateNetworkName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed != name {
		return fmt.Errorf("name cannot start or end with whitespace")
	}
	if !networkNameRegex.MatchString(name) {
		return fmt.Errorf("name must be 3-120 characters of letters, numbers, spaces, and '&-")
	}
	return nil
}

// ValidateTagSlug validates the slug portion of a generated tag, before the
// random suffix is appended.
func ValidateTagSlug(slug string) error {
	if !tagSlugRegex.MatchString(slug) {
		return fmt.Errorf("tag slug must be 1-20 lowercase letters or digits")
	}
	if _, exists := reservedTagSlugs[slug]; exists {
		return fmt.Errorf("tag slug is reserved")
	}
	return nil
}

// ValidatePasscode validates a network passcode.
func ValidatePasscode(passcode string) error {
	if len(passcode) < 4 || len(passcode) > 64 {
		return fmt.Errorf("passcode must be 4-64 characters")
	}
	if strings.TrimSpace(passcode) != passcode {
		return fmt.Errorf("passcode cannot start or end with whitespace")
	}
	return nil
}
