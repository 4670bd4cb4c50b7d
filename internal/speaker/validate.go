package speaker

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z0-9 _'-]+$`)
	speakerIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ValidateName checks a proposed speaker/profile name against spec §4.5.1's
// allowed character set, returning the lower-cased, validated name.
// Invalid input is rejected, never rewritten (spec §9).
func ValidateName(name string) (string, error) {
	if name == "" || !nameRe.MatchString(name) {
		return "", fmt.Errorf("speaker: invalid name %q: allowed characters are [A-Za-z0-9 _'-]", name)
	}
	return strings.ToLower(name), nil
}

// ValidateSpeakerID checks a speaker-slot id against spec §4.5.1's pattern.
func ValidateSpeakerID(id string) error {
	if id == "" || !speakerIDRe.MatchString(id) {
		return fmt.Errorf("speaker: invalid speaker id %q: allowed characters are [A-Za-z0-9_-]+", id)
	}
	return nil
}
