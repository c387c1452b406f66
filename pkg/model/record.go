package model

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrMalformedRecord  = errors.New("record does not split into a feature section and a sequence section")
	ErrNotSingleCluster = errors.New("record is not a single extracted cluster")
)

// CheckRecord is the structural gate a record provider runs before analysis: the
// text must contain the origin delimiter exactly once and, when requireLabel is
// set, carry the single-cluster note written by antiSMASH.
func CheckRecord(text string, requireLabel bool) error {
	if strings.Count(text, OriginDelimiter) != 1 {
		return ErrMalformedRecord
	}
	if requireLabel && !strings.Contains(text, SingleClusterLabel) {
		return ErrNotSingleCluster
	}
	return nil
}

// splitRecord returns the feature section and the raw sequence section.
func splitRecord(text string) (features, origin string, ok bool) {
	parts := strings.Split(text, OriginDelimiter)
	if len(parts) != 2 {
		return text, "", false
	}
	return parts[0], parts[1], true
}

// decodeSequence turns a GenBank ORIGIN section into a lower-cased base string,
// dropping position numbers, whitespace and the "//" terminator.
func decodeSequence(origin string) string {
	var b strings.Builder
	b.Grow(len(origin))
	for _, r := range origin {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
