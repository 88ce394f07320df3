package slug

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrEmptySlug is returned when a name normalizes to nothing.
	// Callers must supply a usable name; there is no silent default.
	ErrEmptySlug = errors.New("name produces an empty slug")
)

// Make normalizes a display name into a URL-safe slug: lowercase tokens of
// letters (any script) and digits, separated by single hyphens. Consecutive
// separators collapse and leading/trailing hyphens are trimmed.
func Make(name string) (string, error) {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "", ErrEmptySlug
	}
	return s, nil
}

// Candidate returns the nth probe value for a base slug:
// base, base-1, base-2, ...
func Candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Checker reports whether a slug is already taken. Implementations are
// advisory only; the storage layer's uniqueness constraint is authoritative
// and allocation is retried when it rejects a commit.
type Checker func(ctx context.Context, slug string) (bool, error)

// Allocator assigns collision-free slugs by probing candidates in order.
type Allocator struct {
	IsTaken Checker
}

// maxProbes bounds the candidate scan; with a storage-level retry on top a
// deeper scan would mean something is badly wrong with the data.
const maxProbes = 1000

// Allocate normalizes name and returns the first free candidate. ownPrior is
// the slug the record itself currently holds, so renaming back to a slug the
// record previously owned is not treated as a collision.
func (a Allocator) Allocate(ctx context.Context, name, ownPrior string) (string, error) {
	base, err := Make(name)
	if err != nil {
		return "", err
	}

	for n := 0; n < maxProbes; n++ {
		candidate := Candidate(base, n)
		if candidate == ownPrior {
			return candidate, nil
		}
		taken, err := a.IsTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free slug found for base %q", base)
}
