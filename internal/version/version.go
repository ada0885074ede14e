// Package version implements the comparable Version value type used
// throughout the analyzer: installation core versions, extension
// versions, and upgrade target versions all share this representation.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a normalized major.minor.patch[-suffix] value.
//
// Two Versions are equal iff all four fields match; Compare ignores
// Suffix (pre-release/build metadata never affects ordering here,
// since the analyzer only needs to reason about upgrade windows
// between major/minor/patch lines).
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

var (
	// v12.4.8, v12.4.8-rc1, 12.4.8, 12.4.8-rc1
	plainPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.]+))?$`)
	// dev-12.4, dev-12.4.8
	devPattern = regexp.MustCompile(`^dev-(\d+)\.(\d+)(?:\.(\d+))?$`)
)

// Parse normalizes a version string per spec.md §6.1.
//
// Accepted: "vN.N.N", "N.N.N", "N.N.N-suffix", "dev-N.N", "dev-N.N.N".
// Rejected (returns ok=false): symbolic branch names such as
// "dev-main", anything that isn't dotted numeric, empty strings.
func Parse(raw string) (v Version, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, false
	}

	if m := plainPattern.FindStringSubmatch(s); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		patch, _ := strconv.Atoi(m[3])
		return Version{Major: major, Minor: minor, Patch: patch, Suffix: m[4]}, true
	}

	if m := devPattern.FindStringSubmatch(s); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		patch := 0
		if m[3] != "" {
			patch, _ = strconv.Atoi(m[3])
		}
		return Version{Major: major, Minor: minor, Patch: patch}, true
	}

	return Version{}, false
}

// MustParse is Parse but panics on an unparseable input; reserved for
// literals known at compile time (tests, defaults).
func MustParse(raw string) Version {
	v, ok := Parse(raw)
	if !ok {
		panic(fmt.Sprintf("version: cannot parse %q", raw))
	}
	return v
}

// String renders the canonical form consumed by Parse, satisfying the
// round-trip invariant in spec.md §8: Parse(v.String()) == v.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix != "" {
		return base + "-" + v.Suffix
	}
	return base
}

// Compare returns -1, 0, or 1 comparing major, then minor, then patch.
// Suffix does not participate in ordering.
func (v Version) Compare(other Version) int {
	if d := v.Major - other.Major; d != 0 {
		return sign(d)
	}
	if d := v.Minor - other.Minor; d != 0 {
		return sign(d)
	}
	if d := v.Patch - other.Patch; d != 0 {
		return sign(d)
	}
	return 0
}

// Equal reports whether v and other are identical including Suffix.
func (v Version) Equal(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor &&
		v.Patch == other.Patch && v.Suffix == other.Suffix
}

// IsZero reports whether v is the zero Version (major=minor=patch=0,
// no suffix) — used to distinguish "not yet extracted" from 0.0.0.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0 && v.Suffix == ""
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	default:
		return 0
	}
}
