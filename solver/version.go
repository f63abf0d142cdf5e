package solver

import "strings"

// Version is a package version in the epoch:pkgver-pkgrel form. The zero
// value is a valid (empty) version: it is older than any version with a
// positive epoch or whose pkgver begins with a digit, and newer than an
// epoch-0 version whose pkgver begins with a letter.
//
// Versions are compared with the domain's vercmp total order, never
// lexicographically. Two textually distinct versions may compare equal
// (e.g. "1.0-1" and "01.0-1"); hashing is by raw string, so callers that
// need exact equality classes should normalize first.
type Version string

func (v Version) String() string {
	return string(v)
}

// Compare returns -1, 0 or 1 if v is older than, equal to, or newer than w
// under vercmp ordering.
func (v Version) Compare(w Version) int {
	return vercmp(string(v), string(w))
}

// Equal reports vercmp equality, which is coarser than string equality.
func (v Version) Equal(w Version) bool {
	return v.Compare(w) == 0
}

// vercmp implements the alpm version comparison: an optional numeric epoch
// before ':', a pkgver, and an optional pkgrel after the last '-'. Epochs
// compare first, then pkgver, then pkgrel; the release tail participates
// only when both sides carry one.
func vercmp(a, b string) int {
	ae, av, ar := parseEVR(a)
	be, bv, br := parseEVR(b)

	if c := rpmvercmp(ae, be); c != 0 {
		return c
	}
	if c := rpmvercmp(av, bv); c != 0 {
		return c
	}
	if ar != "" && br != "" {
		return rpmvercmp(ar, br)
	}
	return 0
}

// parseEVR splits a full version string into epoch, version and release.
// A missing epoch is "0"; a missing release is the empty string.
func parseEVR(s string) (epoch, version, release string) {
	epoch = "0"
	if i := strings.IndexByte(s, ':'); i >= 0 && allDigits(s[:i]) {
		if i > 0 {
			epoch = s[:i]
		}
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		return epoch, s[:i], s[i+1:]
	}
	return epoch, s, ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }

// rpmvercmp walks both strings segment by segment. Segments are maximal
// runs of digits or of letters; any other byte is a separator. A numeric
// segment is always newer than an alphabetic one, numeric segments compare
// as integers (leading zeroes stripped), and alphabetic segments compare
// bytewise. When the shared segments tie, a trailing alphabetic segment
// counts as older ("1.0a" < "1.0") while anything else counts as newer
// ("1.0.1" > "1.0").
func rpmvercmp(a, b string) int {
	if a == b {
		return 0
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		for i < len(a) && !isAlnum(a[i]) {
			i++
		}
		for j < len(b) && !isAlnum(b[j]) {
			j++
		}
		if i >= len(a) || j >= len(b) {
			break
		}

		var as, bs string
		isnum := isDigit(a[i])
		if isnum {
			st := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			as = a[st:i]
			st = j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			bs = b[st:j]
		} else {
			st := i
			for i < len(a) && isAlpha(a[i]) {
				i++
			}
			as = a[st:i]
			st = j
			for j < len(b) && isAlpha(b[j]) {
				j++
			}
			bs = b[st:j]
		}

		if bs == "" {
			// Mismatched segment types. The numeric side is newer.
			if isnum {
				return 1
			}
			return -1
		}

		if isnum {
			as = strings.TrimLeft(as, "0")
			bs = strings.TrimLeft(bs, "0")
			if len(as) != len(bs) {
				if len(as) > len(bs) {
					return 1
				}
				return -1
			}
		}
		if c := strings.Compare(as, bs); c != 0 {
			return c
		}
	}

	switch {
	case i >= len(a) && j >= len(b):
		return 0
	case i >= len(a):
		if isAlpha(b[j]) {
			return 1
		}
		return -1
	default:
		if isAlpha(a[i]) {
			return -1
		}
		return 1
	}
}
