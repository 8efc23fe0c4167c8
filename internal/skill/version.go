package skill

import (
	"strings"

	"golang.org/x/mod/semver"
)

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// ValidVersion reports whether v is a semantic version, with or without
// a leading "v".
func ValidVersion(v string) bool {
	return canonical(v) != ""
}

// CompareVersions compares two versions with semver precedence. Invalid
// versions sort below valid ones; two invalid versions compare as strings.
func CompareVersions(a, b string) int {
	ca, cb := canonical(a), canonical(b)
	switch {
	case ca == "" && cb == "":
		return strings.Compare(a, b)
	case ca == "":
		return -1
	case cb == "":
		return 1
	}
	return semver.Compare(ca, cb)
}
