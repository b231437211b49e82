package version

import (
	"strconv"
	"strings"
)

// Version is set at build time via ldflags
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// GetVersion returns the version without a leading 'v'
func GetVersion() string {
	return strings.TrimPrefix(Version, "v")
}

// GetInfo returns version information
func GetInfo() map[string]string {
	return map[string]string{
		"version":    GetVersion(),
		"git_commit": GitCommit,
		"build_time": BuildTime,
	}
}

// Compare compares two semantic versions.
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func Compare(v1, v2 string) int {
	// Strip 'v' prefix if present
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	// Handle special versions
	if v1 == v2 {
		return 0
	}
	if v1 == "dev" || v1 == "unknown" {
		return -1 // dev/unknown is always "older"
	}
	if v2 == "dev" || v2 == "unknown" {
		return 1
	}

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	maxLen := len(parts1)
	if len(parts2) > maxLen {
		maxLen = len(parts2)
	}

	for i := 0; i < maxLen; i++ {
		var n1, n2 int
		if i < len(parts1) {
			// Handle pre-release suffixes (e.g., "1-beta")
			n1, _ = strconv.Atoi(strings.Split(parts1[i], "-")[0])
		}
		if i < len(parts2) {
			n2, _ = strconv.Atoi(strings.Split(parts2[i], "-")[0])
		}

		if n1 < n2 {
			return -1
		}
		if n1 > n2 {
			return 1
		}
	}

	return 0
}
