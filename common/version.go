package common

import "fmt"

const (
	major = 0
	minor = 3
	patch = 0

	// Version is a numeric version of the identity contracts. State digest
	// layout and action encoding do not change within a major version.
	Version = major*1_000_000 + minor*1_000 + patch
)

// VersionString returns Version in 'major.minor.patch' form.
func VersionString() string {
	return fmt.Sprintf("%d.%d.%d", Version/1_000_000, Version/1_000%1_000, Version%1_000)
}
