package types //nolint:revive // types is a valid package name

import (
	"regexp"
	"testing"
)

func TestVersion_Format(t *testing.T) {
	semverRegex := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	if !semverRegex.MatchString(Version) {
		t.Errorf("Version %q is not a valid semver", Version)
	}
}

func TestFrameContractVersion_MatchesVersion(t *testing.T) {
	if FrameContractVersion != Version {
		t.Errorf("FrameContractVersion %q != Version %q (lockstep versioning violated)", FrameContractVersion, Version)
	}
}
