package plan

import (
	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/sources"
)

// AvailabilityCheck reports whether a nix attr can be realized on this
// host. The production implementation shells out to nix eval.
type AvailabilityCheck func(attr string) (available bool, reason string)

// ErrPlatformUnavailable marks a package skipped because no same-source
// candidate is available on this platform.
var ErrPlatformUnavailable = errors.New("platform unavailable")

// SelectAvailable returns chosen when its attr is available here, or the
// next candidate from the same source that is. Non-nix sources skip the
// check entirely.
func SelectAvailable(chosen sources.Result, ranked []sources.Result, check AvailabilityCheck) (sources.Result, error) {
	if !chosen.Source.RequiresAttr() || check == nil {
		return chosen, nil
	}

	if ok, _ := check(chosen.Attr); ok {
		return chosen, nil
	}

	for _, candidate := range ranked {
		if candidate.Source != chosen.Source || candidate.Attr == chosen.Attr || candidate.Attr == "" {
			continue
		}
		if ok, _ := check(candidate.Attr); ok {
			return candidate, nil
		}
	}

	return sources.Result{}, errors.Wrapf(ErrPlatformUnavailable,
		"'%s' (%s)", chosen.Name, sources.CurrentSystem())
}
