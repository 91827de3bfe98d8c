package applier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/kinstall/internal/failure"
	"github.com/imamik/kinstall/internal/helm"
)

// ReleaseKind is the identity kind reported for helm releases.
const ReleaseKind = "Release"

// ReleaseClient is the subset of the helm client ApplyRelease needs. Get
// returns nil without error when the release does not exist.
type ReleaseClient interface {
	Get(ctx context.Context, namespace, name string) (*helm.ReleaseState, error)
	Install(ctx context.Context, spec helm.ReleaseSpec) error
	Upgrade(ctx context.Context, spec helm.ReleaseSpec) error
}

// ApplyRelease installs or upgrades spec. A single lookup by release name
// picks the branch and both branches receive the same spec. A deployed
// release already at the pinned chart version with equal values is left
// untouched.
func (a *Applier) ApplyRelease(ctx context.Context, spec helm.ReleaseSpec) (Result, error) {
	id := Identity{Kind: ReleaseKind, Namespace: spec.Namespace, Name: spec.Name}
	op := "apply " + id.String()

	if err := spec.Validate(); err != nil {
		return Result{Identity: id, Outcome: OutcomeError}, failure.Validation(op, err)
	}
	if a.releases == nil {
		return Result{Identity: id, Outcome: OutcomeError}, failure.Apply(op, errors.New("no release client configured"))
	}

	current, err := a.releases.Get(ctx, spec.Namespace, spec.Name)
	if err != nil {
		return Result{Identity: id, Outcome: OutcomeError}, releaseError(ctx, op, err)
	}

	if current == nil {
		if err := a.releases.Install(ctx, spec); err != nil {
			return Result{Identity: id, Outcome: OutcomeError}, releaseError(ctx, op, err)
		}
		return Result{Identity: id, Outcome: OutcomeCreated}, nil
	}

	if upToDate(current, spec) {
		return Result{Identity: id, Outcome: OutcomeUnchanged}, nil
	}

	if err := a.releases.Upgrade(ctx, spec); err != nil {
		return Result{Identity: id, Outcome: OutcomeError}, releaseError(ctx, op, err)
	}
	return Result{Identity: id, Outcome: OutcomeUpdated}, nil
}

// upToDate reports whether current already matches spec. An unpinned
// version always upgrades since the latest chart version is unknown here.
func upToDate(current *helm.ReleaseState, spec helm.ReleaseSpec) bool {
	if !current.Deployed() || spec.Version == "" {
		return false
	}
	if strings.TrimPrefix(current.ChartVersion, "v") != strings.TrimPrefix(spec.Version, "v") {
		return false
	}
	return helm.ValuesEqual(current.Values, spec.Values)
}

// releaseError classifies a helm failure. Helm's own wait reports a timeout
// when resources did not converge in time.
func releaseError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return failure.Canceled(op, err)
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timed out waiting"):
		return failure.ReadinessTimeout(op, fmt.Errorf("release did not become ready: %w", err))
	default:
		return failure.Apply(op, err)
	}
}
