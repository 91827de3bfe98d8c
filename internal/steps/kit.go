package steps

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/applier"
	"github.com/imamik/kinstall/internal/readiness"
)

// Kit bundles the cluster-facing collaborators of a step. It is nil for dry
// runs and listings, where only validation happens.
type Kit struct {
	Applier *applier.Applier
	Poller  *readiness.Poller
	Reader  client.Reader
}
