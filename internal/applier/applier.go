package applier

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/failure"
)

// DefaultFieldManager identifies kinstall's writes in managedFields.
const DefaultFieldManager = "kinstall"

// Outcome is the effect an apply had on the cluster.
type Outcome string

// Apply outcomes.
const (
	OutcomeCreated   Outcome = "Created"
	OutcomeUpdated   Outcome = "Updated"
	OutcomeUnchanged Outcome = "Unchanged"
	OutcomeError     Outcome = "Error"
)

// Identity names the resource an apply acted on.
type Identity struct {
	Kind      string
	Namespace string
	Name      string
}

func (i Identity) String() string {
	if i.Namespace == "" {
		return i.Kind + " " + i.Name
	}
	return i.Kind + " " + i.Namespace + "/" + i.Name
}

// Result is the outcome of applying one descriptor or release.
type Result struct {
	Identity Identity
	Outcome  Outcome
}

// Applier applies descriptors through a controller-runtime client and
// releases through a ReleaseClient.
type Applier struct {
	client       client.Client
	releases     ReleaseClient
	fieldManager string
}

// Option configures an Applier.
type Option func(*Applier)

// WithFieldManager sets the field manager recorded on writes.
func WithFieldManager(name string) Option {
	return func(a *Applier) {
		if name != "" {
			a.fieldManager = name
		}
	}
}

// WithReleaseClient sets the client used by ApplyRelease.
func WithReleaseClient(rc ReleaseClient) Option {
	return func(a *Applier) {
		a.releases = rc
	}
}

// New creates an Applier writing through c.
func New(c client.Client, opts ...Option) *Applier {
	a := &Applier{
		client:       c,
		fieldManager: DefaultFieldManager,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ApplyAll parses data and applies every document in order. All documents
// are validated before the first one is sent. Application stops at the first
// failing document; the results of the documents applied so far are returned.
func (a *Applier) ApplyAll(ctx context.Context, source string, data []byte) ([]Result, error) {
	objs, err := ParseDescriptors(source, data)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(objs))
	for _, obj := range objs {
		res, err := a.Apply(ctx, obj)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Apply creates obj when it does not exist, merge-patches its declared fields
// when they differ from the live object, and otherwise leaves it untouched.
// Namespaced objects without a namespace go to "default".
func (a *Applier) Apply(ctx context.Context, obj *unstructured.Unstructured) (Result, error) {
	id := identityOf(obj)
	if err := ValidateDescriptor(obj); err != nil {
		return Result{Identity: id, Outcome: OutcomeError}, failure.Validation("apply "+id.String(), err)
	}

	desired := &unstructured.Unstructured{Object: declaredFields(obj.Object)}
	if desired.GetNamespace() == "" {
		namespaced, err := a.client.IsObjectNamespaced(desired)
		if err != nil {
			return Result{Identity: id, Outcome: OutcomeError}, a.applyError(ctx, id, fmt.Errorf("failed to resolve scope of %s: %w", desired.GroupVersionKind(), err))
		}
		if namespaced {
			desired.SetNamespace("default")
		}
	}
	id = identityOf(desired)

	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(desired.GroupVersionKind())
	err := a.client.Get(ctx, client.ObjectKeyFromObject(desired), existing)
	switch {
	case apierrors.IsNotFound(err):
		if err := a.client.Create(ctx, desired, client.FieldOwner(a.fieldManager)); err != nil {
			return Result{Identity: id, Outcome: OutcomeError}, a.applyError(ctx, id, fmt.Errorf("failed to create: %w", err))
		}
		return Result{Identity: id, Outcome: OutcomeCreated}, nil
	case err != nil:
		return Result{Identity: id, Outcome: OutcomeError}, a.applyError(ctx, id, fmt.Errorf("failed to get: %w", err))
	}

	if contains(existing.Object, desired.Object) {
		return Result{Identity: id, Outcome: OutcomeUnchanged}, nil
	}

	merged := existing.DeepCopy()
	overlay(merged.Object, desired.Object)
	if err := a.client.Patch(ctx, merged, client.MergeFrom(existing), client.FieldOwner(a.fieldManager)); err != nil {
		return Result{Identity: id, Outcome: OutcomeError}, a.applyError(ctx, id, fmt.Errorf("failed to patch: %w", err))
	}
	return Result{Identity: id, Outcome: OutcomeUpdated}, nil
}

func (a *Applier) applyError(ctx context.Context, id Identity, err error) error {
	if ctx.Err() != nil {
		return failure.Canceled("apply "+id.String(), ctx.Err())
	}
	return failure.Apply("apply "+id.String(), err)
}

func identityOf(obj *unstructured.Unstructured) Identity {
	return Identity{
		Kind:      obj.GetKind(),
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}
