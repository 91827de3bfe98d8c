package steps

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/imamik/kinstall/internal/applier"
	"github.com/imamik/kinstall/internal/helm"
	"github.com/imamik/kinstall/internal/orchestration"
	"github.com/imamik/kinstall/internal/readiness"
)

type fakeReleases struct {
	state    *helm.ReleaseState
	installs []helm.ReleaseSpec
	upgrades []helm.ReleaseSpec
}

func (f *fakeReleases) Get(context.Context, string, string) (*helm.ReleaseState, error) {
	return f.state, nil
}

func (f *fakeReleases) Install(_ context.Context, spec helm.ReleaseSpec) error {
	f.installs = append(f.installs, spec)
	return nil
}

func (f *fakeReleases) Upgrade(_ context.Context, spec helm.ReleaseSpec) error {
	f.upgrades = append(f.upgrades, spec)
	return nil
}

func testMapper() meta.RESTMapper {
	mapper := meta.NewDefaultRESTMapper(nil)
	mapper.Add(schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot)
	mapper.Add(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}, meta.RESTScopeNamespace)
	return mapper
}

func newKit(t *testing.T, releases *fakeReleases, objs ...client.Object) (*Kit, client.Client) {
	t.Helper()
	c := fake.NewClientBuilder().
		WithScheme(clientgoscheme.Scheme).
		WithRESTMapper(testMapper()).
		WithObjects(objs...).
		Build()

	opts := []applier.Option{applier.WithFieldManager("kinstall-test")}
	if releases != nil {
		opts = append(opts, applier.WithReleaseClient(releases))
	}
	return &Kit{
		Applier: applier.New(c, opts...),
		Poller:  readiness.New(nil),
		Reader:  c,
	}, c
}

func newRunContext(t *testing.T) *orchestration.RunContext {
	t.Helper()
	rc := orchestration.NewRunContext(orchestration.RunConfig{LogDir: t.TempDir(), Console: io.Discard})
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}
