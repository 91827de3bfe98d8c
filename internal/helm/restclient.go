package helm

import (
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/imamik/kinstall/internal/k8s"
)

// InMemoryRESTClientGetter implements genericclioptions.RESTClientGetter
// using in-memory kubeconfig bytes instead of filesystem paths.
type InMemoryRESTClientGetter struct {
	kubeconfig  []byte
	contextName string
	namespace   string
	restConfig  *rest.Config
}

// NewInMemoryRESTClientGetter creates a RESTClientGetter bound to one
// kubeconfig context and namespace. An empty context selects the current one.
func NewInMemoryRESTClientGetter(kubeconfig []byte, contextName, namespace string) *InMemoryRESTClientGetter {
	return &InMemoryRESTClientGetter{
		kubeconfig:  kubeconfig,
		contextName: contextName,
		namespace:   namespace,
	}
}

// ToRESTConfig returns a REST config from the kubeconfig bytes.
func (g *InMemoryRESTClientGetter) ToRESTConfig() (*rest.Config, error) {
	if g.restConfig != nil {
		return g.restConfig, nil
	}

	restConfig, err := k8s.RESTConfig(g.kubeconfig, g.contextName)
	if err != nil {
		return nil, err
	}
	g.restConfig = restConfig
	return g.restConfig, nil
}

// ToDiscoveryClient returns a cached discovery client.
func (g *InMemoryRESTClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	restConfig, err := g.ToRESTConfig()
	if err != nil {
		return nil, err
	}

	dc, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, err
	}

	return memory.NewMemCacheClient(dc), nil
}

// ToRESTMapper returns a REST mapper for the cluster.
func (g *InMemoryRESTClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	dc, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}

	return restmapper.NewDeferredDiscoveryRESTMapper(dc), nil
}

// ToRawKubeConfigLoader returns a clientcmd.ClientConfig pinned to the
// getter's context and namespace.
func (g *InMemoryRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	raw, err := clientcmd.Load(g.kubeconfig)
	if err != nil {
		raw = clientcmdapi.NewConfig()
	}
	overrides := &clientcmd.ConfigOverrides{
		CurrentContext: g.contextName,
		Context:        clientcmdapi.Context{Namespace: g.namespace},
	}
	return clientcmd.NewNonInteractiveClientConfig(*raw, g.contextName, overrides, nil)
}
