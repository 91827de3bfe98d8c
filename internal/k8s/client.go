// Package k8s provides typed access to the target cluster: client
// construction from kubeconfig, the connectivity precondition check, and
// readiness conditions over namespaces, workloads, CRDs and custom resources.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/client-go/discovery"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/failure"
)

// pingTimeout bounds the connectivity check.
const pingTimeout = 10 * time.Second

// Client bundles the controller-runtime client used for apply and status
// queries with the discovery client used for the connectivity check.
type Client struct {
	client.Client

	versioner discovery.ServerVersionInterface
	host      string
}

// ReadKubeconfig loads kubeconfig bytes. An empty path falls back to
// $KUBECONFIG and then to ~/.kube/config.
func ReadKubeconfig(path string) ([]byte, error) {
	if path == "" {
		path = os.Getenv(clientcmd.RecommendedConfigPathEnvVar)
		if i := strings.IndexRune(path, filepath.ListSeparator); i >= 0 {
			path = path[:i]
		}
	}
	if path == "" {
		path = clientcmd.RecommendedHomeFile
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	// #nosec G304 -- kubeconfig path is operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig %s: %w", path, err)
	}
	return data, nil
}

// RESTConfig builds a REST config from kubeconfig bytes, optionally
// selecting a context other than the current one.
func RESTConfig(kubeconfig []byte, contextName string) (*rest.Config, error) {
	raw, err := clientcmd.Load(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	restConfig, err := clientcmd.NewNonInteractiveClientConfig(*raw, contextName, overrides, nil).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}
	return restConfig, nil
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte, contextName string) (*Client, error) {
	restConfig, err := RESTConfig(kubeconfig, contextName)
	if err != nil {
		return nil, err
	}

	c, err := client.New(restConfig, client.Options{Scheme: clientgoscheme.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	pingConfig := rest.CopyConfig(restConfig)
	pingConfig.Timeout = pingTimeout
	dc, err := discovery.NewDiscoveryClientForConfig(pingConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	return &Client{Client: c, versioner: dc, host: restConfig.Host}, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(c client.Client, versioner discovery.ServerVersionInterface) *Client {
	return &Client{Client: c, versioner: versioner, host: "fake"}
}

// Host returns the API server address the client talks to.
func (c *Client) Host() string {
	return c.host
}

// Ping checks that the API server is reachable and returns its version.
// Any failure is reported as a ConnectivityError.
func (c *Client) Ping(ctx context.Context) (string, error) {
	op := "connect to " + c.host

	type result struct {
		version string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		info, err := c.versioner.ServerVersion()
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{version: info.GitVersion}
	}()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return "", failure.Connectivity(op, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", failure.Connectivity(op, r.err)
		}
		return r.version, nil
	}
}
