package helm

import (
	"fmt"
	"sort"
)

// ChartSpec locates a chart: its repository, chart name and default version.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
	Namespace  string
}

// DefaultCharts lists the bundled addons that a release step may reference by
// name instead of spelling out repository and chart.
var DefaultCharts = map[string]ChartSpec{
	"karpenter": {
		Repository: "oci://public.ecr.aws/karpenter",
		Name:       "karpenter",
		Version:    "1.0.6",
		Namespace:  "kube-system",
	},
	"kubeblocks": {
		Repository: "https://apecloud.github.io/helm-charts",
		Name:       "kubeblocks",
		Version:    "1.0.0",
		Namespace:  "kb-system",
	},
	"milvus-operator": {
		Repository: "https://zilliztech.github.io/milvus-operator",
		Name:       "milvus-operator",
		Version:    "1.2.1",
		Namespace:  "milvus-operator",
	},
	"clickhouse-operator": {
		Repository: "https://helm.altinity.com",
		Name:       "altinity-clickhouse-operator",
		Version:    "0.25.5",
		Namespace:  "clickhouse",
	},
	"kube-prometheus-stack": {
		Repository: "https://prometheus-community.github.io/helm-charts",
		Name:       "kube-prometheus-stack",
		Version:    "77.6.2",
		Namespace:  "monitoring",
	},
	"argo-cd": {
		Repository: "https://argoproj.github.io/argo-helm",
		Name:       "argo-cd",
		Version:    "9.3.5",
		Namespace:  "argocd",
	},
}

// LookupChart returns the catalog entry for addon with any non-empty field of
// override applied on top.
func LookupChart(addon string, override ChartSpec) (ChartSpec, error) {
	spec, ok := DefaultCharts[addon]
	if !ok {
		return ChartSpec{}, fmt.Errorf("unknown addon %q (known: %v)", addon, CatalogNames())
	}

	if override.Repository != "" {
		spec.Repository = override.Repository
	}
	if override.Name != "" {
		spec.Name = override.Name
	}
	if override.Version != "" {
		spec.Version = override.Version
	}
	if override.Namespace != "" {
		spec.Namespace = override.Namespace
	}

	return spec, nil
}

// CatalogNames returns the sorted addon names of the catalog.
func CatalogNames() []string {
	names := make([]string, 0, len(DefaultCharts))
	for name := range DefaultCharts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
