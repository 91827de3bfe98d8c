package steps

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/config"
	"github.com/imamik/kinstall/internal/k8s"
	"github.com/imamik/kinstall/internal/readiness"
)

// condition builds the readiness condition of a wait. The reader is only
// used when the condition is evaluated, so validation may pass nil.
func condition(r client.Reader, w config.WaitConfig) (readiness.Condition, error) {
	namespace := w.Namespace
	if namespace == "" && w.Kind != config.WaitNamespace && w.Kind != config.WaitCRD {
		namespace = "default"
	}

	switch w.Kind {
	case config.WaitNamespace:
		return k8s.NamespaceActive(r, w.Name), nil
	case config.WaitDeployment:
		return k8s.DeploymentReady(r, namespace, w.Name), nil
	case config.WaitStatefulSet:
		return k8s.StatefulSetReady(r, namespace, w.Name), nil
	case config.WaitDaemonSet:
		return k8s.DaemonSetReady(r, namespace, w.Name), nil
	case config.WaitPods:
		selector, err := labels.Parse(w.Selector)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", w.Selector, err)
		}
		if selector.Empty() {
			return nil, fmt.Errorf("selector %q matches every pod", w.Selector)
		}
		return k8s.PodsReady(r, namespace, selector), nil
	case config.WaitCRD:
		return k8s.CRDEstablished(r, w.Name), nil
	case config.WaitResource:
		gv, err := schema.ParseGroupVersion(w.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid apiVersion %q: %w", w.APIVersion, err)
		}
		if w.ResourceKind == "" {
			return nil, fmt.Errorf("resourceKind is required for %s", w.APIVersion)
		}
		return k8s.ResourcePhase(r, gv.WithKind(w.ResourceKind), w.Namespace, w.Name, w.ReadyPhases, w.TerminalPhases), nil
	}
	return nil, fmt.Errorf("unknown wait kind %q", w.Kind)
}

// budget returns the timeout and poll interval of a wait.
func budget(w config.WaitConfig, timeouts config.Timeouts) (time.Duration, time.Duration) {
	timeout := w.Timeout.Or(timeouts.ForWait(w.Kind))
	interval := w.Interval.Or(timeouts.PollInterval.Or(config.DefaultPollInterval))
	return timeout, interval
}
