package k8s

import (
	"context"
	"fmt"
	"slices"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/kinstall/internal/readiness"
)

// Default phases for ResourcePhase when the caller does not supply any.
var (
	DefaultReadyPhases    = []string{"Running", "Ready", "Available"}
	DefaultTerminalPhases = []string{"Failed", "Abnormal"}
)

// crdGVK identifies CustomResourceDefinition objects.
var crdGVK = schema.GroupVersionKind{Group: "apiextensions.k8s.io", Version: "v1", Kind: "CustomResourceDefinition"}

// Container waiting reasons that never resolve without changing the pod spec.
var terminalWaitingReasons = []string{"InvalidImageName", "ErrImageNeverPull", "CreateContainerConfigError"}

// NamespaceActive is ready once the namespace reports phase Active.
func NamespaceActive(r client.Reader, name string) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		ns := &corev1.Namespace{}
		if err := r.Get(ctx, client.ObjectKey{Name: name}, ns); err != nil {
			return readiness.Status{}, err
		}
		return namespaceStatus(ns), nil
	}
}

func namespaceStatus(ns *corev1.Namespace) readiness.Status {
	switch ns.Status.Phase {
	case corev1.NamespaceActive:
		return readiness.Ready("phase Active")
	case corev1.NamespaceTerminating:
		return readiness.Terminal("namespace %s is terminating", ns.Name)
	default:
		return readiness.NotReady("phase %q", ns.Status.Phase)
	}
}

// DeploymentReady is ready once every desired replica is updated and available.
// A deployment scaled to zero is never ready.
func DeploymentReady(r client.Reader, namespace, name string) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		d := &appsv1.Deployment{}
		if err := r.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, d); err != nil {
			return readiness.Status{}, err
		}
		return deploymentStatus(d), nil
	}
}

func deploymentStatus(d *appsv1.Deployment) readiness.Status {
	desired := replicasOrDefault(d.Spec.Replicas)
	if desired == 0 {
		return readiness.NotReady("desired replicas is 0")
	}

	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentProgressing && c.Status == corev1.ConditionFalse && c.Reason == "ProgressDeadlineExceeded" {
			return readiness.Terminal("rollout stalled: %s", c.Message)
		}
	}

	st := d.Status
	switch {
	case st.ObservedGeneration < d.Generation:
		return readiness.NotReady("generation %d not observed yet", d.Generation)
	case st.UpdatedReplicas < desired:
		return readiness.NotReady("%d/%d replicas updated", st.UpdatedReplicas, desired)
	case st.Replicas > st.UpdatedReplicas:
		return readiness.NotReady("%d old replicas pending termination", st.Replicas-st.UpdatedReplicas)
	case st.AvailableReplicas < desired:
		return readiness.NotReady("%d/%d replicas available", st.AvailableReplicas, desired)
	}
	return readiness.Ready("%d/%d replicas available", st.AvailableReplicas, desired)
}

// StatefulSetReady is ready once every desired replica is updated and ready.
func StatefulSetReady(r client.Reader, namespace, name string) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		s := &appsv1.StatefulSet{}
		if err := r.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, s); err != nil {
			return readiness.Status{}, err
		}
		return statefulSetStatus(s), nil
	}
}

func statefulSetStatus(s *appsv1.StatefulSet) readiness.Status {
	desired := replicasOrDefault(s.Spec.Replicas)
	if desired == 0 {
		return readiness.NotReady("desired replicas is 0")
	}

	st := s.Status
	switch {
	case st.ObservedGeneration < s.Generation:
		return readiness.NotReady("generation %d not observed yet", s.Generation)
	case s.Spec.UpdateStrategy.Type != appsv1.OnDeleteStatefulSetStrategyType && st.UpdatedReplicas < desired:
		return readiness.NotReady("%d/%d replicas updated", st.UpdatedReplicas, desired)
	case st.ReadyReplicas < desired:
		return readiness.NotReady("%d/%d replicas ready", st.ReadyReplicas, desired)
	}
	return readiness.Ready("%d/%d replicas ready", st.ReadyReplicas, desired)
}

// DaemonSetReady is ready once every scheduled pod is updated and available.
// A daemonset with nothing scheduled is never ready.
func DaemonSetReady(r client.Reader, namespace, name string) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		ds := &appsv1.DaemonSet{}
		if err := r.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, ds); err != nil {
			return readiness.Status{}, err
		}
		return daemonSetStatus(ds), nil
	}
}

func daemonSetStatus(ds *appsv1.DaemonSet) readiness.Status {
	st := ds.Status
	desired := st.DesiredNumberScheduled
	switch {
	case desired == 0:
		return readiness.NotReady("no pods scheduled")
	case st.ObservedGeneration < ds.Generation:
		return readiness.NotReady("generation %d not observed yet", ds.Generation)
	case st.UpdatedNumberScheduled < desired:
		return readiness.NotReady("%d/%d pods updated", st.UpdatedNumberScheduled, desired)
	case st.NumberAvailable < desired || st.NumberReady < desired:
		return readiness.NotReady("%d/%d pods available", st.NumberAvailable, desired)
	}
	return readiness.Ready("%d/%d pods available", st.NumberAvailable, desired)
}

// PodsReady is ready once at least one pod matches the selector and every
// matching pod is ready on its own.
func PodsReady(r client.Reader, namespace string, selector labels.Selector) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		list := &corev1.PodList{}
		if err := r.List(ctx, list, client.InNamespace(namespace), client.MatchingLabelsSelector{Selector: selector}); err != nil {
			return readiness.Status{}, err
		}
		if len(list.Items) == 0 {
			return readiness.NotReady("no pods match %q", selector.String()), nil
		}
		return podsStatus(list.Items), nil
	}
}

func podsStatus(pods []corev1.Pod) readiness.Status {
	ready := 0
	var waiting []string
	for i := range pods {
		ok, terminal, msg := podStatus(&pods[i])
		if terminal {
			return readiness.Terminal("pod %s: %s", pods[i].Name, msg)
		}
		if ok {
			ready++
			continue
		}
		waiting = append(waiting, pods[i].Name+": "+msg)
	}

	if ready < len(pods) {
		return readiness.NotReady("%d/%d pods ready (%s)", ready, len(pods), strings.Join(waiting, "; "))
	}
	return readiness.Ready("%d/%d pods ready", ready, len(pods))
}

// podStatus requires every declared container to report ready in a Running
// pod. Succeeded pods count as ready, Failed pods are terminal.
func podStatus(pod *corev1.Pod) (ready, terminal bool, msg string) {
	switch pod.Status.Phase {
	case corev1.PodFailed:
		return false, true, fmt.Sprintf("phase Failed %s", pod.Status.Reason)
	case corev1.PodSucceeded:
		return true, false, "phase Succeeded"
	}

	for _, cs := range pod.Status.ContainerStatuses {
		if w := cs.State.Waiting; w != nil && slices.Contains(terminalWaitingReasons, w.Reason) {
			return false, true, fmt.Sprintf("container %s: %s", cs.Name, w.Reason)
		}
	}

	if pod.Status.Phase != corev1.PodRunning {
		return false, false, fmt.Sprintf("phase %s", pod.Status.Phase)
	}

	readyByName := make(map[string]bool, len(pod.Status.ContainerStatuses))
	for _, cs := range pod.Status.ContainerStatuses {
		readyByName[cs.Name] = cs.Ready
	}
	for _, c := range pod.Spec.Containers {
		if !readyByName[c.Name] {
			return false, false, fmt.Sprintf("container %s not ready", c.Name)
		}
	}
	return true, false, "running"
}

// CRDEstablished is ready once the CustomResourceDefinition is Established.
func CRDEstablished(r client.Reader, name string) readiness.Condition {
	return func(ctx context.Context) (readiness.Status, error) {
		crd := &unstructured.Unstructured{}
		crd.SetGroupVersionKind(crdGVK)
		if err := r.Get(ctx, client.ObjectKey{Name: name}, crd); err != nil {
			return readiness.Status{}, err
		}
		return crdStatus(crd), nil
	}
}

func crdStatus(crd *unstructured.Unstructured) readiness.Status {
	conditions, _, _ := unstructured.NestedSlice(crd.Object, "status", "conditions")
	established := false
	for _, raw := range conditions {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		condType, _ := c["type"].(string)
		status, _ := c["status"].(string)
		switch {
		case condType == "NamesAccepted" && status == "False":
			msg, _ := c["message"].(string)
			return readiness.Terminal("names not accepted: %s", msg)
		case condType == "Established" && status == "True":
			established = true
		}
	}
	if !established {
		return readiness.NotReady("not established")
	}
	return readiness.Ready("established")
}

// ResourcePhase is ready once the object's status.phase is one of
// readyPhases and terminal once it is one of terminalPhases.
// Nil slices fall back to DefaultReadyPhases and DefaultTerminalPhases.
func ResourcePhase(r client.Reader, gvk schema.GroupVersionKind, namespace, name string, readyPhases, terminalPhases []string) readiness.Condition {
	if readyPhases == nil {
		readyPhases = DefaultReadyPhases
	}
	if terminalPhases == nil {
		terminalPhases = DefaultTerminalPhases
	}
	return func(ctx context.Context) (readiness.Status, error) {
		obj := &unstructured.Unstructured{}
		obj.SetGroupVersionKind(gvk)
		if err := r.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, obj); err != nil {
			return readiness.Status{}, err
		}
		return phaseStatus(obj, readyPhases, terminalPhases), nil
	}
}

func phaseStatus(obj *unstructured.Unstructured, readyPhases, terminalPhases []string) readiness.Status {
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	switch {
	case phase == "":
		return readiness.NotReady("no phase reported yet")
	case slices.Contains(terminalPhases, phase):
		return readiness.Terminal("phase %s", phase)
	case slices.Contains(readyPhases, phase):
		return readiness.Ready("phase %s", phase)
	}
	return readiness.NotReady("phase %s", phase)
}

func replicasOrDefault(r *int32) int32 {
	if r == nil {
		return 1
	}
	return *r
}
