package applier

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"

	"github.com/imamik/kinstall/internal/failure"
)

// ParseDescriptors decodes multi-document YAML or JSON into unstructured
// objects. Empty documents are skipped. Every remaining document must carry
// apiVersion, kind and metadata.name; the first violation fails the whole
// input with a validation error.
func ParseDescriptors(source string, data []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)

	var objs []*unstructured.Unstructured
	for docIndex := 0; ; docIndex++ {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj.Object); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, failure.Validation("parse "+source, fmt.Errorf("document %d: %w", docIndex, err))
		}

		// Skip empty documents (common in multi-doc YAML)
		if len(obj.Object) == 0 {
			continue
		}

		if err := ValidateDescriptor(&obj); err != nil {
			return nil, failure.Validation("parse "+source, fmt.Errorf("document %d: %w", docIndex, err))
		}
		objs = append(objs, &obj)
	}

	return objs, nil
}

// ValidateDescriptor checks that obj names a kind and an identity.
func ValidateDescriptor(obj *unstructured.Unstructured) error {
	var errs []error
	if obj.GetAPIVersion() == "" {
		errs = append(errs, errors.New("apiVersion is required"))
	}
	if obj.GetKind() == "" {
		errs = append(errs, errors.New("kind is required"))
	}
	if obj.GetName() == "" {
		errs = append(errs, errors.New("metadata.name is required"))
	}
	if _, ok := obj.Object["metadata"].(map[string]any); !ok && obj.Object["metadata"] != nil {
		errs = append(errs, errors.New("metadata must be a map"))
	}
	return errors.Join(errs...)
}
