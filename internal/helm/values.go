package helm

import (
	"bytes"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/cli/values"
	"helm.sh/helm/v3/pkg/getter"
	sigsyaml "sigs.k8s.io/yaml"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge deep-merges multiple Values maps with later maps taking precedence.
// Nested maps are merged key by key; any other value replaces the earlier one.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := make(map[string]any, len(dstMap))
			mergeInto(merged, dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		if srcIsMap {
			copied := make(map[string]any, len(srcMap))
			mergeInto(copied, srcMap)
			dst[k] = copied
			continue
		}
		dst[k] = v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Values:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	if values == nil {
		values = Values{}
	}
	return values, nil
}

// ValueSources describes where the values of a release come from. Files are
// merged first, then Set expressions (helm --set syntax), then Inline.
type ValueSources struct {
	Files  []string
	Set    []string
	Inline Values
}

// Empty reports whether no source is configured.
func (s ValueSources) Empty() bool {
	return len(s.Files) == 0 && len(s.Set) == 0 && len(s.Inline) == 0
}

// Resolve reads the configured sources and merges them into one Values map.
func (s ValueSources) Resolve() (Values, error) {
	opts := &values.Options{
		ValueFiles: s.Files,
		Values:     s.Set,
	}
	base, err := opts.MergeValues(getter.All(cli.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to read chart values: %w", err)
	}
	return Merge(base, s.Inline), nil
}

// Normalize converts values to their JSON representation so that maps read
// from YAML compare equal to values stored in a release.
func Normalize(v Values) (Values, error) {
	if len(v) == 0 {
		return Values{}, nil
	}
	data, err := sigsyaml.Marshal(map[string]any(v))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize values: %w", err)
	}
	out := Values{}
	if err := sigsyaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize values: %w", err)
	}
	return out, nil
}

// ValuesEqual reports whether two value maps are equal after normalization.
func ValuesEqual(a, b Values) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}
