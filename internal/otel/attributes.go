package otel

import (
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// attributes converts extra resource labels in key order so the resource is stable.
func attributes(m map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, attribute.String(k, m[k]))
	}
	return kvs
}
