package kubeconfig

import (
	yaml "sigs.k8s.io/yaml/goyaml.v3"
)

const (
	strTag  = "!!str"
	nullTag = "!!null"
)

// resolve follows aliases so readers see the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == nullTag)
}

// mappingIndex returns the index of key's key node in m.Content, or -1.
func mappingIndex(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	m = resolve(m)
	i := mappingIndex(m, key)
	if i < 0 {
		return nil
	}
	return resolve(m.Content[i+1])
}

func scalarValue(m *yaml.Node, key string) (string, bool) {
	v := mappingValue(m, key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == nullTag {
		return "", false
	}
	return v.Value, true
}

// setMappingValue replaces the value under key, appending the pair when the
// key is absent so existing key order is never disturbed.
func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	if i := mappingIndex(m, key); i >= 0 {
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content, newScalar(key), value)
}

func setMappingScalar(m *yaml.Node, key, value string) {
	if i := mappingIndex(m, key); i >= 0 {
		cur := m.Content[i+1]
		if cur.Kind == yaml.ScalarNode {
			cur.Tag = strTag
			cur.Value = value
			cur.Style = 0
			return
		}
	}
	setMappingValue(m, key, newScalar(value))
}

func deleteMappingKey(m *yaml.Node, key string) bool {
	i := mappingIndex(m, key)
	if i < 0 {
		return false
	}
	m.Content = append(m.Content[:i], m.Content[i+2:]...)
	return true
}

func newScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: strTag, Value: value}
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// removeItem drops item from the sequence seq.
func removeItem(seq, item *yaml.Node) bool {
	if seq == nil {
		return false
	}
	for i, n := range seq.Content {
		if n == item || resolve(n) == item {
			seq.Content = append(seq.Content[:i], seq.Content[i+1:]...)
			return true
		}
	}
	return false
}
