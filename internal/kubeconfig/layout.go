package kubeconfig

import (
	"bytes"

	yaml "sigs.k8s.io/yaml/goyaml.v3"
)

// layout is the block formatting Marshal reproduces. Blank lines and the
// spacing in front of comments are not recorded by the node tree and are
// normalized on write.
type layout struct {
	indent     int
	compactSeq bool
	// docStart is set when the input opened with an explicit "---".
	docStart bool
}

var kubectlLayout = layout{indent: 2, compactSeq: true}

const (
	minIndent = 2
	maxIndent = 9
)

// detectLayout reads the mapping indent from the first nested block mapping
// and the sequence style from the first block sequence under a key.
func detectLayout(data []byte, root *yaml.Node) layout {
	l := kubectlLayout
	l.docStart = bytes.HasPrefix(data, []byte("---\n")) || bytes.HasPrefix(data, []byte("---\r\n"))
	if indent, ok := mappingIndent(root); ok {
		l.indent = indent
	}
	if compact, ok := sequenceCompact(root); ok {
		l.compactSeq = compact
	}
	return l
}

func isBlock(n *yaml.Node) bool {
	return n.Style&yaml.FlowStyle == 0 && len(n.Content) > 0
}

func mappingIndent(n *yaml.Node) (int, bool) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if value.Kind == yaml.MappingNode && isBlock(value) && value.Content[0].Line > key.Line {
				if indent := value.Content[0].Column - key.Column; indent >= minIndent && indent <= maxIndent {
					return indent, true
				}
			}
			if indent, ok := mappingIndent(value); ok {
				return indent, true
			}
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if indent, ok := mappingIndent(item); ok {
				return indent, true
			}
		}
	}
	return 0, false
}

// sequenceCompact reports whether the first block sequence found starts its
// dashes in the column of the parent key.
func sequenceCompact(n *yaml.Node) (bool, bool) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if value.Kind == yaml.SequenceNode && isBlock(value) && value.Content[0].Line > key.Line {
				// Item nodes start after the "- " marker.
				return value.Content[0].Column-2 == key.Column, true
			}
			if compact, ok := sequenceCompact(value); ok {
				return compact, true
			}
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if compact, ok := sequenceCompact(item); ok {
				return compact, true
			}
		}
	}
	return false, false
}
