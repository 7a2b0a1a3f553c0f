package kubeconfig

import (
	"bytes"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
	sigsyaml "sigs.k8s.io/yaml"
	yaml "sigs.k8s.io/yaml/goyaml.v3"

	"kcfg/pkg/logging"
)

// Parse decodes a kubeconfig document. Fields outside the schema are kept in
// the document tree and emitted unchanged by Marshal.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newError(ErrParse, "", err)
	}
	cfg, err := fromDocument(&doc)
	if err != nil {
		return nil, newError(ErrParse, "", err)
	}
	cfg.layout = detectLayout(data, cfg.root)

	// kubectl config delete-context leaves current-context pointing nowhere.
	// Such a file is still usable; the stale name is ignored until the next
	// selection overwrites it.
	if cfg.currentContext != "" && cfg.Context(cfg.currentContext) == nil {
		logging.Warn(storeSubsystem, "current-context %q does not name a context, treating it as unset", cfg.currentContext)
		cfg.currentContext = ""
	}

	if err := cfg.Validate(); err != nil {
		// A file that is already inconsistent is reported as malformed input.
		return nil, newError(ErrParse, "", unwrapViolations(err))
	}
	return cfg, nil
}

// Marshal serializes the document with the indentation detected at parse
// time. Where the input shows none, kubectl's layout applies: two-space
// indent and sequences flush with their parent key.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if c.layout.docStart {
		buf.WriteString("---\n")
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(c.layout.indent)
	if c.layout.compactSeq {
		enc.CompactSeqIndent()
	}
	if err := enc.Encode(c.doc); err != nil {
		return nil, fmt.Errorf("failed to encode kubeconfig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode kubeconfig: %w", err)
	}
	return buf.Bytes(), nil
}

func fromDocument(doc *yaml.Node) (*Config, error) {
	if doc.Kind == 0 {
		// Empty file.
		doc.Kind = yaml.DocumentNode
	}
	if doc.Kind != yaml.DocumentNode {
		return nil, fmt.Errorf("unexpected YAML node kind %d at top level", doc.Kind)
	}
	if len(doc.Content) == 0 || isNull(doc.Content[0]) {
		doc.Content = []*yaml.Node{newMapping()}
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}

	cfg := &Config{doc: doc, root: root, layout: kubectlLayout}

	err := eachEntry(root, clustersKey, "cluster", func(name string, item, body *yaml.Node) error {
		cl := &Cluster{Name: name, item: item}
		if err := decodeInto(body, &cl.Cluster); err != nil {
			return fmt.Errorf("cluster %q: %w", name, err)
		}
		cfg.clusters = append(cfg.clusters, cl)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachEntry(root, usersKey, "user", func(name string, item, body *yaml.Node) error {
		u := &User{Name: name, item: item}
		if err := decodeInto(body, &u.AuthInfo); err != nil {
			return fmt.Errorf("user %q: %w", name, err)
		}
		cfg.users = append(cfg.users, u)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachEntry(root, contextsKey, "context", func(name string, item, body *yaml.Node) error {
		ctx := &Context{Name: name, item: item}
		if err := decodeInto(body, &ctx.Context); err != nil {
			return fmt.Errorf("context %q: %w", name, err)
		}
		cfg.contexts = append(cfg.contexts, ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cur := mappingValue(root, currentContextKey); cur != nil && !isNull(cur) {
		if cur.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%s is not a string", currentContextKey)
		}
		cfg.currentContext = cur.Value
	}
	return cfg, nil
}

// eachEntry walks a named list such as "clusters", handing each entry's name,
// item node and body node (the value under bodyKey) to fn.
func eachEntry(root *yaml.Node, key, bodyKey string, fn func(name string, item, body *yaml.Node) error) error {
	seq := mappingValue(root, key)
	if isNull(seq) {
		return nil
	}
	if seq.Kind != yaml.SequenceNode {
		return fmt.Errorf("%s is not a list", key)
	}
	seen := sets.New[string]()
	for i, item := range seq.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode {
			return fmt.Errorf("%s[%d] is not a mapping", key, i)
		}
		name, ok := scalarValue(item, "name")
		if !ok || name == "" {
			return fmt.Errorf("%s[%d] has no name", key, i)
		}
		if seen.Has(name) {
			return fmt.Errorf("duplicate %s name %q", bodyKey, name)
		}
		seen.Insert(name)
		if mappingIndex(item, bodyKey) < 0 {
			return fmt.Errorf("%s %q has no %s field", bodyKey, name, bodyKey)
		}
		body := mappingValue(item, bodyKey)
		if !isNull(body) && body.Kind != yaml.MappingNode {
			return fmt.Errorf("%s %q: %s is not a mapping", bodyKey, name, bodyKey)
		}
		if err := fn(name, item, body); err != nil {
			return err
		}
	}
	return nil
}

// decodeInto converts a YAML subtree into one of client-go's v1 kubeconfig
// types, which carry JSON tags only.
func decodeInto(body *yaml.Node, out any) error {
	if isNull(body) {
		return nil
	}
	data, err := yaml.Marshal(body)
	if err != nil {
		return err
	}
	return sigsyaml.Unmarshal(data, out)
}
