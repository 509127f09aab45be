package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"keysync/internal/catalog"
)

func decodeYAML(data []byte) (*catalog.Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return catalog.NewTree(), nil
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level value is not a mapping")
	}
	return mappingToTree(root)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func mappingToTree(n *yaml.Node) (*catalog.Tree, error) {
	t := catalog.NewTree()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Tag == "!!merge" {
			continue
		}
		val, err := yamlValue(v)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", k.Value, err)
		}
		t.Set(k.Value, val)
	}
	return t, nil
}

func yamlValue(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		return mappingToTree(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		case "!!int", "!!float":
			if json.Valid([]byte(n.Value)) {
				return json.Number(n.Value), nil
			}
			var f float64
			if err := n.Decode(&f); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return n.Value, nil
			}
			return json.Number(fmt.Sprint(f)), nil
		default:
			return n.Value, nil
		}
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}

// encodeYAML renders tree and carries over the comments of matching keys in previous.
func encodeYAML(tree *catalog.Tree, indent int, previous []byte) ([]byte, error) {
	root := treeToNode(tree)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}

	if len(bytes.TrimSpace(previous)) > 0 {
		var old yaml.Node
		if err := yaml.Unmarshal(previous, &old); err == nil && len(old.Content) > 0 {
			doc.HeadComment, doc.FootComment = old.HeadComment, old.FootComment
			oldRoot := resolveAlias(old.Content[0])
			root.HeadComment, root.FootComment = oldRoot.HeadComment, oldRoot.FootComment
			copyComments(root, oldRoot)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

func treeToNode(t *catalog.Tree) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.Keys() {
		v, _ := t.Get(k)
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueToNode(v),
		)
	}
	return n
}

func valueToNode(v any) *yaml.Node {
	switch x := v.(type) {
	case *catalog.Tree:
		return treeToNode(x)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: x}
	case json.Number:
		tag := "!!int"
		if _, err := x.Int64(); err != nil {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: x.String()}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(x)}
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			seq.Content = append(seq.Content, valueToNode(e))
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(x)}
	}
}

// copyComments moves comments from the pairs of old onto the pairs of n with the same key.
func copyComments(n, old *yaml.Node) {
	if n.Kind != yaml.MappingNode || old.Kind != yaml.MappingNode {
		return
	}
	previous := make(map[string][2]*yaml.Node, len(old.Content)/2)
	for i := 0; i+1 < len(old.Content); i += 2 {
		previous[old.Content[i].Value] = [2]*yaml.Node{old.Content[i], resolveAlias(old.Content[i+1])}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		pair, ok := previous[k.Value]
		if !ok {
			continue
		}
		k.HeadComment, k.LineComment, k.FootComment = pair[0].HeadComment, pair[0].LineComment, pair[0].FootComment
		v.HeadComment, v.LineComment, v.FootComment = pair[1].HeadComment, pair[1].LineComment, pair[1].FootComment
		copyComments(v, pair[1])
	}
}
