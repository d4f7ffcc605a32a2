package source

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reoring/materia"
)

const mergeTag = "!!merge"

// decodeYAML goes through yaml.Node so repeated keys can be reported with
// their path, or tolerated, instead of failing the whole document.
func decodeYAML(data []byte, o options) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(err)
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return map[string]any{}, nil
	}
	w := &yamlWalker{dup: o.dup, c: &collector{max: o.maxIssues}}
	v, err := w.walk(&doc, "")
	if err != nil {
		return nil, err
	}
	if err := w.c.err(); err != nil {
		return nil, err
	}
	return v, nil
}

type yamlWalker struct {
	dup Duplicates
	c   *collector
}

func (w *yamlWalker) walk(n *yaml.Node, path string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return w.walk(n.Content[0], path)
	case yaml.AliasNode:
		return w.walk(n.Alias, path)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, el := range n.Content {
			v, err := w.walk(el, path+"/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return w.mapping(n, path)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, materia.Issues{{Path: pathOrRoot(path), Code: materia.CodeParseError, Message: err.Error()}}
		}
		return v, nil
	}
	return nil, fmt.Errorf("source: unsupported yaml node kind %d at %s", n.Kind, pathOrRoot(path))
}

func (w *yamlWalker) mapping(n *yaml.Node, path string) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	var merged []map[string]any
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]
		if kn.Kind == yaml.AliasNode {
			kn = kn.Alias
		}
		if kn.ShortTag() == mergeTag {
			ms, err := w.merge(vn, path)
			if err != nil {
				return nil, err
			}
			merged = append(merged, ms...)
			continue
		}
		k := kn.Value
		if _, dup := out[k]; dup && w.dup == DuplicatesReject {
			w.c.duplicate(path+materia.Pointer(k), k)
		}
		v, err := w.walk(vn, path+materia.Pointer(k))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	// explicit keys win over merged ones; earlier merge sources win over later
	for _, m := range merged {
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (w *yamlWalker) merge(n *yaml.Node, path string) ([]map[string]any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		m, err := w.mapping(n, path)
		if err != nil {
			return nil, err
		}
		return []map[string]any{m}, nil
	case yaml.SequenceNode:
		var out []map[string]any
		for _, el := range n.Content {
			ms, err := w.merge(el, path)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		}
		return out, nil
	}
	return nil, materia.Issues{{Path: pathOrRoot(path), Code: materia.CodeInvalidType, Message: "merge value must be a mapping"}}
}

func pathOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
