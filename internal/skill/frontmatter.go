package skill

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterDelimiter separates front matter from the markdown body.
const frontMatterDelimiter = "---"

// knownFrontMatterKeys are the recognized front-matter keys. Anything else
// is preserved verbatim on round-trip.
var knownFrontMatterKeys = map[string]struct{}{
	"id": {}, "name": {}, "description": {}, "version": {}, "tags": {},
	"requires": {}, "provides": {}, "platforms": {}, "author": {},
	"license": {}, "extends": {}, "replace": {},
}

// splitFrontMatter splits a skill document into its front matter and body.
// The document must start with a --- delimited YAML block.
func splitFrontMatter(text string) (frontMatter, body string, err error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != frontMatterDelimiter {
		return "", "", fmt.Errorf("document must start with %q front matter", frontMatterDelimiter)
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == frontMatterDelimiter {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("unterminated front matter: missing closing %q", frontMatterDelimiter)
}

// parseFrontMatter fills spec metadata from a YAML front-matter block.
// Key order is observed so unknown keys re-emit in their original position
// relative to each other.
func parseFrontMatter(fm string, spec *SkillSpec) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(fm), &doc); err != nil {
		return fmt.Errorf("front matter is not valid YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return fmt.Errorf("front matter is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("front matter must be a key-value mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		key := keyNode.Value

		if _, known := knownFrontMatterKeys[key]; !known {
			raw, err := marshalPair(keyNode, valNode)
			if err != nil {
				return fmt.Errorf("front matter key %q: %w", key, err)
			}
			spec.Extra = append(spec.Extra, ExtraField{Key: key, Raw: raw})
			continue
		}

		var err error
		switch key {
		case "id":
			err = valNode.Decode(&spec.ID)
		case "name":
			err = valNode.Decode(&spec.Name)
		case "description":
			err = valNode.Decode(&spec.Description)
		case "version":
			err = valNode.Decode(&spec.Version)
		case "tags":
			spec.Tags, err = decodeStringList(valNode)
		case "requires":
			spec.Requires, err = decodeStringList(valNode)
		case "provides":
			spec.Provides, err = decodeStringList(valNode)
		case "platforms":
			spec.Platforms, err = decodeStringList(valNode)
		case "author":
			err = valNode.Decode(&spec.Author)
		case "license":
			err = valNode.Decode(&spec.License)
		case "extends":
			if spec.Extends == nil {
				spec.Extends = &Extends{}
			}
			err = valNode.Decode(&spec.Extends.Parent)
		case "replace":
			if spec.Extends == nil {
				spec.Extends = &Extends{}
			}
			replace := make(map[SectionFamily]bool)
			err = valNode.Decode(&replace)
			if err == nil {
				spec.Extends.Replace = replace
			}
		}
		if err != nil {
			return fmt.Errorf("front matter key %q: %w", key, err)
		}
	}

	if spec.Name == "" {
		return fmt.Errorf("front matter is missing required key %q", "name")
	}
	if spec.Description == "" {
		return fmt.Errorf("front matter is missing required key %q", "description")
	}
	if spec.ID == "" {
		spec.ID = Slugify(spec.Name)
	}
	if spec.Tags == nil {
		spec.Tags = []string{}
	}
	return nil
}

// compileFrontMatter emits the deterministic YAML front-matter block for a
// spec: known keys in fixed order, then preserved unknown keys.
func compileFrontMatter(spec *SkillSpec) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	addScalar := func(key, value string) {
		root.Content = append(root.Content,
			scalarNode(key),
			scalarNode(value))
	}
	addList := func(key string, values []string) {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range values {
			seq.Content = append(seq.Content, scalarNode(v))
		}
		root.Content = append(root.Content, scalarNode(key), seq)
	}

	// An id that matches the slugified name is implied; an explicit one
	// must survive the round-trip.
	if spec.ID != "" && spec.ID != Slugify(spec.Name) {
		addScalar("id", spec.ID)
	}
	addScalar("name", spec.Name)
	addScalar("description", spec.Description)
	if spec.Version != "" {
		addScalar("version", spec.Version)
	}
	addList("tags", spec.Tags)
	if len(spec.Requires) > 0 {
		addList("requires", spec.Requires)
	}
	if len(spec.Provides) > 0 {
		addList("provides", spec.Provides)
	}
	if len(spec.Platforms) > 0 {
		addList("platforms", spec.Platforms)
	}
	if spec.Author != "" {
		addScalar("author", spec.Author)
	}
	if spec.License != "" {
		addScalar("license", spec.License)
	}
	if spec.Extends != nil {
		addScalar("extends", spec.Extends.Parent)
		if len(spec.Extends.Replace) > 0 {
			rep := &yaml.Node{Kind: yaml.MappingNode}
			for _, fam := range SectionFamilies() {
				if v, ok := spec.Extends.Replace[fam]; ok {
					rep.Content = append(rep.Content,
						scalarNode(string(fam)),
						boolNode(v))
				}
			}
			root.Content = append(root.Content, scalarNode("replace"), rep)
		}
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontMatterDelimiter)
	b.WriteString("\n")
	b.Write(out)
	for _, extra := range spec.Extra {
		b.WriteString(extra.Raw)
		if !strings.HasSuffix(extra.Raw, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(frontMatterDelimiter)
	b.WriteString("\n")
	return b.String(), nil
}

// marshalPair re-encodes an unknown key-value pair as a standalone YAML
// snippet. Formatting may normalize; the key and value survive verbatim.
func marshalPair(key, value *yaml.Node) (string, error) {
	pair := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, value}}
	out, err := yaml.Marshal(pair)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeStringList accepts either a sequence of strings or a single scalar.
func decodeStringList(node *yaml.Node) ([]string, error) {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

func scalarNode(value string) *yaml.Node {
	// The !!str tag keeps ambiguous scalars ("true", "1.0") quoted as strings.
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func boolNode(v bool) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool"}
	if v {
		n.Value = "true"
	} else {
		n.Value = "false"
	}
	return n
}
