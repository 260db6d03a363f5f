package layout

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// pair decodes either [a, b], a single scalar used for both, or a mapping
// handled by the caller.
func pair(node *yaml.Node) (a, b int, ok bool, err error) {
	switch node.Kind {
	case yaml.SequenceNode:
		var xs []int
		if err := node.Decode(&xs); err != nil {
			return 0, 0, false, err
		}
		if len(xs) != 2 {
			return 0, 0, false, fmt.Errorf("line %d: expected two values, got %d", node.Line, len(xs))
		}
		return xs[0], xs[1], true, nil
	case yaml.ScalarNode:
		var v int
		if err := node.Decode(&v); err != nil {
			return 0, 0, false, err
		}
		return v, v, true, nil
	}
	return 0, 0, false, nil
}

func (p *Point) UnmarshalYAML(node *yaml.Node) error {
	x, y, ok, err := pair(node)
	if err != nil {
		return err
	}
	if ok {
		p.X, p.Y = x, y
		return nil
	}
	type plain Point
	return node.Decode((*plain)(p))
}

func (p Point) MarshalYAML() (interface{}, error) {
	return flow(p.X, p.Y), nil
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	w, h, ok, err := pair(node)
	if err != nil {
		return err
	}
	if ok {
		s.W, s.H = w, h
		return nil
	}
	type plain Size
	return node.Decode((*plain)(s))
}

func (s Size) MarshalYAML() (interface{}, error) {
	return flow(s.W, s.H), nil
}

func flow(a, b int) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []int{a, b} {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(v)})
	}
	return n
}

// UnmarshalYAML reads a label -> point mapping keeping key order.
func (c *Coordinates) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: coordinates must be a mapping of label to [x, y]", node.Line)
	}
	out := make(Coordinates, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		label := node.Content[i].Value
		if seen[label] {
			return fmt.Errorf("line %d: duplicate coordinate %q", node.Content[i].Line, label)
		}
		seen[label] = true
		var pt Point
		if err := node.Content[i+1].Decode(&pt); err != nil {
			return fmt.Errorf("coordinate %q: %w", label, err)
		}
		out = append(out, Placement{Target: TargetFor(label), At: pt})
	}
	*c = out
	return nil
}

func (c Coordinates) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range c {
		v, _ := p.At.MarshalYAML()
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Target.String()},
			v.(*yaml.Node))
	}
	return n, nil
}

func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (interface{}, error) {
	return c.Hex(), nil
}
