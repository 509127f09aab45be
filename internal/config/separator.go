package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Separator is a string separator that can be disabled with `false`.
type Separator struct {
	Value    string
	Disabled bool
}

// NoSeparator returns a separator that is turned off.
func NoSeparator() *Separator { return &Separator{Disabled: true} }

// String returns the separator, or "" when disabled.
func (s *Separator) String() string {
	if s == nil || s.Disabled {
		return ""
	}
	return s.Value
}

func (s *Separator) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("separator must be a string or false, line %d", n.Line)
	}
	if n.Tag == "!!bool" {
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		if b {
			return fmt.Errorf("separator cannot be true, line %d", n.Line)
		}
		*s = Separator{Disabled: true}
		return nil
	}
	*s = Separator{Value: n.Value, Disabled: n.Value == ""}
	return nil
}

func (s Separator) MarshalYAML() (any, error) {
	if s.Disabled {
		return false, nil
	}
	return s.Value, nil
}
