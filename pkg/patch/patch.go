package patch

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Args holds resolved launch argument values keyed by argument name.
type Args = map[string]string

type Overrides struct {
	Set   map[string]string `json:"set,omitempty" yaml:"set,omitempty"`
	Unset []string          `json:"unset,omitempty" yaml:"unset,omitempty"`
}

// Apply returns a copy of args with o applied. Unset runs before Set.
func Apply(args Args, o Overrides) (Args, error) {
	out := Args{}
	for k, v := range args {
		out[k] = v
	}
	for _, key := range o.Unset {
		if strings.TrimSpace(key) == "" {
			return nil, errors.New("empty key in unset")
		}
		delete(out, key)
	}
	for key, value := range o.Set {
		if strings.TrimSpace(key) == "" {
			return nil, errors.New("empty key in set")
		}
		out[key] = value
	}
	return out, nil
}

// Merge layers b over a.
func Merge(a, b Overrides) Overrides {
	out := Overrides{
		Set:   map[string]string{},
		Unset: []string{},
	}
	for k, v := range a.Set {
		out.Set[k] = v
	}
	for _, k := range b.Unset {
		delete(out.Set, k)
	}
	for k, v := range b.Set {
		out.Set[k] = v
	}
	seen := map[string]struct{}{}
	for _, k := range append(append([]string{}, a.Unset...), b.Unset...) {
		if _, ok := seen[k]; ok {
			continue
		}
		if _, ok := out.Set[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Unset = append(out.Unset, k)
	}
	return out
}

// ParseAssignments parses ros2-launch style "name:=value" pairs. Plain
// "name=value" is accepted too.
func ParseAssignments(pairs []string) (Overrides, error) {
	out := Overrides{Set: map[string]string{}}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, ":=")
		if !ok {
			k, v, ok = strings.Cut(p, "=")
		}
		if !ok {
			return Overrides{}, errors.Errorf("invalid launch argument %q (expected name:=value)", p)
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return Overrides{}, errors.Errorf("invalid launch argument %q: empty name", p)
		}
		out.Set[k] = v
	}
	return out, nil
}

// Keys returns the keys of o.Set in sorted order.
func (o Overrides) Keys() []string {
	keys := make([]string, 0, len(o.Set))
	for k := range o.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
