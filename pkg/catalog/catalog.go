// Package catalog holds named, prebuilt pattern rules for recognised PII
// shapes and groups of them. A Catalog is immutable once built and is handed
// to the policy resolver explicitly; tests can build a minimal one with New.
package catalog

import (
	"fmt"
	"slices"

	"github.com/codeready-toolchain/logmask/pkg/masking"
)

// Entry is the uncompiled definition of a catalog rule.
type Entry struct {
	Name        string
	Pattern     string
	Replacement string
	Description string
}

// Catalog maps stable names to compiled rules.
type Catalog struct {
	rules  map[string]*masking.Rule
	order  []string
	groups map[string][]string
}

// New compiles entries and validates that every group member names an entry.
func New(entries []Entry, groups map[string][]string) (*Catalog, error) {
	c := &Catalog{
		rules:  make(map[string]*masking.Rule, len(entries)),
		order:  make([]string, 0, len(entries)),
		groups: make(map[string][]string, len(groups)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry with pattern %q has no name", e.Pattern)
		}
		if _, dup := c.rules[e.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		rule, err := masking.CompileRule(e.Name, e.Pattern, e.Replacement, e.Description)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Name, err)
		}
		c.rules[e.Name] = rule
		c.order = append(c.order, e.Name)
	}
	for group, members := range groups {
		for _, name := range members {
			if _, ok := c.rules[name]; !ok {
				return nil, fmt.Errorf("catalog group %q references unknown entry %q", group, name)
			}
		}
		c.groups[group] = slices.Clone(members)
	}
	return c, nil
}

// Lookup returns the rule registered under name.
func (c *Catalog) Lookup(name string) (*masking.Rule, bool) {
	r, ok := c.rules[name]
	return r, ok
}

// Group returns the rules of a group in their declared order.
func (c *Catalog) Group(name string) ([]*masking.Rule, bool) {
	members, ok := c.groups[name]
	if !ok {
		return nil, false
	}
	rules := make([]*masking.Rule, len(members))
	for i, m := range members {
		rules[i] = c.rules[m]
	}
	return rules, true
}

// Names returns entry names in definition order.
func (c *Catalog) Names() []string { return slices.Clone(c.order) }

// GroupNames returns the group names, sorted.
func (c *Catalog) GroupNames() []string {
	names := make([]string, 0, len(c.groups))
	for g := range c.groups {
		names = append(names, g)
	}
	slices.Sort(names)
	return names
}

// GroupMembers returns the entry names of a group.
func (c *Catalog) GroupMembers(name string) []string {
	return slices.Clone(c.groups[name])
}

// Rules returns every rule in definition order.
func (c *Catalog) Rules() []*masking.Rule {
	rules := make([]*masking.Rule, len(c.order))
	for i, name := range c.order {
		rules[i] = c.rules[name]
	}
	return rules
}
