// Package policy resolves layered, possibly partial masking configuration
// into an immutable Policy. All validation happens here, so a Policy that
// exists can always be applied without error.
package policy

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/codeready-toolchain/logmask/pkg/catalog"
	"github.com/codeready-toolchain/logmask/pkg/masking"
)

// DefaultMaskValue replaces fields addressed by a sensitive path unless a
// policy sets its own.
const DefaultMaskValue = "[REDACTED]"

// Spec is a partial policy as written in configuration. Nil scalar fields
// are inherited from lower layers.
type Spec struct {
	// Presets are expanded underneath this spec, in order.
	Presets        []string      `yaml:"presets,omitempty" json:"presets,omitempty"`
	SensitivePaths []string      `yaml:"sensitive_paths,omitempty" json:"sensitivePaths,omitempty"`
	MaskValue      *string       `yaml:"mask_value,omitempty" json:"maskValue,omitempty"`
	DeepScan       *bool         `yaml:"deep_scan,omitempty" json:"deepScan,omitempty"`
	PartialMasking *bool         `yaml:"partial_masking,omitempty" json:"partialMasking,omitempty"`
	Patterns       []PatternSpec `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// PatternSpec is exactly one of: a catalog entry reference, a catalog group
// reference, or an inline pattern. Replacement overrides a catalog entry's
// default replacement, or sets the inline pattern's.
type PatternSpec struct {
	Catalog     string `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Group       string `yaml:"group,omitempty" json:"group,omitempty"`
	Pattern     string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

func (p PatternSpec) String() string {
	switch {
	case p.Catalog != "":
		return "catalog:" + p.Catalog
	case p.Group != "":
		return "group:" + p.Group
	}
	return p.Pattern
}

// Policy is the resolved redaction configuration of a logger. It is
// read-only and safe for concurrent use.
type Policy struct {
	rules          []*masking.Rule
	paths          []masking.Path
	maskValue      string
	deepScan       bool
	partialMasking bool
}

// Empty returns a policy with no rules and no paths. Masking a record with
// it returns the record unchanged.
func Empty() *Policy {
	return &Policy{maskValue: DefaultMaskValue, deepScan: true}
}

// Rules returns the pattern rules in application order.
func (p *Policy) Rules() []*masking.Rule { return slices.Clone(p.rules) }

// Paths returns the sensitive paths, deduplicated.
func (p *Policy) Paths() []masking.Path { return slices.Clone(p.paths) }

// SensitivePaths returns the sensitive paths in dotted form.
func (p *Policy) SensitivePaths() []string {
	return lo.Map(p.paths, func(path masking.Path, _ int) string { return path.String() })
}

// MaskValue returns the literal used for path masking.
func (p *Policy) MaskValue() string { return p.maskValue }

// DeepScan reports whether pattern rules recurse into nested values.
func (p *Policy) DeepScan() bool { return p.deepScan }

// PartialMasking reports the configured flag. It has no behaviour of its
// own: partial output such as ****-1234 comes from replacement templates.
func (p *Policy) PartialMasking() bool { return p.partialMasking }

// IsEmpty reports whether the policy masks nothing.
func (p *Policy) IsEmpty() bool { return len(p.rules) == 0 && len(p.paths) == 0 }

// layer is one spec to merge, labelled for error reporting.
type layer struct {
	source string
	spec   Spec
}

// Resolve merges bases then override into a Policy, looking catalog
// references up in cat.
//
// Patterns are concatenated in layer order. Sensitive paths are concatenated
// and deduplicated, first occurrence winning. MaskValue, DeepScan and
// PartialMasking come from the last layer that sets them, falling back to
// DefaultMaskValue, true and false. An empty MaskValue counts as unset. Presets named by a spec are merged
// immediately below that spec.
//
// Any invalid pattern, path, preset or catalog reference yields a
// *ConfigurationError. A nil cat selects catalog.Builtin.
func Resolve(cat *catalog.Catalog, override Spec, bases ...Spec) (*Policy, error) {
	if cat == nil {
		cat = catalog.Builtin()
	}
	var layers []layer
	for i, b := range bases {
		expanded, err := expand(fmt.Sprintf("base[%d]", i), b)
		if err != nil {
			return nil, err
		}
		layers = append(layers, expanded...)
	}
	expanded, err := expand("override", override)
	if err != nil {
		return nil, err
	}
	layers = append(layers, expanded...)

	p := Empty()
	var paths []string
	for _, l := range layers {
		rules, err := compilePatterns(cat, l)
		if err != nil {
			return nil, err
		}
		p.rules = append(p.rules, rules...)

		for i, raw := range l.spec.SensitivePaths {
			if _, err := masking.ParsePath(raw); err != nil {
				return nil, newConfigurationError(l.source, "sensitive_paths", i, raw, err)
			}
		}
		paths = append(paths, l.spec.SensitivePaths...)

		if l.spec.MaskValue != nil && *l.spec.MaskValue != "" {
			p.maskValue = *l.spec.MaskValue
		}
		if l.spec.DeepScan != nil {
			p.deepScan = *l.spec.DeepScan
		}
		if l.spec.PartialMasking != nil {
			p.partialMasking = *l.spec.PartialMasking
		}
	}

	for _, raw := range lo.Uniq(paths) {
		p.paths = append(p.paths, masking.MustParsePath(raw))
	}
	return p, nil
}

// expand returns the presets named by spec followed by spec itself.
func expand(source string, spec Spec) ([]layer, error) {
	layers := make([]layer, 0, len(spec.Presets)+1)
	for i, name := range spec.Presets {
		preset, ok := Preset(name)
		if !ok {
			return nil, newConfigurationError(source, "presets", i, name, ErrUnknownPreset)
		}
		layers = append(layers, layer{source: "preset " + name, spec: preset})
	}
	spec.Presets = nil
	return append(layers, layer{source: source, spec: spec}), nil
}

func compilePatterns(cat *catalog.Catalog, l layer) ([]*masking.Rule, error) {
	var rules []*masking.Rule
	for i, ps := range l.spec.Patterns {
		set := lo.Count([]bool{ps.Catalog != "", ps.Group != "", ps.Pattern != ""}, true)
		if set != 1 {
			return nil, newConfigurationError(l.source, "patterns", i, ps.String(), ErrAmbiguousPattern)
		}

		switch {
		case ps.Catalog != "":
			rule, ok := cat.Lookup(ps.Catalog)
			if !ok {
				return nil, newConfigurationError(l.source, "patterns", i, ps.Catalog, ErrUnknownCatalogEntry)
			}
			if ps.Replacement != "" {
				rule = rule.WithReplacement(ps.Replacement)
			}
			rules = append(rules, rule)

		case ps.Group != "":
			group, ok := cat.Group(ps.Group)
			if !ok {
				return nil, newConfigurationError(l.source, "patterns", i, ps.Group, ErrUnknownGroup)
			}
			rules = append(rules, group...)

		default:
			name := ps.Description
			if name == "" {
				name = fmt.Sprintf("%s.patterns[%d]", l.source, i)
			}
			rule, err := masking.CompileRule(name, ps.Pattern, ps.Replacement, ps.Description)
			if err != nil {
				return nil, newConfigurationError(l.source, "patterns", i, ps.Pattern,
					fmt.Errorf("%w: %w", ErrInvalidPattern, err))
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}
