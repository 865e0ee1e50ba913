/*
Package prp aggregates a pay reference period into NMW-eligible pay.

PURPOSE:
  Turns a worker's raw period record (hours, gross pay, offsets and
  allowances) into the figures the classifier needs: eligible pay, the
  effective hourly rate, the deduction ratio and any offset limit breaches.

FORMULA:
  eligiblePay = totalPay
              - sum(reduces_pay deductions)
              + sum(adds_to_pay allowances)
              - sum(excess of capped offsets over daily_limit x days)

  effectiveHourlyRate = eligiblePay / totalHours   (undefined when hours = 0)
  deductionRatio      = (deductions + capped offset charges) / totalPay

RULE TABLE:
  Classification comes from a fixed rule document (default_rules.yaml),
  keyed by canonical component type. Fuzzy matching of raw CSV headers
  happens upstream; this package only sees resolved types.

SEE ALSO:
  - aggregate.go: The calculation
  - payroll/components.go: Component type registry
*/
package prp

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/payroll"
)

//go:embed default_rules.yaml
var defaultRulesDocument []byte

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Category says whether a component counts as NMW pay.
type Category string

const (
	CategoryIncluded Category = "included"
	CategoryExcluded Category = "excluded"
)

// Treatment says how a component moves eligible pay.
type Treatment string

const (
	TreatmentAddsToPay    Treatment = "adds_to_pay"
	TreatmentNeverCounts  Treatment = "never_counts"
	TreatmentReducesPay   Treatment = "reduces_pay"
	TreatmentCappedOffset Treatment = "capped_offset"
)

func (t Treatment) validFor(kind payroll.ComponentKind) bool {
	switch kind {
	case payroll.KindAllowance:
		return t == TreatmentAddsToPay || t == TreatmentNeverCounts
	case payroll.KindOffset:
		return t == TreatmentReducesPay || t == TreatmentCappedOffset
	}
	return false
}

// Rule is the classification of one component type.
type Rule struct {
	Component  payroll.ComponentType
	Category   Category
	Treatment  Treatment
	DailyLimit *decimal.Decimal
}

// Rules is an immutable rule table keyed by component ID.
type Rules struct {
	Version string
	rules   map[string]Rule
}

// For returns the rule of a component type.
func (r *Rules) For(c payroll.ComponentType) (Rule, bool) {
	rule, ok := r.rules[c.ComponentID()]
	return rule, ok
}

// All returns every rule sorted by component ID.
func (r *Rules) All() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component.ComponentID() < out[j].Component.ComponentID() })
	return out
}

// NeedsStatutoryLimit reports whether any offset is a capped offset without
// its own daily_limit, so the statutory accommodation limit must be known.
func (r *Rules) NeedsStatutoryLimit(offsets []payroll.Offset) bool {
	for _, off := range offsets {
		rule, ok := r.For(off.Type)
		if ok && rule.Treatment == TreatmentCappedOffset && rule.DailyLimit == nil {
			return true
		}
	}
	return false
}

// =============================================================================
// RULES DOCUMENT
// =============================================================================

type rulesDocument struct {
	Version    string                  `yaml:"version"`
	Components map[string]ruleDocument `yaml:"components"`
}

type ruleDocument struct {
	Category   Category         `yaml:"category"`
	Treatment  Treatment        `yaml:"treatment"`
	DailyLimit *generic.Decimal `yaml:"daily_limit,omitempty"`
}

// DefaultRules parses the built-in rule document.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesDocument, "embedded")
}

// MustDefaultRules is DefaultRules for tests and static wiring.
func MustDefaultRules() *Rules {
	r, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRules decodes a rule document. Every registered component type must
// have exactly one rule with a treatment valid for its kind.
func ParseRules(data []byte, source string) (*Rules, error) {
	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("parse rules: %w", err)}
	}

	rules := &Rules{Version: doc.Version, rules: make(map[string]Rule, len(doc.Components))}
	for label, rd := range doc.Components {
		c, ok := payroll.LookupComponent(label)
		if !ok {
			return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("unknown component %q", label)}
		}
		if rd.Category != CategoryIncluded && rd.Category != CategoryExcluded {
			return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("component %q: unknown category %q", label, rd.Category)}
		}
		if !rd.Treatment.validFor(c.ComponentKind()) {
			return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("component %q: treatment %q not valid for %s", label, rd.Treatment, c.ComponentKind())}
		}
		rule := Rule{Component: c, Category: rd.Category, Treatment: rd.Treatment}
		if rd.DailyLimit != nil {
			if rd.DailyLimit.IsNegative() {
				return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("component %q: negative daily_limit", label)}
			}
			rule.DailyLimit = generic.DecimalPtr(rd.DailyLimit.Decimal)
		}
		rules.rules[c.ComponentID()] = rule
	}

	for _, kind := range []payroll.ComponentKind{payroll.KindOffset, payroll.KindAllowance} {
		for _, c := range payroll.ListComponents(kind) {
			if _, ok := rules.rules[c.ComponentID()]; !ok {
				return nil, &generic.ConfigurationError{Source: source, Err: fmt.Errorf("no rule for component %q", c.ComponentID())}
			}
		}
	}
	return rules, nil
}
