/*
components.go - Pay component types and their registry

PURPOSE:
  Names every offset and allowance the engine understands. Upstream column
  mapping produces free-form labels ("shiftPremium", "Shift premium",
  "shift_premium"); the registry resolves them to one canonical type so the
  aggregator's rule table can be keyed on a closed set.

HOW IT WORKS:
  1. Each canonical type registers itself on init()
  2. LookupComponent normalizes the label (case, spaces, dashes, camelCase)
  3. Unknown labels return ok=false; the caller decides how to fail

SEE ALSO:
  - types.go: Offset / Allowance records
  - prp/rules.go: Treatment per component type
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// =============================================================================
// COMPONENT TYPE
// =============================================================================

// ComponentKind separates offsets (taken from pay) from allowances (added to pay).
type ComponentKind string

const (
	KindOffset    ComponentKind = "offset"
	KindAllowance ComponentKind = "allowance"
)

// ComponentType is implemented by OffsetType and AllowanceType.
type ComponentType interface {
	ComponentID() string
	ComponentKind() ComponentKind
}

// OffsetType identifies a deduction or benefit-in-kind offset.
type OffsetType string

func (t OffsetType) ComponentID() string          { return string(t) }
func (t OffsetType) ComponentKind() ComponentKind { return KindOffset }

const (
	OffsetAccommodation OffsetType = "accommodation"
	OffsetUniform       OffsetType = "uniform"
	OffsetTools         OffsetType = "tools"
	OffsetTraining      OffsetType = "training"
	OffsetMeals         OffsetType = "meals"
	OffsetTransport     OffsetType = "transport"
	OffsetOther         OffsetType = "other"
)

// AllowanceType identifies a payment on top of basic pay.
type AllowanceType string

func (t AllowanceType) ComponentID() string          { return string(t) }
func (t AllowanceType) ComponentKind() ComponentKind { return KindAllowance }

const (
	AllowanceTips         AllowanceType = "tips"
	AllowanceTronc        AllowanceType = "tronc"
	AllowanceBonus        AllowanceType = "bonus"
	AllowanceCommission   AllowanceType = "commission"
	AllowanceShiftPremium AllowanceType = "shift_premium"
	AllowanceOvertime     AllowanceType = "overtime"
	AllowanceHolidayPay   AllowanceType = "holiday_pay"
)

// Compile-time checks
var (
	_ ComponentType = OffsetType("")
	_ ComponentType = AllowanceType("")
)

func init() {
	for _, t := range []OffsetType{
		OffsetAccommodation, OffsetUniform, OffsetTools, OffsetTraining,
		OffsetMeals, OffsetTransport, OffsetOther,
	} {
		RegisterComponent(t)
	}
	for _, t := range []AllowanceType{
		AllowanceTips, AllowanceTronc, AllowanceBonus, AllowanceCommission,
		AllowanceShiftPremium, AllowanceOvertime, AllowanceHolidayPay,
	} {
		RegisterComponent(t)
	}
}

// =============================================================================
// COMPONENT REGISTRY
// =============================================================================

var (
	componentRegistry = make(map[string]ComponentType)
	registryMu        sync.RWMutex
)

// RegisterComponent adds a component type to the global registry.
func RegisterComponent(c ComponentType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	componentRegistry[NormalizeLabel(c.ComponentID())] = c
}

// LookupComponent resolves a label to a registered component type.
func LookupComponent(label string) (ComponentType, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := componentRegistry[NormalizeLabel(label)]
	return c, ok
}

// ParseOffsetType resolves a label that must name an offset.
func ParseOffsetType(label string) (OffsetType, error) {
	c, ok := LookupComponent(label)
	if !ok || c.ComponentKind() != KindOffset {
		return "", fmt.Errorf("unknown offset type %q", label)
	}
	return c.(OffsetType), nil
}

// ParseAllowanceType resolves a label that must name an allowance.
func ParseAllowanceType(label string) (AllowanceType, error) {
	c, ok := LookupComponent(label)
	if !ok || c.ComponentKind() != KindAllowance {
		return "", fmt.Errorf("unknown allowance type %q", label)
	}
	return c.(AllowanceType), nil
}

// ListComponents returns all registered component types of a kind, sorted by ID.
func ListComponents(kind ComponentKind) []ComponentType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var result []ComponentType
	for _, c := range componentRegistry {
		if c.ComponentKind() == kind {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ComponentID() < result[j].ComponentID() })
	return result
}

// NormalizeLabel lower-cases a label and turns camelCase, spaces and dashes
// into underscores: "shiftPremium", "Shift premium" and "shift-premium" all
// become "shift_premium".
func NormalizeLabel(label string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(label) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
