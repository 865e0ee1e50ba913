package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML SCALARS - Used by the rate and rules documents
// =============================================================================

// Decimal decodes a YAML scalar (quoted or not) without going through float64.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	v, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number", node.Line, node.Value)
	}
	d.Decimal = v
	return nil
}

func (d Decimal) MarshalYAML() (any, error) {
	return d.Decimal.String(), nil
}

// Date decodes a YYYY-MM-DD YAML scalar.
type Date struct {
	TimePoint
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	tp, err := ParseDate(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.TimePoint = tp
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}
