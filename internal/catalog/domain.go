package catalog

import (
	"errors"
	"math"

	"github.com/google/uuid"
)

// Classification determines which fields a product requires.
type Classification string

const (
	// ClassAero marks aeronautical parts.
	ClassAero Classification = "AERO"
	// ClassAuto marks automotive parts.
	ClassAuto Classification = "AUTO"
	// ClassEpi marks protective equipment.
	ClassEpi Classification = "EPI"
	// ClassCons marks consumables.
	ClassCons Classification = "CONS"
)

// Classifications lists every classification in report order.
var Classifications = []Classification{ClassAero, ClassAuto, ClassEpi, ClassCons}

// Valid reports whether the classification is one of the known tags.
func (c Classification) Valid() bool {
	switch c {
	case ClassAero, ClassAuto, ClassEpi, ClassCons:
		return true
	}
	return false
}

// Condition describes the physical state of a non-consumable product.
type Condition string

const (
	// ConditionNew marks factory-new items.
	ConditionNew Condition = "New"
	// ConditionUsed marks used items.
	ConditionUsed Condition = "Used"
	// ConditionRefurbished marks overhauled items.
	ConditionRefurbished Condition = "Refurbished"
)

// Valid reports whether the condition is one of the fixed set.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionRefurbished:
		return true
	}
	return false
}

// FieldUnset is the sentinel stored for optional identity fields left blank.
const FieldUnset = "-"

// AeroFields carries the aeronautical payload of a product.
type AeroFields struct {
	PartNumber   string `json:"partNumber"`
	SerialNumber string `json:"serialNumber"`
}

// AutoFields carries the automotive payload of a product.
type AutoFields struct {
	Plate  string `json:"plate"`
	Prefix string `json:"prefix"`
}

// EpiFields carries the protective-equipment payload of a product.
type EpiFields struct {
	BadgeName string `json:"badgeName"`
	Prefix    string `json:"prefix"`
}

// Product is a stock-keeping unit. Exactly one classification payload is set,
// selected by Class; CONS products carry none.
type Product struct {
	ID        uuid.UUID      `json:"id"`
	Class     Classification `json:"classification"`
	Name      string         `json:"name"`
	Model     string         `json:"model"`
	Condition Condition      `json:"condition,omitempty"`
	Quantity  float64        `json:"quantity"`
	UnitValue float64        `json:"unitValue"`
	Origin    string         `json:"origin"`
	CreatedAt Timestamp      `json:"createdAt"`

	// Hose products are measured in metres and allow fractional quantities.
	Hose bool `json:"hose,omitempty"`

	// FreightTotal is the shipping cost paid for the batch this product came
	// in with; FreightCoveredQty is how many units that payment was spread
	// across. Both are zero when no freight was declared.
	FreightTotal      float64 `json:"freightTotal"`
	FreightCoveredQty float64 `json:"freightCoveredQty"`

	Aero *AeroFields `json:"aero,omitempty"`
	Auto *AutoFields `json:"auto,omitempty"`
	Epi  *EpiFields  `json:"epi,omitempty"`
}

// ErrInsufficientStock indicates a withdrawal larger than the quantity on hand.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// ErrValidation indicates a malformed or missing product field.
var ErrValidation = errors.New("catalog: invalid field")

// ErrNotFound indicates the product is not in the catalog.
var ErrNotFound = errors.New("catalog: product not found")

// FreightPerUnit returns the fixed per-unit freight share allocated at receipt
// time, or zero when the product carries no freight.
func (p *Product) FreightPerUnit() float64 {
	if p.FreightTotal > 0 && p.FreightCoveredQty > 0 {
		return p.FreightTotal / p.FreightCoveredQty
	}
	return 0
}

// PartNumber returns the aeronautical part number or the unset sentinel.
func (p *Product) PartNumber() string {
	if p.Aero != nil && p.Aero.PartNumber != "" {
		return p.Aero.PartNumber
	}
	return FieldUnset
}

// SerialNumber returns the aeronautical serial number or the unset sentinel.
func (p *Product) SerialNumber() string {
	if p.Aero != nil && p.Aero.SerialNumber != "" {
		return p.Aero.SerialNumber
	}
	return FieldUnset
}

// ValidQuantity reports whether q is admissible for this product: positive,
// and a whole number unless the product is hose-type.
func (p *Product) ValidQuantity(q float64) bool {
	if q <= 0 {
		return false
	}
	if !p.Hose && q != math.Trunc(q) {
		return false
	}
	return true
}

// validate checks the classification-specific required fields.
func (p *Product) validate() error {
	if !p.Class.Valid() {
		return errors.New("catalog: unknown classification")
	}
	if p.Name == "" {
		return errors.New("catalog: name required")
	}
	if p.Model == "" {
		return errors.New("catalog: model required")
	}
	if p.Quantity < 0 {
		return errors.New("catalog: quantity must not be negative")
	}
	if p.UnitValue < 0 {
		return errors.New("catalog: unit value must not be negative")
	}
	if p.Class != ClassCons && !p.Condition.Valid() {
		return errors.New("catalog: condition required")
	}
	if p.FreightTotal > 0 && p.FreightCoveredQty <= 0 {
		return errors.New("catalog: freight covered quantity required when freight paid")
	}
	return nil
}

// clone returns a deep copy of the product.
func (p *Product) clone() *Product {
	cp := *p
	if p.Aero != nil {
		a := *p.Aero
		cp.Aero = &a
	}
	if p.Auto != nil {
		a := *p.Auto
		cp.Auto = &a
	}
	if p.Epi != nil {
		e := *p.Epi
		cp.Epi = &e
	}
	return &cp
}
