package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SearchField selects which attribute Find matches against.
type SearchField string

const (
	// SearchByName matches a substring of the product name.
	SearchByName SearchField = "name"
	// SearchByModel matches a substring of the model.
	SearchByModel SearchField = "model"
	// SearchByPartNumber matches a substring of the aeronautical part number.
	SearchByPartNumber SearchField = "partNumber"
	// SearchByClass matches the exact classification.
	SearchByClass SearchField = "classification"
)

// Query describes one Find invocation. Class narrows substring searches when
// set and is the match target for SearchByClass.
type Query struct {
	Field SearchField
	Term  string
	Class Classification
}

// Catalog owns the live product set in insertion order.
type Catalog struct {
	products []*Product
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Load replaces the catalog contents with the given products.
func (c *Catalog) Load(products []Product) {
	c.products = make([]*Product, 0, len(products))
	for i := range products {
		p := products[i]
		c.products = append(c.products, &p)
	}
}

// Products returns the catalog contents in order. The returned slice is a
// copy; the pointed-to products are live.
func (c *Catalog) Products() []*Product {
	out := make([]*Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len reports the number of products on hand.
func (c *Catalog) Len() int { return len(c.products) }

// Get returns the product with the given ID.
func (c *Catalog) Get(id uuid.UUID) (*Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// Find returns all products matching the query, in catalog order. Multiple
// matches are expected; disambiguation is the caller's job.
func (c *Catalog) Find(q Query) []*Product {
	term := Fold(q.Term)
	var out []*Product
	for _, p := range c.products {
		if q.Class != "" && q.Field != SearchByClass && p.Class != q.Class {
			continue
		}
		switch q.Field {
		case SearchByName:
			if strings.Contains(Fold(p.Name), term) {
				out = append(out, p)
			}
		case SearchByModel:
			if strings.Contains(Fold(p.Model), term) {
				out = append(out, p)
			}
		case SearchByPartNumber:
			if p.Aero != nil && strings.Contains(Fold(p.Aero.PartNumber), term) {
				out = append(out, p)
			}
		case SearchByClass:
			if p.Class == q.Class {
				out = append(out, p)
			}
		}
	}
	return out
}

// ReceiveFields describes a receipt to merge or insert.
type ReceiveFields struct {
	Class        Classification
	Name         string
	Model        string
	Condition    Condition
	Quantity     float64
	UnitValue    float64
	Origin       string
	Hose         bool
	PartNumber   string
	SerialNumber string
	Plate        string
	Prefix       string
	BadgeName    string
	ReceivedAt   time.Time
}

// UpsertReceive merges the received quantity into an existing product with the
// same identity (name, model, classification, and part number for AERO) or
// inserts a new one. It reports whether a merge happened.
func (c *Catalog) UpsertReceive(f ReceiveFields) (*Product, bool, error) {
	if existing := c.matchIdentity(f); existing != nil {
		if !existing.ValidQuantity(f.Quantity) {
			return nil, false, fmt.Errorf("%w: quantity", ErrValidation)
		}
		existing.Quantity += f.Quantity
		return existing, true, nil
	}

	p := &Product{
		ID:        uuid.New(),
		Class:     f.Class,
		Name:      strings.TrimSpace(f.Name),
		Model:     strings.TrimSpace(f.Model),
		Condition: f.Condition,
		Quantity:  f.Quantity,
		UnitValue: f.UnitValue,
		Origin:    strings.TrimSpace(f.Origin),
		CreatedAt: TimestampOf(f.ReceivedAt),
		Hose:      f.Hose && f.Class == ClassCons,
	}
	switch f.Class {
	case ClassAero:
		p.Aero = &AeroFields{
			PartNumber:   orUnset(f.PartNumber),
			SerialNumber: orUnset(f.SerialNumber),
		}
	case ClassAuto:
		p.Auto = &AutoFields{
			Plate:  orUnset(f.Plate),
			Prefix: orUnset(f.Prefix),
		}
	case ClassEpi:
		p.Epi = &EpiFields{
			BadgeName: orUnset(f.BadgeName),
			Prefix:    orUnset(f.Prefix),
		}
	}
	if !p.ValidQuantity(f.Quantity) {
		return nil, false, fmt.Errorf("%w: quantity", ErrValidation)
	}
	if err := p.validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	c.products = append(c.products, p)
	return p, false, nil
}

func (c *Catalog) matchIdentity(f ReceiveFields) *Product {
	for _, p := range c.products {
		if p.Class != f.Class {
			continue
		}
		if Fold(p.Name) != Fold(f.Name) || Fold(p.Model) != Fold(f.Model) {
			continue
		}
		if f.Class == ClassAero && Fold(p.PartNumber()) != Fold(orUnset(f.PartNumber)) {
			continue
		}
		return p
	}
	return nil
}

// hoseEpsilon absorbs binary-float residue when fractional metre quantities
// are drawn down to nothing (0.1+0.2 issued as 0.3).
const hoseEpsilon = 1e-9

// ApplyQuantityDelta adjusts the product quantity. A negative result fails
// with ErrInsufficientStock; a result of zero removes the product from the
// catalog. It reports whether the product was removed.
func (c *Catalog) ApplyQuantityDelta(p *Product, delta float64) (bool, error) {
	idx := c.indexOf(p)
	if idx < 0 {
		return false, ErrNotFound
	}
	next := p.Quantity + delta
	if p.Hose && math.Abs(next) < hoseEpsilon {
		next = 0
	}
	if next < 0 {
		return false, ErrInsufficientStock
	}
	p.Quantity = next
	if next == 0 {
		c.products = append(c.products[:idx], c.products[idx+1:]...)
		return true, nil
	}
	return false, nil
}

// Delete removes the product from the catalog. Writing the deletion log entry
// is the caller's responsibility.
func (c *Catalog) Delete(p *Product) error {
	idx := c.indexOf(p)
	if idx < 0 {
		return ErrNotFound
	}
	c.products = append(c.products[:idx], c.products[idx+1:]...)
	return nil
}

func (c *Catalog) indexOf(p *Product) int {
	for i, cur := range c.products {
		if cur.ID == p.ID {
			return i
		}
	}
	return -1
}

// Snapshot deep-copies the catalog contents for rollback.
func (c *Catalog) Snapshot() []*Product {
	out := make([]*Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.clone()
	}
	return out
}

// Restore replaces the catalog contents with a previously taken snapshot.
func (c *Catalog) Restore(snap []*Product) {
	c.products = snap
}

// Field names a product attribute for EditField.
type Field string

const (
	// FieldClass edits the classification.
	FieldClass Field = "classification"
	// FieldName edits the product name.
	FieldName Field = "name"
	// FieldModel edits the model.
	FieldModel Field = "model"
	// FieldQuantity edits the quantity on hand.
	FieldQuantity Field = "quantity"
	// FieldValue edits the unit value.
	FieldValue Field = "value"
	// FieldOrigin edits the supplier/origin.
	FieldOrigin Field = "origin"
	// FieldCondition edits the condition.
	FieldCondition Field = "condition"
	// FieldPartNumber edits the aeronautical part number.
	FieldPartNumber Field = "partNumber"
	// FieldFreightTotal edits the freight total paid for the batch.
	FieldFreightTotal Field = "freightTotal"
	// FieldFreightCoveredQty edits how many units the freight was spread across.
	FieldFreightCoveredQty Field = "freightCoveredQty"
)

// EditableFields lists the fields an operator may edit on the given product.
func EditableFields(p *Product) []Field {
	fields := []Field{FieldClass, FieldName, FieldModel, FieldQuantity, FieldValue, FieldOrigin,
		FieldFreightTotal, FieldFreightCoveredQty}
	if p.Class != ClassCons {
		fields = append(fields, FieldCondition)
	}
	if p.Class == ClassAero {
		fields = append(fields, FieldPartNumber)
	}
	return fields
}

// DisplayValue renders the current value of the field for display.
func DisplayValue(p *Product, field Field) string {
	switch field {
	case FieldClass:
		return string(p.Class)
	case FieldName:
		return p.Name
	case FieldModel:
		return p.Model
	case FieldQuantity:
		return strconv.FormatFloat(p.Quantity, 'f', -1, 64)
	case FieldValue:
		return strconv.FormatFloat(p.UnitValue, 'f', 2, 64)
	case FieldOrigin:
		return p.Origin
	case FieldCondition:
		return string(p.Condition)
	case FieldPartNumber:
		return p.PartNumber()
	case FieldFreightTotal:
		return strconv.FormatFloat(p.FreightTotal, 'f', 2, 64)
	case FieldFreightCoveredQty:
		return strconv.FormatFloat(p.FreightCoveredQty, 'f', -1, 64)
	}
	return ""
}

// EditField applies a type-checked edit to one product field. The raw value is
// re-parsed here even though the caller already coerced it.
func (c *Catalog) EditField(p *Product, field Field, value string) error {
	if c.indexOf(p) < 0 {
		return ErrNotFound
	}
	value = strings.TrimSpace(value)
	switch field {
	case FieldName:
		if value == "" {
			return fmt.Errorf("%w: name required", ErrValidation)
		}
		p.Name = value
	case FieldModel:
		if value == "" {
			return fmt.Errorf("%w: model required", ErrValidation)
		}
		p.Model = value
	case FieldOrigin:
		p.Origin = value
	case FieldQuantity:
		q, err := strconv.ParseFloat(value, 64)
		if err != nil || q < 0 {
			return fmt.Errorf("%w: quantity must be a non-negative number", ErrValidation)
		}
		if !p.Hose && q != float64(int64(q)) {
			return fmt.Errorf("%w: quantity must be a whole number", ErrValidation)
		}
		p.Quantity = q
	case FieldValue:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: value must be a non-negative number", ErrValidation)
		}
		p.UnitValue = v
	case FieldFreightTotal:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: freight total must be a non-negative number", ErrValidation)
		}
		// Check the prospective pair before committing anything.
		if v > 0 && p.FreightCoveredQty <= 0 {
			return fmt.Errorf("%w: freight covered quantity required when freight paid", ErrValidation)
		}
		p.FreightTotal = v
	case FieldFreightCoveredQty:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: freight covered quantity must be a non-negative number", ErrValidation)
		}
		if p.FreightTotal > 0 && v <= 0 {
			return fmt.Errorf("%w: freight covered quantity required when freight paid", ErrValidation)
		}
		p.FreightCoveredQty = v
	case FieldCondition:
		cond := Condition(value)
		if !cond.Valid() {
			return fmt.Errorf("%w: unknown condition %q", ErrValidation, value)
		}
		if p.Class == ClassCons {
			return fmt.Errorf("%w: consumables carry no condition", ErrValidation)
		}
		p.Condition = cond
	case FieldPartNumber:
		if p.Class != ClassAero {
			return fmt.Errorf("%w: part number applies to AERO only", ErrValidation)
		}
		p.Aero.PartNumber = orUnset(value)
	case FieldClass:
		return c.editClass(p, Classification(value))
	default:
		return fmt.Errorf("%w: unknown field %q", ErrValidation, field)
	}
	return nil
}

// editClass re-validates required fields against the new classification before
// committing the switch.
func (c *Catalog) editClass(p *Product, next Classification) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown classification %q", ErrValidation, next)
	}
	if next == p.Class {
		return nil
	}
	if next != ClassCons && !p.Condition.Valid() {
		return fmt.Errorf("%w: condition required for %s", ErrValidation, next)
	}
	p.Class = next
	p.Aero, p.Auto, p.Epi = nil, nil, nil
	switch next {
	case ClassAero:
		p.Aero = &AeroFields{PartNumber: FieldUnset, SerialNumber: FieldUnset}
	case ClassAuto:
		p.Auto = &AutoFields{Plate: FieldUnset, Prefix: FieldUnset}
	case ClassEpi:
		p.Epi = &EpiFields{BadgeName: FieldUnset, Prefix: FieldUnset}
	case ClassCons:
		p.Condition = ""
		p.Hose = false
	}
	return nil
}

func orUnset(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return FieldUnset
	}
	return s
}
