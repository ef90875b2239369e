package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fieldworks/depot/internal/catalog"
)

// NoContext is stored when an optional exit-context field was left blank.
const NoContext = "N/A"

// Service executes inventory operations as guarded transitions: validate,
// mutate the catalog, append the log record, persist. A failed persist rolls
// the in-memory state back to its pre-operation shape.
type Service struct {
	catalog  *catalog.Catalog
	store    PersistencePort
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time

	entries   []EntryRecord
	exits     []ExitRecord
	disposals []DisposalRecord
	deletions []DeletionRecord
}

// NewService builds Service around the given catalog and store.
func NewService(cat *catalog.Catalog, store PersistencePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  cat,
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// LoadState populates the catalog and logs from the durable store.
func (s *Service) LoadState() error {
	state, err := s.store.Load()
	if err != nil {
		return err
	}
	s.catalog.Load(state.Stock)
	s.entries = state.Entries
	s.exits = state.Exits
	s.disposals = state.Disposals
	s.deletions = state.Deletions
	return nil
}

// Catalog exposes the product catalog owned by this service.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Exits returns the full exit log in append order.
func (s *Service) Exits() []ExitRecord {
	out := make([]ExitRecord, len(s.exits))
	copy(out, s.exits)
	return out
}

// Entries returns the full entry log in append order.
func (s *Service) Entries() []EntryRecord {
	out := make([]EntryRecord, len(s.entries))
	copy(out, s.entries)
	return out
}

// Disposals returns the full disposal log in append order.
func (s *Service) Disposals() []DisposalRecord {
	out := make([]DisposalRecord, len(s.disposals))
	copy(out, s.disposals)
	return out
}

// State assembles the current in-memory state for persistence or backup.
func (s *Service) State() State {
	products := s.catalog.Products()
	stock := make([]catalog.Product, len(products))
	for i, p := range products {
		stock[i] = *p
	}
	return State{
		Stock:     stock,
		Entries:   s.entries,
		Exits:     s.exits,
		Disposals: s.disposals,
		Deletions: s.deletions,
	}
}

// restorePoint captures everything a failed operation must undo.
type restorePoint struct {
	stock     []*catalog.Product
	entries   int
	exits     int
	disposals int
	deletions int
}

func (s *Service) mark() restorePoint {
	return restorePoint{
		stock:     s.catalog.Snapshot(),
		entries:   len(s.entries),
		exits:     len(s.exits),
		disposals: len(s.disposals),
		deletions: len(s.deletions),
	}
}

func (s *Service) rollback(rp restorePoint) {
	s.catalog.Restore(rp.stock)
	s.entries = s.entries[:rp.entries]
	s.exits = s.exits[:rp.exits]
	s.disposals = s.disposals[:rp.disposals]
	s.deletions = s.deletions[:rp.deletions]
}

// guarded wraps a mutation with rollback-on-failure: the mutation runs against
// live state, then the whole state is persisted; if either step fails the
// in-memory state is restored and the store is left to its own snapshot
// recovery.
func (s *Service) guarded(op string, fn func() error) error {
	rp := s.mark()
	if err := fn(); err != nil {
		s.rollback(rp)
		return err
	}
	if err := s.store.Save(s.State()); err != nil {
		s.rollback(rp)
		s.logger.Error("persist failed, state rolled back",
			slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// FreightDecl describes the shipping-cost part of a receipt.
type FreightDecl struct {
	// Declared is false when the batch shipped without freight; the product's
	// freight fields are reset to zero in that case.
	Declared bool
	// KeepExisting leaves a merged product's current freight untouched.
	KeepExisting bool
	Total        float64 `validate:"gte=0"`
	// CoveredQty defaults to the received quantity when zero.
	CoveredQty float64 `validate:"gte=0"`
}

// ReceiveInput describes one receipt.
type ReceiveInput struct {
	Class        catalog.Classification `validate:"required"`
	Name         string                 `validate:"required"`
	Model        string                 `validate:"required"`
	Condition    catalog.Condition
	Quantity     float64 `validate:"gt=0"`
	UnitValue    float64 `validate:"gte=0"`
	Origin       string
	Hose         bool
	PartNumber   string
	SerialNumber string
	Plate        string
	Prefix       string
	BadgeName    string
	Freight      FreightDecl
}

// Receive merges or inserts the received product, assigns freight, and appends
// a full snapshot to the entries log.
func (s *Service) Receive(in ReceiveInput) (*catalog.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Class.Valid() {
		return nil, fmt.Errorf("%w: unknown classification %q", ErrValidation, in.Class)
	}

	var product *catalog.Product
	err := s.guarded("receive", func() error {
		p, merged, err := s.catalog.UpsertReceive(catalog.ReceiveFields{
			Class:        in.Class,
			Name:         in.Name,
			Model:        in.Model,
			Condition:    in.Condition,
			Quantity:     in.Quantity,
			UnitValue:    in.UnitValue,
			Origin:       in.Origin,
			Hose:         in.Hose,
			PartNumber:   in.PartNumber,
			SerialNumber: in.SerialNumber,
			Plate:        in.Plate,
			Prefix:       in.Prefix,
			BadgeName:    in.BadgeName,
			ReceivedAt:   s.now(),
		})
		if err != nil {
			return err
		}
		if err := s.applyFreight(p, in); err != nil {
			return err
		}
		s.entries = append(s.entries, EntryRecord{
			ID:         uuid.New(),
			ReceivedAt: catalog.TimestampOf(s.now()),
			Product:    *p,
			Merged:     merged,
		})
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock received",
		slog.String("name", product.Name),
		slog.String("class", string(product.Class)),
		slog.Float64("quantity", in.Quantity))
	return product, nil
}

func (s *Service) applyFreight(p *catalog.Product, in ReceiveInput) error {
	f := in.Freight
	switch {
	case !f.Declared:
		p.FreightTotal = 0
		p.FreightCoveredQty = 0
	case f.KeepExisting:
		// merged product keeps its batch freight as-is
	default:
		if f.Total < 0 || f.CoveredQty < 0 {
			return fmt.Errorf("%w: freight figures must not be negative", ErrValidation)
		}
		covered := f.CoveredQty
		if covered == 0 {
			covered = in.Quantity
		}
		p.FreightTotal = f.Total
		p.FreightCoveredQty = covered
	}
	return nil
}

// IssueInput describes one issue of stock against an aircraft, vehicle or
// employee.
type IssueInput struct {
	ProductID    uuid.UUID    `validate:"required"`
	Date         catalog.Date
	Quantity     float64 `validate:"gt=0"`
	Tag          string
	Plate        string
	BadgeName    string
	SerialNumber string
	Notes        string
}

// Issue withdraws stock and appends the exit record carrying the per-unit
// freight share fixed at receipt time.
func (s *Service) Issue(in IssueInput) (ExitRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return ExitRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Date.IsZero() {
		return ExitRecord{}, fmt.Errorf("%w: date required", ErrValidation)
	}

	p, err := s.catalog.Get(in.ProductID)
	if err != nil {
		return ExitRecord{}, err
	}
	if !p.ValidQuantity(in.Quantity) {
		return ExitRecord{}, fmt.Errorf("%w: quantity", ErrValidation)
	}
	if in.Quantity > p.Quantity {
		return ExitRecord{}, catalog.ErrInsufficientStock
	}
	if err := validateContext(p.Class, in); err != nil {
		return ExitRecord{}, err
	}

	freightPerUnit := p.FreightPerUnit()
	record := ExitRecord{
		ID:                uuid.New(),
		Date:              in.Date,
		Name:              p.Name,
		Model:             p.Model,
		Class:             p.Class,
		Condition:         p.Condition,
		PartNumber:        p.PartNumber(),
		SerialNumber:      orNoContext(in.SerialNumber),
		Origin:            p.Origin,
		Hose:              p.Hose,
		Quantity:          in.Quantity,
		UnitValue:         p.UnitValue,
		FreightPerUnit:    freightPerUnit,
		LineTotal:         in.Quantity * (p.UnitValue + freightPerUnit),
		FreightTotal:      p.FreightTotal,
		FreightCoveredQty: p.FreightCoveredQty,
		Tag:               orNoContext(in.Tag),
		Plate:             strings.TrimSpace(in.Plate),
		BadgeName:         strings.TrimSpace(in.BadgeName),
		Notes:             orNoContext(in.Notes),
	}

	var removed bool
	err = s.guarded("issue", func() error {
		var err error
		removed, err = s.catalog.ApplyQuantityDelta(p, -in.Quantity)
		if err != nil {
			return err
		}
		s.exits = append(s.exits, record)
		return nil
	})
	if err != nil {
		return ExitRecord{}, err
	}
	s.logger.Info("stock issued",
		slog.String("name", record.Name),
		slog.Float64("quantity", record.Quantity),
		slog.Float64("lineTotal", record.LineTotal),
		slog.Bool("depleted", removed))
	return record, nil
}

// validateContext enforces the classification-specific mandatory context.
func validateContext(class catalog.Classification, in IssueInput) error {
	switch class {
	case catalog.ClassAero:
		if strings.TrimSpace(in.Tag) == "" {
			return fmt.Errorf("%w: aircraft prefix required for AERO", ErrValidation)
		}
	case catalog.ClassAuto:
		if strings.TrimSpace(in.Tag) == "" {
			return fmt.Errorf("%w: vehicle prefix required for AUTO", ErrValidation)
		}
		if strings.TrimSpace(in.Plate) == "" {
			return fmt.Errorf("%w: vehicle plate required for AUTO", ErrValidation)
		}
	case catalog.ClassEpi:
		if strings.TrimSpace(in.Tag) == "" {
			return fmt.Errorf("%w: prefix required for EPI", ErrValidation)
		}
		if strings.TrimSpace(in.BadgeName) == "" {
			return fmt.Errorf("%w: badge name required for EPI", ErrValidation)
		}
	}
	return nil
}

// DisposeInput describes one disposal.
type DisposeInput struct {
	ProductID uuid.UUID `validate:"required"`
	Quantity  float64   `validate:"gt=0"`
	Reason    string    `validate:"required"`
}

// Dispose withdraws stock without monetary computation and appends the
// disposal record.
func (s *Service) Dispose(in DisposeInput) (DisposalRecord, error) {
	if err := s.validate.Struct(in); err != nil {
		return DisposalRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	p, err := s.catalog.Get(in.ProductID)
	if err != nil {
		return DisposalRecord{}, err
	}
	if !p.ValidQuantity(in.Quantity) {
		return DisposalRecord{}, fmt.Errorf("%w: quantity", ErrValidation)
	}
	if in.Quantity > p.Quantity {
		return DisposalRecord{}, catalog.ErrInsufficientStock
	}

	record := DisposalRecord{
		ID:         uuid.New(),
		DisposedAt: catalog.TimestampOf(s.now()),
		Name:       p.Name,
		Model:      p.Model,
		Class:      p.Class,
		Quantity:   in.Quantity,
		Reason:     strings.TrimSpace(in.Reason),
	}
	switch p.Class {
	case catalog.ClassAero:
		record.PartNumber = p.PartNumber()
		record.SerialNumber = p.SerialNumber()
	case catalog.ClassAuto:
		if p.Auto != nil {
			record.Plate = p.Auto.Plate
			record.Tag = p.Auto.Prefix
		}
	case catalog.ClassEpi:
		if p.Epi != nil {
			record.BadgeName = p.Epi.BadgeName
			record.Tag = p.Epi.Prefix
		}
	}

	err = s.guarded("dispose", func() error {
		if _, err := s.catalog.ApplyQuantityDelta(p, -in.Quantity); err != nil {
			return err
		}
		s.disposals = append(s.disposals, record)
		return nil
	})
	if err != nil {
		return DisposalRecord{}, err
	}
	s.logger.Info("stock disposed",
		slog.String("name", record.Name),
		slog.Float64("quantity", record.Quantity),
		slog.String("reason", record.Reason))
	return record, nil
}

// ConfirmFunc asks the operator to approve a value change before commit.
type ConfirmFunc func(field catalog.Field, oldValue, newValue string) bool

// Edit applies one field edit after the confirm callback approves the change.
// Edits are not separately audited; the mutated catalog state is the record.
func (s *Service) Edit(productID uuid.UUID, field catalog.Field, value string, confirm ConfirmFunc) error {
	p, err := s.catalog.Get(productID)
	if err != nil {
		return err
	}
	oldValue := catalog.DisplayValue(p, field)
	if confirm == nil || !confirm(field, oldValue, value) {
		return ErrCancelled
	}
	err = s.guarded("edit", func() error {
		if err := s.catalog.EditField(p, field, value); err != nil {
			return err
		}
		// A zero-quantity product is never persisted.
		if field == catalog.FieldQuantity && p.Quantity == 0 {
			return s.catalog.Delete(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("product edited",
		slog.String("name", p.Name),
		slog.String("field", string(field)))
	return nil
}

// Delete removes the product and appends a deletion record carrying its full
// snapshot.
func (s *Service) Delete(productID uuid.UUID) (DeletionRecord, error) {
	p, err := s.catalog.Get(productID)
	if err != nil {
		return DeletionRecord{}, err
	}
	record := DeletionRecord{
		ID:        uuid.New(),
		DeletedAt: catalog.TimestampOf(s.now()),
		Product:   *p,
	}
	err = s.guarded("delete", func() error {
		if err := s.catalog.Delete(p); err != nil {
			return err
		}
		s.deletions = append(s.deletions, record)
		return nil
	})
	if err != nil {
		return DeletionRecord{}, err
	}
	s.logger.Info("product deleted", slog.String("name", record.Product.Name))
	return record, nil
}

// ExitsByPartNumber returns exits with the exact part number dated from the
// given day onward.
func (s *Service) ExitsByPartNumber(partNumber string, from catalog.Date) []ExitRecord {
	return s.filterExits(from, func(r ExitRecord) bool {
		return catalog.Fold(r.PartNumber) == catalog.Fold(partNumber)
	})
}

// ExitsByTag returns exits with the exact aircraft/vehicle prefix dated from
// the given day onward.
func (s *Service) ExitsByTag(tag string, from catalog.Date) []ExitRecord {
	return s.filterExits(from, func(r ExitRecord) bool {
		return catalog.Fold(r.Tag) == catalog.Fold(tag)
	})
}

func (s *Service) filterExits(from catalog.Date, keep func(ExitRecord) bool) []ExitRecord {
	var out []ExitRecord
	for _, r := range s.exits {
		if r.Date.Before(from) {
			continue
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func orNoContext(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoContext
	}
	return s
}
