package ledger

import (
	"errors"

	"github.com/google/uuid"

	"github.com/fieldworks/depot/internal/catalog"
)

// EntryRecord is the immutable entries-log row: a full product snapshot taken
// at the moment of receipt.
type EntryRecord struct {
	ID         uuid.UUID         `json:"id"`
	ReceivedAt catalog.Timestamp `json:"receivedAt"`
	Product    catalog.Product   `json:"product"`
	Merged     bool              `json:"merged"`
}

// ExitRecord is the immutable exits-log row written by Issue.
type ExitRecord struct {
	ID    uuid.UUID    `json:"id"`
	Date  catalog.Date `json:"date"`

	Name         string                 `json:"name"`
	Model        string                 `json:"model"`
	Class        catalog.Classification `json:"classification"`
	Condition    catalog.Condition      `json:"condition,omitempty"`
	PartNumber   string                 `json:"partNumber"`
	SerialNumber string                 `json:"serialNumber"`
	Origin       string                 `json:"origin"`
	Hose         bool                   `json:"hose,omitempty"`

	Quantity       float64 `json:"quantity"`
	UnitValue      float64 `json:"unitValue"`
	FreightPerUnit float64 `json:"freightPerUnit"`
	LineTotal      float64 `json:"lineTotal"`

	// Original batch freight figures, kept for traceability only.
	FreightTotal      float64 `json:"freightTotal"`
	FreightCoveredQty float64 `json:"freightCoveredQty"`

	// Tag is the aircraft/vehicle prefix the part was issued against.
	Tag       string `json:"tag"`
	Plate     string `json:"plate,omitempty"`
	BadgeName string `json:"badgeName,omitempty"`
	Notes     string `json:"notes"`
}

// DisposalRecord is the immutable disposals-log row. It carries no monetary
// figures.
type DisposalRecord struct {
	ID         uuid.UUID         `json:"id"`
	DisposedAt catalog.Timestamp `json:"disposedAt"`

	Name     string                 `json:"name"`
	Model    string                 `json:"model"`
	Class    catalog.Classification `json:"classification"`
	Quantity float64                `json:"quantity"`
	Reason   string                 `json:"reason"`

	PartNumber   string `json:"partNumber,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Plate        string `json:"plate,omitempty"`
	BadgeName    string `json:"badgeName,omitempty"`
	Tag          string `json:"tag,omitempty"`
}

// DeletionRecord is the immutable deletions-log row: a full product snapshot
// plus the deletion timestamp.
type DeletionRecord struct {
	ID        uuid.UUID         `json:"id"`
	DeletedAt catalog.Timestamp `json:"deletedAt"`
	Product   catalog.Product   `json:"product"`
}

// State bundles the live stock with the four append-only logs; it is the unit
// the persistence adapter loads and saves.
type State struct {
	Stock     []catalog.Product `json:"stock"`
	Entries   []EntryRecord     `json:"entries"`
	Exits     []ExitRecord      `json:"exits"`
	Disposals []DisposalRecord  `json:"disposals"`
	Deletions []DeletionRecord  `json:"deletions"`
}

// PersistencePort abstracts the durable store as seen by the service.
type PersistencePort interface {
	Load() (State, error)
	Save(State) error
}

// ErrValidation indicates malformed or missing operation input.
var ErrValidation = errors.New("ledger: invalid input")

// ErrPersistence indicates the durable save failed and the catalog was rolled
// back to its pre-operation state.
var ErrPersistence = errors.New("ledger: persistence failed")

// ErrCancelled indicates the operator declined the confirmation step.
var ErrCancelled = errors.New("ledger: operation cancelled")
