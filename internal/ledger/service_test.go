package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldworks/depot/internal/catalog"
)

type memoryStore struct {
	state   State
	saves   int
	failing bool
}

func (m *memoryStore) Load() (State, error) {
	return m.state, nil
}

func (m *memoryStore) Save(state State) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.state = state
	m.saves++
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore) {
	t.Helper()
	store := &memoryStore{}
	svc := NewService(catalog.New(), store, nil)
	require.NoError(t, svc.LoadState())
	return svc, store
}

func receiveInput(class catalog.Classification, name string) ReceiveInput {
	in := ReceiveInput{
		Class:     class,
		Name:      name,
		Model:     "STD",
		Quantity:  100,
		UnitValue: 10,
		Origin:    "Acme Supply",
	}
	if class != catalog.ClassCons {
		in.Condition = catalog.ConditionNew
	}
	return in
}

func mustDate(t *testing.T, s string) catalog.Date {
	t.Helper()
	d, err := catalog.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestReceiveAmortizesFreightOverBatch(t *testing.T) {
	svc, store := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Freight = FreightDecl{Declared: true, Total: 50}
	p, err := svc.Receive(in)
	require.NoError(t, err)

	// Freight spreads over the received quantity when no covered figure given.
	require.InDelta(t, 50, p.FreightTotal, 1e-9)
	require.InDelta(t, 100, p.FreightCoveredQty, 1e-9)
	require.InDelta(t, 0.50, p.FreightPerUnit(), 1e-9)

	require.Equal(t, 1, store.saves)
	require.Len(t, store.state.Entries, 1)
	require.False(t, store.state.Entries[0].Merged)
}

func TestReceiveNoFreightResetsFreightFields(t *testing.T) {
	svc, _ := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Freight = FreightDecl{Declared: true, Total: 50}
	_, err := svc.Receive(in)
	require.NoError(t, err)

	merge := in
	merge.Quantity = 20
	merge.Freight = FreightDecl{}
	p, err := svc.Receive(merge)
	require.NoError(t, err)

	require.InDelta(t, 120, p.Quantity, 1e-9)
	require.Zero(t, p.FreightTotal)
	require.Zero(t, p.FreightCoveredQty)
}

func TestReceiveMergeKeepsExistingFreight(t *testing.T) {
	svc, store := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Freight = FreightDecl{Declared: true, Total: 50, CoveredQty: 100}
	_, err := svc.Receive(in)
	require.NoError(t, err)

	merge := in
	merge.Quantity = 30
	merge.Freight = FreightDecl{Declared: true, KeepExisting: true}
	p, err := svc.Receive(merge)
	require.NoError(t, err)

	require.InDelta(t, 130, p.Quantity, 1e-9)
	require.InDelta(t, 50, p.FreightTotal, 1e-9)
	require.InDelta(t, 100, p.FreightCoveredQty, 1e-9)
	require.True(t, store.state.Entries[1].Merged)
}

func TestReceiveValidation(t *testing.T) {
	svc, _ := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Quantity = 0
	_, err := svc.Receive(in)
	require.ErrorIs(t, err, ErrValidation)

	in = receiveInput(catalog.ClassAuto, "")
	_, err = svc.Receive(in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestIssueFixesFreightShareAndLineTotal(t *testing.T) {
	svc, store := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Freight = FreightDecl{Declared: true, Total: 50, CoveredQty: 100}
	p, err := svc.Receive(in)
	require.NoError(t, err)

	rec, err := svc.Issue(IssueInput{
		ProductID: p.ID,
		Date:      mustDate(t, "15/03/2025"),
		Quantity:  30,
		Tag:       "TRUCK-07",
		Plate:     "ABC1D23",
	})
	require.NoError(t, err)

	require.InDelta(t, 0.50, rec.FreightPerUnit, 1e-9)
	require.InDelta(t, 315.00, rec.LineTotal, 1e-6)
	require.InDelta(t, 70, p.Quantity, 1e-9)
	require.Equal(t, NoContext, rec.Notes)
	require.Len(t, store.state.Exits, 1)
}

func TestIssueInsufficientStockLeavesStateUntouched(t *testing.T) {
	svc, store := newTestService(t)

	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)
	savesBefore := store.saves

	_, err = svc.Issue(IssueInput{
		ProductID: p.ID,
		Date:      mustDate(t, "15/03/2025"),
		Quantity:  101,
		Tag:       "TRUCK-07",
		Plate:     "ABC1D23",
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	require.InDelta(t, 100, p.Quantity, 1e-9)
	require.Empty(t, svc.Exits())
	require.Equal(t, savesBefore, store.saves)
}

func TestIssueDepletionRemovesProduct(t *testing.T) {
	svc, store := newTestService(t)

	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)

	_, err = svc.Issue(IssueInput{
		ProductID: p.ID,
		Date:      mustDate(t, "15/03/2025"),
		Quantity:  100,
		Tag:       "TRUCK-07",
		Plate:     "ABC1D23",
	})
	require.NoError(t, err)

	_, err = svc.Catalog().Get(p.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.Empty(t, store.state.Stock)
	// The exit record survives the product's removal.
	require.Len(t, store.state.Exits, 1)
}

func TestIssueRequiresClassContext(t *testing.T) {
	svc, _ := newTestService(t)
	date := mustDate(t, "15/03/2025")

	aero, err := svc.Receive(receiveInput(catalog.ClassAero, "Spark plug"))
	require.NoError(t, err)
	_, err = svc.Issue(IssueInput{ProductID: aero.ID, Date: date, Quantity: 1})
	require.ErrorIs(t, err, ErrValidation)

	auto, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)
	_, err = svc.Issue(IssueInput{ProductID: auto.ID, Date: date, Quantity: 1, Tag: "TRUCK-07"})
	require.ErrorIs(t, err, ErrValidation) // missing plate

	epi, err := svc.Receive(receiveInput(catalog.ClassEpi, "Gloves"))
	require.NoError(t, err)
	_, err = svc.Issue(IssueInput{ProductID: epi.ID, Date: date, Quantity: 1, Tag: "BASE-1"})
	require.ErrorIs(t, err, ErrValidation) // missing badge name

	cons, err := svc.Receive(receiveInput(catalog.ClassCons, "Degreaser"))
	require.NoError(t, err)
	rec, err := svc.Issue(IssueInput{ProductID: cons.ID, Date: date, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, NoContext, rec.Tag)
}

func TestRetroactiveFreightEditAffectsOnlyLaterIssues(t *testing.T) {
	svc, _ := newTestService(t)

	in := receiveInput(catalog.ClassAuto, "Oil filter")
	in.Freight = FreightDecl{Declared: true, Total: 50, CoveredQty: 100}
	p, err := svc.Receive(in)
	require.NoError(t, err)

	issue := IssueInput{
		ProductID: p.ID,
		Date:      mustDate(t, "15/03/2025"),
		Quantity:  10,
		Tag:       "TRUCK-07",
		Plate:     "ABC1D23",
	}
	before, err := svc.Issue(issue)
	require.NoError(t, err)
	require.InDelta(t, 0.50, before.FreightPerUnit, 1e-9)

	confirm := func(catalog.Field, string, string) bool { return true }
	require.NoError(t, svc.Edit(p.ID, catalog.FieldFreightTotal, "90", confirm))

	after, err := svc.Issue(issue)
	require.NoError(t, err)
	require.InDelta(t, 0.90, after.FreightPerUnit, 1e-9)

	// The earlier record keeps its original share.
	exits := svc.Exits()
	require.InDelta(t, 0.50, exits[0].FreightPerUnit, 1e-9)
}

func TestDisposeCarriesNoMonetaryFigures(t *testing.T) {
	svc, store := newTestService(t)

	p, err := svc.Receive(receiveInput(catalog.ClassEpi, "Gloves"))
	require.NoError(t, err)

	rec, err := svc.Dispose(DisposeInput{ProductID: p.ID, Quantity: 5, Reason: "torn beyond repair"})
	require.NoError(t, err)
	require.InDelta(t, 5, rec.Quantity, 1e-9)
	require.Equal(t, "torn beyond repair", rec.Reason)
	require.InDelta(t, 95, p.Quantity, 1e-9)
	require.Len(t, store.state.Disposals, 1)
}

func TestDisposeRequiresReason(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Receive(receiveInput(catalog.ClassCons, "Degreaser"))
	require.NoError(t, err)

	_, err = svc.Dispose(DisposeInput{ProductID: p.ID, Quantity: 1})
	require.ErrorIs(t, err, ErrValidation)
}

func TestEditCancelledByOperator(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)

	deny := func(catalog.Field, string, string) bool { return false }
	err = svc.Edit(p.ID, catalog.FieldName, "Fuel filter", deny)
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, "Oil filter", p.Name)
}

func TestEditQuantityToZeroRemovesProduct(t *testing.T) {
	svc, store := newTestService(t)
	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)

	confirm := func(catalog.Field, string, string) bool { return true }
	require.NoError(t, svc.Edit(p.ID, catalog.FieldQuantity, "0", confirm))

	_, err = svc.Catalog().Get(p.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.Empty(t, store.state.Stock)
}

func TestReceiveStoresClassPayloads(t *testing.T) {
	svc, _ := newTestService(t)

	auto := receiveInput(catalog.ClassAuto, "Oil filter")
	auto.Plate = "ABC1D23"
	auto.Prefix = "TRUCK-07"
	p, err := svc.Receive(auto)
	require.NoError(t, err)
	require.NotNil(t, p.Auto)
	require.Equal(t, "ABC1D23", p.Auto.Plate)
	require.Equal(t, "TRUCK-07", p.Auto.Prefix)

	epi := receiveInput(catalog.ClassEpi, "Gloves")
	g, err := svc.Receive(epi)
	require.NoError(t, err)
	require.NotNil(t, g.Epi)
	require.Equal(t, catalog.FieldUnset, g.Epi.BadgeName)

	rec, err := svc.Dispose(DisposeInput{ProductID: p.ID, Quantity: 1, Reason: "seized"})
	require.NoError(t, err)
	require.Equal(t, "ABC1D23", rec.Plate)
	require.Equal(t, "TRUCK-07", rec.Tag)
}

func TestDeleteLogsFullSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)

	rec, err := svc.Delete(p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, rec.Product.ID)
	require.Equal(t, "Oil filter", rec.Product.Name)
	require.Zero(t, svc.Catalog().Len())
	require.Len(t, store.state.Deletions, 1)
}

func TestGuardedRollbackOnPersistFailure(t *testing.T) {
	svc, store := newTestService(t)

	p, err := svc.Receive(receiveInput(catalog.ClassAuto, "Oil filter"))
	require.NoError(t, err)

	store.failing = true
	_, err = svc.Issue(IssueInput{
		ProductID: p.ID,
		Date:      mustDate(t, "15/03/2025"),
		Quantity:  10,
		Tag:       "TRUCK-07",
		Plate:     "ABC1D23",
	})
	require.ErrorIs(t, err, ErrPersistence)

	// In-memory state rolled back to the pre-issue shape.
	require.Empty(t, svc.Exits())
	restored, err := svc.Catalog().Get(p.ID)
	require.NoError(t, err)
	require.InDelta(t, 100, restored.Quantity, 1e-9)
}

func TestExitHistoryFilters(t *testing.T) {
	svc, _ := newTestService(t)

	in := receiveInput(catalog.ClassAero, "Spark plug")
	in.PartNumber = "URHB32E"
	p, err := svc.Receive(in)
	require.NoError(t, err)

	for _, day := range []string{"10/01/2025", "20/02/2025", "05/03/2025"} {
		_, err = svc.Issue(IssueInput{
			ProductID: p.ID,
			Date:      mustDate(t, day),
			Quantity:  2,
			Tag:       "PP-ABC",
		})
		require.NoError(t, err)
	}

	byPN := svc.ExitsByPartNumber("urhb32e", mustDate(t, "01/02/2025"))
	require.Len(t, byPN, 2)

	byTag := svc.ExitsByTag("PP-ABC", mustDate(t, "01/01/2025"))
	require.Len(t, byTag, 3)

	require.Empty(t, svc.ExitsByTag("PP-XYZ", mustDate(t, "01/01/2025")))
}
