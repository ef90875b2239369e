package terminal

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fieldworks/depot/internal/catalog"
	"github.com/fieldworks/depot/internal/ledger"
	"github.com/fieldworks/depot/internal/report"
)

// Session drives the interactive menu loop. It only collects input and
// renders output; every state change goes through the ledger service, which
// re-validates everything.
type Session struct {
	p       *Prompter
	svc     *ledger.Service
	repo    *ledger.Repository
	reports *report.Generator
	logger  *slog.Logger
}

// NewSession constructs Session.
func NewSession(p *Prompter, svc *ledger.Service, repo *ledger.Repository, reports *report.Generator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{p: p, svc: svc, repo: repo, reports: reports, logger: logger}
}

var menuOptions = []string{
	"Receive stock",
	"Issue stock",
	"Dispose stock",
	"Show stock",
	"Edit product",
	"Search products",
	"Delete product",
	"Generate report",
	"Search exit history",
	"Write backup",
	"Quit",
}

// Run blocks on the menu loop until the operator quits or input ends.
func (s *Session) Run() error {
	s.p.Printf("=================================\n")
	s.p.Printf("Depot inventory\n")
	s.p.Printf("Type %q at any prompt to abort the current operation.\n", CancelWord)
	s.p.Printf("=================================\n")
	for {
		pick, ok := s.p.Choose("\nChoose an operation:", menuOptions)
		if !ok {
			return s.writeBackup()
		}
		switch pick {
		case 0:
			s.receive()
		case 1:
			s.issue()
		case 2:
			s.dispose()
		case 3:
			writeStock(s.p.out, s.svc.Catalog().Products())
		case 4:
			s.edit()
		case 5:
			s.searchProducts()
		case 6:
			s.deleteProduct()
		case 7:
			s.generateReport()
		case 8:
			s.searchExits()
		case 9:
			if err := s.writeBackup(); err == nil {
				s.p.Printf("Backup written.\n")
			}
		case 10:
			s.p.Printf("Leaving...\n")
			return s.writeBackup()
		}
	}
}

func (s *Session) fail(err error) {
	switch {
	case errors.Is(err, catalog.ErrInsufficientStock):
		s.p.Printf("Insufficient stock for that quantity.\n")
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, catalog.ErrValidation):
		s.p.Printf("Invalid input: %v\n", err)
	case errors.Is(err, ledger.ErrCancelled):
		s.p.Printf("Operation cancelled.\n")
	case errors.Is(err, report.ErrEmptyReport):
		s.p.Printf("No exits found in that period.\n")
	default:
		s.p.Printf("Operation failed: %v\n", err)
		s.logger.Error("operation failed", slog.Any("error", err))
	}
}

func (s *Session) cancelled() {
	s.p.Printf("Operation cancelled.\n")
}

// pickProduct runs one search dialogue and disambiguates multiple matches.
func (s *Session) pickProduct(fields []catalog.SearchField, class catalog.Classification) (*catalog.Product, bool) {
	labels := make([]string, len(fields))
	for i, f := range fields {
		switch f {
		case catalog.SearchByName:
			labels[i] = "Search by name"
		case catalog.SearchByModel:
			labels[i] = "Search by model"
		case catalog.SearchByPartNumber:
			labels[i] = "Search by part number"
		}
	}
	pick, ok := s.p.Choose("Find the product:", labels)
	if !ok {
		return nil, false
	}
	term, ok := s.p.ReadRequired("Search term: ")
	if !ok {
		return nil, false
	}
	results := s.svc.Catalog().Find(catalog.Query{Field: fields[pick], Term: term, Class: class})
	if len(results) == 0 {
		s.p.Printf("No product found.\n")
		return nil, false
	}
	s.p.Printf("\nProducts found:\n")
	for i, p := range results {
		writeResultLine(s.p.out, i, p)
	}
	for {
		idx, ok := s.p.ReadInt("\nSelect the product number: ")
		if !ok {
			return nil, false
		}
		if idx >= 1 && idx <= len(results) {
			return results[idx-1], true
		}
		s.p.Printf("Invalid selection.\n")
	}
}

var classOptions = []string{
	"AERO (aeronautical)",
	"AUTO (automotive)",
	"EPI (protective equipment)",
	"CONS (consumable)",
}

func (s *Session) chooseClass() (catalog.Classification, bool) {
	pick, ok := s.p.Choose("\nProduct classification:", classOptions)
	if !ok {
		return "", false
	}
	return catalog.Classifications[pick], true
}

var conditionOptions = []string{"New", "Used", "Refurbished"}

func (s *Session) chooseCondition() (catalog.Condition, bool) {
	pick, ok := s.p.Choose("\nProduct condition:", conditionOptions)
	if !ok {
		return "", false
	}
	return catalog.Condition(conditionOptions[pick]), true
}

// readFreight runs the freight dialogue. existing is the merge target, or nil
// for a brand-new product.
func (s *Session) readFreight(existing *catalog.Product) (ledger.FreightDecl, bool) {
	shipped, ok := s.p.ReadYesNo("\nWas this batch shipped with freight?")
	if !ok {
		return ledger.FreightDecl{}, false
	}
	if !shipped {
		return ledger.FreightDecl{}, true
	}
	if existing != nil && existing.FreightTotal > 0 {
		s.p.Printf("The product already carries freight of %.2f over %s units.\n",
			existing.FreightTotal, trimFloat(existing.FreightCoveredQty))
		keep, ok := s.p.ReadYesNo("Keep this freight value?")
		if !ok {
			return ledger.FreightDecl{}, false
		}
		if keep {
			return ledger.FreightDecl{Declared: true, KeepExisting: true}, true
		}
	}
	total, ok := s.p.ReadFloat("Freight total: ")
	if !ok {
		return ledger.FreightDecl{}, false
	}
	covered, ok := s.p.ReadFloat("Units covered by this freight (0 = the received quantity): ")
	if !ok {
		return ledger.FreightDecl{}, false
	}
	return ledger.FreightDecl{Declared: true, Total: total, CoveredQty: covered}, true
}

func (s *Session) receive() {
	class, ok := s.chooseClass()
	if !ok {
		s.cancelled()
		return
	}
	hose := false
	if class == catalog.ClassCons {
		if hose, ok = s.p.ReadYesNo("Is it hose stock (measured in metres)?"); !ok {
			s.cancelled()
			return
		}
	}
	merge, ok := s.p.ReadYesNo("Add to an existing product?")
	if !ok {
		s.cancelled()
		return
	}
	if merge {
		s.receiveMerge(class)
		return
	}

	in := ledger.ReceiveInput{Class: class, Hose: hose}
	if class != catalog.ClassCons {
		if in.Condition, ok = s.chooseCondition(); !ok {
			s.cancelled()
			return
		}
	}
	if in.Name, ok = s.p.ReadRequired("Name ---------> "); !ok {
		s.cancelled()
		return
	}
	modelLabel := "Model --------> "
	qtyLabel := "Quantity -----> "
	valueLabel := "Unit value ---> "
	if hose {
		modelLabel = "Model (include the diameter) --> "
		qtyLabel = "Quantity (metres, e.g. 0.2) ---> "
		valueLabel = "Value per metre ---------------> "
	}
	if in.Model, ok = s.p.ReadRequired(modelLabel); !ok {
		s.cancelled()
		return
	}
	if in.Quantity, ok = s.p.ReadFloat(qtyLabel); !ok {
		s.cancelled()
		return
	}
	if in.UnitValue, ok = s.p.ReadFloat(valueLabel); !ok {
		s.cancelled()
		return
	}
	if in.Freight, ok = s.readFreight(nil); !ok {
		s.cancelled()
		return
	}
	if in.Origin, ok = s.p.ReadLine("Origin -------> "); !ok {
		s.cancelled()
		return
	}
	switch class {
	case catalog.ClassAero:
		if in.PartNumber, ok = s.p.ReadLine("Part number (optional): "); !ok {
			s.cancelled()
			return
		}
		if in.SerialNumber, ok = s.p.ReadLine("Serial number (optional): "); !ok {
			s.cancelled()
			return
		}
	case catalog.ClassAuto:
		if in.Plate, ok = s.p.ReadLine("Vehicle plate (optional): "); !ok {
			s.cancelled()
			return
		}
		if in.Prefix, ok = s.p.ReadLine("Vehicle prefix (optional): "); !ok {
			s.cancelled()
			return
		}
	case catalog.ClassEpi:
		if in.BadgeName, ok = s.p.ReadLine("Badge name (optional): "); !ok {
			s.cancelled()
			return
		}
		if in.Prefix, ok = s.p.ReadLine("Prefix (optional): "); !ok {
			s.cancelled()
			return
		}
	}
	p, err := s.svc.Receive(in)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Product %s received. Quantity on hand: %s\n", p.Name, formatQuantity(p))
}

// receiveMerge replays an existing product's identity so the service merges
// into it.
func (s *Session) receiveMerge(class catalog.Classification) {
	fields := []catalog.SearchField{catalog.SearchByName, catalog.SearchByModel}
	if class == catalog.ClassAero {
		fields = append(fields, catalog.SearchByPartNumber)
	}
	p, ok := s.pickProduct(fields, class)
	if !ok {
		return
	}
	qtyLabel := "Quantity to add: "
	if p.Hose {
		qtyLabel = "Quantity to add (metres, e.g. 0.2): "
	}
	qty, ok := s.p.ReadFloat(qtyLabel)
	if !ok {
		s.cancelled()
		return
	}
	freight, ok := s.readFreight(p)
	if !ok {
		s.cancelled()
		return
	}
	in := ledger.ReceiveInput{
		Class:        p.Class,
		Name:         p.Name,
		Model:        p.Model,
		Condition:    p.Condition,
		Quantity:     qty,
		UnitValue:    p.UnitValue,
		Origin:       p.Origin,
		Hose:         p.Hose,
		PartNumber:   p.PartNumber(),
		SerialNumber: p.SerialNumber(),
		Freight:      freight,
	}
	if p.Auto != nil {
		in.Plate, in.Prefix = p.Auto.Plate, p.Auto.Prefix
	}
	if p.Epi != nil {
		in.BadgeName, in.Prefix = p.Epi.BadgeName, p.Epi.Prefix
	}
	merged, err := s.svc.Receive(in)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Quantity updated. New quantity: %s\n", formatQuantity(merged))
}

func (s *Session) issue() {
	p, ok := s.pickProduct([]catalog.SearchField{catalog.SearchByName, catalog.SearchByModel, catalog.SearchByPartNumber}, "")
	if !ok {
		return
	}
	s.p.Printf("\nQuantity available: %s\n", formatQuantity(p))
	qtyLabel := "Quantity to issue: "
	if p.Hose {
		qtyLabel = "Quantity to issue (metres, e.g. 0.2): "
	}
	qty, ok := s.p.ReadFloat(qtyLabel)
	if !ok {
		s.cancelled()
		return
	}

	share := p.FreightPerUnit()
	s.p.Printf("\nUnit value: %.2f\n", p.UnitValue)
	s.p.Printf("Freight share: %.2f per unit\n", share)
	s.p.Printf("Line total: %.2f\n", qty*(p.UnitValue+share))

	date, ok := s.p.ReadDate("Issue date (DD/MM/YYYY): ")
	if !ok {
		s.cancelled()
		return
	}
	in := ledger.IssueInput{ProductID: p.ID, Date: date, Quantity: qty}
	switch p.Class {
	case catalog.ClassAero:
		if in.Tag, ok = s.p.ReadRequired("Aircraft prefix (required): "); !ok {
			s.cancelled()
			return
		}
		if in.SerialNumber, ok = s.p.ReadLine("Unit serial number (optional): "); !ok {
			s.cancelled()
			return
		}
	case catalog.ClassAuto:
		if in.Tag, ok = s.p.ReadRequired("Vehicle prefix (required): "); !ok {
			s.cancelled()
			return
		}
		if in.Plate, ok = s.p.ReadRequired("Vehicle plate (required): "); !ok {
			s.cancelled()
			return
		}
	case catalog.ClassEpi:
		if in.Tag, ok = s.p.ReadRequired("Prefix (required): "); !ok {
			s.cancelled()
			return
		}
		if in.BadgeName, ok = s.p.ReadRequired("Badge name (required): "); !ok {
			s.cancelled()
			return
		}
	case catalog.ClassCons:
		if in.Tag, ok = s.p.ReadLine("Prefix (optional): "); !ok {
			s.cancelled()
			return
		}
	}
	if in.Notes, ok = s.p.ReadLine("Notes (optional): "); !ok {
		s.cancelled()
		return
	}
	rec, err := s.svc.Issue(in)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("\nIssue recorded.\n")
	s.p.Printf("Quantity issued: %s\n", trimFloat(rec.Quantity))
	s.p.Printf("Unit value: %.2f\n", rec.UnitValue)
	s.p.Printf("Freight share: %.2f\n", rec.FreightPerUnit)
	s.p.Printf("Line total: %.2f\n", rec.LineTotal)
}

func (s *Session) dispose() {
	p, ok := s.pickProduct([]catalog.SearchField{catalog.SearchByName, catalog.SearchByModel}, "")
	if !ok {
		return
	}
	qty, ok := s.p.ReadFloat("\nQuantity to dispose: ")
	if !ok {
		s.cancelled()
		return
	}
	reason, ok := s.p.ReadRequired("Disposal reason: ")
	if !ok {
		s.cancelled()
		return
	}
	rec, err := s.svc.Dispose(ledger.DisposeInput{ProductID: p.ID, Quantity: qty, Reason: reason})
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Disposal of %s x %s recorded.\n", trimFloat(rec.Quantity), rec.Name)
}

func (s *Session) edit() {
	p, ok := s.pickProduct([]catalog.SearchField{catalog.SearchByName, catalog.SearchByModel, catalog.SearchByPartNumber}, "")
	if !ok {
		return
	}
	s.p.Printf("\nCurrent product:\n")
	writeProduct(s.p.out, p)

	fields := catalog.EditableFields(p)
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = string(f)
	}
	pick, ok := s.p.Choose("\nFields available for editing:", labels)
	if !ok {
		s.cancelled()
		return
	}
	field := fields[pick]

	var value string
	switch field {
	case catalog.FieldClass:
		class, ok := s.chooseClass()
		if !ok {
			s.cancelled()
			return
		}
		value = string(class)
	case catalog.FieldCondition:
		cond, ok := s.chooseCondition()
		if !ok {
			s.cancelled()
			return
		}
		value = string(cond)
	default:
		if value, ok = s.p.ReadRequired(fmt.Sprintf("New value for %s: ", field)); !ok {
			s.cancelled()
			return
		}
	}

	err := s.svc.Edit(p.ID, field, value, func(f catalog.Field, oldValue, newValue string) bool {
		confirmed, ok := s.p.ReadYesNo(fmt.Sprintf("\nConfirm changing %s from %q to %q?", f, oldValue, newValue))
		return ok && confirmed
	})
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Product updated.\n")
}

func (s *Session) deleteProduct() {
	p, ok := s.pickProduct([]catalog.SearchField{catalog.SearchByName, catalog.SearchByModel}, "")
	if !ok {
		return
	}
	s.p.Printf("\nProduct selected for deletion:\n")
	writeProduct(s.p.out, p)
	confirmed, ok := s.p.ReadYesNo("\nConfirm deletion?")
	if !ok || !confirmed {
		s.cancelled()
		return
	}
	if _, err := s.svc.Delete(p.ID); err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("Product deleted and logged.\n")
}

func (s *Session) searchProducts() {
	pick, ok := s.p.Choose("\nSearch stock:", []string{
		"By part number (AERO)",
		"By name",
		"By model",
		"By classification",
	})
	if !ok {
		return
	}
	var results []*catalog.Product
	switch pick {
	case 0, 1, 2:
		field := []catalog.SearchField{catalog.SearchByPartNumber, catalog.SearchByName, catalog.SearchByModel}[pick]
		term, ok := s.p.ReadRequired("Search term: ")
		if !ok {
			return
		}
		results = s.svc.Catalog().Find(catalog.Query{Field: field, Term: term})
	case 3:
		class, ok := s.chooseClass()
		if !ok {
			return
		}
		results = s.svc.Catalog().Find(catalog.Query{Field: catalog.SearchByClass, Class: class})
	}
	if len(results) == 0 {
		s.p.Printf("No product found.\n")
		return
	}
	s.p.Printf("\nProducts found:\n")
	var totalQty, totalValue float64
	for _, p := range results {
		writeProduct(s.p.out, p)
		totalQty += p.Quantity
		totalValue += p.Quantity * p.UnitValue
	}
	s.p.Printf("\n=== Search summary ===\n")
	s.p.Printf("Products found: %d\n", len(results))
	s.p.Printf("Total quantity: %s\n", trimFloat(totalQty))
	s.p.Printf("Total value: %.2f\n", totalValue)
}

func (s *Session) generateReport() {
	from, ok := s.p.ReadDate("Start date (DD/MM/YYYY): ")
	if !ok {
		s.cancelled()
		return
	}
	to, ok := s.p.ReadDate("End date (DD/MM/YYYY): ")
	if !ok {
		s.cancelled()
		return
	}
	path, err := s.reports.Generate(s.svc.Exits(), from, to)
	if err != nil {
		s.fail(err)
		return
	}
	s.p.Printf("\nReport generated: %s\n", path)
}

func (s *Session) searchExits() {
	pick, ok := s.p.Choose("\nSearch exit history:", []string{
		"By part number",
		"By aircraft/vehicle prefix",
	})
	if !ok {
		return
	}
	from, ok := s.p.ReadDate("From date (DD/MM/YYYY): ")
	if !ok {
		s.cancelled()
		return
	}
	term, ok := s.p.ReadRequired("Search term: ")
	if !ok {
		s.cancelled()
		return
	}
	var matches []ledger.ExitRecord
	if pick == 0 {
		matches = s.svc.ExitsByPartNumber(term, from)
	} else {
		matches = s.svc.ExitsByTag(term, from)
	}
	if len(matches) == 0 {
		s.p.Printf("No exits found for %q from %s.\n", term, from)
		return
	}
	var totalQty, totalValue float64
	partNumbers := map[string]bool{}
	for _, r := range matches {
		s.p.Printf("==================================================\n")
		s.p.Printf("Date: %s\n", r.Date)
		s.p.Printf("Name: %s\n", r.Name)
		s.p.Printf("Model: %s\n", r.Model)
		s.p.Printf("Part number: %s\n", r.PartNumber)
		s.p.Printf("Serial number: %s\n", r.SerialNumber)
		s.p.Printf("Quantity: %s\n", trimFloat(r.Quantity))
		s.p.Printf("Unit value: %.2f\n", r.UnitValue)
		s.p.Printf("Tag: %s\n", r.Tag)
		totalQty += r.Quantity
		totalValue += r.Quantity * r.UnitValue
		if r.PartNumber != catalog.FieldUnset {
			partNumbers[r.PartNumber] = true
		}
	}
	var pns []string
	for pn := range partNumbers {
		pns = append(pns, pn)
	}
	sort.Strings(pns)
	s.p.Printf("\n=== Summary ===\n")
	s.p.Printf("Exits: %d\n", len(matches))
	s.p.Printf("Total quantity: %s\n", trimFloat(totalQty))
	s.p.Printf("Total value: %.2f\n", totalValue)
	s.p.Printf("Part numbers used: %s\n", strings.Join(pns, ", "))
}

func (s *Session) writeBackup() error {
	path, err := s.repo.WriteBackup(s.svc.State())
	if err != nil {
		s.p.Printf("Backup failed: %v\n", err)
		s.logger.Error("manual backup", slog.Any("error", err))
		return err
	}
	s.logger.Info("backup written", slog.String("path", path))
	return nil
}

func trimFloat(v float64) string {
	out := fmt.Sprintf("%.3f", v)
	out = strings.TrimRight(out, "0")
	return strings.TrimRight(out, ".")
}
