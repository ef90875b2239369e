package report

import (
	"errors"
	"sort"

	"github.com/fieldworks/depot/internal/catalog"
	"github.com/fieldworks/depot/internal/ledger"
)

// ErrEmptyReport indicates no exit records fall inside the requested range.
var ErrEmptyReport = errors.New("report: no exits in period")

// ErrGeneration indicates the workbook could not be written.
var ErrGeneration = errors.New("report: generation failed")

// Line is one exit record as reported, with its total recomputed rather than
// trusted from the log.
type Line struct {
	ledger.ExitRecord
	Total float64
}

// TagGroup is the per-aircraft/vehicle breakdown view.
type TagGroup struct {
	Tag      string
	Lines    []Line
	Subtotal float64
}

// ReplenishmentItem aggregates identical exits into one purchase-estimate row.
type ReplenishmentItem struct {
	Name           string
	Model          string
	PartNumber     string
	UnitValue      float64
	FreightPerUnit float64
	Origin         string
	Quantity       float64
	Total          float64
}

// ReplenishmentClass groups estimate rows under one classification.
type ReplenishmentClass struct {
	Class    catalog.Classification
	Items    []ReplenishmentItem
	Subtotal float64
}

// Report is the fully computed period report, ready for rendering.
type Report struct {
	From catalog.Date
	To   catalog.Date

	// Summary holds every line in chronological order.
	Summary      []Line
	SummaryTotal float64

	TagGroups []TagGroup

	Consumables      []Line
	ConsumablesTotal float64

	Replenishment      []ReplenishmentClass
	ReplenishmentTotal float64
}

// Build filters the exit log to the inclusive [from, to] range and computes
// every view. It fails with ErrEmptyReport when nothing falls in range.
func Build(exits []ledger.ExitRecord, from, to catalog.Date) (*Report, error) {
	var lines []Line
	for _, r := range exits {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		lines = append(lines, Line{
			ExitRecord: r,
			Total:      r.Quantity * (r.UnitValue + r.FreightPerUnit),
		})
	}
	if len(lines) == 0 {
		return nil, ErrEmptyReport
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Date.Before(lines[j].Date)
	})

	rep := &Report{From: from, To: to, Summary: lines}
	for _, l := range lines {
		rep.SummaryTotal += l.Total
	}
	rep.TagGroups = buildTagGroups(lines)
	for _, l := range lines {
		if l.Class == catalog.ClassCons {
			rep.Consumables = append(rep.Consumables, l)
			rep.ConsumablesTotal += l.Total
		}
	}
	rep.Replenishment, rep.ReplenishmentTotal = buildReplenishment(lines)
	return rep, nil
}

func displayTag(tag string) (string, bool) {
	if tag == "" || tag == catalog.FieldUnset || tag == ledger.NoContext {
		return "", false
	}
	return tag, true
}

func buildTagGroups(lines []Line) []TagGroup {
	byTag := make(map[string]*TagGroup)
	var order []string
	for _, l := range lines {
		tag, ok := displayTag(l.Tag)
		if !ok {
			continue
		}
		g, exists := byTag[tag]
		if !exists {
			g = &TagGroup{Tag: tag}
			byTag[tag] = g
			order = append(order, tag)
		}
		g.Lines = append(g.Lines, l)
		g.Subtotal += l.Total
	}
	sort.Strings(order)
	out := make([]TagGroup, 0, len(order))
	for _, tag := range order {
		out = append(out, *byTag[tag])
	}
	return out
}

// replenishment grouping identity: classification plus product identity,
// price, origin and freight share.
type replenishmentKey struct {
	class          catalog.Classification
	name           string
	model          string
	partNumber     string
	unitValue      float64
	origin         string
	freightPerUnit float64
}

func buildReplenishment(lines []Line) ([]ReplenishmentClass, float64) {
	grouped := make(map[replenishmentKey]*ReplenishmentItem)
	for _, l := range lines {
		k := replenishmentKey{
			class:          l.Class,
			name:           l.Name,
			model:          l.Model,
			partNumber:     l.PartNumber,
			unitValue:      l.UnitValue,
			origin:         l.Origin,
			freightPerUnit: l.FreightPerUnit,
		}
		item, ok := grouped[k]
		if !ok {
			item = &ReplenishmentItem{
				Name:           l.Name,
				Model:          l.Model,
				PartNumber:     l.PartNumber,
				UnitValue:      l.UnitValue,
				FreightPerUnit: l.FreightPerUnit,
				Origin:         l.Origin,
			}
			grouped[k] = item
		}
		item.Quantity += l.Quantity
	}

	var grand float64
	var classes []ReplenishmentClass
	for _, class := range catalog.Classifications {
		var items []ReplenishmentItem
		for k, item := range grouped {
			if k.class != class {
				continue
			}
			item.Total = item.Quantity * (item.UnitValue + item.FreightPerUnit)
			items = append(items, *item)
		}
		if len(items) == 0 {
			continue
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].Origin != items[j].Origin {
				return items[i].Origin < items[j].Origin
			}
			return items[i].Name < items[j].Name
		})
		cls := ReplenishmentClass{Class: class, Items: items}
		for _, item := range items {
			cls.Subtotal += item.Total
		}
		grand += cls.Subtotal
		classes = append(classes, cls)
	}
	return classes, grand
}
