package terminal

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fieldworks/depot/internal/catalog"
)

func formatQuantity(p *catalog.Product) string {
	if p.Hose {
		return strconv.FormatFloat(p.Quantity, 'f', 1, 64) + " m"
	}
	return strconv.FormatFloat(p.Quantity, 'f', -1, 64)
}

func writeProduct(w io.Writer, p *catalog.Product) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Name          : %s\n", p.Name)
	fmt.Fprintf(w, "Model         : %s\n", p.Model)
	fmt.Fprintf(w, "Quantity      : %s\n", formatQuantity(p))
	fmt.Fprintf(w, "Unit value    : %.2f\n", p.UnitValue)
	if p.Class != catalog.ClassCons {
		fmt.Fprintf(w, "Condition     : %s\n", p.Condition)
	}
	fmt.Fprintf(w, "Origin        : %s\n", p.Origin)
	if p.FreightTotal > 0 {
		fmt.Fprintf(w, "Freight       : %.2f over %s units\n",
			p.FreightTotal, strconv.FormatFloat(p.FreightCoveredQty, 'f', -1, 64))
	}
	switch p.Class {
	case catalog.ClassAero:
		fmt.Fprintf(w, "Part number   : %s\n", p.PartNumber())
		fmt.Fprintf(w, "Serial number : %s\n", p.SerialNumber())
	case catalog.ClassAuto:
		if p.Auto != nil {
			fmt.Fprintf(w, "Plate         : %s\n", p.Auto.Plate)
			fmt.Fprintf(w, "Prefix        : %s\n", p.Auto.Prefix)
		}
	case catalog.ClassEpi:
		if p.Epi != nil {
			fmt.Fprintf(w, "Badge name    : %s\n", p.Epi.BadgeName)
			fmt.Fprintf(w, "Prefix        : %s\n", p.Epi.Prefix)
		}
	}
}

func writeResultLine(w io.Writer, i int, p *catalog.Product) {
	extra := ""
	if p.Class == catalog.ClassAero {
		extra = ", PN: " + p.PartNumber()
	}
	cond := ""
	if p.Class != catalog.ClassCons {
		cond = ", Condition: " + string(p.Condition)
	}
	fmt.Fprintf(w, "%d - Name: %s, Model: %s%s, Classification: %s%s, Quantity: %s\n",
		i+1, p.Name, p.Model, extra, p.Class, cond, formatQuantity(p))
}

var classHeaders = map[catalog.Classification]string{
	catalog.ClassAero: "=== AERONAUTICAL PARTS ===",
	catalog.ClassAuto: "=== AUTOMOTIVE PARTS ===",
	catalog.ClassEpi:  "=== PROTECTIVE EQUIPMENT ===",
	catalog.ClassCons: "=== CONSUMABLES ===",
}

func writeStock(w io.Writer, products []*catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "The stock is empty.")
		return
	}
	for _, class := range catalog.Classifications {
		var group []*catalog.Product
		for _, p := range products {
			if p.Class == class {
				group = append(group, p)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", classHeaders[class])
		for _, p := range group {
			writeProduct(w, p)
		}
	}
}
