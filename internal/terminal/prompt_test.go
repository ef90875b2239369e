package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldworks/depot/internal/catalog"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewPrompter(strings.NewReader(input), out), out
}

func TestReadLineCancelSentinel(t *testing.T) {
	p, _ := newTestPrompter("CANCEL\n")
	_, ok := p.ReadLine("Name: ")
	require.False(t, ok)
}

func TestReadLineEOF(t *testing.T) {
	p, _ := newTestPrompter("")
	_, ok := p.ReadLine("Name: ")
	require.False(t, ok)
}

func TestReadRequiredRepromptsOnEmpty(t *testing.T) {
	p, out := newTestPrompter("\n\nOil filter\n")
	answer, ok := p.ReadRequired("Name: ")
	require.True(t, ok)
	require.Equal(t, "Oil filter", answer)
	require.Contains(t, out.String(), "A value is required.")
}

func TestReadFloatRepromptsOnGarbage(t *testing.T) {
	p, out := newTestPrompter("abc\n2.5\n")
	v, ok := p.ReadFloat("Quantity: ")
	require.True(t, ok)
	require.InDelta(t, 2.5, v, 1e-9)
	require.Contains(t, out.String(), "Invalid number")
}

func TestReadDate(t *testing.T) {
	p, out := newTestPrompter("2025-03-15\n15/03/2025\n")
	d, ok := p.ReadDate("Date: ")
	require.True(t, ok)
	require.Equal(t, "15/03/2025", d.String())
	require.Contains(t, out.String(), "Invalid date")
}

func TestReadYesNo(t *testing.T) {
	p, _ := newTestPrompter("maybe\nYES\n")
	v, ok := p.ReadYesNo("Continue?")
	require.True(t, ok)
	require.True(t, v)

	p, _ = newTestPrompter("n\n")
	v, ok = p.ReadYesNo("Continue?")
	require.True(t, ok)
	require.False(t, v)
}

func TestChoose(t *testing.T) {
	p, out := newTestPrompter("9\n2\n")
	pick, ok := p.Choose("Pick:", []string{"first", "second"})
	require.True(t, ok)
	require.Equal(t, 1, pick)
	require.Contains(t, out.String(), "1 - first")
	require.Contains(t, out.String(), "Invalid option")
}

func TestChooseCancelled(t *testing.T) {
	p, _ := newTestPrompter("cancel\n")
	_, ok := p.Choose("Pick:", []string{"first"})
	require.False(t, ok)
}

func TestFormatQuantity(t *testing.T) {
	hose := &catalog.Product{Hose: true, Quantity: 2.5}
	require.Equal(t, "2.5 m", formatQuantity(hose))

	unit := &catalog.Product{Quantity: 12}
	require.Equal(t, "12", formatQuantity(unit))
}

func TestWriteStockGroupsByClassification(t *testing.T) {
	products := []*catalog.Product{
		{Class: catalog.ClassCons, Name: "Degreaser", Model: "5L", Quantity: 3},
		{Class: catalog.ClassAero, Name: "Spark plug", Model: "REM40E", Quantity: 8,
			Condition: catalog.ConditionNew},
	}
	out := &bytes.Buffer{}
	writeStock(out, products)

	text := out.String()
	require.Contains(t, text, "=== AERONAUTICAL PARTS ===")
	require.Contains(t, text, "=== CONSUMABLES ===")
	// AERO section renders before CONS regardless of input order.
	require.Less(t, strings.Index(text, "Spark plug"), strings.Index(text, "Degreaser"))

	empty := &bytes.Buffer{}
	writeStock(empty, nil)
	require.Contains(t, empty.String(), "The stock is empty.")
}
