package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fieldworks/depot/internal/catalog"
	"github.com/fieldworks/depot/internal/ledger"
)

func TestGenerateWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)

	exits := []ledger.ExitRecord{
		exit(t, "05/02/2025", "Spark plug", catalog.ClassAero, 2, 100, 1.0, "PP-ABC"),
		exit(t, "10/02/2025", "Degreaser", catalog.ClassCons, 1, 5, 0, ledger.NoContext),
	}
	path, err := g.Generate(exits, mustDate(t, "01/02/2025"), mustDate(t, "28/02/2025"))
	require.NoError(t, err)
	require.Equal(t, "Report_01022025_28022025.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"Summary", "PP-ABC", "Consumables", "Replenishment"}, sheets)

	// Banner plus blank row, then headers, then the two exit lines.
	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 6)
	require.Equal(t, "Date", rows[2][0])
	require.Equal(t, "05/02/2025", rows[3][0])
}

func TestGenerateEmptyPeriod(t *testing.T) {
	g := NewGenerator(t.TempDir(), nil)
	_, err := g.Generate(nil, mustDate(t, "01/02/2025"), mustDate(t, "28/02/2025"))
	require.ErrorIs(t, err, ErrEmptyReport)
}

func TestGenerateSanitizesTagSheetNames(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)

	rec := exit(t, "05/02/2025", "Oil filter", catalog.ClassAuto, 1, 10, 0, "TRUCK/07")
	path, err := g.Generate([]ledger.ExitRecord{rec}, mustDate(t, "01/02/2025"), mustDate(t, "28/02/2025"))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "TRUCK-07")
}
