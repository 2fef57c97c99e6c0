package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcalc/gridcalc/spreadsheet"
)

func buildSampleWorkbook(t *testing.T) *spreadsheet.Workbook {
	t.Helper()
	wb := spreadsheet.NewWorkbook()
	name, err := spreadsheet.NewSheetName("Sheet1")
	require.NoError(t, err)
	wb, err = wb.AddSheet(name)
	require.NoError(t, err)
	sheet, _ := wb.Sheet(name)

	a1, _ := spreadsheet.ParseARef("A1")
	a2, _ := spreadsheet.ParseARef("A2")
	a3, _ := spreadsheet.ParseARef("A3")
	a4, _ := spreadsheet.ParseARef("A4")
	a5, _ := spreadsheet.ParseARef("A5")
	b1, _ := spreadsheet.ParseARef("B1")

	style := wb.Styles().Intern(spreadsheet.CellStyle{Font: spreadsheet.Font{Name: "Arial", Size: 10, Bold: true}})

	sheet = sheet.PutStyled(a1, spreadsheet.NewNumberFromFloat(42), style)
	sheet = sheet.Put(a2, spreadsheet.NewText("hello"))
	sheet = sheet.Put(a3, spreadsheet.NewBool(true))
	sheet = sheet.Put(a4, spreadsheet.NewDateTime(time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)))
	sheet = sheet.Put(a5, spreadsheet.NewError(spreadsheet.ErrDiv0))
	sheet = sheet.Put(b1, spreadsheet.NewFormula("A1*2", nil))
	sheet = sheet.Comment(a1, spreadsheet.Comment{Author: "tester", Text: "note"})
	sheet = sheet.SetRowProperties(spreadsheet.Row(1), spreadsheet.RowProperties{Height: 20})
	sheet = sheet.SetColumnProperties(spreadsheet.Column(1), spreadsheet.ColumnProperties{Width: 15})

	wb, err = wb.ReplaceSheet(sheet)
	require.NoError(t, err)

	wb = wb.DefineName(spreadsheet.DefinedName{
		Name:       "TaxRate",
		Scope:      spreadsheet.DefinedNameScope{Global: true},
		Expression: "0.08",
	})
	return wb
}

func TestJSONStoreRoundTripsWorkbookContents(t *testing.T) {
	wb := buildSampleWorkbook(t)
	path := filepath.Join(t.TempDir(), "workbook.json")

	store := JSONStore{}
	require.NoError(t, store.WriteWorkbook(path, wb, spreadsheet.WriteConfig{}))

	got, err := store.ReadWorkbook(path)
	require.NoError(t, err)

	name, _ := spreadsheet.NewSheetName("Sheet1")
	sheet, ok := got.Sheet(name)
	require.True(t, ok)

	a1, _ := spreadsheet.ParseARef("A1")
	cell := sheet.Get(a1)
	assert.True(t, cell.Value.Equal(spreadsheet.NewNumberFromFloat(42)))
	require.NotNil(t, cell.StyleId)
	style, ok := got.Styles().Get(*cell.StyleId)
	require.True(t, ok)
	assert.Equal(t, "Arial", style.Font.Name)
	assert.True(t, style.Font.Bold)

	a2, _ := spreadsheet.ParseARef("A2")
	assert.Equal(t, "hello", sheet.Get(a2).Value.Text)

	a3, _ := spreadsheet.ParseARef("A3")
	assert.True(t, sheet.Get(a3).Value.Bool)

	a4, _ := spreadsheet.ParseARef("A4")
	wantDate := time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)
	assert.True(t, sheet.Get(a4).Value.DateTime.Equal(wantDate))

	a5, _ := spreadsheet.ParseARef("A5")
	assert.Equal(t, spreadsheet.ErrDiv0, sheet.Get(a5).Value.Error)

	b1, _ := spreadsheet.ParseARef("B1")
	b1cell := sheet.Get(b1)
	assert.True(t, b1cell.Value.IsFormula())
	assert.Equal(t, "A1*2", b1cell.Value.Expression)

	comments := sheet.Comments()
	require.Contains(t, comments, a1)
	assert.Equal(t, "note", comments[a1].Text)

	rowProps := sheet.RowPropertiesAll()
	require.Contains(t, rowProps, spreadsheet.Row(1))
	assert.Equal(t, 20.0, rowProps[spreadsheet.Row(1)].Height)

	dn, ok := got.ResolveName("TaxRate", name)
	require.True(t, ok)
	assert.Equal(t, "0.08", dn.Expression)
}

func TestJSONStoreRoundTripPreservesMergesAndTables(t *testing.T) {
	wb := spreadsheet.NewWorkbook()
	name, _ := spreadsheet.NewSheetName("Sheet1")
	wb, err := wb.AddSheet(name)
	require.NoError(t, err)
	sheet, _ := wb.Sheet(name)

	rng, err := spreadsheet.ParseCellRange("A1:B2")
	require.NoError(t, err)
	sheet, err = sheet.Merge(rng)
	require.NoError(t, err)

	tableRange, _ := spreadsheet.ParseCellRange("D1:E2")
	sheet = sheet.AddTable(spreadsheet.TableSpec{Name: "Orders", Range: tableRange, Headers: []string{"id", "qty"}})

	wb, err = wb.ReplaceSheet(sheet)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "workbook.json")
	store := JSONStore{}
	require.NoError(t, store.WriteWorkbook(path, wb, spreadsheet.WriteConfig{}))

	got, err := store.ReadWorkbook(path)
	require.NoError(t, err)
	gotSheet, _ := got.Sheet(name)

	merges := gotSheet.MergedRanges()
	require.Len(t, merges, 1)
	assert.Equal(t, "A1:B2", merges[0].ToA1())

	tables := gotSheet.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "Orders", tables[0].Name)
	assert.Equal(t, []string{"id", "qty"}, tables[0].Headers)
}

func TestJSONStoreWriteWorkbookEscapesFormulaInjection(t *testing.T) {
	wb := spreadsheet.NewWorkbook()
	name, _ := spreadsheet.NewSheetName("Sheet1")
	wb, err := wb.AddSheet(name)
	require.NoError(t, err)
	sheet, _ := wb.Sheet(name)

	a1, _ := spreadsheet.ParseARef("A1")
	sheet = sheet.Put(a1, spreadsheet.NewText("=SUM(A1:A9)"))
	wb, err = wb.ReplaceSheet(sheet)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "workbook.json")
	store := JSONStore{}
	require.NoError(t, store.WriteWorkbook(path, wb, spreadsheet.WriteConfig{EscapeFormulas: true}))

	got, err := store.ReadWorkbook(path)
	require.NoError(t, err)
	gotSheet, _ := got.Sheet(name)
	assert.Equal(t, "'=SUM(A1:A9)", gotSheet.Get(a1).Value.Text)
}

func TestJSONStoreReadWorkbookMissingFileErrors(t *testing.T) {
	store := JSONStore{}
	_, err := store.ReadWorkbook(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}
