package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcalc/gridcalc/spreadsheet"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	sess := newSession(zerolog.Nop())
	resp := sess.cmdCreate(nil)
	require.True(t, resp.OK)
	return sess
}

func TestSplitArgsHandlesQuotedSpans(t *testing.T) {
	got := splitArgs(`put A1 "hello world"`)
	assert.Equal(t, []string{"put", "A1", "hello world"}, got)
}

func TestDispatchUnknownCommandErrors(t *testing.T) {
	sess := newTestSession(t)
	resp := sess.dispatch([]string{"frobnicate"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestCmdPutAndCmdCellRoundTrip(t *testing.T) {
	sess := newTestSession(t)
	resp := sess.cmdPut([]string{"A1", "42"})
	require.True(t, resp.OK)

	resp = sess.cmdCell([]string{"A1"})
	require.True(t, resp.OK)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "42", data["value"])
}

func TestCmdSortOrdersRowsByNumericColumnDescending(t *testing.T) {
	sess := newTestSession(t)
	rows := [][2]string{{"A1", "3"}, {"B1", "c"}, {"A2", "1"}, {"B2", "a"}, {"A3", "2"}, {"B3", "b"}}
	for _, r := range rows {
		resp := sess.cmdPut([]string{r[0], r[1]})
		require.True(t, resp.OK)
	}

	resp := sess.cmdSort([]string{"A1:B3", "--by", "A:desc:num"})
	require.True(t, resp.OK)

	_, sheet, err := sess.sheetOrCurrent("")
	require.NoError(t, err)

	a1, _ := spreadsheet.ParseARef("A1")
	a2, _ := spreadsheet.ParseARef("A2")
	a3, _ := spreadsheet.ParseARef("A3")
	b1, _ := spreadsheet.ParseARef("B1")

	assert.True(t, sheet.Get(a1).Value.Equal(spreadsheet.NewNumberFromFloat(3)))
	assert.True(t, sheet.Get(a2).Value.Equal(spreadsheet.NewNumberFromFloat(2)))
	assert.True(t, sheet.Get(a3).Value.Equal(spreadsheet.NewNumberFromFloat(1)))
	assert.Equal(t, "c", sheet.Get(b1).Value.ToPlainText(), "row tied to the sorted A column carries its B value along")
}

func TestCmdSortSkipsHeaderRow(t *testing.T) {
	sess := newTestSession(t)
	cells := map[string]string{"A1": "name", "A2": "b", "A3": "a"}
	for ref, v := range cells {
		resp := sess.cmdPut([]string{ref, v})
		require.True(t, resp.OK)
	}

	resp := sess.cmdSort([]string{"A1:A3", "--by", "A:asc:text", "--header"})
	require.True(t, resp.OK)

	_, sheet, err := sess.sheetOrCurrent("")
	require.NoError(t, err)
	a1, _ := spreadsheet.ParseARef("A1")
	a2, _ := spreadsheet.ParseARef("A2")
	a3, _ := spreadsheet.ParseARef("A3")
	assert.Equal(t, "name", sheet.Get(a1).Value.ToPlainText(), "header row is left untouched")
	assert.Equal(t, "a", sheet.Get(a2).Value.ToPlainText())
	assert.Equal(t, "b", sheet.Get(a3).Value.ToPlainText())
}

func TestCmdSortRequiresAtLeastOneByColumn(t *testing.T) {
	sess := newTestSession(t)
	resp := sess.cmdSort([]string{"A1:B3"})
	assert.False(t, resp.OK)
}

func TestCmdClearRemovesCells(t *testing.T) {
	sess := newTestSession(t)
	resp := sess.cmdPut([]string{"A1", "5"})
	require.True(t, resp.OK)

	resp = sess.cmdClear([]string{"A1:A1"})
	require.True(t, resp.OK)

	resp = sess.cmdCell([]string{"A1"})
	require.True(t, resp.OK)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "", data["value"])
}

func TestCmdCreateReturnsWorkbookID(t *testing.T) {
	sess := newSession(zerolog.Nop())
	resp := sess.cmdCreate(nil)
	require.True(t, resp.OK)
	data := resp.Data.(map[string]interface{})
	id, ok := data["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, sess.wb.ID.String(), id)
}

func TestLiteralToValueInfersType(t *testing.T) {
	assert.True(t, literalToValue("TRUE").Equal(spreadsheet.NewBool(true)))
	assert.True(t, literalToValue("3.5").Equal(spreadsheet.NewNumberFromFloat(3.5)))
	assert.Equal(t, "hello", literalToValue("hello").ToPlainText())
}
