// Package persist implements spreadsheet.Reader/Writer against a flat
// JSON container, grounded on the core's Reader/Writer contracts
// (spec.md §4.8). The core does not mandate byte-level OOXML
// preservation, and the OOXML ecosystem library elsewhere in the
// retrieved example set was not wired into this module (see DESIGN.md);
// JSON is the concrete on-disk format this collaborator chooses, kept to
// the "equal workbook modulo style registry indexing and explicit empty
// cells" requirement spec.md §6 states.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gridcalc/gridcalc/spreadsheet"
	"github.com/shopspring/decimal"
)

type jsonWorkbook struct {
	Sheets       []jsonSheet           `json:"sheets"`
	DefinedNames []jsonDefinedName     `json:"definedNames,omitempty"`
	Styles       map[uint32]jsonStyle  `json:"styles,omitempty"`
}

type jsonSheet struct {
	Name     string            `json:"name"`
	Cells    []jsonCell        `json:"cells"`
	RowProps map[uint32]jsonRowProps `json:"rowProps,omitempty"`
	ColProps map[uint32]jsonColProps `json:"colProps,omitempty"`
	Merges   []string          `json:"merges,omitempty"`
	Comments map[string]jsonComment `json:"comments,omitempty"`
	Tables   []jsonTable       `json:"tables,omitempty"`
}

type jsonCell struct {
	Ref        string  `json:"ref"`
	Kind       string  `json:"kind"`
	Number     string  `json:"number,omitempty"`
	Bool       bool    `json:"bool,omitempty"`
	Text       string  `json:"text,omitempty"`
	DateTime   *string `json:"dateTime,omitempty"`
	Error      string  `json:"error,omitempty"`
	Expression string  `json:"expression,omitempty"`
	StyleID    *uint32 `json:"styleId,omitempty"`
}

type jsonRowProps struct {
	Height       float64 `json:"height"`
	Hidden       bool    `json:"hidden"`
	OutlineLevel int     `json:"outlineLevel"`
	Collapsed    bool    `json:"collapsed"`
}

type jsonColProps struct {
	Width        float64 `json:"width"`
	Hidden       bool    `json:"hidden"`
	OutlineLevel int     `json:"outlineLevel"`
	Collapsed    bool    `json:"collapsed"`
	StyleID      *uint32 `json:"styleId,omitempty"`
}

type jsonComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type jsonTable struct {
	Name    string   `json:"name"`
	Range   string   `json:"range"`
	Headers []string `json:"headers,omitempty"`
}

type jsonDefinedName struct {
	Name       string `json:"name"`
	Global     bool   `json:"global"`
	Sheet      string `json:"sheet,omitempty"`
	Expression string `json:"expression"`
}

type jsonStyle struct {
	FontName      string  `json:"fontName,omitempty"`
	FontSize      float64 `json:"fontSize,omitempty"`
	Bold          bool    `json:"bold,omitempty"`
	Italic        bool    `json:"italic,omitempty"`
	Underline     bool    `json:"underline,omitempty"`
	FontColorRGB  string  `json:"fontColorRGB,omitempty"`
	FillPattern   string  `json:"fillPattern,omitempty"`
	FillFgRGB     string  `json:"fillFgRGB,omitempty"`
	FillBgRGB     string  `json:"fillBgRGB,omitempty"`
	HAlign        string  `json:"hAlign,omitempty"`
	VAlign        string  `json:"vAlign,omitempty"`
	WrapText      bool    `json:"wrapText,omitempty"`
	Indent        int     `json:"indent,omitempty"`
	NumFmtCode    string  `json:"numFmtCode,omitempty"`
	NumFmtID      int     `json:"numFmtID,omitempty"`
}

// JSONStore is a spreadsheet.Reader and spreadsheet.Writer backed by a
// single JSON file on disk.
type JSONStore struct{}

var _ spreadsheet.Reader = JSONStore{}
var _ spreadsheet.Writer = JSONStore{}

// WriteWorkbook encodes wb as JSON and writes it to path. When
// cfg.EscapeFormulas is set, every text cell is passed through
// spreadsheet.EscapeFormulaInjection before encoding.
func (JSONStore) WriteWorkbook(path string, wb *spreadsheet.Workbook, cfg spreadsheet.WriteConfig) error {
	doc := jsonWorkbook{Styles: map[uint32]jsonStyle{}}

	for id, style := range wb.Styles().All() {
		doc.Styles[uint32(id)] = jsonStyle{
			FontName:     style.Font.Name,
			FontSize:     style.Font.Size,
			Bold:         style.Font.Bold,
			Italic:       style.Font.Italic,
			Underline:    style.Font.Underline,
			FontColorRGB: style.Font.ColorRGB,
			FillPattern:  style.Fill.PatternType,
			FillFgRGB:    style.Fill.FgColorRGB,
			FillBgRGB:    style.Fill.BgColorRGB,
			HAlign:       style.Alignment.Horizontal,
			VAlign:       style.Alignment.Vertical,
			WrapText:     style.Alignment.WrapText,
			Indent:       style.Alignment.Indent,
			NumFmtCode:   style.NumFmt.Code,
			NumFmtID:     style.NumFmt.ID,
		}
	}

	for _, dn := range wb.DefinedNames() {
		doc.DefinedNames = append(doc.DefinedNames, jsonDefinedName{
			Name:       dn.Name,
			Global:     dn.Scope.Global,
			Sheet:      string(dn.Scope.Sheet),
			Expression: dn.Expression,
		})
	}

	for _, sheet := range wb.Sheets() {
		js := jsonSheet{Name: string(sheet.Name())}
		for _, ref := range sheet.AllCells() {
			cell := sheet.Get(ref)
			jc := cellToJSON(ref, cell, cfg.EscapeFormulas)
			js.Cells = append(js.Cells, jc)
		}
		for row, props := range sheet.RowPropertiesAll() {
			if js.RowProps == nil {
				js.RowProps = map[uint32]jsonRowProps{}
			}
			js.RowProps[uint32(row)] = jsonRowProps{
				Height: props.Height, Hidden: props.Hidden,
				OutlineLevel: props.OutlineLevel, Collapsed: props.Collapsed,
			}
		}
		for col, props := range sheet.ColumnPropertiesAll() {
			if js.ColProps == nil {
				js.ColProps = map[uint32]jsonColProps{}
			}
			cp := jsonColProps{
				Width: props.Width, Hidden: props.Hidden,
				OutlineLevel: props.OutlineLevel, Collapsed: props.Collapsed,
			}
			if props.StyleId != nil {
				id := uint32(*props.StyleId)
				cp.StyleID = &id
			}
			js.ColProps[uint32(col)] = cp
		}
		for _, m := range sheet.MergedRanges() {
			js.Merges = append(js.Merges, m.ToA1())
		}
		for ref, c := range sheet.Comments() {
			if js.Comments == nil {
				js.Comments = map[string]jsonComment{}
			}
			js.Comments[ref.ToA1()] = jsonComment{Author: c.Author, Text: c.Text}
		}
		for _, t := range sheet.Tables() {
			js.Tables = append(js.Tables, jsonTable{Name: t.Name, Range: t.Range.ToA1(), Headers: t.Headers})
		}
		doc.Sheets = append(doc.Sheets, js)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workbook: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func cellToJSON(ref spreadsheet.ARef, cell spreadsheet.Cell, escapeFormulas bool) jsonCell {
	jc := jsonCell{Ref: ref.ToA1()}
	v := cell.Value
	switch v.Kind {
	case spreadsheet.KindNumber:
		jc.Kind = "number"
		jc.Number = v.Number.String()
	case spreadsheet.KindBool:
		jc.Kind = "bool"
		jc.Bool = v.Bool
	case spreadsheet.KindText:
		jc.Kind = "text"
		jc.Text = v.Text
		if escapeFormulas {
			jc.Text = spreadsheet.EscapeFormulaInjection(jc.Text)
		}
	case spreadsheet.KindDateTime:
		jc.Kind = "dateTime"
		s := v.DateTime.UTC().Format(time.RFC3339)
		jc.DateTime = &s
	case spreadsheet.KindError:
		jc.Kind = "error"
		jc.Error = v.Error.ToExcel()
	case spreadsheet.KindFormula:
		jc.Kind = "formula"
		jc.Expression = v.Expression
	default:
		jc.Kind = "empty"
	}
	if cell.StyleId != nil {
		id := uint32(*cell.StyleId)
		jc.StyleID = &id
	}
	return jc
}

// ReadWorkbook reads path and decodes it into a fresh Workbook.
func (JSONStore) ReadWorkbook(path string) (*spreadsheet.Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	var doc jsonWorkbook
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal workbook: %w", err)
	}

	wb := spreadsheet.NewWorkbook()
	styleRemap := make(map[uint32]spreadsheet.StyleId, len(doc.Styles))
	for id, s := range doc.Styles {
		style := spreadsheet.CellStyle{
			Font:      spreadsheet.Font{Name: s.FontName, Size: s.FontSize, Bold: s.Bold, Italic: s.Italic, Underline: s.Underline, ColorRGB: s.FontColorRGB},
			Fill:      spreadsheet.Fill{PatternType: s.FillPattern, FgColorRGB: s.FillFgRGB, BgColorRGB: s.FillBgRGB},
			Alignment: spreadsheet.Alignment{Horizontal: s.HAlign, Vertical: s.VAlign, WrapText: s.WrapText, Indent: s.Indent},
			NumFmt:    spreadsheet.NumFmt{Code: s.NumFmtCode, ID: s.NumFmtID},
		}
		styleRemap[id] = wb.Styles().Intern(style)
	}

	for _, js := range doc.Sheets {
		name, err := spreadsheet.NewSheetName(js.Name)
		if err != nil {
			return nil, err
		}
		next, err := wb.AddSheet(name)
		if err != nil {
			return nil, err
		}
		wb = next
		sheet, _ := wb.Sheet(name)

		for _, jc := range js.Cells {
			ref, err := spreadsheet.ParseARef(jc.Ref)
			if err != nil {
				return nil, err
			}
			value, err := cellFromJSON(jc)
			if err != nil {
				return nil, err
			}
			if jc.StyleID != nil {
				sheet = sheet.PutStyled(ref, value, styleRemap[*jc.StyleID])
			} else {
				sheet = sheet.Put(ref, value)
			}
		}
		for row, props := range js.RowProps {
			r, err := spreadsheet.NewRow(row)
			if err != nil {
				return nil, err
			}
			sheet = sheet.SetRowProperties(r, spreadsheet.RowProperties{
				Height: props.Height, Hidden: props.Hidden,
				OutlineLevel: props.OutlineLevel, Collapsed: props.Collapsed,
			})
		}
		for col, props := range js.ColProps {
			c, err := spreadsheet.NewColumn(col)
			if err != nil {
				return nil, err
			}
			cp := spreadsheet.ColumnProperties{
				Width: props.Width, Hidden: props.Hidden,
				OutlineLevel: props.OutlineLevel, Collapsed: props.Collapsed,
			}
			if props.StyleID != nil {
				id := styleRemap[*props.StyleID]
				cp.StyleId = &id
			}
			sheet = sheet.SetColumnProperties(c, cp)
		}
		for _, m := range js.Merges {
			rng, err := spreadsheet.ParseCellRange(m)
			if err != nil {
				return nil, err
			}
			sheet, err = sheet.Merge(rng)
			if err != nil {
				return nil, err
			}
		}
		for refText, c := range js.Comments {
			ref, err := spreadsheet.ParseARef(refText)
			if err != nil {
				return nil, err
			}
			sheet = sheet.Comment(ref, spreadsheet.Comment{Author: c.Author, Text: c.Text})
		}
		for _, t := range js.Tables {
			rng, err := spreadsheet.ParseCellRange(t.Range)
			if err != nil {
				return nil, err
			}
			sheet = sheet.AddTable(spreadsheet.TableSpec{Name: t.Name, Range: rng, Headers: t.Headers})
		}

		next, err = wb.ReplaceSheet(sheet)
		if err != nil {
			return nil, err
		}
		wb = next
	}

	for _, dn := range doc.DefinedNames {
		sheetName, err := sheetNameOrEmpty(dn.Sheet)
		if err != nil {
			return nil, err
		}
		wb = wb.DefineName(spreadsheet.DefinedName{
			Name:       dn.Name,
			Scope:      spreadsheet.DefinedNameScope{Global: dn.Global, Sheet: sheetName},
			Expression: dn.Expression,
		})
	}

	return wb, nil
}

func sheetNameOrEmpty(s string) (spreadsheet.SheetName, error) {
	if s == "" {
		return "", nil
	}
	return spreadsheet.NewSheetName(s)
}

func cellFromJSON(jc jsonCell) (spreadsheet.CellValue, error) {
	switch jc.Kind {
	case "number":
		d, err := decimal.NewFromString(jc.Number)
		if err != nil {
			return spreadsheet.CellValue{}, err
		}
		return spreadsheet.NewNumber(d), nil
	case "bool":
		return spreadsheet.NewBool(jc.Bool), nil
	case "text":
		return spreadsheet.NewText(jc.Text), nil
	case "dateTime":
		if jc.DateTime == nil {
			return spreadsheet.CellValue{}, fmt.Errorf("dateTime cell %q missing dateTime field", jc.Ref)
		}
		t, err := time.Parse(time.RFC3339, *jc.DateTime)
		if err != nil {
			return spreadsheet.CellValue{}, err
		}
		return spreadsheet.NewDateTime(t), nil
	case "error":
		e, err := spreadsheet.ParseCellError(jc.Error)
		if err != nil {
			return spreadsheet.CellValue{}, err
		}
		return spreadsheet.NewError(e), nil
	case "formula":
		return spreadsheet.NewFormula(jc.Expression, nil), nil
	case "empty", "":
		return spreadsheet.Empty, nil
	default:
		return spreadsheet.CellValue{}, fmt.Errorf("unknown cell kind %q at %s", jc.Kind, jc.Ref)
	}
}
