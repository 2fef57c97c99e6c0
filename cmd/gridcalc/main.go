// Command gridcalc is an interactive CLI/agent front end over the core
// workbook engine: open/create a workbook, select a sheet, inspect or
// mutate cells, evaluate formulas, and save, per spec.md §6's documented
// surface. Output is JSON only; rendering is a collaborator's concern.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/gridcalc/gridcalc/internal/persist"
	"github.com/gridcalc/gridcalc/internal/telemetry"
	"github.com/gridcalc/gridcalc/spreadsheet"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "gridcalc",
		Usage: "interactive workbook engine CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace|debug|info|warn|error"},
			&cli.BoolFlag{Name: "pretty", Value: true, Usage: "human-readable log output on stderr"},
		},
		Action: func(c *cli.Context) error {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				level = zerolog.InfoLevel
			}
			log := telemetry.New(os.Stderr, level, c.Bool("pretty"))
			sess := newSession(log)
			return sess.run(os.Stdin, os.Stdout)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session holds the one open workbook a gridcalc process operates on.
// Every mutating command reassigns sess.wb to the new value returned by
// the core, since workbooks are immutable values rather than handles.
type session struct {
	log     zerolog.Logger
	hooks   *telemetry.Hooks
	store   persist.JSONStore
	wb      *spreadsheet.Workbook
	path    string
	current spreadsheet.SheetName
	clock   spreadsheet.Clock
}

func newSession(log zerolog.Logger) *session {
	return &session{
		log:   log,
		hooks: telemetry.NewHooks(log),
		clock: spreadsheet.SystemClock{},
	}
}

func (s *session) run(in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitArgs(line)
		result := s.dispatch(fields)
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// splitArgs is a minimal shell-like tokenizer: whitespace separated,
// double-quoted spans kept intact.
func splitArgs(line string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

type response struct {
	OK    bool        `json:"ok"`
	Verb  string      `json:"verb,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func errResp(verb string, err error) response {
	return response{OK: false, Verb: verb, Error: err.Error()}
}

func okResp(verb string, data interface{}) response {
	return response{OK: true, Verb: verb, Data: data}
}

func (s *session) dispatch(fields []string) response {
	if len(fields) == 0 {
		return errResp("", fmt.Errorf("empty command"))
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "open":
		return s.cmdOpen(args)
	case "create":
		return s.cmdCreate(args)
	case "close":
		return s.cmdClose(args)
	case "sheets":
		return s.cmdSheets()
	case "select":
		return s.cmdSelect(args)
	case "bounds":
		return s.cmdBounds(args)
	case "view":
		return s.cmdView(args)
	case "cell":
		return s.cmdCell(args)
	case "search":
		return s.cmdSearch(args)
	case "eval":
		return s.cmdEval(args)
	case "put":
		return s.cmdPut(args)
	case "putf":
		return s.cmdPutf(args)
	case "sort":
		return s.cmdSort(args)
	case "clear":
		return s.cmdClear(args)
	case "save":
		return s.cmdSave(args)
	case "saveas":
		return s.cmdSaveas(args)
	default:
		return errResp(verb, fmt.Errorf("unknown command %q", verb))
	}
}

func (s *session) requireOpen() error {
	if s.wb == nil {
		return fmt.Errorf("no workbook is open")
	}
	return nil
}

func (s *session) sheetOrCurrent(name string) (spreadsheet.SheetName, *spreadsheet.Sheet, error) {
	sn := s.current
	if name != "" {
		var err error
		sn, err = spreadsheet.NewSheetName(name)
		if err != nil {
			return "", nil, err
		}
	}
	sheet, ok := s.wb.Sheet(sn)
	if !ok {
		return "", nil, fmt.Errorf("no sheet named %q", sn)
	}
	return sn, sheet, nil
}

// cmdOpen reads path into the session and makes its first sheet current.
// Arguments after the path are ignored: there is no read-only mode, and a
// later save writes back to path.
func (s *session) cmdOpen(args []string) response {
	if len(args) < 1 {
		return errResp("open", fmt.Errorf("usage: open <path>"))
	}
	path := args[0]
	wb, err := s.store.ReadWorkbook(path)
	if err != nil {
		s.hooks.OnOpen(path, 0, "")
		return errResp("open", err)
	}
	s.wb = wb
	s.path = path
	names := wb.SheetNames()
	if len(names) > 0 {
		s.current = names[0]
	}
	s.hooks.OnOpen(path, len(names), wb.ID.String())
	return okResp("open", map[string]interface{}{"path": path, "sheets": names, "id": wb.ID.String()})
}

func (s *session) cmdCreate(args []string) response {
	var sheetNames []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--sheets" && i+1 < len(args) {
			sheetNames = strings.Split(args[i+1], ",")
			i++
		}
	}
	if len(sheetNames) == 0 {
		sheetNames = []string{"Sheet1"}
	}
	wb := spreadsheet.NewWorkbook()
	for _, n := range sheetNames {
		sn, err := spreadsheet.NewSheetName(strings.TrimSpace(n))
		if err != nil {
			return errResp("create", err)
		}
		next, err := wb.AddSheet(sn)
		if err != nil {
			return errResp("create", err)
		}
		wb = next
	}
	s.wb = wb
	s.path = ""
	s.current = wb.SheetNames()[0]
	s.hooks.OnOpen("<new>", len(sheetNames), wb.ID.String())
	return okResp("create", map[string]interface{}{"sheets": wb.SheetNames(), "id": wb.ID.String()})
}

func (s *session) cmdClose(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("close", err)
	}
	s.wb = nil
	s.path = ""
	s.current = ""
	return okResp("close", nil)
}

func (s *session) cmdSheets() response {
	if err := s.requireOpen(); err != nil {
		return errResp("sheets", err)
	}
	return okResp("sheets", s.wb.SheetNames())
}

func (s *session) cmdSelect(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("select", err)
	}
	if len(args) < 1 {
		return errResp("select", fmt.Errorf("usage: select <name>"))
	}
	sn, err := spreadsheet.NewSheetName(args[0])
	if err != nil {
		return errResp("select", err)
	}
	if _, ok := s.wb.Sheet(sn); !ok {
		return errResp("select", fmt.Errorf("no sheet named %q", sn))
	}
	s.current = sn
	return okResp("select", sn)
}

func (s *session) cmdBounds(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("bounds", err)
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	_, sheet, err := s.sheetOrCurrent(name)
	if err != nil {
		return errResp("bounds", err)
	}
	rng, ok := sheet.UsedRange()
	if !ok {
		return okResp("bounds", nil)
	}
	return okResp("bounds", rng.ToA1())
}

func (s *session) cmdView(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("view", err)
	}
	if len(args) < 1 {
		return errResp("view", fmt.Errorf("usage: view <range> [--formulas] [--limit N]"))
	}
	showFormulas := false
	limit := -1
	var rangeArg string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--formulas":
			showFormulas = true
		case "--limit":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err == nil {
					limit = n
				}
				i++
			}
		default:
			if rangeArg == "" {
				rangeArg = args[i]
			}
		}
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("view", err)
	}
	rng, err := spreadsheet.ParseCellRange(rangeArg)
	if err != nil {
		return errResp("view", err)
	}
	if rng.IsUnbounded() {
		clipped, ok := rng.Bounded(mustUsedRange(sheet))
		if !ok {
			return okResp("view", nil)
		}
		rng = clipped
	}
	var rows []map[string]interface{}
	count := 0
	rng.Cells(func(ref spreadsheet.ARef) bool {
		if limit >= 0 && count >= limit {
			return false
		}
		cell := sheet.Get(ref)
		entry := map[string]interface{}{"ref": ref.ToA1()}
		if showFormulas && cell.IsFormula() {
			entry["formula"] = cell.Value.Expression
		} else {
			entry["value"] = cell.Value.ToPlainText()
		}
		rows = append(rows, entry)
		count++
		return true
	})
	return okResp("view", rows)
}

func (s *session) cmdCell(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("cell", err)
	}
	if len(args) < 1 {
		return errResp("cell", fmt.Errorf("usage: cell <ref>"))
	}
	ref, err := spreadsheet.ParseARef(args[0])
	if err != nil {
		return errResp("cell", err)
	}
	sheetName, _, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("cell", err)
	}
	v, err := spreadsheet.EvaluateCell(s.wb, sheetName, ref, s.clock)
	if err != nil {
		return errResp("cell", err)
	}
	return okResp("cell", map[string]interface{}{"ref": ref.ToA1(), "value": v.ToPlainText()})
}

func (s *session) cmdSearch(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("search", err)
	}
	if len(args) < 1 {
		return errResp("search", fmt.Errorf("usage: search <pattern> [--limit N]"))
	}
	pattern := args[0]
	limit := -1
	for i := 1; i < len(args); i++ {
		if args[i] == "--limit" && i+1 < len(args) {
			n, err := strconv.Atoi(args[i+1])
			if err == nil {
				limit = n
			}
			i++
		}
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("search", err)
	}
	var matches []string
	for _, ref := range sheet.AllCells() {
		cell := sheet.Get(ref)
		if strings.Contains(strings.ToLower(cell.Value.ToPlainText()), strings.ToLower(pattern)) {
			matches = append(matches, ref.ToA1())
			if limit >= 0 && len(matches) >= limit {
				break
			}
		}
	}
	return okResp("search", matches)
}

func (s *session) cmdEval(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("eval", err)
	}
	if len(args) < 1 {
		return errResp("eval", fmt.Errorf("usage: eval <formula> [--with ref=value ...]"))
	}
	formula := strings.TrimPrefix(args[0], "=")
	sheetName, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("eval", err)
	}
	wb := s.wb
	for _, a := range args[1:] {
		if a == "--with" {
			continue
		}
		refText, valText, ok := strings.Cut(a, "=")
		ref, refErr := spreadsheet.ParseARef(refText)
		if !ok || refErr != nil {
			return errResp("eval", fmt.Errorf("invalid --with binding %q, want ref=value", a))
		}
		sheet = sheet.Put(ref, literalToValue(valText))
		if wb, err = wb.ReplaceSheet(sheet); err != nil {
			return errResp("eval", err)
		}
	}
	v, err := spreadsheet.EvaluateFormula(wb, sheetName, formula, s.clock)
	if err != nil {
		return errResp("eval", err)
	}
	return okResp("eval", v.ToPlainText())
}

func (s *session) cmdPut(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("put", err)
	}
	if len(args) < 2 {
		return errResp("put", fmt.Errorf("usage: put <ref> <value>"))
	}
	ref, err := spreadsheet.ParseARef(args[0])
	if err != nil {
		return errResp("put", err)
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("put", err)
	}
	value := literalToValue(args[1])
	newSheet := sheet.Put(ref, value)
	wb, err := s.wb.ReplaceSheet(newSheet)
	if err != nil {
		return errResp("put", err)
	}
	s.wb = wb
	return okResp("put", map[string]interface{}{"ref": ref.ToA1()})
}

func (s *session) cmdPutf(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("putf", err)
	}
	if len(args) < 2 {
		return errResp("putf", fmt.Errorf("usage: putf <ref> <formula>"))
	}
	ref, err := spreadsheet.ParseARef(args[0])
	if err != nil {
		return errResp("putf", err)
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("putf", err)
	}
	expression := strings.TrimPrefix(args[1], "=")
	newSheet := sheet.Put(ref, spreadsheet.NewFormula(expression, nil))
	wb, err := s.wb.ReplaceSheet(newSheet)
	if err != nil {
		return errResp("putf", err)
	}
	s.wb = wb
	return okResp("putf", map[string]interface{}{"ref": ref.ToA1()})
}

// sortKey is one --by <col>[:asc|:desc][:num|:text] specification.
// parseSortKey stores the sheet column's zero-based ordinal; cmdSort then
// rebases it to an ordinal relative to the sort range.
type sortKey struct {
	col  int
	desc bool
	kind string // "" (auto), "num", or "text"
}

func parseSortKey(spec string) (sortKey, error) {
	parts := strings.Split(spec, ":")
	col, err := spreadsheet.ColumnFromLetter(parts[0])
	if err != nil {
		return sortKey{}, fmt.Errorf("invalid --by column %q: %w", parts[0], err)
	}
	key := sortKey{col: int(col)}
	for _, p := range parts[1:] {
		switch strings.ToLower(p) {
		case "asc":
			key.desc = false
		case "desc":
			key.desc = true
		case "num":
			key.kind = "num"
		case "text":
			key.kind = "text"
		default:
			return sortKey{}, fmt.Errorf("invalid --by qualifier %q", p)
		}
	}
	return key, nil
}

// sortValueLess orders two CellValues for sort purposes: numbers and dates
// compare numerically, booleans false<true, text case-insensitively, and
// an empty cell always sorts last regardless of direction.
func sortValueLess(a, b spreadsheet.CellValue, kind string) (less, equal bool) {
	if a.IsEmpty() != b.IsEmpty() {
		return b.IsEmpty(), false
	}
	if a.IsEmpty() && b.IsEmpty() {
		return false, true
	}
	if kind == "text" {
		at, bt := strings.ToLower(a.ToPlainText()), strings.ToLower(b.ToPlainText())
		return at < bt, at == bt
	}
	if kind == "num" || (a.Kind == spreadsheet.KindNumber && b.Kind == spreadsheet.KindNumber) ||
		(a.Kind == spreadsheet.KindDateTime && b.Kind == spreadsheet.KindDateTime) {
		if a.Kind == spreadsheet.KindDateTime && b.Kind == spreadsheet.KindDateTime {
			return a.DateTime.Before(b.DateTime), a.DateTime.Equal(b.DateTime)
		}
		cmp := a.Number.Cmp(b.Number)
		return cmp < 0, cmp == 0
	}
	if a.Kind == spreadsheet.KindBool && b.Kind == spreadsheet.KindBool {
		return !a.Bool && b.Bool, a.Bool == b.Bool
	}
	at, bt := strings.ToLower(a.ToPlainText()), strings.ToLower(b.ToPlainText())
	return at < bt, at == bt
}

// cmdSort reorders the rows of a range in place, keyed by one or more
// columns. "sort A2:C10 --by B:desc:num --by A:asc --header" treats row 1
// of the range as a header and leaves it untouched.
func (s *session) cmdSort(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("sort", err)
	}
	if len(args) < 1 {
		return errResp("sort", fmt.Errorf("usage: sort <range> --by <col>[:asc|:desc][:num|:text] [--header]"))
	}
	var rangeArg string
	var keys []sortKey
	header := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--by":
			if i+1 >= len(args) {
				return errResp("sort", fmt.Errorf("--by requires a column argument"))
			}
			key, err := parseSortKey(args[i+1])
			if err != nil {
				return errResp("sort", err)
			}
			keys = append(keys, key)
			i++
		case "--header":
			header = true
		default:
			if rangeArg == "" {
				rangeArg = args[i]
			}
		}
	}
	if rangeArg == "" {
		return errResp("sort", fmt.Errorf("usage: sort <range> --by <col>[:asc|:desc][:num|:text] [--header]"))
	}
	if len(keys) == 0 {
		return errResp("sort", fmt.Errorf("at least one --by column is required"))
	}

	rng, err := spreadsheet.ParseCellRange(rangeArg)
	if err != nil {
		return errResp("sort", err)
	}
	for i := range keys {
		keys[i].col -= int(rng.Start.Col)
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("sort", err)
	}

	startRow := uint32(rng.Start.Row)
	if header {
		startRow++
	}
	endRow := uint32(rng.End.Row)
	if startRow > endRow {
		return okResp("sort", nil)
	}

	nCols := int(rng.End.Col) - int(rng.Start.Col) + 1
	rows := make([][]spreadsheet.CellValue, 0, endRow-startRow+1)
	for r := startRow; r <= endRow; r++ {
		row := make([]spreadsheet.CellValue, nCols)
		for c := 0; c < nCols; c++ {
			ref, err := spreadsheet.NewARef(uint32(int(rng.Start.Col)+c), r)
			if err != nil {
				return errResp("sort", err)
			}
			row[c] = sheet.Get(ref).Value
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			if key.col < 0 || key.col >= nCols {
				continue
			}
			a, b := rows[i][key.col], rows[j][key.col]
			less, equal := sortValueLess(a, b, key.kind)
			if equal {
				continue
			}
			if key.desc && a.IsEmpty() == b.IsEmpty() {
				return !less
			}
			return less
		}
		return false
	})

	for offset, row := range rows {
		r := startRow + uint32(offset)
		for c, v := range row {
			ref, err := spreadsheet.NewARef(uint32(int(rng.Start.Col)+c), r)
			if err != nil {
				return errResp("sort", err)
			}
			sheet = sheet.Put(ref, v)
		}
	}

	wb, err := s.wb.ReplaceSheet(sheet)
	if err != nil {
		return errResp("sort", err)
	}
	s.wb = wb
	return okResp("sort", map[string]interface{}{"range": rng.ToA1(), "rows": len(rows)})
}

// cmdClear removes every cell in the range, value and style together.
// Arguments after the range are ignored: there are no --all, --styles or
// --comments modes, and comments attached to the cleared cells are kept.
func (s *session) cmdClear(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("clear", err)
	}
	if len(args) < 1 {
		return errResp("clear", fmt.Errorf("usage: clear <range>"))
	}
	rng, err := spreadsheet.ParseCellRange(args[0])
	if err != nil {
		return errResp("clear", err)
	}
	_, sheet, err := s.sheetOrCurrent("")
	if err != nil {
		return errResp("clear", err)
	}
	clipped, ok := rng.Bounded(mustUsedRange(sheet))
	if !ok {
		return okResp("clear", nil)
	}
	clipped.Cells(func(ref spreadsheet.ARef) bool {
		sheet = sheet.Remove(ref)
		return true
	})
	wb, err := s.wb.ReplaceSheet(sheet)
	if err != nil {
		return errResp("clear", err)
	}
	s.wb = wb
	return okResp("clear", nil)
}

func mustUsedRange(sheet *spreadsheet.Sheet) spreadsheet.CellRange {
	rng, ok := sheet.UsedRange()
	if !ok {
		return spreadsheet.CellRange{}
	}
	return rng
}

// parseWriteConfig scans args for --escape-formulas, returning the
// remaining positional args alongside the resulting config.
func parseWriteConfig(args []string) ([]string, spreadsheet.WriteConfig) {
	var cfg spreadsheet.WriteConfig
	var rest []string
	for _, a := range args {
		if a == "--escape-formulas" {
			cfg.EscapeFormulas = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, cfg
}

func (s *session) cmdSave(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("save", err)
	}
	if s.path == "" {
		return errResp("save", fmt.Errorf("workbook has no path yet; use saveas"))
	}
	_, cfg := parseWriteConfig(args)
	err := s.store.WriteWorkbook(s.path, s.wb, cfg)
	s.hooks.OnSave(s.path, err)
	if err != nil {
		return errResp("save", err)
	}
	return okResp("save", s.path)
}

func (s *session) cmdSaveas(args []string) response {
	if err := s.requireOpen(); err != nil {
		return errResp("saveas", err)
	}
	rest, cfg := parseWriteConfig(args)
	if len(rest) < 1 {
		return errResp("saveas", fmt.Errorf("usage: saveas <path> [--escape-formulas]"))
	}
	err := s.store.WriteWorkbook(rest[0], s.wb, cfg)
	s.hooks.OnSave(rest[0], err)
	if err != nil {
		return errResp("saveas", err)
	}
	s.path = rest[0]
	return okResp("saveas", s.path)
}

// literalToValue converts a raw CLI token into a CellValue: numeric and
// boolean tokens are typed, everything else becomes text, matching how a
// spreadsheet UI's direct cell entry behaves.
func literalToValue(token string) spreadsheet.CellValue {
	if strings.EqualFold(token, "TRUE") {
		return spreadsheet.NewBool(true)
	}
	if strings.EqualFold(token, "FALSE") {
		return spreadsheet.NewBool(false)
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return spreadsheet.NewNumberFromFloat(f)
	}
	return spreadsheet.NewText(token)
}
