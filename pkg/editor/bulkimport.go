package editor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportRow is one data row of a marker import file. Line is the 1-based
// line in the file, so the first data row after a header on line 1 is line 2.
type ImportRow struct {
	Line   int    `json:"line"`
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action Action `json:"action,omitempty"`
}

type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e ImportError) Error() string {
	switch {
	case e.Line == 0:
		return e.Message
	case e.Line == 1:
		return fmt.Sprintf("header: %s", e.Message)
	}
	return fmt.Sprintf("row %d (line %d): %s", e.Line-1, e.Line, e.Message)
}

type ImportRecord struct {
	Row     ImportRow    `json:"row"`
	Result  LookupResult `json:"result"`
	Display string       `json:"display"`
}

// ImportReport is the outcome of validating an import file.
type ImportReport struct {
	List    string         `json:"list"`
	Total   int            `json:"total"`
	Records []ImportRecord `json:"records"`
	Errors  []ImportError  `json:"errors"`
}

// Ready reports whether every row validated.
func (r *ImportReport) Ready() bool {
	return r != nil && r.Total > 0 && len(r.Errors) == 0 && len(r.Records) == r.Total
}

var errHeader = errors.New("missing required column")

// ReadCSV parses a marker import file. Column names are matched case-insensitively;
// type and id are required, action too when directional is set.
func ReadCSV(r io.Reader, directional bool) ([]ImportRow, []ImportError, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var records []rawRecord
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rawRecord{line: line, cells: cells})
	}
	return parseImport(records, directional)
}

// rawRecord keeps the file line of a record; the csv reader skips blank lines.
type rawRecord struct {
	line  int
	cells []string
}

// ReadXLSX parses the first sheet of a workbook with the same columns as ReadCSV.
func ReadXLSX(r io.Reader, directional bool) ([]ImportRow, []ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []ImportError{{Message: "workbook has no sheets"}}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	records := make([]rawRecord, 0, len(rows))
	for i, cells := range rows {
		if i > 0 && blankRecord(cells) {
			continue
		}
		records = append(records, rawRecord{line: i + 1, cells: cells})
	}
	return parseImport(records, directional)
}

func parseImport(records []rawRecord, directional bool) ([]ImportRow, []ImportError, error) {
	if len(records) == 0 {
		return nil, []ImportError{{Message: "file is empty"}}, nil
	}
	header := map[string]int{}
	for i, h := range records[0].cells {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := header[key]; !ok {
			header[key] = i
		}
	}
	required := []string{"type", "id"}
	if directional {
		required = append(required, "action")
	}
	var missing []string
	for _, col := range required {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, []ImportError{{Line: records[0].line, Message: fmt.Sprintf("%v: %s", errHeader, strings.Join(missing, ", "))}}, nil
	}

	cell := func(rec []string, col string) string {
		i, ok := header[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []ImportRow
	var errs []ImportError
	for _, r := range records[1:] {
		line, rec := r.line, r.cells
		if blankRecord(rec) {
			continue
		}
		row := ImportRow{Line: line, Type: strings.ToLower(cell(rec, "type")), ID: cell(rec, "id")}
		switch {
		case row.Type != "gene" && row.Type != "protein":
			errs = append(errs, ImportError{Line: line, Message: fmt.Sprintf("type must be gene or protein, got %q", row.Type)})
			continue
		case row.ID == "":
			errs = append(errs, ImportError{Line: line, Message: "id is empty"})
			continue
		}
		if directional {
			a, err := ParseAction(cell(rec, "action"))
			if err != nil {
				errs = append(errs, ImportError{Line: line, Message: fmt.Sprintf("invalid action %q", cell(rec, "action"))})
				continue
			}
			row.Action = a
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Importer validates import rows one at a time against the marker vocabularies.
type Importer struct {
	Fetcher  Fetcher
	Profiles map[string]LookupProfile
}

// Validate looks every row up sequentially. Structural errors from parsing are carried over.
func (im Importer) Validate(ctx context.Context, list string, rows []ImportRow, parseErrs []ImportError) *ImportReport {
	report := &ImportReport{List: list, Total: len(rows) + len(parseErrs), Errors: append([]ImportError(nil), parseErrs...)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, ImportError{Line: row.Line, Message: err.Error()})
			continue
		}
		profile, ok := im.Profiles[row.Type]
		if !ok {
			report.Errors = append(report.Errors, ImportError{Line: row.Line, Message: fmt.Sprintf("no lookup for type %q", row.Type)})
			continue
		}
		results, err := RunLookup(ctx, im.Fetcher, profile, row.ID)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Line: row.Line, Message: err.Error()})
			continue
		}
		match, ok := pickMatch(results, row.ID)
		if !ok {
			report.Errors = append(report.Errors, ImportError{Line: row.Line, Message: fmt.Sprintf("%s %q not found", row.Type, row.ID)})
			continue
		}
		report.Records = append(report.Records, ImportRecord{Row: row, Result: match, Display: profile.FormatDisplay(match)})
	}
	return report
}

// pickMatch accepts a result only when it names the row's identifier. A
// prefixed id must match exactly. A bare id may match a result's local part,
// the description of a single result, or the only result returned.
func pickMatch(results []LookupResult, id string) (LookupResult, bool) {
	id = strings.TrimSpace(id)
	for _, r := range results {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	if id == "" || strings.Contains(id, ":") {
		return LookupResult{}, false
	}
	for _, r := range results {
		if _, local, ok := strings.Cut(r.ID, ":"); ok && strings.EqualFold(local, id) {
			return r, true
		}
	}
	var named []LookupResult
	for _, r := range results {
		if strings.EqualFold(r.Description, id) {
			named = append(named, r)
		}
	}
	switch {
	case len(named) == 1:
		return named[0], true
	case len(named) == 0 && len(results) == 1:
		return results[0], true
	}
	return LookupResult{}, false
}

// CommitImport adds every validated record through the list's normal add path.
func CommitImport(list *ListEditor, report *ImportReport) (int, error) {
	if !report.Ready() {
		return 0, ErrImportIncomplete
	}
	added := 0
	for _, rec := range report.Records {
		ok, err := list.Add(rec.Result.ID, rec.Display, rec.Row.Action)
		if err != nil {
			return added, fmt.Errorf("line %d: %w", rec.Row.Line, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
