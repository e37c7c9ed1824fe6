package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/entity"
)

// ReadFile parses a batch file according to its extension.
func ReadFile(path string) ([]Record, error) {
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return nil, fmt.Errorf("%s: unsupported extension: %w", path, common.ErrInvalidInput)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if format == "XLSX" {
		return ReadXLSX(f)
	}
	return ReadText(f)
}

// ReadXLSX reads the first sheet. The first non-empty row is the header and must
// name the sagsnummer, oldazident and newazident columns in any case.
func ReadXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets: %w", common.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	header := -1
	for i, row := range rows {
		if !blank(row) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, nil
	}
	cols, err := columnIndexes(rows[header])
	if err != nil {
		return nil, err
	}

	var out []Record
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		out = append(out, Record{
			Line: i + 1,
			Request: entity.TransferRequest{
				CaseNumber: cell(row, cols[0]),
				OldOwnerID: cell(row, cols[1]),
				NewOwnerID: cell(row, cols[2]),
			},
		})
	}
	return out, nil
}

// ReadText reads "case,old,new" lines. An optional header line is skipped.
func ReadText(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Record
	first := true
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read text: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(fields) {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(fields[0]), constants.ColumnCaseNumber) {
				continue
			}
		}
		out = append(out, Record{
			Line: line,
			Request: entity.TransferRequest{
				CaseNumber: cell(fields, 0),
				OldOwnerID: cell(fields, 1),
				NewOwnerID: cell(fields, 2),
			},
		})
	}
	return out, nil
}

// WriteText writes requests in the "case,old,new" text format.
func WriteText(w io.Writer, reqs []entity.TransferRequest) error {
	for _, r := range reqs {
		if _, err := fmt.Fprintf(w, "%s,%s,%s\n", r.CaseNumber, r.OldOwnerID, r.NewOwnerID); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a request before it reaches the ledger.
func Validate(req entity.TransferRequest) error {
	v := common.NewValidator()
	v.Field("sagsnummer", req.CaseNumber, common.Required, common.NoSeparators, common.MaxLength(64))
	v.Field("oldazident", req.OldOwnerID, common.Required, common.RacfID)
	v.Field("newazident", req.NewOwnerID, common.Required, common.RacfID)
	return v.Error()
}

func columnIndexes(header []string) ([3]int, error) {
	idx := [3]int{-1, -1, -1}
	names := [3]string{constants.ColumnCaseNumber, constants.ColumnOldOwner, constants.ColumnNewOwner}
	for i, h := range header {
		for j, name := range names {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				idx[j] = i
			}
		}
	}
	var missing []string
	for j, i := range idx {
		if i < 0 {
			missing = append(missing, names[j])
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("xlsx is missing columns %s: %w", strings.Join(missing, ", "), common.ErrInvalidInput)
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
