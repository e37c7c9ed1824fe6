package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/entity"
)

func buildXLSX(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadText(t *testing.T) {
	in := "Sagsnummer,OldAzIdent,NewAzIdent\n" +
		"S2021-292593, AZ60026 ,AZMTM01\n" +
		"\n" +
		"S2022-000001,AZ1,AZ2\n"
	recs, err := ReadText(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, entity.TransferRequest{CaseNumber: "S2021-292593", OldOwnerID: "AZ60026", NewOwnerID: "AZMTM01"}, recs[0].Request)
	assert.Equal(t, 2, recs[0].Line)
	assert.Equal(t, 4, recs[1].Line)
}

func TestReadText_NoHeaderShortLine(t *testing.T) {
	recs, err := ReadText(strings.NewReader("S1,AZ1\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].Request.NewOwnerID)
	assert.ErrorIs(t, Validate(recs[0].Request), common.ErrValidation)
}

func TestReadXLSX(t *testing.T) {
	buf := buildXLSX(t, [][]any{
		{"Note", "NEWAZIDENT", " sagsnummer ", "OldAzIdent"},
		{"x", "AZMTM01", "S2021-292593", "AZ60026"},
		{"", "", "", ""},
		{"y", " AZ2 ", "S2", "AZ1"},
	})
	recs, err := ReadXLSX(buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, entity.TransferRequest{CaseNumber: "S2021-292593", OldOwnerID: "AZ60026", NewOwnerID: "AZMTM01"}, recs[0].Request)
	assert.Equal(t, "AZ2", recs[1].Request.NewOwnerID)
	assert.Equal(t, 4, recs[1].Line)
}

func TestReadXLSX_MissingColumn(t *testing.T) {
	buf := buildXLSX(t, [][]any{{"sagsnummer", "oldazident"}, {"S1", "AZ1"}})
	_, err := ReadXLSX(buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "newazident")
}

func TestWriteText_RoundTripsThroughReadText(t *testing.T) {
	reqs := []entity.TransferRequest{
		{CaseNumber: "S1", OldOwnerID: "AZ1", NewOwnerID: "AZ2"},
		{CaseNumber: "S2", OldOwnerID: "AZ3", NewOwnerID: "AZ4"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reqs))
	assert.Equal(t, "S1,AZ1,AZ2\nS2,AZ3,AZ4\n", buf.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  entity.TransferRequest
		ok   bool
	}{
		{name: "valid", req: entity.TransferRequest{CaseNumber: "S2021-292593", OldOwnerID: "AZ60026", NewOwnerID: "AZMTM01"}, ok: true},
		{name: "missing case", req: entity.TransferRequest{OldOwnerID: "AZ1", NewOwnerID: "AZ2"}},
		{name: "bad owner", req: entity.TransferRequest{CaseNumber: "S1", OldOwnerID: "AZ 1", NewOwnerID: "AZ2"}},
		{name: "separator in case", req: entity.TransferRequest{CaseNumber: "S1,2", OldOwnerID: "AZ1", NewOwnerID: "AZ2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrValidation)
			}
		})
	}
}
