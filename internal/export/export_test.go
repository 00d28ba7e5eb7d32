package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgnav/internal/models"
)

func sample() *models.ResultSet {
	return &models.ResultSet{
		Columns: []string{"id", "name", "note"},
		Rows: []models.Row{
			{json.Number("1"), "alice", nil},
			{json.Number("2"), "bob, jr", `say "hi"`},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	want := "id,name,note\n1,alice,\n2,\"bob, jr\",\"say \"\"hi\"\"\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, float64(1), got[0]["id"])
	assert.Nil(t, got[0]["note"])
	assert.Equal(t, "bob, jr", got[1]["name"])
}

func TestWrite_RejectsFailedResult(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteCSV(&buf, models.ErrorResult("boom")))
	assert.Error(t, WriteJSON(&buf, nil))
	assert.Error(t, WriteCSV(&buf, &models.ResultSet{}))
	assert.Error(t, Write(&buf, sample(), "xml"))
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()

	res, err := ToFile(sample(), filepath.Join(dir, "out", "users"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "users.csv"), res.FilePath)
	assert.Equal(t, 2, res.RowCount)
	assert.Contains(t, res.String(), "Exported 2 rows to CSV")

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,name,note")

	res, err = ToFile(sample(), filepath.Join(dir, "users.JSON"), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "users.JSON"), res.FilePath)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("3.14"), "3.14"},
		{true, "true"},
		{[]any{json.Number("1"), "a"}, `[1,"a"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CellString(tt.in))
	}
}
