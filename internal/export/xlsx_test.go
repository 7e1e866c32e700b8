package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
	"github.com/joseph-ayodele/pdf-fields/internal/utils"
)

func TestReportsXLSX(t *testing.T) {
	schema := entity.NewSchema("cpf", "CPF", "nome", "Nome")
	decisions := map[string]entity.Decision{
		"cpf":  {Field: schema.Fields[0], Value: utils.Ptr("123.456.789-00"), Path: entity.PathAccepted, Score: 0.95, Origin: "regex"},
		"nome": {Field: schema.Fields[1], Path: entity.PathUnresolved, Reason: "llm disabled"},
	}
	reports := []pipeline.Report{
		{
			Path:      "/in/ficha.pdf",
			Label:     "ficha",
			Result:    entity.NewExtractionResult(schema, decisions),
			Decisions: decisions,
			LLMFields: 1,
			Elapsed:   1500 * time.Millisecond,
		},
		{Path: "/in/broken.pdf", Err: errors.New("document read failed")},
	}

	b, err := NewService(nil).ReportsXLSX(reports)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ResultsSheet, DecisionsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"File", "Label", "Status", "LLM Fields", "Elapsed (ms)", "Error", "cpf", "nome"}, rows[0])
	assert.Equal(t, []string{"ficha.pdf", "ficha", "OK", "1", "1500", "", "123.456.789-00"}, rows[1])
	assert.Equal(t, "broken.pdf", rows[2][0])
	assert.Equal(t, "FAILED", rows[2][2])
	assert.Equal(t, "document read failed", rows[2][5])

	drows, err := f.GetRows(DecisionsSheet)
	require.NoError(t, err)
	require.Len(t, drows, 3)
	assert.Equal(t, []string{"ficha.pdf", "cpf", "accepted", "0.95", "regex", "123.456.789-00"}, drows[1])
	assert.Equal(t, []string{"ficha.pdf", "nome", "unresolved", "0", "", "", "llm disabled"}, drows[2])
}
