package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title:  "Report card",
		Header: []Field{{Label: "Student", Value: "Ama Mensah"}, {Label: "Term", Value: "First Term 2024/2025"}},
		Table: Dataset{
			Headers: []string{"Subject", "Total", "Grade"},
			Rows: []map[string]string{
				{"Subject": "Mathematics", "Total": "91", "Grade": "A1"},
				{"Subject": "English", "Total": "58", "Grade": "C5"},
			},
		},
		Footer: []Field{{Label: "Teacher remarks", Value: "Keep it up"}},
	}
}

func TestCSVExporterLayout(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)
	expected := "Student,Ama Mensah\nTerm,First Term 2024/2025\n\nSubject,Total,Grade\nMathematics,91,A1\nEnglish,58,C5\n\nTeacher remarks,Keep it up\n"
	assert.Equal(t, expected, string(out))
}

func TestExportersRequireColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Document{})
	assert.Error(t, err)
	_, err = NewPDFExporter("").Render(Document{})
	assert.Error(t, err)
}

func TestPDFExporterProducesPDF(t *testing.T) {
	out, err := NewPDFExporter("Accra Academy").Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
