package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performance() Dataset {
	return Dataset{
		Headers: []string{"Student", "GPA"},
		Rows: []map[string]string{
			{"Student": "Ada Lovelace", "GPA": "3.85"},
			{"Student": "Grace, Hopper", "GPA": "3.10"},
		},
	}
}

func TestCSVRenderQuotesValues(t *testing.T) {
	out, err := NewCSVExporter().Render(performance())
	require.NoError(t, err)
	assert.Equal(t, "Student,GPA\nAda Lovelace,3.85\n\"Grace, Hopper\",3.10\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVRenderDocumentSeparatesSections(t *testing.T) {
	doc := Document{
		Title: "Class report",
		Sections: []Section{
			{Title: "Overview", Data: Dataset{Headers: []string{"Metric", "Value"}, Rows: []map[string]string{{"Metric": "Total Students", "Value": "2"}}}},
			{Title: "Performance", Data: performance()},
		},
	}
	out, err := NewCSVExporter().RenderDocument(doc)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{
		"Overview",
		"Metric,Value",
		"Total Students,2",
		"",
		"Performance",
		"Student,GPA",
		"Ada Lovelace,3.85",
		"\"Grace, Hopper\",3.10",
	}, lines)
}

func TestPDFRenderDocument(t *testing.T) {
	out, err := NewPDFExporter().RenderDocument(Document{
		Title:    "Class performance report",
		Subtitle: "Generated 2024-03-15",
		Sections: []Section{{Title: "Performance", Data: performance()}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRenderRejectsEmptyHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}
