package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Dataset {
	return Dataset{
		Headers: []string{"nis", "full_name"},
		Labels:  map[string]string{"full_name": "Student name"},
		Rows: []map[string]string{
			{"nis": "1001", "full_name": "Ana, Putri"},
			{"nis": "1002"},
		},
	}
}

func TestCSVWritesIDsByDefault(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "nis,full_name\n1001,\"Ana, Putri\"\n1002,\n", string(out))
}

func TestCSVWithLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVExporter{UseLabels: true}).Write(&buf, sample()))
	assert.Contains(t, buf.String(), "nis,Student name\n")
}

func TestCSVNeedsHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRenders(t *testing.T) {
	out, err := NewPDFExporter().Render(sample(), "Students")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
