package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/listing"
	"affconsole/internal/models"
)

var paymentColumns = []listing.Column[models.Payment]{
	{Key: "affiliatorName", Label: "Affiliator", Value: func(p models.Payment) any { return p.AffiliatorName }},
	{Key: "amount", Label: "Amount", Value: func(p models.Payment) any { return p.Amount }, Render: func(models.Payment) string { return "hidden" }},
	{Key: "notes", Label: "Notes", Value: func(p models.Payment) any { return p.Notes }},
}

func TestWriteCSV(t *testing.T) {
	rows := []models.Payment{
		{AffiliatorName: "Sari", Amount: 250000, Notes: "komisi, Januari"},
		{AffiliatorName: "Budi \"B\"", Amount: 100000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, paymentColumns))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Affiliator", "Amount", "Notes"},
		{"Sari", "250000", "komisi, Januari"},
		{"Budi \"B\"", "100000", ""},
	}, records)
}

func TestToFileWithListing(t *testing.T) {
	dir := t.TempDir()
	var path string
	var count int

	rows := []models.Payment{{AffiliatorName: "Sari"}, {AffiliatorName: "Budi"}, {AffiliatorName: "Sarah"}}
	table := listing.New(rows, paymentColumns, listing.Options[models.Payment]{
		Searchable: true,
		Exportable: true,
		OnExport: ToFile[models.Payment](dir, "payments", func(p string, n int) {
			path, count = p, n
		}),
	})
	require.NoError(t, table.SetSearch("sar"))
	require.NoError(t, table.Export())

	assert.Equal(t, 2, count)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 4, 5, 0, time.UTC)
	assert.Equal(t, "customers-20261015-090405.csv", Filename("customers", now))
}
