package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/mboahomes/trust-engine/internal/model"
)

func TestWriteScoreReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")

	calculated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []model.ScoreSnapshot{
		{
			ListingID:         "listing-1",
			TitleScore:        40,
			DocumentsScore:    20,
			OwnerScore:        15,
			LocationScore:     10,
			HistoryScore:      10,
			TransparencyScore: 5,
			TotalScore:        100,
			ConfidenceLevel:   model.ConfidenceExcellent,
			CalculatedAt:      calculated,
			ExpiresAt:         calculated.Add(30 * 24 * time.Hour),
		},
		{
			ListingID:       "listing-2",
			TitleScore:      25,
			TotalScore:      25,
			ConfidenceLevel: model.ConfidenceVeryWeak,
			CalculatedAt:    calculated,
			ExpiresAt:       calculated.Add(30 * 24 * time.Hour),
		},
	}

	require.NoError(t, WriteScoreReport(path, snapshots))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Scores", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	assert.Equal(t, "Listing ID", header.Cells[0].String())
	assert.Equal(t, "Total", header.Cells[7].String())

	first := sheet.Rows[1]
	assert.Equal(t, "listing-1", first.Cells[0].String())
	assert.Equal(t, "100", first.Cells[7].String())
	assert.Equal(t, "EXCELLENT", first.Cells[8].String())
	assert.Equal(t, "2026-03-01 12:00:00", first.Cells[9].String())

	second := sheet.Rows[2]
	assert.Equal(t, "listing-2", second.Cells[0].String())
	assert.Equal(t, "VERY_WEAK", second.Cells[8].String())
}

func TestWriteScoreReport_EmptyStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, WriteScoreReport(path, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	require.Len(t, f.Sheets[0].Rows, 1)
	assert.Len(t, f.Sheets[0].Rows[0].Cells, 11)
}
