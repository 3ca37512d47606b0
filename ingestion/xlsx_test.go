package ingestion

import (
	"path/filepath"
	"testing"

	"github.com/poiesic/permitsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"LocationID", "Applicant", "Address", "Status", "Latitude", "Longitude"},
		{1, "MOMO INNOVATION LLC", "101 CALIFORNIA ST", "APPROVED", 37.792949, -122.398099},
		{4, "NoCoords Vendor", "123 NOWHERE", "APPROVED", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	permits, stats, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Decoded)
	require.Len(t, permits, 2)

	assert.Equal(t, core.ID(1), permits[0].ID)
	require.NotNil(t, permits[0].Latitude)
	assert.InDelta(t, 37.792949, *permits[0].Latitude, 1e-6)
	assert.Nil(t, permits[1].Latitude)
}

func TestReadXLSX_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, _, err := ReadXLSX(path, "Nope")
	assert.Error(t, err)

	_, _, err = ReadXLSX(path, "")
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	results := []*core.SearchResult{
		{Permit: &core.Permit{ID: 3, Applicant: "Other Vendor", Address: "1 MARKET ST", Status: core.StatusRequested,
			Latitude: core.Float64(37.7946), Longitude: core.Float64(-122.3940)}, Distance: core.Float64(0.0643)},
		{Permit: &core.Permit{ID: 4, Applicant: "NoCoords Vendor", Address: "123 NOWHERE"}},
	}

	require.NoError(t, WriteXLSX(path, "", results))

	permits, stats, err := ReadXLSX(path, "Results")
	require.NoError(t, err)
	assert.Zero(t, stats.HashIDs)
	require.Len(t, permits, 2)
	assert.Equal(t, core.ID(3), permits[0].ID)
	assert.Equal(t, "Other Vendor", permits[0].Applicant)
	assert.True(t, permits[0].Locatable())
	assert.False(t, permits[1].Locatable())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Results"}, f.GetSheetList())
	distance, err := f.GetCellValue("Results", "I2")
	require.NoError(t, err)
	assert.Equal(t, "0.0643", distance)
}

func TestWriteXLSX_PlainResultsHaveNoDistanceColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	results := []*core.SearchResult{
		{Permit: &core.Permit{ID: 1, Applicant: "MOMO INNOVATION LLC", Status: core.StatusApproved,
			Latitude: core.Float64(37.792949), Longitude: core.Float64(-122.398099)}},
	}
	require.NoError(t, WriteXLSX(path, "", results))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 8)
	assert.NotContains(t, rows[0], "distance")
}
