package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ong-aas/claims-portal/internal/models"
)

func TestWriteClaimsRoundTrip(t *testing.T) {
	claims := []models.Claim{
		{
			ID:             "claim-2",
			Title:          "Side impact",
			IncidentDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			AccidentImages: []string{"a.jpg", "b.jpg"},
			Status:         models.StatusInProgress,
			Progress:       40,
			CreatedAt:      time.Date(2025, 7, 1, 9, 0, 2, 0, time.UTC),
			Owner:          &models.Owner{FullName: "Aicha", PhoneNumber: "12345678", CarNumber: "1234AA00"},
		},
		{ID: "claim-1", Title: "Ownerless", Status: models.StatusPending},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteClaims(&buf, claims))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ClaimsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ClaimsHeader, rows[0])
	assert.Equal(t, "claim-2", rows[1][0])
	assert.Equal(t, "Aicha", rows[1][2])
	assert.Equal(t, "2025-06-30", rows[1][5])
	assert.Equal(t, "In Progress", rows[1][6])
	assert.Equal(t, "40", rows[1][7])
	assert.Equal(t, "a.jpg\nb.jpg", rows[1][8])
	assert.Equal(t, "Ownerless", rows[2][1])
	assert.Equal(t, "", rows[2][2])
}

func TestWriteClaimsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClaims(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ClaimsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
