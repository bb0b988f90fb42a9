// Package export renders admin reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ong-aas/claims-portal/internal/models"
)

// ClaimsSheet is the worksheet name of the claims export.
const ClaimsSheet = "Claims"

// ClaimsHeader lists the exported columns in order.
var ClaimsHeader = []string{
	"ID", "Title", "Owner", "Phone", "Car number", "Incident date",
	"Status", "Progress", "Accident images", "Police report", "Insurance receipt", "Created at",
}

// ClaimsWorkbook builds a workbook with one row per claim. The caller must Close it.
func ClaimsWorkbook(claims []models.Claim) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ClaimsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, title := range ClaimsHeader {
		if err := setCell(f, col+1, 1, title); err != nil {
			f.Close()
			return nil, err
		}
	}
	last, err := excelize.ColumnNumberToName(len(ClaimsHeader))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("convert column number: %w", err)
	}
	if err := f.SetCellStyle(ClaimsSheet, "A1", last+"1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, c := range claims {
		row := i + 2
		var owner models.Owner
		if c.Owner != nil {
			owner = *c.Owner
		}
		values := []any{
			c.ID, c.Title, owner.FullName, owner.PhoneNumber, owner.CarNumber,
			c.IncidentDate.Format("2006-01-02"), string(c.Status), c.Progress,
			strings.Join(c.AccidentImages, "\n"), c.PoliceReport, c.InsuranceReceipt,
			c.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetPanes(ClaimsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return f, nil
}

// WriteClaims streams the claims workbook to w.
func WriteClaims(w io.Writer, claims []models.Claim) error {
	f, err := ClaimsWorkbook(claims)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	return f.SetCellValue(ClaimsSheet, cell, value)
}
