package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"oilcall-go/internal/types"
)

const sheetName = "Calls"

var exportHeader = []interface{}{
	"Call ID", "Phone", "Year", "Make", "Model", "Trim", "Status",
	"Oil Change Price", "Soonest Service Appt", "Hold Time (s)", "Sent To Voicemail",
	"Recording URL", "Created At", "Updated At",
}

// WriteCalls renders calls as an .xlsx workbook.
func WriteCalls(w io.Writer, calls []types.PhoneCall) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, pc := range calls {
		row := []interface{}{
			pc.CallID, pc.PhoneNumber, pc.CarYear, pc.CarMake, pc.CarModel, pc.CarTrim, pc.Status,
			deref(pc.OilChangePrice), deref(pc.SoonestServiceAppt), holdCell(pc.HoldTimeSeconds),
			voicemailCell(pc.SentToVoicemail), deref(pc.RecordingURL),
			pc.CreatedAt.UTC().Format(time.RFC3339), pc.UpdatedAt.UTC().Format(time.RFC3339),
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, axis, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// undetermined hold times export as an empty cell
func holdCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func voicemailCell(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "yes"
	default:
		return "no"
	}
}
