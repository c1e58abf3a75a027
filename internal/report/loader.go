package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

// LoadCallRequests reads call requests from the first sheet of a workbook,
// detecting columns by header name.
func LoadCallRequests(r io.Reader) ([]types.CallRequest, error) {
	log := logger.New().WithField("component", "report.loader")

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	phoneIdx, yearIdx, makeIdx, modelIdx, trimIdx := -1, -1, -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "phone") || strings.Contains(l, "number") || strings.Contains(l, "tel"):
			if phoneIdx == -1 {
				phoneIdx = i
			}
		case strings.Contains(l, "year"):
			if yearIdx == -1 {
				yearIdx = i
			}
		case strings.Contains(l, "make") || strings.Contains(l, "brand"):
			if makeIdx == -1 {
				makeIdx = i
			}
		case strings.Contains(l, "model"):
			if modelIdx == -1 {
				modelIdx = i
			}
		case strings.Contains(l, "trim"):
			if trimIdx == -1 {
				trimIdx = i
			}
		}
	}
	if phoneIdx == -1 {
		return nil, fmt.Errorf("no phone column in header %v", rows[0])
	}
	log.WithFields(map[string]interface{}{
		"phoneIdx": phoneIdx,
		"yearIdx":  yearIdx,
		"makeIdx":  makeIdx,
		"modelIdx": modelIdx,
		"trimIdx":  trimIdx,
	}).Debug("detected call request columns")

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []types.CallRequest
	for _, row := range rows[1:] {
		req := types.CallRequest{
			PhoneNumber: cell(row, phoneIdx),
			Year:        cell(row, yearIdx),
			Make:        cell(row, makeIdx),
			Model:       cell(row, modelIdx),
			Trim:        cell(row, trimIdx),
		}
		// skip rows without a number quietly
		if req.PhoneNumber == "" {
			continue
		}
		out = append(out, req)
	}
	log.WithField("requests", len(out)).Info("call requests loaded")
	return out, nil
}
