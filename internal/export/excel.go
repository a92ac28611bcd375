// Package export renders history and roster data as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	HistorySheet = "Service History"
	RosterSheet  = "Duty Roster"
	timeLayout   = "2006-01-02 15:04:05"
)

var (
	historyHeader = []string{"Request ID", "Guest", "Cabin", "Priority", "Type", "Completed By", "Created", "Accepted", "Completed", "Duration (s)"}
	historyWidths = []float64{38, 20, 18, 12, 14, 18, 20, 20, 20, 14}

	rosterHeader = []string{"Date", "Shift", "Start", "End", "Crew", "Department", "Type"}
	rosterWidths = []float64{12, 16, 8, 8, 24, 16, 10}
)

// HistoryWorkbook one row per completed request, times rendered in loc
func HistoryWorkbook(entries []models.HistoryEntry, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		r := e.Request
		accepted := ""
		if r.AcceptedAt != nil {
			accepted = r.AcceptedAt.In(loc).Format(timeLayout)
		}
		rows = append(rows, []any{
			r.ID,
			r.GuestName,
			r.GuestCabin,
			string(r.Priority),
			string(r.RequestType),
			e.CompletedBy,
			r.CreatedAt.In(loc).Format(timeLayout),
			accepted,
			e.CompletedAt.In(loc).Format(timeLayout),
			e.DurationSeconds,
		})
	}
	return workbook(HistorySheet, historyHeader, historyWidths, rows)
}

// RosterWorkbook one row per assignment. Unknown shifts or crew keep their raw ids.
func RosterWorkbook(assignments []models.Assignment, shifts []models.Shift, crew []models.CrewMember) ([]byte, error) {
	shiftByID := make(map[string]models.Shift, len(shifts))
	for _, s := range shifts {
		shiftByID[s.ID] = s
	}
	crewByID := make(map[string]models.CrewMember, len(crew))
	for _, c := range crew {
		crewByID[c.ID] = c
	}

	rows := make([][]any, 0, len(assignments))
	for _, a := range assignments {
		shift, ok := shiftByID[a.ShiftID]
		if !ok {
			shift = models.Shift{Name: a.ShiftID}
		}
		member, ok := crewByID[a.CrewID]
		if !ok {
			member = models.CrewMember{Name: a.CrewID}
		}
		rows = append(rows, []any{a.Date, shift.Name, shift.StartTime, shift.EndTime, member.Name, member.Department, string(a.Type)})
	}
	return workbook(RosterSheet, rosterHeader, rosterWidths, rows)
}

func workbook(sheet string, header []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if i < len(widths) {
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
