// Package export renders candidate lists as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"nexus-ats/internal/model"
)

const (
	CandidatesSheet = "Candidates"
	PipelineSheet   = "Pipeline"

	// ContentType is the MIME type of the workbook WriteCandidates produces.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var candidateHeaders = []string{
	"First Name", "Last Name", "Email", "Phone", "Location",
	"Current Role", "Skills", "Source", "Stage", "Applied Date",
}

// WriteCandidates writes an .xlsx workbook with one row per candidate and a
// per-stage summary to w.
func WriteCandidates(w io.Writer, candidates []model.Candidate, generated time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CandidatesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(PipelineSheet); err != nil {
		return fmt.Errorf("failed to create pipeline sheet: %w", err)
	}

	if err := writeCandidatesSheet(f, candidates); err != nil {
		return fmt.Errorf("failed to create candidates sheet: %w", err)
	}
	if err := writePipelineSheet(f, candidates, generated); err != nil {
		return fmt.Errorf("failed to create pipeline sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

func writeCandidatesSheet(f *excelize.File, candidates []model.Candidate) error {
	sheet := CandidatesSheet
	widths := map[string]float64{"A": 15, "B": 15, "C": 30, "D": 16, "E": 20, "F": 25, "G": 40, "H": 16, "I": 12, "J": 14}
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	for i, h := range candidateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(candidateHeaders), 1)
	f.SetCellStyle(sheet, "A1", last, style)

	for i, c := range candidates {
		values := []any{
			c.PersonalInfo.FirstName,
			c.PersonalInfo.LastName,
			c.PersonalInfo.Email,
			c.PersonalInfo.Phone,
			c.PersonalInfo.Location,
			c.ProfessionalInfo.CurrentRole,
			strings.Join(c.ProfessionalInfo.Skills, ", "),
			string(c.ProfessionalInfo.Source),
			string(c.PipelineInfo.CurrentStage),
			c.PipelineInfo.AppliedDate.UTC().Format(time.DateOnly),
		}
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}

	if len(candidates) > 0 {
		ref := fmt.Sprintf("A1:%s", lastCell(len(candidateHeaders), len(candidates)+1))
		if err := f.AutoFilter(sheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writePipelineSheet(f *excelize.File, candidates []model.Candidate, generated time.Time) error {
	sheet := PipelineSheet
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "B", 24)

	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	counts := make(map[model.Stage]int, len(model.PipelineStages))
	for _, c := range candidates {
		counts[c.PipelineInfo.CurrentStage]++
	}

	f.SetCellValue(sheet, "A1", "Stage")
	f.SetCellValue(sheet, "B1", "Candidates")
	f.SetCellStyle(sheet, "A1", "B1", style)

	row := 2
	for _, stage := range model.PipelineStages {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(stage))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), counts[stage])
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), len(candidates))
	row += 2

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Generated:")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), generated.UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func lastCell(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}
