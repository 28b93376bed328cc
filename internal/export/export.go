// Package export renders report workbooks with excelize. Every workbook has
// one sheet, a bold header row and a frozen first row.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/hostel-residence/internal/model"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

// StudentRow is a student with the room they currently occupy, if any.
type StudentRow struct {
	User       model.User
	RoomNumber string
}

// Rooms lists rooms with their derived occupancy.
func Rooms(rooms []model.RoomOccupancy) ([]byte, error) {
	headers := []string{"Number", "Type", "Floor", "Capacity", "Occupancy", "Available", "Status", "Monthly Rent", "Amenities"}
	rows := make([][]any, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, []any{
			r.Number, r.RoomType, r.Floor, r.Capacity, r.CurrentOccupancy, yesNo(r.IsAvailable),
			r.Status, r.MonthlyRent.StringFixed(2), r.Amenities,
		})
	}
	return build("Rooms", headers, []float64{10, 10, 8, 10, 12, 10, 14, 14, 30}, rows)
}

// Students lists student accounts.
func Students(students []StudentRow) ([]byte, error) {
	headers := []string{"ID", "Full Name", "Email", "Phone", "Room", "Date of Birth", "Active", "Registered"}
	rows := make([][]any, 0, len(students))
	for _, s := range students {
		rows = append(rows, []any{
			s.User.ID, s.User.FullName, s.User.Email, s.User.Phone, s.RoomNumber,
			date(s.User.DateOfBirth), yesNo(s.User.IsActive), s.User.CreatedAt.UTC().Format(dateLayout),
		})
	}
	return build("Students", headers, []float64{8, 24, 30, 16, 10, 14, 8, 14}, rows)
}

// Payments lists payments.
func Payments(payments []model.Payment) ([]byte, error) {
	headers := []string{"ID", "User ID", "Type", "Amount", "Currency", "Status", "Due", "Paid", "Provider", "Order ID", "Description"}
	rows := make([][]any, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []any{
			p.ID, p.UserID, p.PaymentType, p.Amount.StringFixed(2), p.Currency, p.Status,
			date(p.DueDate), date(p.PaidDate), p.Provider, p.ProviderOrderID, p.Description,
		})
	}
	return build("Payments", headers, []float64{8, 10, 14, 12, 10, 10, 12, 12, 14, 20, 30}, rows)
}

func build(sheet string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if i < len(widths) {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return nil, err
			}
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns a dated attachment name such as rooms-2024-01-15.xlsx.
func Filename(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", kind, now.UTC().Format(dateLayout))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
