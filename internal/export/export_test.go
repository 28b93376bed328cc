package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/hostel-residence/internal/model"
)

func readSheet(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheet}, f.GetSheetList())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestRooms(t *testing.T) {
	data, err := Rooms([]model.RoomOccupancy{{
		Room:             model.Room{Number: "101", RoomType: "double", Floor: 1, Capacity: 2, Status: "available", MonthlyRent: decimal.NewFromInt(1200)},
		CurrentOccupancy: 2,
		IsAvailable:      false,
	}})
	require.NoError(t, err)

	rows := readSheet(t, data, "Rooms")
	require.Len(t, rows, 2)
	assert.Equal(t, "Number", rows[0][0])
	assert.Equal(t, []string{"101", "double", "1", "2", "2", "no", "available", "1200.00"}, rows[1][:8])
}

func TestStudentsAndPayments(t *testing.T) {
	dob := time.Date(2003, 5, 4, 0, 0, 0, 0, time.UTC)
	data, err := Students([]StudentRow{{User: model.User{ID: 3, FullName: "Amy", Email: "amy@example.com", DateOfBirth: &dob, IsActive: true}, RoomNumber: "101"}})
	require.NoError(t, err)
	rows := readSheet(t, data, "Students")
	require.Len(t, rows, 2)
	assert.Equal(t, "101", rows[1][4])
	assert.Equal(t, "2003-05-04", rows[1][5])

	data, err = Payments(nil)
	require.NoError(t, err)
	rows = readSheet(t, data, "Payments")
	require.Len(t, rows, 1)
	assert.Equal(t, "Amount", rows[0][3])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "rooms-2024-01-15.xlsx", Filename("rooms", time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)))
}
