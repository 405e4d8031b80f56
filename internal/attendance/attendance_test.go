package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats_EmptyRoster(t *testing.T) {
	st := ComputeStats(nil, map[string]Entry{"x": {StudentID: "x", Status: "present"}}, nil, 8)
	assert.Equal(t, Stats{}, st)
}

func TestComputeStats_CountsAndPercentage(t *testing.T) {
	roster := []string{"a", "b", "c"}
	period := Index([]Entry{
		{StudentID: "a", Status: "present", Hours: 2},
		{StudentID: "b", Status: "absent"},
	})
	dayHours := map[string]float64{"a": 2, "c": 8}

	st := ComputeStats(roster, period, dayHours, 8)

	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Present)
	assert.Equal(t, 1, st.Absent)
	assert.Equal(t, 1, st.PartialPresent, "8 小时不算部分出勤")
	assert.Equal(t, 33, st.PresentPercentage)
}

func TestComputeStats_PercentageRoundsHalfUp(t *testing.T) {
	roster := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	period := Index([]Entry{
		{StudentID: "a", Status: "present"},
		{StudentID: "b", Status: "present"},
		{StudentID: "c", Status: "present"},
		{StudentID: "d", Status: "present"},
		{StudentID: "e", Status: "present"},
	})
	// 5/8 = 62.5%
	assert.Equal(t, 63, ComputeStats(roster, period, nil, 8).PresentPercentage)
}

func TestComputeStats_UnsetIgnored(t *testing.T) {
	period := Index([]Entry{{StudentID: "a", Status: ""}})
	st := ComputeStats([]string{"a"}, period, nil, 0)
	assert.Zero(t, st.Present)
	assert.Zero(t, st.Absent)
}

func TestSumHours_AcrossPeriods(t *testing.T) {
	sum := SumHours([]Entry{
		{StudentID: "a", Hours: 2},
		{StudentID: "a", Hours: 1.5},
		{StudentID: "b", Hours: 0},
	})
	assert.InDelta(t, 3.5, sum["a"], 1e-9)
	assert.Zero(t, sum["b"])
}

func TestHoursBetween(t *testing.T) {
	h, err := HoursBetween("09:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, 2.0, h)

	h, err = HoursBetween("09:10", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 0.83, h)

	h, err = HoursBetween("09:00", "09:00")
	require.NoError(t, err)
	assert.Zero(t, h)

	_, err = HoursBetween("11:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = HoursBetween("9:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidPeriod("1", 6))
	assert.True(t, ValidPeriod("6", 6))
	assert.False(t, ValidPeriod("7", 6))
	assert.False(t, ValidPeriod("0", 6))
	assert.False(t, ValidPeriod("01", 6))
	assert.False(t, ValidPeriod("x", 6))

	assert.True(t, ValidDate("2025-02-28"))
	assert.False(t, ValidDate("2025-02-30"))
	assert.False(t, ValidDate("28/02/2025"))

	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, Periods(6))
}

func TestToggle_IsBinary(t *testing.T) {
	assert.Equal(t, "absent", Toggle("present"))
	assert.Equal(t, "present", Toggle("absent"))
	assert.Equal(t, "present", Toggle(""))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("", "anything"))
	assert.True(t, Matches("ALI", "alice", "101", ""))
	assert.True(t, Matches("10", "bob", "101", ""))
	assert.True(t, Matches("example", "bob", "102", "bob@example.com"))
	assert.False(t, Matches("zed", "bob", "102", ""))
}

func TestSeatGrid_PadsToCapacity(t *testing.T) {
	grid := SeatGrid([]string{"a", "b", "c"})

	require.Len(t, grid, SeatRows)
	for _, row := range grid {
		require.Len(t, row, SeatCols)
	}
	assert.Equal(t, "a", *grid[0][0])
	assert.Equal(t, "c", *grid[0][2])
	assert.Nil(t, grid[0][3])
	assert.Nil(t, grid[6][7])
}

func TestSeatGrid_FullAndOverflow(t *testing.T) {
	full := make([]int, Capacity)
	for i := range full {
		full[i] = i
	}
	grid := SeatGrid(full)
	require.Len(t, grid, SeatRows)
	assert.Equal(t, 55, *grid[6][7])

	over := make([]int, Capacity+1)
	grid = SeatGrid(over)
	require.Len(t, grid, SeatRows+1)
	assert.NotNil(t, grid[7][0])
	assert.Nil(t, grid[7][1])
}
