package attendance

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		rows           []AttendanceRow
		wantDefaulters int
		wantAverage    float64
	}{
		{
			name: "exactly 75 is not a defaulter",
			rows: []AttendanceRow{
				{Name: "A", AttendancePercentage: 75.0},
			},
			wantDefaulters: 0,
			wantAverage:    75.0,
		},
		{
			name: "just below 75 is a defaulter",
			rows: []AttendanceRow{
				{Name: "A", AttendancePercentage: 74.999},
			},
			wantDefaulters: 1,
			wantAverage:    74.999,
		},
		{
			name: "mixed batch",
			rows: []AttendanceRow{
				{Name: "A", AttendancePercentage: 100},
				{Name: "B", AttendancePercentage: 75},
				{Name: "C", AttendancePercentage: 74.9},
				{Name: "D", AttendancePercentage: 0},
			},
			wantDefaulters: 2,
			wantAverage:    (100 + 75 + 74.9 + 0) / 4,
		},
		{
			name: "out-of-range percentages are not clamped",
			rows: []AttendanceRow{
				{Name: "A", AttendancePercentage: 120},
				{Name: "B", AttendancePercentage: -10},
			},
			wantDefaulters: 1,
			wantAverage:    55,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, records, err := Classify(tt.rows, "CS101", "Teacher")
			if err != nil {
				t.Fatalf("Classify() failed: %v", err)
			}

			assert.Equal(t, len(tt.rows), batch.TotalStudents)
			assert.Equal(t, tt.wantDefaulters, batch.TotalDefaulters)
			assert.InDelta(t, tt.wantAverage, batch.AverageAttendance, 1e-9)
			assert.Len(t, records, len(tt.rows))

			var flagged int
			for _, rec := range records {
				if rec.IsDefaulter {
					flagged++
					assert.Less(t, rec.AttendancePercentage, DefaulterThreshold)
				} else {
					assert.GreaterOrEqual(t, rec.AttendancePercentage, DefaulterThreshold)
				}
			}
			assert.Equal(t, batch.TotalDefaulters, flagged)
		})
	}
}

func TestClassifyScenario(t *testing.T) {
	rows := []AttendanceRow{
		{Name: "A", AttendancePercentage: 93.33},
		{Name: "B", AttendancePercentage: 66.67},
	}

	batch, records, err := Classify(rows, "", "")
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}

	assert.Equal(t, 1, batch.TotalDefaulters)
	assert.InDelta(t, 80.0, batch.AverageAttendance, 1e-9)
	assert.Equal(t, "Default Class", batch.ClassName)
	assert.Equal(t, "Teacher", batch.UploadedBy)
	assert.False(t, records[0].IsDefaulter)
	assert.True(t, records[1].IsDefaulter)
}

func TestClassifyEmpty(t *testing.T) {
	_, _, err := Classify(nil, "CS101", "Teacher")
	if err != ErrEmptyBatch {
		t.Errorf("Classify() error = %v, want %v", err, ErrEmptyBatch)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	rows := []AttendanceRow{
		{RollNumber: "101", Name: "A", Gender: "Male", AttendanceDays: 28, TotalDays: 30, AttendancePercentage: 93.33},
		{RollNumber: "102", Name: "B", Gender: "Female", AttendanceDays: 20, TotalDays: 30, AttendancePercentage: 66.67},
	}

	batch1, records1, err1 := Classify(rows, "CS101", "Teacher")
	batch2, records2, err2 := Classify(rows, "CS101", "Teacher")
	if err1 != nil || err2 != nil {
		t.Fatalf("Classify() failed: %v, %v", err1, err2)
	}

	if !reflect.DeepEqual(batch1, batch2) {
		t.Errorf("summaries differ: %+v != %+v", batch1, batch2)
	}
	if !reflect.DeepEqual(records1, records2) {
		t.Errorf("records differ: %+v != %+v", records1, records2)
	}
}
