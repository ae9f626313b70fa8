package attendance

import "github.com/pkg/errors"

// DefaulterThreshold is the attendance percentage below which a student is
// flagged. Strictly below: exactly 75.0 is not a defaulter.
const DefaulterThreshold = 75.0

const (
	defaultClassName  = "Default Class"
	defaultUploadedBy = "Teacher"
)

var ErrEmptyBatch = errors.New("batch contains no records")

// Classify computes per-student defaulter flags and batch-level aggregates.
// It is pure: ids and timestamps are left zero for the caller to assign, so
// repeated calls on the same input yield identical output.
func Classify(rows []AttendanceRow, className, uploadedBy string) (Batch, []Record, error) {
	if len(rows) == 0 {
		return Batch{}, nil, ErrEmptyBatch
	}
	if className == "" {
		className = defaultClassName
	}
	if uploadedBy == "" {
		uploadedBy = defaultUploadedBy
	}

	records := make([]Record, 0, len(rows))
	var defaulters int
	var sum float64
	for i, row := range rows {
		isDefaulter := row.AttendancePercentage < DefaulterThreshold
		if isDefaulter {
			defaulters++
		}
		sum += row.AttendancePercentage

		records = append(records, Record{
			ClassName:            className,
			RollNumber:           row.RollNumber,
			Name:                 row.Name,
			Gender:               row.Gender,
			AttendanceDays:       row.AttendanceDays,
			TotalDays:            row.TotalDays,
			AttendancePercentage: row.AttendancePercentage,
			StudentEmail:         row.StudentEmail,
			ParentEmail:          row.ParentEmail,
			IsDefaulter:          isDefaulter,
			Pos:                  i,
		})
	}

	batch := Batch{
		ClassName:         className,
		TotalStudents:     len(rows),
		TotalDefaulters:   defaulters,
		AverageAttendance: sum / float64(len(rows)),
		UploadedBy:        uploadedBy,
	}
	return batch, records, nil
}
