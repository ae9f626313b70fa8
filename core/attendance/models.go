package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/edutrack/attendance/core"
)

// AttendanceRow is one parsed spreadsheet row as uploaded by the dashboard.
// AttendancePercentage is trusted as supplied; it is not recomputed from days.
type AttendanceRow struct {
	RollNumber           string  `json:"rollNumber"`
	Name                 string  `json:"name"`
	Gender               string  `json:"gender"`
	AttendanceDays       int     `json:"attendanceDays"`
	TotalDays            int     `json:"totalDays"`
	AttendancePercentage float64 `json:"attendancePercentage"`
	StudentEmail         string  `json:"studentEmail"`
	ParentEmail          string  `json:"parentEmail"`
}

// Batch is one upload event's aggregate record.
type Batch struct {
	ID                string    `json:"id" db:"id"`
	ClassName         string    `json:"class_name" db:"class_name"`
	TotalStudents     int       `json:"total_students" db:"total_students"`
	TotalDefaulters   int       `json:"total_defaulters" db:"total_defaulters"`
	AverageAttendance float64   `json:"average_attendance" db:"average_attendance"`
	UploadedBy        string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt        time.Time `json:"uploaded_at" db:"uploaded_at"` // UTC
	RecordIDs         []string  `json:"records,omitempty" db:"-"`
}

// Record is one student's attendance within a Batch. Immutable once written.
type Record struct {
	ID                   string    `json:"id" db:"id"`
	BatchID              string    `json:"batch_id" db:"batch_id"`
	ClassName            string    `json:"class_name" db:"class_name"`
	RollNumber           string    `json:"roll_number" db:"roll_number"`
	Name                 string    `json:"name" db:"name"`
	Gender               string    `json:"gender" db:"gender"`
	AttendanceDays       int       `json:"attendance_days" db:"attendance_days"`
	TotalDays            int       `json:"total_days" db:"total_days"`
	AttendancePercentage float64   `json:"attendance_percentage" db:"attendance_percentage"`
	StudentEmail         string    `json:"student_email" db:"student_email"`
	ParentEmail          string    `json:"parent_email" db:"parent_email"`
	IsDefaulter          bool      `json:"is_defaulter" db:"is_defaulter"`
	Pos                  int       `json:"-" db:"pos"` // input order within the batch
	CreatedAt            time.Time `json:"created_at" db:"created_at"` // UTC
}

// HistoryEntry is an append-only log row referencing a past batch and its
// defaulter subset.
type HistoryEntry struct {
	ID             string    `json:"id" db:"id"`
	BatchID        string    `json:"batch_id" db:"batch_id"`
	BatchClassName string    `json:"batch_class_name" db:"batch_class_name"`
	DefaulterCount int       `json:"defaulter_count" db:"defaulter_count"`
	DefaulterIDs   []string  `json:"defaulters,omitempty" db:"-"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"` // UTC
	UploadedBy     string    `json:"uploaded_by" db:"uploaded_by"`
}

// NewBatch contains information needed to ingest a new upload.
type NewBatch struct {
	Records    []AttendanceRow `json:"records" validate:"required,min=1"`
	ClassName  string          `json:"className"`
	UploadedBy string          `json:"uploadedBy"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.ClassName = core.CleanString(nb.ClassName)
	nb.UploadedBy = core.CleanString(nb.UploadedBy)
	return validate.Struct(nb)
}

// Defaulter is the dashboard-selected payload for the email dispatch endpoint.
type Defaulter struct {
	Name                 string  `json:"name"`
	StudentEmail         string  `json:"student_email"`
	ParentEmail          string  `json:"parent_email"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

type GenderStats struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

type DefaulterStats struct {
	Total  int `json:"total"`
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

type StudentInsight struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

type Insights struct {
	AverageAttendance float64          `json:"averageAttendance"`
	HighestAttendance StudentInsight   `json:"highestAttendance"`
	LowestAttendance  StudentInsight   `json:"lowestAttendance"`
	TopStudents       []StudentInsight `json:"topStudents"`
}

// AnalysisReport is the joined, computed view served to the dashboard.
type AnalysisReport struct {
	Batch          Batch          `json:"batch"`
	Records        []Record       `json:"records"`
	GenderStats    GenderStats    `json:"genderStats"`
	DefaulterStats DefaulterStats `json:"defaulterStats"`
	Insights       Insights       `json:"insights"`
}
