package attendance

import (
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/edutrack/attendance/core"
	logsvc "github.com/edutrack/attendance/services/logger"
)

// stubMailService counts calls so tests can assert no network I/O happened.
type stubMailService struct {
	simulated bool
	calls     int
	fail      map[string]error
}

var _ core.EmailService = (*stubMailService)(nil)

func (s *stubMailService) SendMessage(msg *core.EmailMessage) error {
	s.calls++
	if err, ok := s.fail[msg.To[0].Address]; ok {
		return err
	}
	return nil
}

func (s *stubMailService) Simulated() bool { return s.simulated }

func testLogger() core.Logger {
	return logsvc.NewStdLogger(log.New(io.Discard, "", 0))
}

func TestDispatchSimulated(t *testing.T) {
	stub := &stubMailService{simulated: true}
	d := NewDispatcher(stub, testLogger())

	report := d.Dispatch([]Defaulter{
		{Name: "A", StudentEmail: "a@student.edu", AttendancePercentage: 60},
		{Name: "B", StudentEmail: "b@student.edu", AttendancePercentage: 50},
	})

	assert.True(t, report.Simulated)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 2, report.Total)
	assert.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.True(t, res.Success)
	}
	assert.Equal(t, 0, stub.calls, "simulation mode must not touch the transport")
}

func TestDispatchPartialFailure(t *testing.T) {
	stub := &stubMailService{
		fail: map[string]error{"a@student.edu": errors.New("mailbox unavailable")},
	}
	d := NewDispatcher(stub, testLogger())

	report := d.Dispatch([]Defaulter{
		{Name: "A", StudentEmail: "a@student.edu", ParentEmail: "pa@email.com", AttendancePercentage: 60},
		{Name: "B", StudentEmail: "b@student.edu", AttendancePercentage: 50},
	})

	assert.False(t, report.Simulated)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Total)
	if assert.Len(t, report.Results, 2) {
		assert.False(t, report.Results[0].Success)
		assert.Equal(t, "a@student.edu", report.Results[0].Email)
		assert.Contains(t, report.Results[0].Error, "mailbox unavailable")
		assert.True(t, report.Results[1].Success)
		assert.Equal(t, "b@student.edu", report.Results[1].Email)
	}
	assert.Equal(t, 2, stub.calls, "a failed send must not abort the remaining sends")
}

func TestDispatchEmpty(t *testing.T) {
	stub := &stubMailService{}
	d := NewDispatcher(stub, testLogger())

	report := d.Dispatch(nil)

	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, stub.calls)
}

func TestAlertMessage(t *testing.T) {
	msg, err := alertMessage(Defaulter{
		Name:                 "Jane Smith",
		StudentEmail:         "jane.smith@student.edu",
		ParentEmail:          "parent.jane@email.com",
		AttendancePercentage: 66.67,
	})
	if err != nil {
		t.Fatalf("alertMessage() failed: %v", err)
	}

	assert.Equal(t, alertSubject, msg.Subject)
	assert.Equal(t, "jane.smith@student.edu", msg.To[0].Address)
	assert.Equal(t, "parent.jane@email.com", msg.Cc[0].Address)
	assert.Contains(t, msg.HTMLContent, "Dear Jane Smith")
	assert.Contains(t, msg.HTMLContent, "66.67%")
}
