package attendance

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"net/mail"

	"github.com/edutrack/attendance/core"
)

const alertSubject = "Attendance Alert - Low Attendance Warning"

var alertTemplate = htmltmpl.Must(htmltmpl.New("defaulter_alert").Parse(`<p>Dear {{.Name}},</p>
<p>Your attendance is {{printf "%.2f" .AttendancePercentage}}% which is below the required threshold of 75%.</p>
<p>Please contact your academic advisor and take immediate action.</p>
<p>Regards,<br/>Attendance Monitoring Team</p>
`))

type DispatchResult struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DispatchReport aggregates one result per input defaulter, success or failure.
type DispatchReport struct {
	Success   bool             `json:"success"`
	Simulated bool             `json:"simulated,omitempty"`
	Sent      int              `json:"sent"`
	Total     int              `json:"total"`
	Results   []DispatchResult `json:"results"`
	Message   string           `json:"message,omitempty"`
}

// Dispatcher emails defaulters one at a time over a caller-owned transport.
type Dispatcher struct {
	mail   core.EmailService
	logger core.Logger
}

func NewDispatcher(mail core.EmailService, logger core.Logger) *Dispatcher {
	return &Dispatcher{mail: mail, logger: logger}
}

// Dispatch attempts one templated email per defaulter, sequentially. A
// per-item failure is recorded and does not abort the remaining sends. When
// the transport is in simulation mode no network I/O happens at all and every
// result is a synthetic success.
func (d *Dispatcher) Dispatch(defaulters []Defaulter) DispatchReport {
	report := DispatchReport{
		Success: true,
		Total:   len(defaulters),
		Results: make([]DispatchResult, 0, len(defaulters)),
	}

	if d.mail.Simulated() {
		report.Simulated = true
		for _, df := range defaulters {
			report.Results = append(report.Results, DispatchResult{
				Success: true,
				Email:   df.StudentEmail,
				Message: fmt.Sprintf("Email simulated for %s", df.Name),
			})
		}
		report.Sent = len(defaulters)
		report.Message = "Email simulation completed. Configure EMAIL_USER and EMAIL_PASS to send real emails."
		return report
	}

	for _, df := range defaulters {
		msg, err := alertMessage(df)
		if err == nil {
			err = d.mail.SendMessage(msg)
		}
		if err != nil {
			d.logger.Error(fmt.Sprintf("sending alert to %s: %v", df.StudentEmail, err), err)
			report.Results = append(report.Results, DispatchResult{
				Email: df.StudentEmail,
				Error: err.Error(),
			})
			continue
		}
		report.Sent++
		report.Results = append(report.Results, DispatchResult{
			Success: true,
			Email:   df.StudentEmail,
			Message: fmt.Sprintf("Sent to %s", df.StudentEmail),
		})
	}

	report.Message = "Emails processed (some may have failed). See results for details."
	return report
}

func alertMessage(df Defaulter) (*core.EmailMessage, error) {
	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, df); err != nil {
		return nil, err
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: df.Name, Address: df.StudentEmail}},
		Subject:     alertSubject,
		HTMLContent: body.String(),
	}
	if df.ParentEmail != "" {
		msg.Cc = []mail.Address{{Address: df.ParentEmail}}
	}
	return msg, nil
}
