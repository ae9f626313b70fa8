package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/edutrack/attendance/core"
	logsvc "github.com/edutrack/attendance/services/logger"
)

func testSMTPService(t *testing.T, user, password string) *smtpService {
	t.Helper()

	conf := &core.Config{AppName: "EduTrack"}
	conf.Email.Host = "smtp.example.com"
	conf.Email.User = user
	conf.Email.Password = password

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	svc, ok := NewSMTPService(conf, logger).(*smtpService)
	if !ok {
		t.Fatal("NewSMTPService() did not return an *smtpService")
	}
	return svc
}

func testMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:          []mail.Address{{Address: "jane@student.edu"}},
		Subject:     "Attendance Alert",
		HTMLContent: "<p>low attendance</p>",
	}
}

func TestSMTPServiceMissingCredentials(t *testing.T) {
	svc := testSMTPService(t, "", "")

	var verifyCalls int
	svc.verify = func(ep smtpEndpoint) error {
		verifyCalls++
		return nil
	}

	assert.True(t, svc.Simulated())
	assert.Equal(t, 0, verifyCalls, "verification must be skipped without credentials")
	assert.NoError(t, svc.SendMessage(testMessage()))
}

func TestSMTPServiceEndpointFallback(t *testing.T) {
	svc := testSMTPService(t, "user@example.com", "secret")

	var tried []string
	svc.verify = func(ep smtpEndpoint) error {
		tried = append(tried, ep.port)
		if ep.port == "465" {
			return errors.New("connection refused")
		}
		return nil
	}

	var sentVia string
	svc.send = func(ep smtpEndpoint, msg *core.EmailMessage) error {
		sentVia = ep.port
		return nil
	}

	assert.False(t, svc.Simulated())
	assert.Equal(t, []string{"465", "587"}, tried)

	if assert.NotNil(t, svc.ready) {
		assert.Equal(t, "587", svc.ready.port)
		assert.False(t, svc.ready.implicitTLS)
	}

	assert.NoError(t, svc.SendMessage(testMessage()))
	assert.Equal(t, "587", sentVia)
}

func TestSMTPServicePreferredEndpoint(t *testing.T) {
	svc := testSMTPService(t, "user@example.com", "secret")

	var verifyCalls int
	svc.verify = func(ep smtpEndpoint) error {
		verifyCalls++
		return nil
	}

	assert.False(t, svc.Simulated())
	if assert.NotNil(t, svc.ready) {
		assert.Equal(t, "465", svc.ready.port)
		assert.True(t, svc.ready.implicitTLS)
	}

	// verification runs once, no matter how often the service is consulted
	assert.False(t, svc.Simulated())
	assert.Equal(t, 1, verifyCalls)
}

func TestSMTPServiceAllEndpointsFail(t *testing.T) {
	svc := testSMTPService(t, "user@example.com", "secret")

	svc.verify = func(ep smtpEndpoint) error {
		return errors.New("connection refused")
	}
	var sendCalls int
	svc.send = func(ep smtpEndpoint, msg *core.EmailMessage) error {
		sendCalls++
		return nil
	}

	assert.True(t, svc.Simulated())
	assert.NoError(t, svc.SendMessage(testMessage()))
	assert.Equal(t, 0, sendCalls, "a downgraded transport must not send")
}

func TestSMTPServiceRejectsEmptyMessage(t *testing.T) {
	svc := testSMTPService(t, "user@example.com", "secret")

	svc.verify = func(ep smtpEndpoint) error { return nil }
	svc.send = func(ep smtpEndpoint, msg *core.EmailMessage) error { return nil }

	assert.Error(t, svc.SendMessage(&core.EmailMessage{Subject: "no recipients"}))
}

func TestSMTPServiceEnvelope(t *testing.T) {
	svc := testSMTPService(t, "user@example.com", "secret")

	msg := testMessage()
	msg.Cc = []mail.Address{{Address: "parent@email.com"}}
	envelope := string(svc.envelope(msg))

	assert.Contains(t, envelope, "To: <jane@student.edu>")
	assert.Contains(t, envelope, "Cc: <parent@email.com>")
	assert.Contains(t, envelope, "Subject: [EduTrack] Attendance Alert")
	assert.Contains(t, envelope, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, envelope, "<p>low attendance</p>")
}
