package emailsvc

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edutrack/attendance/core"
)

type consoleService struct {
	subjPrefix    string
	fromEmail     string
	logger        core.Logger
	disableOutput bool

	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService returns a simulation-mode service that dumps messages to
// the log instead of sending them. Used when no real transport is configured.
func NewConsoleService(conf *core.Config, logger core.Logger) *consoleService {
	from := conf.DefaultFromEmail()
	return &consoleService{
		subjPrefix: "[" + conf.AppName + "] ",
		fromEmail:  from.String(),
		logger:     logger,
	}
}

// NewConsoleServiceMock is NewConsoleService with output disabled, for tests.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *consoleService {
	svc := NewConsoleService(conf, logger)
	svc.disableOutput = true
	return svc
}

func (svc *consoleService) Simulated() bool { return true }

func (svc *consoleService) SendMessage(msg *core.EmailMessage) error {
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	if !svc.disableOutput {
		body := new(strings.Builder)
		fmt.Fprintf(body, "From: %s\r\n", svc.fromEmail)
		fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
		fmt.Fprintf(body, "Cc: %s\r\n", joinAddresses(msg.Cc))
		fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
		fmt.Fprintf(body, "Date: %s\r\n\r\n", time.Now().Format(time.RFC1123Z))
		if msg.TextContent != "" {
			fmt.Fprintf(body, "%s\r\n", msg.TextContent)
		}
		if msg.HTMLContent != "" {
			fmt.Fprintf(body, "%s\r\n", msg.HTMLContent)
		}
		svc.logger.Debug(body.String())
	}

	svc.mu.Lock()
	svc.SentMessages = append(svc.SentMessages, *msg)
	svc.mu.Unlock()
	return nil
}
