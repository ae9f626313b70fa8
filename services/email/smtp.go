package emailsvc

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/edutrack/attendance/core"
)

// The two endpoints are tried in fixed order: implicit TLS first, then
// opportunistic STARTTLS. The first to verify is cached for the rest of the
// process lifetime.
type smtpEndpoint struct {
	port        string
	implicitTLS bool
	label       string
}

var smtpEndpoints = []smtpEndpoint{
	{port: "465", implicitTLS: true, label: "465 (SSL)"},
	{port: "587", implicitTLS: false, label: "587 (STARTTLS)"},
}

type smtpService struct {
	host       string
	user       string
	password   string
	from       mail.Address
	subjPrefix string
	logger     core.Logger

	// injectable for tests
	verify func(ep smtpEndpoint) error
	send   func(ep smtpEndpoint, msg *core.EmailMessage) error

	verifyOnce sync.Once
	ready      *smtpEndpoint
}

var _ core.EmailService = (*smtpService)(nil)

// NewSMTPService returns an EmailService backed by a plain SMTP transport.
// Without credentials it starts out in simulation mode; otherwise the first
// use verifies the endpoints in order and caches whichever answered.
func NewSMTPService(conf *core.Config, logger core.Logger) core.EmailService {
	svc := &smtpService{
		host:       conf.Email.Host,
		user:       conf.Email.User,
		password:   conf.Email.Password,
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
	svc.verify = svc.verifyEndpoint
	svc.send = svc.sendVia
	return svc
}

func (svc *smtpService) Simulated() bool {
	svc.setup()
	return svc.ready == nil
}

func (svc *smtpService) SendMessage(msg *core.EmailMessage) error {
	svc.setup()
	if svc.ready == nil {
		// downgraded transport fakes a success; callers check Simulated()
		return nil
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return errors.New("message has no recipients or no content")
	}
	return svc.send(*svc.ready, msg)
}

// setup runs endpoint verification exactly once; both endpoints failing, or
// missing credentials, silently leave the service in simulation mode.
func (svc *smtpService) setup() {
	svc.verifyOnce.Do(func() {
		if svc.user == "" || svc.password == "" {
			svc.logger.Warn("mail transport not configured: EMAIL_USER or EMAIL_PASS missing; running in simulation mode")
			return
		}
		for i := range smtpEndpoints {
			ep := smtpEndpoints[i]
			if err := svc.verify(ep); err != nil {
				svc.logger.Warn(fmt.Sprintf("mail transport verification failed for %s:%s: %v", svc.host, ep.label, err))
				continue
			}
			svc.logger.Info(fmt.Sprintf("mail transport ready (SMTP -> %s:%s) for %s", svc.host, ep.label, svc.user))
			svc.ready = &ep
			return
		}
		svc.logger.Error("all mail transport verification attempts failed; mail will run in simulation mode")
	})
}

func (svc *smtpService) verifyEndpoint(ep smtpEndpoint) error {
	c, err := svc.dial(ep)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if err = c.Auth(svc.auth()); err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return c.Noop()
}

func (svc *smtpService) sendVia(ep smtpEndpoint, msg *core.EmailMessage) error {
	c, err := svc.dial(ep)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if err = c.Auth(svc.auth()); err != nil {
		return errors.Wrap(err, "authenticating")
	}
	if err = c.Mail(svc.from.Address); err != nil {
		return errors.Wrap(err, "setting sender")
	}
	for _, rcpt := range append(append([]mail.Address{}, msg.To...), msg.Cc...) {
		if err = c.Rcpt(rcpt.Address); err != nil {
			return errors.Wrapf(err, "adding recipient %s", rcpt.Address)
		}
	}

	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "opening data stream")
	}
	if _, err = w.Write(svc.envelope(msg)); err != nil {
		return errors.Wrap(err, "writing message")
	}
	return errors.Wrap(w.Close(), "closing data stream")
}

func (svc *smtpService) dial(ep smtpEndpoint) (*smtp.Client, error) {
	addr := net.JoinHostPort(svc.host, ep.port)
	tlsConf := &tls.Config{ServerName: svc.host}

	if ep.implicitTLS {
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, tlsConf)
		if err != nil {
			return nil, errors.Wrap(err, "dialing TLS")
		}
		c, err := smtp.NewClient(conn, svc.host)
		if err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "greeting server")
		}
		return c, nil
	}

	c, err := smtp.Dial(addr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing")
	}
	if err = c.StartTLS(tlsConf); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "starting TLS")
	}
	return c, nil
}

func (svc *smtpService) auth() smtp.Auth {
	return smtp.PlainAuth("", svc.user, svc.password, svc.host)
}

func (svc *smtpService) envelope(msg *core.EmailMessage) []byte {
	body := new(strings.Builder)
	fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(body, "Cc: %s\r\n", joinAddresses(msg.Cc))
	}
	fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	if msg.HTMLContent != "" {
		fmt.Fprint(body, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
		fmt.Fprintf(body, "%s\r\n", msg.HTMLContent)
	} else {
		fmt.Fprint(body, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		fmt.Fprintf(body, "%s\r\n", msg.TextContent)
	}
	return []byte(body.String())
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
