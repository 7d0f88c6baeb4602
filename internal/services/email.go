package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/pkg/logger"
)

// SMSMaxLength is the longest SMS body sent.
const SMSMaxLength = 160

// Sender delivers a task over one channel.
type Sender interface {
	Send(ctx context.Context, task *DeliveryTask) error
}

// LogSender only logs what would have been sent.
type LogSender struct{}

func (LogSender) Send(_ context.Context, task *DeliveryTask) error {
	logger.Info().
		Str("channel", string(task.Channel)).
		Str("to", task.To).
		Str("subject", task.Subject).
		Uint("notification_id", task.NotificationID).
		Msg("delivery logged")
	return nil
}

// SMTPSender sends email tasks through an SMTP relay.
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, task *DeliveryTask) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}
	to := []string{task.To}
	message := buildMailMessage(from, to, task.Subject, task.Body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var err error
	if s.cfg.UseTLS {
		err = s.sendTLS(addr, auth, from, to, message)
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message))
	}
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", task.To, err)
	}

	logger.Info().Str("to", task.To).Uint("notification_id", task.NotificationID).Msg("email sent")
	return nil
}

func (s *SMTPSender) sendTLS(addr string, auth smtp.Auth, from string, to []string, message string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	return w.Close()
}

// buildMailMessage renders a plain text RFC 5322 message with sorted headers.
func buildMailMessage(from string, to []string, subject, body string) string {
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(to, ","),
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + ": " + headers[k] + "\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

// SMSText trims a message to SMSMaxLength characters.
func SMSText(message string) string {
	if utf8.RuneCountInString(message) <= SMSMaxLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:SMSMaxLength-3]) + "..."
}

// Deliverer routes tasks to the sender registered for their channel.
type Deliverer struct {
	senders  map[Channel]Sender
	fallback Sender
}

// NewDeliverer sends email over SMTP when mail is enabled; everything else is
// logged.
func NewDeliverer(cfg config.MailConfig) *Deliverer {
	d := &Deliverer{senders: make(map[Channel]Sender), fallback: LogSender{}}
	if cfg.Enabled && cfg.Host != "" {
		d.Register(ChannelEmail, NewRetrySender(NewSMTPSender(cfg), MaxRetryCount, RetryInterval))
	}
	return d
}

func (d *Deliverer) Register(ch Channel, s Sender) {
	d.senders[ch] = s
}

func (d *Deliverer) Deliver(ctx context.Context, task *DeliveryTask) error {
	if task.Channel == ChannelSMS {
		task.Body = SMSText(task.Body)
	}
	if s, ok := d.senders[task.Channel]; ok {
		return s.Send(ctx, task)
	}
	return d.fallback.Send(ctx, task)
}
