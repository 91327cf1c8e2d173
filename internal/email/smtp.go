package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"flyttbas_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	dial      func(ctx context.Context, msg *gomail.Msg) error
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	s := &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
	s.dial = s.dialAndSend
	return s
}

// NewSender returns the SMTP sender when delivery is enabled and a NoopSender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	return s.dial(ctx, msg)
}

func (s *SMTPSender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendOfferSubmittedEmail(ctx context.Context, toEmail string, data OfferSubmitted) error {
	content, err := renderEmailTemplate("offer_submitted.html", offerSubmittedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Ny offert på din flytt",
			Heading:  "Du har fått en ny offert",
			CTALabel: "Jämför offerter",
			CTAURL:   data.OffersURL,
		},
		OfferSubmitted: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectOfferSubmittedFmt, data.CompanyName), content)
}

func (s *SMTPSender) SendJobStatusEmail(ctx context.Context, toEmail string, data JobStatus) error {
	label := jobStatusLabel(data.Status)
	content, err := renderEmailTemplate("job_status.html", jobStatusEmailData{
		baseEmailData: baseEmailData{
			Title:   "Uppdatering om din flytt",
			Heading: "Uppdatering om din flytt",
		},
		JobStatus:   data,
		StatusLabel: label,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectJobStatusFmt, label), content)
}

func (s *SMTPSender) SendPartnerStatusEmail(ctx context.Context, toEmail string, data PartnerStatus) error {
	label := partnerStatusLabel(data.Status)
	subject := fmt.Sprintf(subjectPartnerStatusFmt, label)
	if data.Status == "approved" {
		subject = fmt.Sprintf(subjectPartnerApprovedFmt, data.CompanyName)
	}
	content, err := renderEmailTemplate("partner_status.html", partnerStatusEmailData{
		baseEmailData: baseEmailData{
			Title:    "Status för er ansökan",
			Heading:  "Status för er ansökan",
			CTALabel: "Logga in",
			CTAURL:   data.PortalURL,
		},
		PartnerStatus: data,
		StatusLabel:   label,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendPartnerApplicationEmail(ctx context.Context, toEmail string, data PartnerApplication) error {
	content, err := renderEmailTemplate("partner_application.html", partnerApplicationEmailData{
		baseEmailData: baseEmailData{
			Title:    "Ny partneransökan",
			Heading:  "Ny partneransökan",
			CTALabel: "Granska ansökan",
			CTAURL:   data.ReviewURL,
		},
		PartnerApplication: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPartnerApplicationFmt, data.CompanyName), content)
}
