package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"vakwerk_backend/platform/config"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)

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

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendAssignmentOfferEmail(ctx context.Context, toEmail, providerName, referenceCode, respondBy string) error {
	subject := fmt.Sprintf(subjectAssignmentOfferFmt, referenceCode)
	content, err := renderEmailTemplate("assignment_offer.html", assignmentOfferEmailData{
		baseEmailData: baseEmailData{
			Title:   "Nieuwe klus",
			Heading: "Nieuwe klus voor u",
		},
		ProviderName:  providerName,
		ReferenceCode: referenceCode,
		RespondBy:     respondBy,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendEscalationRaisedEmail(ctx context.Context, toEmail, referenceCode, triggerKeyword string, toLevel int) error {
	subject := fmt.Sprintf(subjectEscalationRaisedFmt, referenceCode)
	content, err := renderEmailTemplate("escalation_raised.html", escalationRaisedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Escalatie gemeld",
			Heading: "Escalatie gemeld",
		},
		ReferenceCode:  referenceCode,
		TriggerKeyword: triggerKeyword,
		ToLevel:        toLevel,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendProviderExpelledEmail(ctx context.Context, toEmail, providerName, reason string) error {
	content, err := renderEmailTemplate("provider_expelled.html", providerExpelledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Account geschorst",
			Heading: "Account geschorst",
		},
		ProviderName: providerName,
		Reason:       reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectProviderExpelled, content)
}

func (s *SMTPSender) SendJobStartReminderEmail(ctx context.Context, toEmail, providerName, referenceCode, startsAt string) error {
	subject := fmt.Sprintf(subjectJobStartReminderFmt, referenceCode)
	content, err := renderEmailTemplate("job_start_reminder.html", jobStartReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Herinnering",
			Heading: "Uw klus start binnenkort",
		},
		ProviderName:  providerName,
		ReferenceCode: referenceCode,
		StartsAt:      startsAt,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendPriceProposalEmail(ctx context.Context, toEmail, referenceCode, priceFormatted string) error {
	subject := fmt.Sprintf(subjectPriceProposalFmt, referenceCode)
	content, err := renderEmailTemplate("price_proposal.html", priceProposalEmailData{
		baseEmailData: baseEmailData{
			Title:   "Prijsvoorstel",
			Heading: "Prijsvoorstel ontvangen",
		},
		ReferenceCode:  referenceCode,
		PriceFormatted: priceFormatted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
