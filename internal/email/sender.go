// Package email renders and delivers transactional mail. Delivery is a
// best-effort side channel: callers log failures and never fail the
// triggering operation on a send error.
package email

import "context"

// Sender delivers the transactional mails the marketplace emits.
type Sender interface {
	SendAssignmentOfferEmail(ctx context.Context, toEmail, providerName, referenceCode, respondBy string) error
	SendEscalationRaisedEmail(ctx context.Context, toEmail, referenceCode, triggerKeyword string, toLevel int) error
	SendProviderExpelledEmail(ctx context.Context, toEmail, providerName, reason string) error
	SendPriceProposalEmail(ctx context.Context, toEmail, referenceCode, priceFormatted string) error
	SendJobStartReminderEmail(ctx context.Context, toEmail, providerName, referenceCode, startsAt string) error
}

// NopSender discards every mail; used when email is disabled.
type NopSender struct{}

func (NopSender) SendAssignmentOfferEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NopSender) SendEscalationRaisedEmail(context.Context, string, string, string, int) error {
	return nil
}

func (NopSender) SendProviderExpelledEmail(context.Context, string, string, string) error {
	return nil
}

func (NopSender) SendPriceProposalEmail(context.Context, string, string, string) error {
	return nil
}

func (NopSender) SendJobStartReminderEmail(context.Context, string, string, string, string) error {
	return nil
}
