package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type assignmentOfferEmailData struct {
	baseEmailData
	ProviderName  string
	ReferenceCode string
	RespondBy     string
}

type escalationRaisedEmailData struct {
	baseEmailData
	ReferenceCode  string
	TriggerKeyword string
	ToLevel        int
}

type providerExpelledEmailData struct {
	baseEmailData
	ProviderName string
	Reason       string
}

type priceProposalEmailData struct {
	baseEmailData
	ReferenceCode  string
	PriceFormatted string
}

type jobStartReminderEmailData struct {
	baseEmailData
	ProviderName  string
	ReferenceCode string
	StartsAt      string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatCurrencyEUR renders cents as a euro amount for mail bodies.
func FormatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("€%.2f", float64(cents)/100)
}
