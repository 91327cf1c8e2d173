package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

var swedish = message.NewPrinter(language.Swedish)

var swedishMonths = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

var jobStatusLabels = map[string]string{
	"confirmed":   "Bekräftad",
	"scheduled":   "Inplanerad",
	"in_progress": "Pågår",
	"completed":   "Slutförd",
	"cancelled":   "Avbokad",
}

var partnerStatusLabels = map[string]string{
	"pending":             "Under granskning",
	"approved":            "Godkänd",
	"rejected":            "Avslagen",
	"suspended":           "Avstängd",
	"more_info_requested": "Komplettering behövs",
}

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type offerSubmittedEmailData struct {
	baseEmailData
	OfferSubmitted
}

type jobStatusEmailData struct {
	baseEmailData
	JobStatus
	StatusLabel string
}

type partnerStatusEmailData struct {
	baseEmailData
	PartnerStatus
	StatusLabel string
}

type partnerApplicationEmailData struct {
	baseEmailData
	PartnerApplication
}

var templateFuncs = template.FuncMap{
	"sek":  formatSEK,
	"date": formatDate,
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// formatSEK renders whole kronor with Swedish digit grouping, e.g. "12 345 kr".
func formatSEK(amount int64) string {
	return swedish.Sprintf("%d kr", amount)
}

// formatDate renders "2 november 2026".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), swedishMonths[t.Month()-1], t.Year())
}

func jobStatusLabel(status string) string {
	if label, ok := jobStatusLabels[status]; ok {
		return label
	}
	return status
}

func partnerStatusLabel(status string) string {
	if label, ok := partnerStatusLabels[status]; ok {
		return label
	}
	return status
}
