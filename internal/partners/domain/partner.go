// Package domain holds partner statuses and the pure eligibility and ranking rules.
package domain

import "flyttbas_backend/platform/apperr"

// Status is a partner's review state. Only approved partners may bid.
type Status string

const (
	StatusPending           Status = "pending"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusSuspended         Status = "suspended"
	StatusMoreInfoRequested Status = "more_info_requested"
)

// ParseStatus validates a partner status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended, StatusMoreInfoRequested:
		return Status(s), nil
	default:
		return "", apperr.Validationf("unknown partner status %q", s)
	}
}

// DocumentKind is an eligibility document a partner may upload.
type DocumentKind string

const (
	DocumentLicense        DocumentKind = "license"
	DocumentInsurance      DocumentKind = "insurance"
	DocumentTaxCertificate DocumentKind = "tax_certificate"
)

// ParseDocumentKind validates a document kind.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case DocumentLicense, DocumentInsurance, DocumentTaxCertificate:
		return DocumentKind(s), nil
	default:
		return "", apperr.Validationf("unknown document kind %q", s)
	}
}
