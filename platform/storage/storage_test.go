package storage

import (
	"strings"
	"testing"

	"flyttbas_backend/platform/apperr"
)

func TestValidateUpload(t *testing.T) {
	if err := ValidateUpload("application/pdf", 1024, 4096); err != nil {
		t.Fatalf("expected pdf to be accepted: %v", err)
	}
	if err := ValidateUpload("image/png; charset=binary", 10, 0); err != nil {
		t.Fatalf("expected png with params to be accepted: %v", err)
	}
	if err := ValidateUpload("application/zip", 10, 4096); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zip, got %v", err)
	}
	if err := ValidateUpload("application/pdf", 5000, 4096); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for oversize file, got %v", err)
	}
	if err := ValidateUpload("application/pdf", 0, 4096); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty file, got %v", err)
	}
}

func TestObjectKeyStripsDirectories(t *testing.T) {
	key := ObjectKey("partners/abc/insurance", "../../etc/forsakring.pdf")
	if !strings.HasPrefix(key, "partners/abc/insurance/forsakring_") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
}
