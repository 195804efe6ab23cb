package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	val := Validation(CodeWizardBadStep, "cannot go back from step %d", 1)
	nf := NotFound(CodeWizardNoSession, "no active session")
	inv := Invariant(CodeSuggestionIndexHidden, "index beyond visible count")

	if !IsValidation(val) || IsNotFound(val) || IsInvariant(val) {
		t.Error("validation error misclassified")
	}
	if !IsNotFound(nf) {
		t.Error("not-found error misclassified")
	}
	if !IsInvariant(inv) {
		t.Error("invariant error misclassified")
	}
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	inner := Validation(CodeWizardQuotaUnmet, "accepted 1 of 3 suggestions")
	wrapped := fmt.Errorf("complete step 2: %w", inner)

	if !IsValidation(wrapped) {
		t.Error("Expected wrapped error to still be a validation error")
	}
	if CodeOf(wrapped) != CodeWizardQuotaUnmet {
		t.Errorf("Expected code %s, got %s", CodeWizardQuotaUnmet, CodeOf(wrapped))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Errorf("Expected empty code for plain error, got %s", code)
	}
}
