package http

import (
	"net/http"

	"timetracker/internal/core"
)

// statusFor maps a ledger error to its HTTP status.
func statusFor(err error) int {
	switch core.ErrorKind(err) {
	case core.KindInvalidInput, core.KindBudgetExceeded:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user for err. Validation messages are
// safe to show verbatim; store failures are not.
func userMessage(err error) string {
	switch core.ErrorKind(err) {
	case core.KindInvalidInput, core.KindBudgetExceeded:
		return err.Error()
	case core.KindNotFound:
		return "Activity not found"
	case core.KindStoreUnavailable:
		return "Storage is unavailable, please try again"
	default:
		return "Something went wrong"
	}
}

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]apiError{
		"error": {Kind: core.ErrorKind(err), Message: userMessage(err)},
	})
}
