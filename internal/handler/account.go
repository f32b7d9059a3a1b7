package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/account"
)

// mapAccountError returns the warning for soft registration and login
// failures.
func mapAccountError(err error) (message, bool) {
	var vErr *account.ValidationError
	switch {
	case errors.As(err, &vErr):
		return warning("invalid_input", "Please check these fields: "+strings.Join(vErr.Fields, ", ")+"."), true
	case errors.Is(err, account.ErrEmailTaken):
		return warning("email_taken", "Email is already taken."), true
	case errors.Is(err, account.ErrAccountNotFound):
		return warning("account_not_found", "Account not found"), true
	case errors.Is(err, account.ErrNotVerified):
		return warning("account_not_verified", "Your account is not verified"), true
	case errors.Is(err, account.ErrInvalidCredentials):
		return warning("invalid_credentials", "Invalid Credentials"), true
	default:
		return message{}, false
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	_, err := h.accounts.Register(r.Context(), account.RegisterRequest{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
	})
	if err != nil {
		if msg, ok := mapAccountError(err); ok {
			writeMessages(w, msg)
			return
		}
		internalError(w, r, errors.Wrap(err, "register"))
		return
	}
	writeMessages(w, success("activation_sent", "An email has been sent to your email address."))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	token, err := h.accounts.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		if msg, ok := mapAccountError(err); ok {
			writeMessages(w, msg)
			return
		}
		internalError(w, r, errors.Wrap(err, "login"))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Activate(r.Context(), r.PathValue("token")); err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			writeError(w, http.StatusNotFound, "invalid_token", "Invalid Email token")
			return
		}
		internalError(w, r, errors.Wrap(err, "activate"))
		return
	}
	writeMessages(w, success("account_verified", "Your account has been verified!"))
}
