package http

import (
	"context"
	"net/http"
	"time"

	"timetracker/internal/auth"
	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/services"
	"timetracker/internal/store"
)

const signinPath = "/signin"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports not_ready when templates are missing or the store does
// not answer a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch hc, ok := s.store.(store.HealthChecker); {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	case !ok:
		checks["store"] = "ok"
	default:
		if err := hc.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Store readiness check failed", log.FieldError, err)
			checks["store"] = "failed"
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

type indexData struct {
	UserName string
	Day      dayView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePageUser(w, r)
	if !ok {
		return
	}
	date, err := ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		date = core.Today()
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	claims, _ := auth.FromContext(r.Context())
	data := indexData{UserName: claims.DisplayName()}
	ledger, err := s.openLedger(ctx, user, date)
	if err != nil {
		s.logLedgerError(ctx, "Failed to load day", log.OpLoad, user, date, err)
		data.Day = newDayView(core.Summarize(date, nil))
		data.Day.Error = userMessage(err)
	} else {
		data.Day = newDayView(ledger.Summary())
	}
	s.render(w, r, http.StatusOK, "index.html", data)
}

type signinData struct {
	LoginURL string
	Error    string
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if auth.CurrentUser(r.Context()) != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "signin.html", signinData{LoginURL: s.loginURL})
}

// handleSession completes sign-in: the identity provider's token is verified
// and stored in the session cookie.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	p, err := ParseFormBody(r)
	if err != nil {
		s.sessionFailed(w, r, err)
		return
	}
	claims, err := auth.Parse(p.Get("token"), s.authCfg)
	if err != nil {
		s.sessionFailed(w, r, err)
		return
	}

	auth.SetSession(w, r, p.Get("token"), claims.ExpiresAt)
	s.logger.InfoContext(r.Context(), "Signed in", log.FieldUserID, claims.Subject)
	if p.IsJSON() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) sessionFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Sign-in rejected", log.FieldError, err)
	if r.Header.Get("Content-Type") == "application/json" {
		writeJSON(w, http.StatusUnauthorized, map[string]apiError{
			"error": {Kind: "unauthorized", Message: "invalid or expired token"},
		})
		return
	}
	s.render(w, r, http.StatusUnauthorized, "signin.html", signinData{
		LoginURL: s.loginURL,
		Error:    "Sign-in failed: the token is invalid or expired.",
	})
}

func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	if isHTMX(r) {
		NewHTMXResponse().Redirect(signinPath).Write(w)
		return
	}
	http.Redirect(w, r, signinPath, http.StatusSeeOther)
}

// requirePageUser returns the signed-in user or sends the browser to the
// sign-in page.
func (s *Server) requirePageUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if user := auth.CurrentUser(r.Context()); user != "" {
		return user, true
	}
	if isHTMX(r) {
		NewHTMXResponse().Status(http.StatusUnauthorized).Redirect(signinPath).Write(w)
		return "", false
	}
	http.Redirect(w, r, signinPath, http.StatusSeeOther)
	return "", false
}

func (s *Server) requireAPIUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if user := auth.CurrentUser(r.Context()); user != "" {
		return user, true
	}
	writeJSON(w, http.StatusUnauthorized, map[string]apiError{
		"error": {Kind: "unauthorized", Message: "sign in required"},
	})
	return "", false
}

// openLedger builds the request's ledger and loads the day.
func (s *Server) openLedger(ctx context.Context, user string, date core.Date) (*services.Ledger, error) {
	scope := core.Scope{UserID: user, Date: date}
	return services.OpenLedger(ctx, s.store, scope, services.WithLogger(log.FromContext(ctx)))
}

// logLedgerError logs store failures at error level and rejected input at
// debug level.
func (s *Server) logLedgerError(ctx context.Context, msg, op, user string, date core.Date, err error) {
	logger := log.FromContext(ctx)
	args := []any{
		log.FieldOperation, op,
		log.FieldUserID, user,
		log.FieldDate, date.String(),
		log.FieldErrorKind, core.ErrorKind(err),
		log.FieldError, err,
	}
	if statusFor(err) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg, args...)
		return
	}
	logger.DebugContext(ctx, msg, args...)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			"template", name,
			log.FieldError, err)
	}
}
