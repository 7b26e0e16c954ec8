package http

import (
	"net/http"

	"timetracker/internal/core"
	"timetracker/internal/log"
)

type activityResponse struct {
	Activity *activityJSON `json:"activity,omitempty"`
	Day      dayJSON       `json:"day"`
}

func (s *Server) handleAPIDay(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAPIUser(w, r)
	if !ok {
		return
	}
	date, err := ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		writeAPIError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err != nil {
		s.logLedgerError(ctx, "Failed to load day", log.OpLoad, user, date, err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayJSON(ledger.Summary()))
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAPIUser(w, r)
	if !ok {
		return
	}
	p, date, err := parseAPIBody(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	in, err := p.ActivityInput()
	if err != nil {
		writeAPIError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err == nil {
		var a core.Activity
		if a, err = ledger.Add(ctx, in); err == nil {
			out := toActivityJSON(a)
			writeJSON(w, http.StatusCreated, activityResponse{Activity: &out, Day: newDayJSON(ledger.Summary())})
			return
		}
	}
	s.logLedgerError(ctx, "API add failed", log.OpAdd, user, date, err)
	writeAPIError(w, err)
}

func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAPIUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	p, date, err := parseAPIBody(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	in, err := p.ActivityInput()
	if err != nil {
		writeAPIError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err == nil {
		var a core.Activity
		if a, err = ledger.Edit(ctx, id, in); err == nil {
			out := toActivityJSON(a)
			writeJSON(w, http.StatusOK, activityResponse{Activity: &out, Day: newDayJSON(ledger.Summary())})
			return
		}
	}
	s.logLedgerError(ctx, "API edit failed", log.OpEdit, user, date, err)
	writeAPIError(w, err)
}

// handleAPIDelete takes the date from the query string, since DELETE bodies
// are often dropped by proxies.
func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAPIUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	date, err := ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		writeAPIError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err == nil {
		if err = ledger.Remove(ctx, id); err == nil {
			writeJSON(w, http.StatusOK, activityResponse{Day: newDayJSON(ledger.Summary())})
			return
		}
	}
	s.logLedgerError(ctx, "API remove failed", log.OpRemove, user, date, err)
	writeAPIError(w, err)
}

func parseAPIBody(r *http.Request) (*RequestBodyParser, core.Date, error) {
	p, err := ParseFormBody(r)
	if err != nil {
		return nil, core.Date{}, err
	}
	date, err := p.Date()
	if err != nil {
		return nil, core.Date{}, err
	}
	return p, date, nil
}
