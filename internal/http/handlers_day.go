package http

import (
	"context"
	"fmt"
	"net/http"

	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/services"
)

// errNoID is returned when an update or delete form lacks the activity id.
var errNoID = fmt.Errorf("%w: activity id is required", core.ErrInvalidInput)

// handleDayPartial renders the day panel. Analyse uses it to re-aggregate the
// day without changing anything.
func (s *Server) handleDayPartial(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requirePageUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := ParseDateParam(q, "date")
	if err != nil {
		s.writeFragmentError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err != nil {
		s.logLedgerError(ctx, "Failed to load day", log.OpLoad, user, date, err)
		s.writeFragmentError(w, err)
		return
	}
	s.render(w, r, http.StatusOK, "day.html", newDayView(ledger.Summary()))
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpAdd, func(ctx context.Context, ledger *services.Ledger, p *RequestBodyParser) (string, error) {
		in, err := p.ActivityInput()
		if err != nil {
			return "", err
		}
		a, err := ledger.Add(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Added %s (%dm)", a.Name, a.Minutes), nil
	})
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpEdit, func(ctx context.Context, ledger *services.Ledger, p *RequestBodyParser) (string, error) {
		id := p.Get("id")
		if id == "" {
			return "", errNoID
		}
		in, err := p.ActivityInput()
		if err != nil {
			return "", err
		}
		a, err := ledger.Edit(ctx, id, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated %s", a.Name), nil
	})
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, log.OpRemove, func(ctx context.Context, ledger *services.Ledger, p *RequestBodyParser) (string, error) {
		id := p.Get("id")
		if id == "" {
			return "", errNoID
		}
		if err := ledger.Remove(ctx, id); err != nil {
			return "", err
		}
		return "Activity removed", nil
	})
}

// mutate runs one form-driven ledger change. On success it re-renders the day
// panel from the ledger's updated snapshot; on failure it sends an error
// fragment to #messages and the page keeps its current state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, *services.Ledger, *RequestBodyParser) (string, error)) {
	user, ok := s.requirePageUser(w, r)
	if !ok {
		return
	}
	p, err := ParseFormBody(r)
	if err != nil {
		s.writeFragmentError(w, err)
		return
	}
	date, err := p.Date()
	if err != nil {
		s.writeFragmentError(w, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	ledger, err := s.openLedger(ctx, user, date)
	if err != nil {
		s.logLedgerError(ctx, "Failed to load day", log.OpLoad, user, date, err)
		s.writeFragmentError(w, err)
		return
	}
	message, err := apply(ctx, ledger, p)
	if err != nil {
		s.logLedgerError(ctx, "Activity change rejected", op, user, date, err)
		s.writeFragmentError(w, err)
		return
	}

	b := NewHTMXResponse().
		TriggerActivityChanged(op, date.String()).
		TriggerDayRefresh(date.String()).
		TriggerSuccessNotification(message)
	if op == log.OpAdd {
		b.TriggerFormReset()
	}
	b.ApplyHeaders(w)
	s.render(w, r, http.StatusOK, "day.html", newDayView(ledger.Summary()))
}

// writeFragmentError sends err as an HTML fragment into the #messages region.
func (s *Server) writeFragmentError(w http.ResponseWriter, err error) {
	ErrorResponse(statusFor(err), userMessage(err)).
		Header("HX-Retarget", "#messages").
		Header("HX-Reswap", "innerHTML").
		TriggerErrorNotification(userMessage(err)).
		Write(w)
}
