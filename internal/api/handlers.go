package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/clinic"
	"github.com/EcliqseX/vetsim/internal/domain"
	"github.com/EcliqseX/vetsim/internal/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// envelope is the shape of every API response.
type envelope struct {
	SessionID  string           `json:"session_id,omitempty"`
	Money      *int             `json:"money,omitempty"`
	Reputation *int             `json:"reputation,omitempty"`
	Data       any              `json:"data,omitempty"`
	Error      *domain.APIError `json:"error,omitempty"`
}

// summary is the part of a session copied out under its lock.
type summary struct {
	id         string
	money      int
	reputation int
}

func summarize(state *clinic.SessionState) *summary {
	return &summary{id: state.ID, money: state.Money, reputation: state.Reputation}
}

// sessionView is the player's view of a session. Hidden diseases never
// appear in it.
type sessionView struct {
	ID         string            `json:"id"`
	Money      int               `json:"money"`
	Reputation int               `json:"reputation"`
	Waiting    []clinic.Waiting  `json:"waiting"`
	Current    *patientView      `json:"current,omitempty"`
	Log        []clinic.LogEntry `json:"log"`
	Stats      clinic.Stats      `json:"stats"`
	CreatedAt  time.Time         `json:"created_at"`
}

type patientView struct {
	CaseID    string                   `json:"case_id"`
	Owner     string                   `json:"owner"`
	PetName   string                   `json:"pet_name"`
	Species   catalog.Species          `json:"species"`
	Symptoms  []string                 `json:"symptoms"`
	Tests     []clinic.TestResult      `json:"tests"`
	Diagnosis *clinic.DiagnosisOutcome `json:"diagnosis,omitempty"`
}

func newSessionView(state *clinic.SessionState) *sessionView {
	return &sessionView{
		ID:         state.ID,
		Money:      state.Money,
		Reputation: state.Reputation,
		Waiting:    state.WaitingRoom(),
		Current:    newPatientView(state.Current),
		Log:        append([]clinic.LogEntry(nil), state.Log...),
		Stats:      state.Stats,
		CreatedAt:  state.CreatedAt,
	}
}

func newPatientView(c *clinic.Case) *patientView {
	if c == nil {
		return nil
	}
	return &patientView{
		CaseID:    c.ID,
		Owner:     c.Owner,
		PetName:   c.PetName,
		Species:   c.Species,
		Symptoms:  append([]string(nil), c.ObservedSymptoms...),
		Tests:     c.Tests.Results(),
		Diagnosis: c.Diagnosis,
	}
}

// statusFor maps response codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case domain.ErrSessionNotFound, domain.ErrUnknownTest:
		return http.StatusNotFound
	case domain.ErrPatientAlreadyActive, domain.ErrNoCurrentCase, domain.ErrAlreadyDiagnosed:
		return http.StatusConflict
	case domain.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.ErrQueueEmpty:
		return http.StatusAccepted
	case domain.ErrNoSelection, domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrTestUnavailable:
		return http.StatusUnprocessableEntity
	case domain.ErrRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respond writes data or err in the envelope, stamped with the session
// summary when there is one.
func (s *Server) respond(c *gin.Context, status int, sum *summary, data any, err error) {
	env := envelope{Data: data}
	if sum != nil {
		env.SessionID = sum.id
		env.Money = &sum.money
		env.Reputation = &sum.reputation
	}

	if err != nil {
		apiErr := domain.FromError(err, c.GetString(middleware.CorrelationIDKey))
		status = statusFor(apiErr.Code)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		}
		_ = c.Error(err)
		env.Error = apiErr
	}
	c.JSON(status, env)
}

// act runs fn on the session named in the path and returns its summary.
func (s *Server) act(c *gin.Context, fn func(*clinic.SessionState) error) (*summary, error) {
	var sum *summary
	err := s.deps.Registry.Do(c.Request.Context(), c.Param("id"), func(state *clinic.SessionState) error {
		fnErr := fn(state)
		sum = summarize(state)
		return fnErr
	})
	return sum, err
}

func (s *Server) handleCreateSession(c *gin.Context) {
	state, err := s.deps.Registry.Create(c.Request.Context())
	if err != nil {
		s.respond(c, 0, nil, nil, err)
		return
	}
	s.respond(c, http.StatusCreated, summarize(state), newSessionView(state), nil)
}

func (s *Server) handleGetSession(c *gin.Context) {
	var (
		sum  *summary
		view *sessionView
	)
	err := s.deps.Registry.View(c.Request.Context(), c.Param("id"), func(state *clinic.SessionState) error {
		sum, view = summarize(state), newSessionView(state)
		return nil
	})
	if err != nil {
		s.respond(c, 0, nil, nil, err)
		return
	}
	s.respond(c, http.StatusOK, sum, view, nil)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.deps.Registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respond(c, 0, nil, nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleNextPatient(c *gin.Context) {
	var view any
	sum, err := s.act(c, func(state *clinic.SessionState) error {
		next, err := s.deps.Registry.Engine().AdvanceQueue(state)
		if err != nil {
			if errors.Is(err, clinic.ErrQueueEmpty) {
				view = gin.H{"waiting": state.WaitingRoom()}
			}
			return err
		}
		view = newPatientView(next)
		return nil
	})
	s.respond(c, http.StatusOK, sum, view, err)
}

func (s *Server) handleRunTest(c *gin.Context) {
	var result *clinic.TestResult
	sum, err := s.act(c, func(state *clinic.SessionState) error {
		r, err := s.deps.Registry.Engine().RunTest(state, c.Param("test"))
		if err != nil {
			return err
		}
		result = &r
		return nil
	})
	s.respond(c, http.StatusOK, sum, result, err)
}

type diagnosisRequest struct {
	DiseaseID string `json:"disease_id"`
}

func (s *Server) handleDiagnosis(c *gin.Context) {
	var req diagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, 0, nil, nil, domain.NewAPIError(domain.ErrInvalidInput, "request body must be JSON with a disease_id", err.Error(), ""))
		return
	}

	var outcome *clinic.DiagnosisOutcome
	sum, err := s.act(c, func(state *clinic.SessionState) error {
		o, err := s.deps.Registry.Engine().ScoreDiagnosis(state, req.DiseaseID)
		outcome = o
		return err
	})
	s.respond(c, http.StatusOK, sum, outcome, err)
}

func (s *Server) handleTreatment(c *gin.Context) {
	var view *sessionView
	sum, err := s.act(c, func(state *clinic.SessionState) error {
		if err := s.deps.Registry.Engine().FinishTreatment(state); err != nil {
			return err
		}
		view = newSessionView(state)
		return nil
	})
	s.respond(c, http.StatusOK, sum, view, err)
}

func (s *Server) handleListDiseases(c *gin.Context) {
	s.respond(c, http.StatusOK, nil, s.deps.Registry.Engine().Catalog().Diseases(), nil)
}

func (s *Server) handleListTests(c *gin.Context) {
	s.respond(c, http.StatusOK, nil, s.deps.Registry.Engine().Catalog().Tests(), nil)
}

var errLedgerDisabled = domain.NewAPIError(domain.ErrDatabaseError, "outcome ledger is disabled", "", "")

func (s *Server) handleListLedger(c *gin.Context) {
	if s.deps.Ledger == nil {
		s.respond(c, 0, nil, nil, errLedgerDisabled)
		return
	}

	limit, offset, err := pagination(c)
	if err != nil {
		s.respond(c, 0, nil, nil, err)
		return
	}

	ctx := c.Request.Context()
	records, err := s.deps.Ledger.List(ctx, limit, offset)
	if err != nil {
		s.ledgerFailed(c, err)
		return
	}
	total, err := s.deps.Ledger.Count(ctx)
	if err != nil {
		s.ledgerFailed(c, err)
		return
	}
	s.respond(c, http.StatusOK, nil, gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}, nil)
}

func (s *Server) handleLedgerStats(c *gin.Context) {
	if s.deps.Ledger == nil {
		s.respond(c, 0, nil, nil, errLedgerDisabled)
		return
	}

	stats, err := s.deps.Ledger.Stats(c.Request.Context())
	if err != nil {
		s.ledgerFailed(c, err)
		return
	}
	s.respond(c, http.StatusOK, nil, stats, nil)
}

func (s *Server) ledgerFailed(c *gin.Context, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"path":           c.FullPath(),
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
	}).Error("Ledger query failed")
	s.respond(c, 0, nil, nil, domain.NewAPIError(domain.ErrDatabaseError, "ledger query failed", "", ""))
}

func pagination(c *gin.Context) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, domain.NewAPIError(domain.ErrInvalidInput, "limit must be between 1 and 500", "", "")
		}
	}
	if v := c.Query("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, domain.NewAPIError(domain.ErrInvalidInput, "offset must be a non-negative integer", "", "")
		}
	}
	return limit, offset, nil
}
