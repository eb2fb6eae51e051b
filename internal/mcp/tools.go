package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/clinic"
	"github.com/EcliqseX/vetsim/internal/domain"
)

// recentLogEntries is how much of the activity log clinic_status returns.
const recentLogEntries = 10

type noInput struct{}

type runTestInput struct {
	TestID string `json:"test_id" jsonschema:"id of the test to run, see list_tests"`
}

type diagnosisInput struct {
	DiseaseID string `json:"disease_id" jsonschema:"id of the diagnosed disease, see list_diseases"`
}

type exportInput struct {
	Filename string `json:"filename,omitempty" jsonschema:"file name inside the export directory, defaults to a timestamped name"`
}

type clinicView struct {
	SessionID  string            `json:"session_id"`
	Money      int               `json:"money"`
	Reputation int               `json:"reputation"`
	Waiting    []clinic.Waiting  `json:"waiting"`
	Current    *patientView      `json:"current,omitempty"`
	Stats      clinic.Stats      `json:"stats"`
	RecentLog  []clinic.LogEntry `json:"recent_log"`
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

type testView struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Cost    int               `json:"cost"`
	Species []catalog.Species `json:"species,omitempty"`
}

type diseaseView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Species  []catalog.Species `json:"species"`
	Symptoms []string          `json:"symptoms"`
}

func newClinicView(state *clinic.SessionState) *clinicView {
	log := state.Log
	if len(log) > recentLogEntries {
		log = log[len(log)-recentLogEntries:]
	}
	return &clinicView{
		SessionID:  state.ID,
		Money:      state.Money,
		Reputation: state.Reputation,
		Waiting:    state.WaitingRoom(),
		Current:    newPatientView(state.Current),
		Stats:      state.Stats,
		RecentLog:  append([]clinic.LogEntry(nil), log...),
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

// registerTools adds every clinic tool to the MCP server.
func (s *LiteServer) registerTools() {
	s.logger.Info("Registering tools with MCP SDK...")

	add := func(name string) {
		s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "clinic_status",
		Description: "Show money, reputation, the waiting room, the patient in the exam room and recent activity.",
	}, s.handleStatus)
	add("clinic_status")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_diseases",
		Description: "List every disease the clinic can diagnose with its species and typical symptoms.",
	}, s.handleListDiseases)
	add("list_diseases")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_tests",
		Description: "List the diagnostic tests with their cost and species restrictions.",
	}, s.handleListTests)
	add("list_tests")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "call_next_patient",
		Description: "Bring the next waiting patient into the exam room. Only one patient can be examined at a time.",
	}, s.handleNextPatient)
	add("call_next_patient")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "view_patient",
		Description: "Show the current patient's observed symptoms, test results and diagnosis.",
	}, s.handleViewPatient)
	add("view_patient")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "run_test",
		Description: "Pay for and run a diagnostic test on the current patient. Results are probabilistic.",
	}, s.handleRunTest)
	add("run_test")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_diagnosis",
		Description: "Diagnose the current patient. A correct diagnosis earns the treatment reward plus a bonus for using few tests.",
	}, s.handleDiagnosis)
	add("submit_diagnosis")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "finish_treatment",
		Description: "Send the current patient home. A new patient arrives in the waiting room.",
	}, s.handleTreatment)
	add("finish_treatment")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "new_clinic",
		Description: "Close the current clinic and open a fresh one with starting money and reputation.",
	}, s.handleNewClinic)
	add("new_clinic")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ledger_stats",
		Description: "Summarise every diagnosis recorded so far: totals, accuracy and accuracy per disease.",
	}, s.handleLedgerStats)
	add("ledger_stats")

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_ledger",
		Description: "Write the diagnosis ledger to a JSON file in the export directory.",
	}, s.handleExportLedger)
	add("export_ledger")

	s.logger.Info("Successfully registered all tools")
}

func (s *LiteServer) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	var view *clinicView
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		view = newClinicView(state)
		return nil
	})
	if err != nil {
		return s.failed("clinic_status", err)
	}
	return jsonResult(view)
}

func (s *LiteServer) handleListDiseases(context.Context, *mcp.CallToolRequest, noInput) (*mcp.CallToolResult, any, error) {
	diseases := s.registry.Engine().Catalog().Diseases()
	out := make([]diseaseView, 0, len(diseases))
	for _, d := range diseases {
		out = append(out, diseaseView{ID: d.ID, Name: d.Name, Species: d.Species, Symptoms: d.Symptoms})
	}
	return jsonResult(out)
}

func (s *LiteServer) handleListTests(context.Context, *mcp.CallToolRequest, noInput) (*mcp.CallToolResult, any, error) {
	tests := s.registry.Engine().Catalog().Tests()
	out := make([]testView, 0, len(tests))
	for _, t := range tests {
		out = append(out, testView{ID: t.ID, Name: t.Name, Cost: t.Cost, Species: t.Species})
	}
	return jsonResult(out)
}

func (s *LiteServer) handleNextPatient(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	engine := s.registry.Engine()

	var view *clinicView
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		_, err := engine.AdvanceQueue(state)
		view = newClinicView(state)
		return err
	})
	if errors.Is(err, clinic.ErrQueueEmpty) {
		// Not a failure: the waiting room has been refilled.
		return textResult("The waiting room was empty. New patients have arrived; call the next patient again.", view)
	}
	if err != nil {
		return s.failed("call_next_patient", err)
	}
	return jsonResult(view.Current)
}

func (s *LiteServer) handleViewPatient(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	var view *patientView
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		if state.Current == nil {
			return clinic.ErrNoCurrentCase
		}
		view = newPatientView(state.Current)
		return nil
	})
	if err != nil {
		return s.failed("view_patient", err)
	}
	return jsonResult(view)
}

func (s *LiteServer) handleRunTest(ctx context.Context, _ *mcp.CallToolRequest, in runTestInput) (*mcp.CallToolResult, any, error) {
	engine := s.registry.Engine()

	var (
		result clinic.TestResult
		money  int
	)
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		var err error
		result, err = engine.RunTest(state, strings.TrimSpace(in.TestID))
		money = state.Money
		return err
	})
	if err != nil {
		return s.failed("run_test", err)
	}
	return jsonResult(map[string]any{
		"result": result,
		"money":  money,
	})
}

func (s *LiteServer) handleDiagnosis(ctx context.Context, _ *mcp.CallToolRequest, in diagnosisInput) (*mcp.CallToolResult, any, error) {
	engine := s.registry.Engine()

	var (
		outcome    *clinic.DiagnosisOutcome
		money, rep int
	)
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		var err error
		outcome, err = engine.ScoreDiagnosis(state, strings.TrimSpace(in.DiseaseID))
		money, rep = state.Money, state.Reputation
		return err
	})
	if err != nil {
		return s.failed("submit_diagnosis", err)
	}
	return jsonResult(map[string]any{
		"outcome":    outcome,
		"money":      money,
		"reputation": rep,
	})
}

func (s *LiteServer) handleTreatment(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	engine := s.registry.Engine()

	var view *clinicView
	err := s.withSession(ctx, func(state *clinic.SessionState) error {
		err := engine.FinishTreatment(state)
		view = newClinicView(state)
		return err
	})
	if err != nil {
		return s.failed("finish_treatment", err)
	}
	return jsonResult(view)
}

func (s *LiteServer) handleNewClinic(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	state, err := s.openSession(ctx)
	var view *clinicView
	if err == nil {
		view = newClinicView(state)
	}
	s.mu.Unlock()

	if err != nil {
		return s.failed("new_clinic", err)
	}
	return jsonResult(view)
}

func (s *LiteServer) handleLedgerStats(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return s.failed("ledger_stats", ledgerError(err))
	}
	return jsonResult(stats)
}

func (s *LiteServer) handleExportLedger(ctx context.Context, _ *mcp.CallToolRequest, in exportInput) (*mcp.CallToolResult, any, error) {
	name := filepath.Base(strings.TrimSpace(in.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("ledger-%s.json", time.Now().UTC().Format("20060102-150405"))
	}
	path := filepath.Join(s.config.ExportDir(), name)

	f, err := os.Create(path)
	if err != nil {
		return s.failed("export_ledger", domain.NewAPIError(domain.ErrInternalServer, fmt.Sprintf("failed to create export file: %v", err), "", ""))
	}
	exportErr := s.ledger.ExportJSON(ctx, f)
	if err := errors.Join(exportErr, f.Close()); err != nil {
		return s.failed("export_ledger", ledgerError(err))
	}

	count, err := s.ledger.Count(ctx)
	if err != nil {
		return s.failed("export_ledger", ledgerError(err))
	}
	s.logger.WithFields(logrus.Fields{"path": path, "records": count}).Info("Ledger exported")
	return jsonResult(map[string]any{"path": path, "records": count})
}

func ledgerError(err error) error {
	return domain.NewAPIError(domain.ErrDatabaseError, fmt.Sprintf("outcome ledger unavailable: %v", err), "", "")
}

// failed turns err into a tool error the agent can read and act on.
// Rejections are part of play and are not logged here; the engine already
// has.
func (s *LiteServer) failed(tool string, err error) (*mcp.CallToolResult, any, error) {
	if !clinic.IsRejection(err) {
		s.logger.WithError(err).WithField("tool_name", tool).Error("Tool call failed")
	}
	apiErr := domain.FromError(err, "")
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: apiErr.Error()}},
	}, nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func textResult(note string, v any) (*mcp.CallToolResult, any, error) {
	res, _, err := jsonResult(v)
	if err != nil {
		return nil, nil, err
	}
	res.Content = append([]mcp.Content{&mcp.TextContent{Text: note}}, res.Content...)
	return res, nil, nil
}
