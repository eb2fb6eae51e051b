package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/config"
	"github.com/EcliqseX/vetsim/internal/ledger"
	"github.com/EcliqseX/vetsim/internal/random"
)

// newTestServer builds a server where every patient is Daisy the Rabbit
// with diabetes and every test comes back negative.
func newTestServer(t *testing.T, opts ...LiteServerOption) *LiteServer {
	t.Helper()

	cfg := &config.LiteConfig{
		DataDir:     filepath.Join(t.TempDir(), "vetsim"),
		MaxSessions: 4,
		SessionTTL:  time.Hour,
		LogLevel:    "error",
		LogFormat:   "json",
	}
	logger, _ := test.NewNullLogger()
	opts = append([]LiteServerOption{
		WithLogger(logger),
		WithRandomSource(random.Fixed{Float: 0.99}),
	}, opts...)

	server, err := NewLiteServer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	return server
}

func connect(t *testing.T, server *LiteServer) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Server().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		_ = serverSession.Wait()
	})
	return session
}

// call invokes a tool and returns its text content and error flag.
func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)

	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n"), res.IsError
}

func decode(t *testing.T, text string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(text), v), text)
}

func TestNewLiteServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.Server())
	assert.NotNil(t, server.registry)
	assert.NotNil(t, server.recorder)
	assert.DirExists(t, server.config.ExportDir())
	assert.FileExists(t, server.config.LedgerDBPath())
}

func TestNewLiteServer_BadCatalog(t *testing.T) {
	cfg := &config.LiteConfig{
		DataDir:     t.TempDir(),
		CatalogPath: filepath.Join(t.TempDir(), "missing.yaml"),
		MaxSessions: 1,
		SessionTTL:  time.Minute,
		LogLevel:    "info",
	}

	_, err := NewLiteServer(cfg)

	assert.ErrorContains(t, err, "failed to load catalog")
}

func TestLiteServer_ListTools(t *testing.T) {
	session := connect(t, newTestServer(t))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"clinic_status", "list_diseases", "list_tests",
		"call_next_patient", "view_patient", "run_test",
		"submit_diagnosis", "finish_treatment", "new_clinic",
		"ledger_stats", "export_ledger",
	}, names)
}

func TestLiteServer_PatientCycle(t *testing.T) {
	server := newTestServer(t)
	session := connect(t, server)

	// Arrange: the clinic opens with starting funds.
	text, isErr := call(t, session, "clinic_status", nil)
	require.False(t, isErr, text)
	var status clinicView
	decode(t, text, &status)
	assert.Equal(t, 100, status.Money)
	assert.Equal(t, 50, status.Reputation)
	assert.Len(t, status.Waiting, 5)
	assert.Nil(t, status.Current)

	// Act: call the patient in and run a blood panel.
	text, isErr = call(t, session, "call_next_patient", nil)
	require.False(t, isErr, text)
	var patient patientView
	decode(t, text, &patient)
	assert.Equal(t, "Daisy", patient.PetName)
	assert.Equal(t, "Dana", patient.Owner)

	text, isErr = call(t, session, "run_test", map[string]any{"test_id": "blood"})
	require.False(t, isErr, text)
	var testRun struct {
		Result struct {
			TestID   string `json:"test_id"`
			Positive bool   `json:"positive"`
		} `json:"result"`
		Money int `json:"money"`
	}
	decode(t, text, &testRun)
	assert.Equal(t, "blood", testRun.Result.TestID)
	assert.False(t, testRun.Result.Positive)
	assert.Equal(t, 80, testRun.Money)

	text, isErr = call(t, session, "submit_diagnosis", map[string]any{"disease_id": "diabetes"})
	require.False(t, isErr, text)
	var scored struct {
		Outcome struct {
			Correct    bool `json:"correct"`
			MoneyDelta int  `json:"money_delta"`
		} `json:"outcome"`
		Money      int `json:"money"`
		Reputation int `json:"reputation"`
	}
	decode(t, text, &scored)
	assert.True(t, scored.Outcome.Correct)
	assert.Equal(t, 80, scored.Outcome.MoneyDelta)
	assert.Equal(t, 160, scored.Money)
	assert.Equal(t, 55, scored.Reputation)

	text, isErr = call(t, session, "finish_treatment", nil)
	require.False(t, isErr, text)

	// Assert
	decode(t, text, &status)
	assert.Nil(t, status.Current)
	assert.Equal(t, 1, status.Stats.Treated)
	assert.Equal(t, 1, status.Stats.Correct)
	assert.Len(t, status.Waiting, 5)
	assert.Equal(t, "Treatment given to Daisy. Pet is recovering.", status.RecentLog[len(status.RecentLog)-1].Message)

	text, isErr = call(t, session, "ledger_stats", nil)
	require.False(t, isErr, text)
	var stats ledger.Stats
	decode(t, text, &stats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Correct)
	assert.Equal(t, 1.0, stats.AvgTestsUsed)
}

func TestLiteServer_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		tool  string
		args  map[string]any
		code  string
	}{
		{name: "view without patient", tool: "view_patient", code: "NO_CURRENT_CASE"},
		{name: "test without patient", tool: "run_test", args: map[string]any{"test_id": "blood"}, code: "NO_CURRENT_CASE"},
		{name: "treat without patient", tool: "finish_treatment", code: "NO_CURRENT_CASE"},
		{name: "second patient", setup: []string{"call_next_patient"}, tool: "call_next_patient", code: "PATIENT_ALREADY_ACTIVE"},
		{name: "unknown test", setup: []string{"call_next_patient"}, tool: "run_test", args: map[string]any{"test_id": "mri"}, code: "UNKNOWN_TEST"},
		{name: "urine on a rabbit", setup: []string{"call_next_patient"}, tool: "run_test", args: map[string]any{"test_id": "urine"}, code: "TEST_UNAVAILABLE"},
		{name: "empty diagnosis", setup: []string{"call_next_patient"}, tool: "submit_diagnosis", args: map[string]any{"disease_id": " "}, code: "NO_SELECTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := connect(t, newTestServer(t))
			for _, step := range tt.setup {
				text, isErr := call(t, session, step, nil)
				require.False(t, isErr, text)
			}

			text, isErr := call(t, session, tt.tool, tt.args)

			assert.True(t, isErr)
			assert.True(t, strings.HasPrefix(text, tt.code+": "), text)
		})
	}
}

func TestLiteServer_RejectionLeavesMoney(t *testing.T) {
	session := connect(t, newTestServer(t))
	_, _ = call(t, session, "call_next_patient", nil)

	_, isErr := call(t, session, "run_test", map[string]any{"test_id": "urine"})
	require.True(t, isErr)

	text, _ := call(t, session, "clinic_status", nil)
	var status clinicView
	decode(t, text, &status)
	assert.Equal(t, 100, status.Money)
	assert.Contains(t, status.RecentLog[len(status.RecentLog)-1].Message, "Test not available")
}

func TestLiteServer_NewClinic(t *testing.T) {
	session := connect(t, newTestServer(t))
	text, _ := call(t, session, "clinic_status", nil)
	var before clinicView
	decode(t, text, &before)
	_, _ = call(t, session, "call_next_patient", nil)
	_, _ = call(t, session, "run_test", map[string]any{"test_id": "xray"})

	text, isErr := call(t, session, "new_clinic", nil)
	require.False(t, isErr, text)

	var after clinicView
	decode(t, text, &after)
	assert.NotEqual(t, before.SessionID, after.SessionID)
	assert.Equal(t, 100, after.Money)
	assert.Nil(t, after.Current)

	text, _ = call(t, session, "clinic_status", nil)
	var status clinicView
	decode(t, text, &status)
	assert.Equal(t, after.SessionID, status.SessionID)
}

func TestLiteServer_ExportLedger(t *testing.T) {
	server := newTestServer(t)
	session := connect(t, server)
	_, _ = call(t, session, "call_next_patient", nil)
	_, _ = call(t, session, "submit_diagnosis", map[string]any{"disease_id": "mange"})

	text, isErr := call(t, session, "export_ledger", map[string]any{"filename": "../escape.json"})
	require.False(t, isErr, text)

	var out struct {
		Path    string `json:"path"`
		Records int64  `json:"records"`
	}
	decode(t, text, &out)
	assert.Equal(t, filepath.Join(server.config.ExportDir(), "escape.json"), out.Path)
	assert.Equal(t, int64(1), out.Records)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	var export ledger.Export
	require.NoError(t, json.Unmarshal(data, &export))
	require.Len(t, export.Records, 1)
	assert.False(t, export.Records[0].Correct)
	assert.Equal(t, "diabetes", export.Records[0].ActualDiseaseID)
}

type brokenLedger struct {
	ledger.Store
}

func (brokenLedger) Stats(context.Context) (*ledger.Stats, error) {
	return nil, errors.New("disk on fire")
}

func (brokenLedger) Close() error { return nil }

func TestLiteServer_LedgerFailure(t *testing.T) {
	session := connect(t, newTestServer(t, WithLedgerStore(brokenLedger{})))

	text, isErr := call(t, session, "ledger_stats", nil)

	assert.True(t, isErr)
	assert.Equal(t, "DATABASE_ERROR: outcome ledger unavailable: disk on fire", text)
}

func TestLiteServer_Resources(t *testing.T) {
	session := connect(t, newTestServer(t))
	ctx := context.Background()

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: catalogURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	cat, err := catalog.Parse(strings.NewReader(res.Contents[0].Text))
	require.NoError(t, err)
	assert.Len(t, cat.Diseases(), len(catalog.Default().Diseases()))

	res, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: ledgerStatsURI})
	require.NoError(t, err)
	var stats ledger.Stats
	decode(t, res.Contents[0].Text, &stats)
	assert.Zero(t, stats.Total)
}

func TestLiteServer_BriefingPrompt(t *testing.T) {
	session := connect(t, newTestServer(t))

	res, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name:      "clinic_briefing",
		Arguments: map[string]string{"goal": "accuracy"},
	})

	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "You start with $100 and a reputation of 50")
	assert.Contains(t, text.Text, "Your goal this session: accuracy.")
}
