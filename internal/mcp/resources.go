package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	catalogURI     = "vetsim://catalog"
	ledgerStatsURI = "vetsim://ledger/stats"
)

// registerResources exposes the catalog and the ledger summary as
// read-only resources, and a briefing prompt that teaches the game.
func (s *LiteServer) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         catalogURI,
		Name:        "catalog",
		Description: "Diseases and diagnostic tests the clinic plays with, as YAML.",
		MIMEType:    "application/yaml",
	}, s.readCatalog)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ledgerStatsURI,
		Name:        "ledger-stats",
		Description: "Accuracy over every diagnosis recorded so far.",
		MIMEType:    "application/json",
	}, s.readLedgerStats)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "clinic_briefing",
		Description: "Rules of the clinic and a suggested way to play.",
		Arguments: []*mcp.PromptArgument{{
			Name:        "goal",
			Description: "What to optimise for, e.g. money or accuracy",
		}},
	}, s.briefing)

	s.logger.WithField("resources", 2).Debug("Registered MCP resources and prompts")
}

func (s *LiteServer) readCatalog(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	var buf bytes.Buffer
	if err := s.registry.Engine().Catalog().Encode(&buf); err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/yaml",
			Text:     buf.String(),
		}},
	}, nil
}

func (s *LiteServer) readLedgerStats(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger stats: %w", err)
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *LiteServer) briefing(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	settings := s.registry.Engine().Settings()

	var b strings.Builder
	fmt.Fprintf(&b, "You run a small veterinary clinic. You start with $%d and a reputation of %d out of 100.\n\n",
		settings.StartingMoney, settings.StartingReputation)
	b.WriteString("Each patient arrives with a hidden disease and a few observed symptoms, some of which may be noise.\n")
	b.WriteString("1. call_next_patient brings the next pet into the exam room. Only one patient at a time.\n")
	b.WriteString("2. run_test costs money and returns a probabilistic result. Negative results are not proof.\n")
	b.WriteString("3. submit_diagnosis scores your answer once. A correct one pays the treatment reward plus a bonus for using fewer than three tests; a wrong one costs money and reputation.\n")
	b.WriteString("4. finish_treatment sends the pet home and admits a new patient.\n\n")
	b.WriteString("Read list_diseases and list_tests first. clinic_status shows your money, reputation and the activity log.")

	if goal := strings.TrimSpace(req.Params.Arguments["goal"]); goal != "" {
		fmt.Fprintf(&b, "\n\nYour goal this session: %s.", goal)
	}

	return &mcp.GetPromptResult{
		Description: "How to play vetsim",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: b.String()},
		}},
	}, nil
}
