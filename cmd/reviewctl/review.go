// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/embedders"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/observability"
	"github.com/clausereview/engine/pkg/ratelimit"
	"github.com/clausereview/engine/pkg/reviewgraph"
	"github.com/clausereview/engine/pkg/skills"
	"github.com/clausereview/engine/pkg/skills/local"
	"github.com/clausereview/engine/pkg/structparse"
	"github.com/clausereview/engine/pkg/vector"
)

// ReviewCmd runs the clause-review graph over one primary document,
// optionally diffing against a baseline and searching an Employer's
// Requirements document, pausing at every human_approval interrupt for an
// interactive (or auto) decision.
type ReviewCmd struct {
	Document string `arg:"" name:"document" help:"Path to the primary contract document." placeholder:"PATH"`

	Baseline     string `help:"Path to a prior version of the document to diff clauses against." placeholder:"PATH"`
	ErDocument   string `name:"er-document" help:"Path to the Employer's Requirements document, enables fidic_search_er." placeholder:"PATH"`
	CriteriaFile string `name:"criteria-file" help:"Path to a JSON review-criteria playbook, enables load_review_criteria." placeholder:"PATH"`

	VectorStore string `name:"vector-store" help:"Vector store backing criteria similarity search (chromem, qdrant, ...); empty uses in-process cosine ranking." placeholder:"TYPE"`

	DomainID     string `name:"domain" help:"Domain id used to filter skills and route gen3 planning." default:"fidic"`
	MaterialType string `name:"material-type" help:"Material type tag carried on the review state."`
	OurParty     string `name:"our-party" help:"Name of the party this review represents."`

	LLM      string `help:"Name of the llms entry in the config file to use." default:"default"`
	Embedder string `help:"Name of the embedders entry in the config file to use." default:"default"`

	AutoApprove bool   `name:"auto-approve" help:"Approve every pending diff automatically instead of prompting."`
	Output      string `short:"o" help:"Write the final review state as JSON to this path instead of stdout." placeholder:"PATH"`

	Trace   bool `help:"Enable OpenTelemetry tracing around LLM and skill calls."`
	Metrics bool `help:"Enable Prometheus metrics collection."`
}

func (c *ReviewCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	taskID := uuid.NewString()

	llmClient, err := buildLLMClient(cfg, c.LLM)
	if err != nil {
		return fmt.Errorf("failed to build LLM client: %w", err)
	}
	if llmClient != nil {
		defer llmClient.Close()
	}

	var tracer *observability.Tracer
	var metrics *observability.Metrics
	if c.Trace || c.Metrics {
		obsCfg := &observability.Config{}
		obsCfg.Tracing.Enabled = c.Trace
		obsCfg.Metrics.Enabled = c.Metrics
		obs, err := observability.NewManager(ctx, obsCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		defer obs.Shutdown(context.Background())
		tracer, metrics = obs.Tracer(), obs.Metrics()
	}

	pool := config.NewDBPool()
	defer pool.Close()
	limiter, err := ratelimit.NewRateLimiterFromConfig(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to build rate limiter: %w", err)
	}

	if llmClient != nil && (limiter != nil || tracer != nil || metrics != nil) {
		llmClient = llms.NewInstrumented(llmClient, limiter, ratelimit.ScopeSession, taskID, tracer, metrics)
	}

	primaryDoc, primaryParserCfg, err := loadDocument(ctx, llmClient, "primary", c.Document, nil)
	if err != nil {
		return fmt.Errorf("failed to parse primary document: %w", err)
	}

	documents := []*domain.TaskDocument{
		{DocumentID: primaryDoc.DocumentID, Role: domain.RolePrimary, Filename: c.Document, Structure: primaryDoc},
	}

	if c.Baseline != "" {
		// Reuse the primary document's parser config so baseline clause IDs
		// line up with the primary document's for compare_with_baseline.
		baselineDoc, _, err := loadDocument(ctx, llmClient, "baseline", c.Baseline, primaryParserCfg)
		if err != nil {
			return fmt.Errorf("failed to parse baseline document: %w", err)
		}
		documents = append(documents, &domain.TaskDocument{
			DocumentID: baselineDoc.DocumentID, Role: domain.RoleBaseline, Filename: c.Baseline, Structure: baselineDoc,
		})
	}

	var embedderProvider embedders.EmbedderProvider
	var erStructure *domain.DocumentStructure
	if c.ErDocument != "" || c.CriteriaFile != "" {
		embedderProvider, err = buildEmbedder(cfg, c.Embedder)
		if err != nil {
			return fmt.Errorf("failed to build embedder: %w", err)
		}
		defer embedderProvider.Close()
	}
	if c.ErDocument != "" {
		erStructure, _, err = loadDocument(ctx, llmClient, "er", c.ErDocument, nil)
		if err != nil {
			return fmt.Errorf("failed to parse Employer's Requirements document: %w", err)
		}
		documents = append(documents, &domain.TaskDocument{
			DocumentID: erStructure.DocumentID, Role: domain.RoleReference, Filename: c.ErDocument, Structure: erStructure,
		})
	}

	var criteria []local.ReviewCriterion
	if c.CriteriaFile != "" {
		criteria, err = loadCriteria(c.CriteriaFile)
		if err != nil {
			return fmt.Errorf("failed to load review criteria: %w", err)
		}
	}

	var criteriaStore vector.Provider
	if c.VectorStore != "" && len(criteria) > 0 {
		storeCfg := &vector.ProviderConfig{Type: vector.ProviderType(c.VectorStore)}
		storeCfg.SetDefaults()
		criteriaStore, err = vector.NewProvider(storeCfg)
		if err != nil {
			return fmt.Errorf("failed to build vector store: %w", err)
		}
		defer criteriaStore.Close()
	}

	dispatcher := skills.NewDispatcher(0).WithObservability(tracer, metrics)
	if err := local.RegisterAll(dispatcher, local.Deps{
		Client:      llmClient,
		Embedder:    embedderProvider,
		ErStructure: erStructure,
		Criteria:    criteria,
		VectorStore: criteriaStore,
	}); err != nil {
		return fmt.Errorf("failed to register skills: %w", err)
	}

	state := domain.NewState(taskID)
	state.Documents = documents
	state.DomainID = c.DomainID
	state.MaterialType = c.MaterialType
	state.OurParty = c.OurParty

	graph := reviewgraph.New(dispatcher, llmClient, cfg.Review)

	state, err = graph.Ainvoke(ctx, state)
	for {
		var interrupted *reviewgraph.Interrupted
		if !errors.As(err, &interrupted) {
			break
		}
		if err := decidePendingDiffs(state, c.AutoApprove); err != nil {
			return err
		}
		state, err = graph.Resume(ctx, state)
	}
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	return writeResult(state, c.Output)
}

// decidePendingDiffs records an approve/reject decision for every pending
// diff into state.UserDecisions, either automatically or by prompting on
// stdin, before the caller resumes the graph past human_approval.
func decidePendingDiffs(state *domain.ReviewGraphState, autoApprove bool) error {
	if state.UserDecisions == nil {
		state.UserDecisions = make(map[string]domain.UserDecision)
	}

	fmt.Printf("\n--- Clause %s: %d pending diff(s) ---\n", state.CurrentClauseID, len(state.PendingDiffs))
	reader := bufio.NewReader(os.Stdin)
	for _, diff := range state.PendingDiffs {
		fmt.Printf("[%s] %s risk: %s\n  reason: %s\n", diff.DiffID, diff.ActionType, diff.RiskLevel, diff.Reason)
		if diff.OriginalText != "" {
			fmt.Printf("  - %s\n", diff.OriginalText)
		}
		if diff.ProposedText != "" {
			fmt.Printf("  + %s\n", diff.ProposedText)
		}

		if autoApprove {
			state.UserDecisions[diff.DiffID] = domain.DecisionApprove
			continue
		}

		fmt.Print("  approve? [Y/n] ")
		line, _ := reader.ReadString('\n')
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "n") {
			state.UserDecisions[diff.DiffID] = domain.DecisionReject
		} else {
			state.UserDecisions[diff.DiffID] = domain.DecisionApprove
		}
	}
	return nil
}

func writeResult(state *domain.ReviewGraphState, path string) error {
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review result: %w", err)
	}

	fmt.Printf("\n%s\n", state.SummaryNotes)

	if path == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write result to %s: %w", path, err)
	}
	fmt.Printf("Wrote review result to %s\n", path)
	return nil
}

func buildLLMClient(cfg *config.Config, name string) (llms.Client, error) {
	llmCfg, ok := cfg.GetLLM(name)
	if !ok {
		llmCfg = &config.LLMProviderConfig{}
		llmCfg.SetDefaults()
	}
	registry := llms.NewClientRegistry()
	return registry.CreateClientFromConfig(name, llmCfg)
}

func buildEmbedder(cfg *config.Config, name string) (embedders.EmbedderProvider, error) {
	embCfg, ok := cfg.GetEmbedder(name)
	if !ok {
		embCfg = &config.EmbedderProviderConfig{}
		embCfg.SetDefaults()
	}
	registry := embedders.NewEmbedderRegistry()
	return registry.CreateEmbedderFromConfig(name, embCfg)
}

// loadDocument reads path and runs the full parse pipeline: parser-config
// detection (or reuse), clause-tree split, and the hybrid definition and
// cross-reference extractors. A nil llmClient still works: every LLM
// phase degrades to its regex-only pass. It returns the parser config
// used, so a second document (e.g. a baseline) can be parsed with the
// same clause pattern.
func loadDocument(ctx context.Context, llmClient llms.Client, documentID, path string, existingConfig *domain.DocumentParserConfig) (*domain.DocumentStructure, *domain.DocumentParserConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc := structparse.LoadedDocument{Text: string(raw), Path: path}
	return reviewgraph.ParseDocumentText(ctx, llmClient, documentID, doc, existingConfig)
}

func loadCriteria(path string) ([]local.ReviewCriterion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var criteria []local.ReviewCriterion
	if err := json.Unmarshal(raw, &criteria); err != nil {
		return nil, fmt.Errorf("invalid criteria file: %w", err)
	}
	return criteria, nil
}
