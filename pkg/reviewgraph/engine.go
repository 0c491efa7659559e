package reviewgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clausereview/engine/pkg/checkpoint"
	"github.com/clausereview/engine/pkg/domain"
	"github.com/clausereview/engine/pkg/extract"
	"github.com/clausereview/engine/pkg/llms"
	"github.com/clausereview/engine/pkg/patterns"
	"github.com/clausereview/engine/pkg/registry"
	"github.com/clausereview/engine/pkg/smartparse"
	"github.com/clausereview/engine/pkg/structparse"
)

// DocumentLoader converts an uploaded file on disk into plain text. The
// concrete docx/pdf loaders live outside this module; when no loader is
// configured the engine treats the uploaded bytes as UTF-8 text.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (structparse.LoadedDocument, error)
}

// RedlineGenerator renders approved edits into a redline document. The
// engine only derives the suggestion records; rendering is external.
type RedlineGenerator interface {
	Generate(ctx context.Context, taskID string, suggestions []*domain.ModificationSuggestion) error
}

const (
	engineAppName     = "clausereview"
	engineUserID      = "default"
	defaultTaskTTL    = 30 * time.Minute
	pruneSweepEvery   = time.Minute
	parseSampleLength = 6000
)

// EngineOptions configures optional engine collaborators. Every field may
// be left zero.
type EngineOptions struct {
	// Checkpointer persists graph state at run boundaries and at the
	// human_approval interrupt, keyed by task_id.
	Checkpointer *checkpoint.Manager

	// Loader extracts text from uploaded files. Nil means uploads are
	// treated as UTF-8 text.
	Loader DocumentLoader

	// Redline, when set, receives the approved-diff suggestions as soon
	// as a task completes.
	Redline RedlineGenerator

	// TaskTTL bounds how long a completed task (and its temp directory)
	// is retained in memory. Zero selects a 30-minute default; negative
	// disables pruning.
	TaskTTL time.Duration

	// TempDir is the base directory for per-task upload directories.
	// Empty selects os.TempDir().
	TempDir string
}

// ReviewTask is one active review: its graph state plus the bookkeeping
// the inbound operations need between calls.
type ReviewTask struct {
	mu sync.Mutex

	TaskID     string
	GraphRunID string
	State      *domain.ReviewGraphState
	TempDir    string

	interrupted bool
	completedAt time.Time
}

// snapshot runs fn while holding the task lock.
func (t *ReviewTask) snapshot(fn func(state *domain.ReviewGraphState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.State)
}

// Engine exposes the inbound operations the transport layer calls:
// StartReview, UploadDocument, Run, GetStatus, GetPendingDiffs, Approve,
// ApproveBatch, Resume, GetClauseContext, GetResult. It owns the
// active-task registry and the per-task temp directories; the graph
// itself stays stateless and shared across tasks.
type Engine struct {
	graph *Graph
	llm   llms.Client
	opts  EngineOptions

	tasks *registry.BaseRegistry[*ReviewTask]

	stopPrune chan struct{}
	pruneOnce sync.Once
}

// NewEngine builds an Engine around graph. The TTL pruner starts lazily
// with the first completed task.
func NewEngine(graph *Graph, opts EngineOptions) *Engine {
	if opts.TaskTTL == 0 {
		opts.TaskTTL = defaultTaskTTL
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Engine{
		graph:     graph,
		llm:       graph.LLM,
		opts:      opts,
		tasks:     registry.NewBaseRegistry[*ReviewTask](),
		stopPrune: make(chan struct{}),
	}
}

// Close stops the background pruner. Active tasks stay in memory until
// the process exits.
func (e *Engine) Close() {
	e.pruneOnce.Do(func() {}) // mark started so the close below is safe
	select {
	case <-e.stopPrune:
	default:
		close(e.stopPrune)
	}
}

// StartReviewRequest carries the task identity and review context for a
// new task. Checklist may be nil; parse_document then generates one from
// the primary document's top-level clauses.
type StartReviewRequest struct {
	TaskID        string
	DomainID      string
	DomainSubtype string
	OurParty      string
	Language      string
	MaterialType  string
	Checklist     []*domain.ReviewChecklistItem
}

// StartReviewResponse identifies the created graph run.
type StartReviewResponse struct {
	TaskID     string `json:"task_id"`
	GraphRunID string `json:"graph_run_id"`
	Status     string `json:"status"`
}

// StartReview instantiates a graph state for the task and registers it.
// It does not begin execution; the caller uploads documents first and
// then calls Run.
func (e *Engine) StartReview(ctx context.Context, req StartReviewRequest) (*StartReviewResponse, error) {
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	state := domain.NewState(taskID)
	state.DomainID = req.DomainID
	state.OurParty = req.OurParty
	state.Language = req.Language
	state.MaterialType = req.MaterialType
	state.ReviewChecklist = req.Checklist

	task := &ReviewTask{
		TaskID:     taskID,
		GraphRunID: uuid.NewString(),
		State:      state,
		TempDir:    filepath.Join(e.opts.TempDir, "review-"+taskID),
	}
	if err := e.tasks.Register(taskID, task); err != nil {
		return nil, fmt.Errorf("task %s already exists", taskID)
	}

	e.saveCheckpoint(ctx, task, checkpoint.PhaseInitialized)
	return &StartReviewResponse{TaskID: taskID, GraphRunID: task.GraphRunID, Status: "created"}, nil
}

// UploadDocumentResponse summarizes one parsed upload.
type UploadDocumentResponse struct {
	DocumentID    string `json:"document_id"`
	TotalClauses  int    `json:"total_clauses"`
	StructureType string `json:"structure_type"`
}

// UploadDocument writes fileBytes into the task's temp directory, runs
// the full parse pipeline (pattern inference, clause-tree split, hybrid
// definition and cross-reference extraction), and binds the resulting
// structure to the task. A parse failure leaves the graph state
// untouched.
func (e *Engine) UploadDocument(ctx context.Context, taskID string, fileBytes []byte, role domain.DocumentRole, filename string) (*UploadDocumentResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(task.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create task directory: %w", err)
	}
	path := filepath.Join(task.TempDir, filepath.Base(filename))
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := structparse.LoadedDocument{Text: string(fileBytes), Path: path}
	if e.opts.Loader != nil {
		doc, err = e.opts.Loader.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
		}
	}

	// A baseline reuses the primary document's parser config so clause IDs
	// line up across the two trees.
	var existingCfg *domain.DocumentParserConfig
	task.mu.Lock()
	if role == domain.RoleBaseline {
		if primary := task.State.PrimaryDocument(); primary != nil {
			existingCfg = primary.ParserConfig
		}
	}
	task.mu.Unlock()

	documentID := uuid.NewString()
	structure, usedCfg, err := ParseDocumentText(ctx, e.llm, documentID, doc, existingCfg)
	if err != nil {
		return nil, err
	}

	task.mu.Lock()
	task.State.Documents = append(task.State.Documents, &domain.TaskDocument{
		DocumentID:   documentID,
		Role:         role,
		Filename:     filename,
		Structure:    structure,
		ParserConfig: usedCfg,
	})
	task.mu.Unlock()

	e.saveCheckpoint(ctx, task, checkpoint.PhaseInitialized)
	return &UploadDocumentResponse{
		DocumentID:    documentID,
		TotalClauses:  structure.TotalClauses,
		StructureType: structure.StructureType,
	}, nil
}

// Run drives the task's graph from init until it either completes or
// pauses at human_approval. Returns the *Interrupted marker in the
// latter case, like Graph.Ainvoke.
func (e *Engine) Run(ctx context.Context, taskID string) error {
	task, err := e.task(taskID)
	if err != nil {
		return err
	}
	task.mu.Lock()
	state := task.State
	task.mu.Unlock()

	_, err = e.graph.Ainvoke(ctx, state)
	return e.afterRun(ctx, task, err)
}

// Resume continues a task past its human_approval interrupt. The caller
// must have recorded decisions via Approve/ApproveBatch first. Resuming
// a task that is not interrupted returns a mismatch error; a second
// resume after completion is the idempotent no-op the double-resume
// property requires.
func (e *Engine) Resume(ctx context.Context, taskID string) error {
	task, err := e.task(taskID)
	if err != nil {
		return err
	}

	task.mu.Lock()
	state := task.State
	interrupted := task.interrupted
	task.mu.Unlock()

	if state.IsComplete {
		return nil
	}
	if !interrupted {
		return domain.ErrInterruptMismatch
	}

	_, err = e.graph.Resume(ctx, state)
	return e.afterRun(ctx, task, err)
}

// afterRun records the interrupt/completion outcome of an
// Ainvoke/Resume, checkpoints, and hands approved edits to the redline
// generator on completion.
func (e *Engine) afterRun(ctx context.Context, task *ReviewTask, runErr error) error {
	if interrupted, ok := runErr.(*Interrupted); ok {
		task.mu.Lock()
		task.interrupted = true
		task.mu.Unlock()
		e.saveCheckpoint(ctx, task, checkpoint.PhaseToolApproval)
		return interrupted
	}

	task.mu.Lock()
	task.interrupted = false
	complete := task.State.IsComplete
	if complete && task.completedAt.IsZero() {
		task.completedAt = time.Now()
	}
	task.mu.Unlock()

	if runErr != nil {
		e.saveCheckpoint(ctx, task, checkpoint.PhaseError)
		return runErr
	}
	e.saveCheckpoint(ctx, task, checkpoint.PhasePostLLM)

	if complete {
		e.startPruner()
		if e.opts.Redline != nil {
			suggestions := domain.SuggestionsFromDiffs(task.State.AllDiffs)
			if err := e.opts.Redline.Generate(ctx, task.TaskID, suggestions); err != nil {
				slog.Warn("reviewgraph: redline generation failed", "task_id", task.TaskID, "error", err)
			}
		}
	}
	return nil
}

// StatusResponse is a point-in-time snapshot of a task's progress.
type StatusResponse struct {
	NextNodes       []string `json:"next_nodes"`
	IsInterrupted   bool     `json:"is_interrupted"`
	CurrentClauseID string   `json:"current_clause_id,omitempty"`
	TotalClauses    int      `json:"total_clauses"`
	IsComplete      bool     `json:"is_complete"`
	Error           string   `json:"error,omitempty"`
}

// GetStatus reads the task's state snapshot.
func (e *Engine) GetStatus(taskID string) (*StatusResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{}
	task.snapshot(func(state *domain.ReviewGraphState) {
		resp.IsInterrupted = task.interrupted
		resp.CurrentClauseID = state.CurrentClauseID
		resp.IsComplete = state.IsComplete
		resp.Error = state.Error
		if state.PrimaryStructure != nil {
			resp.TotalClauses = state.PrimaryStructure.TotalClauses
		}
		switch {
		case state.IsComplete:
		case task.interrupted:
			resp.NextNodes = []string{string(NodeSaveClause)}
		default:
			resp.NextNodes = []string{string(NodeInit)}
		}
	})
	return resp, nil
}

// PendingDiffsResponse lists the diffs awaiting decision for the clause
// the graph is paused on.
type PendingDiffsResponse struct {
	PendingDiffs []*domain.DocumentDiff `json:"pending_diffs"`
	ClauseID     string                 `json:"clause_id,omitempty"`
}

// GetPendingDiffs reads the diffs parked at the interrupt boundary.
func (e *Engine) GetPendingDiffs(taskID string) (*PendingDiffsResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}
	resp := &PendingDiffsResponse{}
	task.snapshot(func(state *domain.ReviewGraphState) {
		resp.PendingDiffs = state.PendingDiffs
		resp.ClauseID = state.CurrentClauseID
	})
	return resp, nil
}

// Approval is one human decision on a pending diff.
type Approval struct {
	DiffID           string              `json:"diff_id"`
	Decision         domain.UserDecision `json:"decision"`
	Feedback         string              `json:"feedback,omitempty"`
	UserModifiedText string              `json:"user_modified_text,omitempty"`
}

// ApproveResponse reports the diff's status after the decision.
type ApproveResponse struct {
	DiffID    string            `json:"diff_id"`
	NewStatus domain.DiffStatus `json:"new_status"`
}

// Approve merges one decision into the task's state. The decision is
// recorded but not applied to the diff's status until save_clause runs
// on resume; the response reports the status it will transition to.
func (e *Engine) Approve(ctx context.Context, taskID string, approval Approval) (*ApproveResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}

	task.mu.Lock()
	defer task.mu.Unlock()

	if !task.interrupted {
		return nil, domain.ErrInterruptMismatch
	}

	var target *domain.DocumentDiff
	for _, d := range task.State.PendingDiffs {
		if d.DiffID == approval.DiffID {
			target = d
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: diff %s is not pending for task %s", domain.ErrInterruptMismatch, approval.DiffID, taskID)
	}

	if task.State.UserDecisions == nil {
		task.State.UserDecisions = make(map[string]domain.UserDecision)
	}
	task.State.UserDecisions[approval.DiffID] = approval.Decision
	if approval.Feedback != "" {
		task.State.UserFeedback = approval.Feedback
	}
	if approval.UserModifiedText != "" {
		target.ProposedText = approval.UserModifiedText
	}

	status := domain.DiffStatusApproved
	if approval.Decision == domain.DecisionReject {
		status = domain.DiffStatusRejected
	}
	return &ApproveResponse{DiffID: approval.DiffID, NewStatus: status}, nil
}

// ApproveBatch merges many decisions at once, stopping on the first
// failure.
func (e *Engine) ApproveBatch(ctx context.Context, taskID string, approvals []Approval) ([]*ApproveResponse, error) {
	out := make([]*ApproveResponse, 0, len(approvals))
	for _, a := range approvals {
		resp, err := e.Approve(ctx, taskID, a)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// ClauseContextResponse is one clause's position and text in the primary
// document.
type ClauseContextResponse struct {
	ClauseID    string `json:"clause_id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Level       int    `json:"level"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// GetClauseContext walks the stored primary structure for clauseID.
func (e *Engine) GetClauseContext(taskID, clauseID string) (*ClauseContextResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}

	var node *domain.ClauseNode
	task.snapshot(func(state *domain.ReviewGraphState) {
		structure := state.PrimaryStructure
		if structure == nil {
			if doc := state.PrimaryDocument(); doc != nil {
				structure = doc.Structure
			}
		}
		node = structure.FindClause(clauseID)
	})
	if node == nil {
		return nil, fmt.Errorf("clause %s not found in task %s", clauseID, taskID)
	}
	return &ClauseContextResponse{
		ClauseID:    node.ClauseID,
		Title:       node.Title,
		Text:        node.Text,
		Level:       node.Level,
		StartOffset: node.StartOffset,
		EndOffset:   node.EndOffset,
	}, nil
}

// ResultResponse is the final review outcome.
type ResultResponse struct {
	IsComplete    bool                              `json:"is_complete"`
	SummaryNotes  string                            `json:"summary_notes,omitempty"`
	TotalRisks    int                               `json:"total_risks"`
	ApprovedCount int                               `json:"approved_count"`
	RejectedCount int                               `json:"rejected_count"`
	Findings      map[string]*domain.ClauseFindings `json:"findings"`
	AllRisks      []*domain.Risk                    `json:"all_risks"`
}

// GetResult reads the final state. Valid before completion too; the
// counts then reflect progress so far.
func (e *Engine) GetResult(taskID string) (*ResultResponse, error) {
	task, err := e.task(taskID)
	if err != nil {
		return nil, err
	}

	resp := &ResultResponse{}
	task.snapshot(func(state *domain.ReviewGraphState) {
		resp.IsComplete = state.IsComplete
		resp.SummaryNotes = state.SummaryNotes
		resp.TotalRisks = len(state.AllRisks)
		resp.Findings = state.Findings
		resp.AllRisks = state.AllRisks
		for _, f := range state.Findings {
			for _, d := range f.Diffs {
				switch d.Status {
				case domain.DiffStatusApproved:
					resp.ApprovedCount++
				case domain.DiffStatusRejected:
					resp.RejectedCount++
				}
			}
		}
	})
	return resp, nil
}

func (e *Engine) task(taskID string) (*ReviewTask, error) {
	task, ok := e.tasks.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

func (e *Engine) saveCheckpoint(ctx context.Context, task *ReviewTask, phase checkpoint.Phase) {
	if e.opts.Checkpointer == nil {
		return
	}
	task.mu.Lock()
	cp := checkpoint.NewState(task.TaskID, task.TaskID, engineUserID, engineAppName).
		WithPhase(phase).
		WithReviewState(task.State)
	task.mu.Unlock()

	if err := e.opts.Checkpointer.SaveCheckpoint(ctx, cp); err != nil {
		slog.Warn("reviewgraph: checkpoint save failed", "task_id", task.TaskID, "error", err)
	}
}

// startPruner launches the TTL sweeper on first completion.
func (e *Engine) startPruner() {
	if e.opts.TaskTTL < 0 {
		return
	}
	e.pruneOnce.Do(func() {
		go e.pruneLoop()
	})
}

func (e *Engine) pruneLoop() {
	ticker := time.NewTicker(pruneSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopPrune:
			return
		case <-ticker.C:
			e.pruneExpired()
		}
	}
}

// pruneExpired removes completed tasks older than the TTL and their temp
// directories.
func (e *Engine) pruneExpired() {
	for _, task := range e.tasks.List() {
		task.mu.Lock()
		expired := !task.completedAt.IsZero() && time.Since(task.completedAt) > e.opts.TaskTTL
		task.mu.Unlock()
		if !expired {
			continue
		}
		if err := e.tasks.Remove(task.TaskID); err != nil {
			continue
		}
		if task.TempDir != "" {
			if err := os.RemoveAll(task.TempDir); err != nil {
				slog.Warn("reviewgraph: failed to remove task directory", "task_id", task.TaskID, "error", err)
			}
		}
		slog.Info("reviewgraph: pruned completed task", "task_id", task.TaskID)
	}
}

// ParseDocumentText runs the full document parse pipeline: parser-config
// inference from a leading sample, clause-tree split, then the hybrid
// definition and cross-reference extractors over the resulting tree. The
// returned config can be reused to parse a sibling document (e.g. a
// baseline) with the same clause pattern.
func ParseDocumentText(ctx context.Context, client llms.Client, documentID string, doc structparse.LoadedDocument, existingConfig *domain.DocumentParserConfig) (*domain.DocumentStructure, *domain.DocumentParserConfig, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil, fmt.Errorf("%w: document %s is empty", domain.ErrParseFailure, doc.Path)
	}

	sample := doc.Text
	if r := []rune(sample); len(r) > parseSampleLength {
		sample = string(r[:parseSampleLength])
	}
	cfg := smartparse.Infer(ctx, client, sample, doc.Text, existingConfig)

	structure, err := structparse.Parse(documentID, doc, cfg)
	if err != nil {
		return nil, nil, err
	}

	// Hybrid definitions: the narrow focus is the definitions section's
	// full text when one was identified, else the whole document.
	sectionText := doc.Text
	if cfg.DefinitionsSectionID != "" {
		if node := structure.FindClause(cfg.DefinitionsSectionID); node != nil {
			sectionText = node.FullText()
		}
	}
	defs := extract.Definitions(ctx, client, sectionText, doc.Text)
	for _, d := range defs {
		if d.SourceClauseID == "" && d.Source == domain.DefinitionSourceRegex {
			d.SourceClauseID = cfg.DefinitionsSectionID
		}
	}
	structure.DefinitionsV2 = defs
	structure.Definitions = make(map[string]string, len(defs))
	for _, d := range defs {
		structure.Definitions[d.Term] = d.DefinitionText
	}

	// Hybrid cross-references replace the regex-only pass the structure
	// parser ran; the extractor reruns the same regex phase and
	// supplements it with a bounded LLM pass.
	idSet := domain.ClauseIDSet(structure.Clauses)
	extra := patterns.CompileExtraPatterns(cfg.CrossReferencePatterns)
	structure.CrossReferences = extract.CrossReferences(ctx, client, flattenClauses(structure.Clauses), idSet, extra)

	return structure, cfg, nil
}

// flattenClauses lists every node's own text in depth-first order.
func flattenClauses(forest []*domain.ClauseNode) []extract.ClauseText {
	var out []extract.ClauseText
	var walk func(n *domain.ClauseNode)
	walk = func(n *domain.ClauseNode) {
		out = append(out, extract.ClauseText{ClauseID: n.ClauseID, Text: n.Text})
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return out
}
