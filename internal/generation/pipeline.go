// Package generation turns a prompt into a stored website while streaming
// progress to the caller.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"sitegen/internal/database"
	"sitegen/internal/metrics"
)

var (
	// ErrInsufficientCredits is returned by Admit when the balance is exhausted
	// or the caller has no profile yet.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrBanned is returned by Admit for suspended accounts.
	ErrBanned = errors.New("account is suspended")
	// ErrEmptyOutput is reported when the model produced no usable HTML.
	ErrEmptyOutput = errors.New("model returned no HTML")
)

// InsufficientCreditsMessage is shown to users who ran out of credits.
const InsufficientCreditsMessage = "Insufficient credits. Please purchase more."

// Completer returns a whole reply for one exchange.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Streamer delivers a reply incrementally.
type Streamer interface {
	Stream(ctx context.Context, system, user string, onDelta func(string) error) error
	Model() string
}

// Store is the subset of database.Store the pipeline needs.
type Store interface {
	GetProfile(ctx context.Context, id string) (*database.Profile, error)
	GetProject(ctx context.Context, projectID, userID string) (*database.Project, error)
	UpdateProjectContent(ctx context.Context, projectID, userID, html string) error
	SaveVersion(ctx context.Context, projectID, userID, html, label string) (*database.ProjectVersion, error)
	DeductCredit(ctx context.Context, userID string) error
	InsertAiLog(ctx context.Context, entry *database.AiLog) error
}

// ThumbnailQueue schedules a thumbnail render after a successful generation.
type ThumbnailQueue interface {
	EnqueueThumbnail(projectID, correlationID string) error
}

// Request is one generate or edit call.
type Request struct {
	UserID          string
	ProjectID       string
	Prompt          string
	IsEdit          bool
	SelectedElement string
	CurrentHTML     string
	CorrelationID   string
}

func (r Request) mode() string {
	if r.IsEdit {
		return "edit"
	}
	return "generate"
}

// Pipeline sequences enhancement, streamed generation, persistence and logging.
type Pipeline struct {
	store      Store
	enhancer   Completer
	generator  Streamer
	thumbnails ThumbnailQueue
	logger     *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithThumbnailQueue enqueues a thumbnail after every successful run.
func WithThumbnailQueue(q ThumbnailQueue) Option {
	return func(p *Pipeline) { p.thumbnails = q }
}

// WithLogger sets the fallback logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline wires the pipeline.
func NewPipeline(store Store, enhancer Completer, generator Streamer, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		enhancer:  enhancer,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Job is an admitted request, ready to stream.
type Job struct {
	pipeline *Pipeline
	req      Request
	project  *database.Project
	logger   *slog.Logger
}

// Admit runs every check that must pass before a single byte is streamed:
// the project belongs to the caller and the caller has credit left.
// Errors are database.ErrNotFound, database.ErrAccessDenied, ErrBanned or
// ErrInsufficientCredits.
func (p *Pipeline) Admit(ctx context.Context, req Request, logger *slog.Logger) (*Job, error) {
	profile, err := p.store.GetProfile(ctx, req.UserID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrInsufficientCredits
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.IsBanned {
		return nil, ErrBanned
	}
	if profile.Credits <= 0 {
		return nil, ErrInsufficientCredits
	}

	project, err := p.store.GetProject(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = p.logger
	}
	return &Job{
		pipeline: p,
		req:      req,
		project:  project,
		logger:   logger.With(slog.String("project_id", req.ProjectID), slog.String("mode", req.mode())),
	}, nil
}

type runState struct {
	enhanced string
	chunks   int
	output   int
}

// Run executes the phases in order and always ends the stream with exactly
// one done or error event. It writes exactly one AiLog row. The returned
// error is the failure already reported to the client, if any.
func (j *Job) Run(ctx context.Context, emit Emitter) error {
	p := j.pipeline
	start := time.Now()
	state := &runState{}

	runErr := j.run(ctx, emit, state)

	outcome := metrics.OutcomeSuccess
	entry := &database.AiLog{
		UserID:         j.req.UserID,
		ProjectID:      j.req.ProjectID,
		OriginalPrompt: j.req.Prompt,
		EnhancedPrompt: state.enhanced,
		ModelUsed:      p.generator.Model(),
		Success:        runErr == nil,
		Metadata:       j.metadata(state, time.Since(start)),
	}
	if runErr != nil {
		outcome = metrics.OutcomeFailure
		entry.ErrorMessage = runErr.Error()
	}

	// The request context may already be cancelled by a disconnect; the
	// audit row is written regardless.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.store.InsertAiLog(logCtx, entry); err != nil {
		j.logger.Error("insert ai log", slog.Any("error", err))
	}
	metrics.ObserveGeneration(j.req.mode(), outcome, state.chunks, time.Since(start))

	if runErr != nil {
		j.logger.Warn("generation failed", slog.Any("error", runErr))
		if err := emit.Emit(EventError, ErrorData{Message: errorMessage(runErr)}); err != nil {
			j.logger.Debug("emit error event", slog.Any("error", err))
		}
		return runErr
	}

	if err := emit.Emit(EventDone, DoneData{ProjectID: j.req.ProjectID, Message: msgDone}); err != nil {
		j.logger.Debug("emit done event", slog.Any("error", err))
	}
	j.logger.Info("generation completed",
		slog.Int("chunks", state.chunks),
		slog.Int("bytes", state.output),
		slog.Duration("elapsed", time.Since(start)),
	)

	if p.thumbnails != nil {
		if err := p.thumbnails.EnqueueThumbnail(j.req.ProjectID, j.req.CorrelationID); err != nil {
			j.logger.Warn("enqueue thumbnail", slog.Any("error", err))
		}
	}
	return nil
}

func (j *Job) run(ctx context.Context, emit Emitter, state *runState) error {
	p := j.pipeline

	if err := emit.Emit(EventStatus, StatusData{Message: msgEnhancing, Step: 1}); err != nil {
		return fmt.Errorf("emit status: %w", err)
	}

	enhanced, err := j.enhance(ctx)
	if err != nil {
		return err
	}
	state.enhanced = enhanced

	if err := emit.Emit(EventEnhancedPrompt, EnhancedPromptData{Prompt: enhanced}); err != nil {
		return fmt.Errorf("emit enhanced prompt: %w", err)
	}
	if err := emit.Emit(EventStatus, StatusData{Message: msgBuilding, Step: 2}); err != nil {
		return fmt.Errorf("emit status: %w", err)
	}

	var full strings.Builder
	err = p.generator.Stream(ctx, j.systemPrompt(enhanced), enhanced, func(delta string) error {
		full.WriteString(delta)
		state.chunks++
		return emit.Emit(EventChunk, ChunkData{Content: delta})
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	html := Normalize(full.String())
	state.output = len(html)
	if html == "" {
		return ErrEmptyOutput
	}

	if err := emit.Emit(EventStatus, StatusData{Message: msgSaving, Step: 3}); err != nil {
		return fmt.Errorf("emit status: %w", err)
	}

	if err := p.store.UpdateProjectContent(ctx, j.req.ProjectID, j.req.UserID, html); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if _, err := p.store.SaveVersion(ctx, j.req.ProjectID, j.req.UserID, html, VersionLabel(j.req.IsEdit, j.req.Prompt)); err != nil {
		return fmt.Errorf("save version: %w", err)
	}
	if err := p.store.DeductCredit(ctx, j.req.UserID); err != nil {
		return fmt.Errorf("deduct credit: %w", err)
	}
	return nil
}

func (j *Job) enhance(ctx context.Context) (string, error) {
	if j.req.IsEdit {
		return EditRequest(j.req.SelectedElement, j.req.Prompt), nil
	}

	enhanced, err := j.pipeline.enhancer.Complete(ctx, EnhanceSystemPrompt, j.req.Prompt)
	if err != nil {
		return "", fmt.Errorf("enhance prompt: %w", err)
	}
	if strings.TrimSpace(enhanced) == "" {
		return j.req.Prompt, nil
	}
	return enhanced, nil
}

func (j *Job) systemPrompt(enhanced string) string {
	if !j.req.IsEdit {
		return BuildSystemPrompt
	}
	current := j.req.CurrentHTML
	if current == "" {
		current = j.project.HTMLContent
	}
	if current == "" {
		return BuildSystemPrompt
	}
	return EditSystemPrompt(current, enhanced)
}

func (j *Job) metadata(state *runState, elapsed time.Duration) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{
		"mode":           j.req.mode(),
		"chunks":         state.chunks,
		"output_bytes":   state.output,
		"duration_ms":    elapsed.Milliseconds(),
		"correlation_id": j.req.CorrelationID,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrInsufficientCredits):
		return InsufficientCreditsMessage
	case errors.Is(err, context.Canceled):
		return "Generation cancelled"
	case err.Error() == "":
		return "Generation failed"
	default:
		return err.Error()
	}
}
