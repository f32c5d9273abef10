// Package orchestrator turns a user's generate intent into tracked
// asynchronous tasks, drives each one to completion, and keeps the credit
// ledger consistent with task outcomes.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/backend"
	"studio/internal/domain"
	"studio/internal/history"
	"studio/internal/ledger"
	"studio/internal/pricing"
	"studio/internal/providers/direct"
	"studio/internal/registry"
	"studio/internal/sched"
)

const displayTimeFormat = "Jan 2, 2006 3:04 PM"

// submitFanout bounds how many submissions run at once for one batch.
const submitFanout = 4

// Backend is the metered job submission client.
type Backend interface {
	Submit(ctx context.Context, req backend.JobRequest) (string, error)
	Status(ctx context.Context, jobID string) (backend.JobStatus, error)
}

// Direct is the personal-key provider client.
type Direct interface {
	Generate(ctx context.Context, req direct.Request) (string, error)
}

// Config tunes the polling protocol.
type Config struct {
	// PollInterval is the delay between status queries while a job is
	// pending.
	PollInterval time.Duration
	// TransportRetryInterval is the longer delay used after a status query
	// itself fails.
	TransportRetryInterval time.Duration
	// MaxPollDuration escalates a job stuck in a non-terminal state to
	// error (with refund) once exceeded. Zero or negative disables the cap.
	MaxPollDuration time.Duration
	// MaxReferences caps the reference list attached to one task.
	MaxReferences int
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.TransportRetryInterval <= 0 {
		c.TransportRetryInterval = 10 * time.Second
	}
	if c.MaxPollDuration == 0 {
		c.MaxPollDuration = 15 * time.Minute
	}
	if c.MaxReferences <= 0 {
		c.MaxReferences = 4
	}
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Registry  *registry.Registry
	Catalog   *pricing.Catalog
	Ledger    ledger.Ledger
	Backend   Backend
	Direct    Direct
	Scheduler sched.Scheduler
	History   history.Sink
	Logger    zerolog.Logger
	Config    Config
	// Now is the clock; defaults to time.Now. Tests inject a fixed clock.
	Now func() time.Time
	// OnBalanceChange is invoked best-effort whenever a ledger movement
	// may have changed the user-visible balance.
	OnBalanceChange func(ctx context.Context)
}

type Orchestrator struct {
	registry  *registry.Registry
	catalog   *pricing.Catalog
	ledger    ledger.Ledger
	backend   Backend
	direct    Direct
	scheduler sched.Scheduler
	history   history.Sink
	logger    zerolog.Logger
	cfg       Config
	now       func() time.Time
	onBalance func(ctx context.Context)

	mu    sync.Mutex
	polls map[string]sched.Handle
	keys  map[string]string
}

func New(opts Options) *Orchestrator {
	opts.Config.applyDefaults()
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	hist := opts.History
	if hist == nil {
		hist = history.Noop{}
	}
	return &Orchestrator{
		registry:  opts.Registry,
		catalog:   opts.Catalog,
		ledger:    opts.Ledger,
		backend:   opts.Backend,
		direct:    opts.Direct,
		scheduler: opts.Scheduler,
		history:   hist,
		logger:    opts.Logger,
		cfg:       opts.Config,
		now:       now,
		onBalance: opts.OnBalanceChange,
		polls:     make(map[string]sched.Handle),
		keys:      make(map[string]string),
	}
}

// GenerateParams is one user-initiated generate action. BatchPrompts switches
// to batch mode: one task per non-empty prompt. Otherwise Quantity tasks are
// created for the single Prompt.
type GenerateParams struct {
	Prompt       string
	Quantity     int
	BatchPrompts []string
	Channel      domain.PaymentChannel
	Model        string
	AspectRatio  string
	Resolution   string
	Seed         int
	Style        string
	References   []domain.Reference
	APIKey       string
}

func (p GenerateParams) prompts() []string {
	if len(p.BatchPrompts) > 0 {
		var out []string
		for _, prompt := range p.BatchPrompts {
			if trimmed := strings.TrimSpace(prompt); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" {
		return nil
	}
	quantity := p.Quantity
	if quantity < 1 {
		quantity = 1
	}
	out := make([]string, quantity)
	for i := range out {
		out[i] = prompt
	}
	return out
}

// Quote prices the pending action without creating tasks.
func (o *Orchestrator) Quote(p GenerateParams) pricing.Quote {
	if p.Channel == domain.PaymentChannelKey {
		q := o.catalog.QuoteSingle(p.Model, p.Resolution, len(p.prompts()))
		q.UnitCost, q.Total = 0, 0
		return q
	}
	if len(p.BatchPrompts) > 0 {
		return o.catalog.QuoteBatch(p.Model, p.Resolution, p.BatchPrompts)
	}
	return o.catalog.QuoteSingle(p.Model, p.Resolution, p.Quantity)
}

// Generate creates one task per prompt and submits them concurrently. It
// returns the created task ids once every task has been dispatched; results
// arrive asynchronously through the poller. Pre-flight rejections (empty
// prompt, unknown model, insufficient balance) create no tasks.
func (o *Orchestrator) Generate(ctx context.Context, p GenerateParams) ([]string, error) {
	prompts := p.prompts()
	if len(prompts) == 0 {
		return nil, domain.ErrEmptyPrompt
	}
	engine, ok := o.catalog.Engine(p.Model)
	if !ok {
		return nil, domain.ErrNoModelSelected
	}
	if len(p.References) > o.cfg.MaxReferences {
		return nil, domain.ErrReferenceLimit
	}

	unitCost := int64(0)
	if p.Channel == domain.PaymentChannelCredits {
		unitCost = o.catalog.UnitCost(p.Model, p.Resolution)
		total := unitCost * int64(len(prompts))
		balance, err := o.ledger.Balance(ctx)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: read balance: %w", err)
		}
		if balance < total {
			return nil, domain.ErrInsufficientCredits
		}
	}

	created := o.now()
	ids := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		task := &domain.GenerationTask{
			ID:     uuid.NewString(),
			Prompt: prompt,
			Status: domain.TaskStatusProcessing,
			Config: domain.GenerationConfig{
				Model:       p.Model,
				AspectRatio: p.AspectRatio,
				Resolution:  p.Resolution,
				Seed:        p.Seed,
				Style:       p.Style,
			},
			Channel:     p.Channel,
			Cost:        unitCost,
			References:  append([]domain.Reference(nil), p.References...),
			CreatedAt:   created,
			DisplayTime: created.Format(displayTimeFormat),
		}
		task.AppendLog(created, fmt.Sprintf("task created (%s, %s)", engine.DisplayName, p.Resolution))
		o.registry.Add(task)
		if p.Channel == domain.PaymentChannelKey {
			o.mu.Lock()
			o.keys[task.ID] = p.APIKey
			o.mu.Unlock()
		}
		ids = append(ids, task.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(submitFanout)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			// Failures are absorbed into the task; siblings keep going.
			o.submitTask(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return ids, nil
}

// Retry resets a terminal task to processing and resubmits it with its
// original prompt, configuration, and references.
func (o *Orchestrator) Retry(ctx context.Context, id string) error {
	task, ok := o.registry.Get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if !task.Terminal() {
		return domain.ErrTaskNotRetryable
	}
	o.registry.Rebind(id, "")
	o.registry.Update(id, func(t *domain.GenerationTask) {
		t.Status = domain.TaskStatusProcessing
		t.URL = ""
		t.Refunded = false
		t.AppendLog(o.now(), "retry requested")
	})
	o.submitTask(ctx, id)
	return nil
}

// Delete removes a task and cancels its pending poll. An already-fired
// callback becomes a no-op once the task is gone.
func (o *Orchestrator) Delete(id string) bool {
	o.mu.Lock()
	handle := o.polls[id]
	delete(o.polls, id)
	delete(o.keys, id)
	o.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}
	return o.registry.Delete(id)
}

// Tasks returns the session's tasks in creation order.
func (o *Orchestrator) Tasks() []domain.GenerationTask {
	return o.registry.List()
}

// Task returns one task by internal id.
func (o *Orchestrator) Task(id string) (domain.GenerationTask, bool) {
	return o.registry.Get(id)
}

func (o *Orchestrator) submitTask(ctx context.Context, id string) {
	task, ok := o.registry.Get(id)
	if !ok {
		return
	}
	switch task.Channel {
	case domain.PaymentChannelKey:
		o.submitDirect(ctx, task)
	default:
		o.submitCredits(ctx, task)
	}
}

func (o *Orchestrator) submitCredits(ctx context.Context, task domain.GenerationTask) {
	engine, _ := o.catalog.Engine(task.Config.Model)
	req := backend.JobRequest{
		Type:   backend.JobTypeTextToImage,
		Prompt: task.Prompt,
		Config: jobConfig(task.Config),
		Engine: backend.EngineSelector{Provider: engine.Provider, Model: engine.Model},
		Mode:   "generate",
	}
	if len(task.References) > 0 {
		req.Type = backend.JobTypeImageToImage
		req.Images = encodeReferences(task.References, engine.RefMode)
	}

	o.appendLog(task.ID, "uplink: submitting job to backend")
	jobID, err := o.backend.Submit(ctx, req)
	if err != nil {
		o.appendLog(task.ID, fmt.Sprintf("submission failed: %v", err))
		// Nothing was debited, so nothing needs refunding.
		o.finishError(task.ID, false)
		return
	}

	o.registry.Rebind(task.ID, jobID)
	o.appendLog(task.ID, fmt.Sprintf("provisioning: job %s accepted", jobID))

	// Debit on accept, never on intent. The ledger serializes concurrent
	// movements; a failed debit is logged and the job keeps running.
	if task.Cost > 0 {
		if err := o.ledger.Debit(ctx, task.Cost, ledger.ReasonDebitGeneration, task.ID); err != nil {
			o.logger.Error().Err(err).Str("task_id", task.ID).Msg("orchestrator: debit failed")
		}
		o.notifyBalance(ctx)
	}

	deadline := time.Time{}
	if o.cfg.MaxPollDuration > 0 {
		deadline = o.now().Add(o.cfg.MaxPollDuration)
	}
	o.schedulePoll(task.ID, o.cfg.PollInterval, deadline)
}

func (o *Orchestrator) submitDirect(ctx context.Context, task domain.GenerationTask) {
	o.mu.Lock()
	apiKey := o.keys[task.ID]
	o.mu.Unlock()

	o.appendLog(task.ID, "uplink: invoking provider with personal key")
	url, err := o.direct.Generate(ctx, direct.Request{
		Prompt:      task.Prompt,
		Images:      referenceURLs(task.References),
		Model:       task.Config.Model,
		AspectRatio: task.Config.AspectRatio,
		Quality:     task.Config.Resolution,
		APIKey:      apiKey,
	})
	if err != nil {
		if errorsIsEntityNotFound(err) {
			o.appendLog(task.ID, "provider rejected the personal key (entity not found); re-authentication required")
		} else {
			o.appendLog(task.ID, fmt.Sprintf("provider call failed: %v", err))
		}
		o.finishError(task.ID, false)
		return
	}
	if url == "" {
		o.appendLog(task.ID, "provider returned an empty result")
		o.finishError(task.ID, false)
		return
	}
	o.appendLog(task.ID, "render complete")
	o.finishDone(task.ID, url)
}

func (o *Orchestrator) appendLog(id, line string) {
	o.registry.Update(id, func(t *domain.GenerationTask) {
		t.AppendLog(o.now(), line)
	})
}

func (o *Orchestrator) notifyBalance(ctx context.Context) {
	if o.onBalance != nil {
		o.onBalance(ctx)
	}
}

func jobConfig(cfg domain.GenerationConfig) backend.JobConfig {
	width, height := dimensions(cfg.Resolution, cfg.AspectRatio)
	return backend.JobConfig{
		Width:       width,
		Height:      height,
		AspectRatio: cfg.AspectRatio,
		Seed:        cfg.Seed,
		Style:       cfg.Style,
	}
}

func encodeReferences(refs []domain.Reference, mode pricing.ReferenceMode) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if mode == pricing.ReferenceModeMediaID && ref.MediaID != "" {
			out = append(out, ref.MediaID)
			continue
		}
		out = append(out, ref.URL)
	}
	return out
}

func referenceURLs(refs []domain.Reference) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.URL)
	}
	return out
}

var resolutionBase = map[string]int{"1k": 1024, "2k": 2048, "4k": 4096}

func dimensions(resolution, aspectRatio string) (int, int) {
	base, ok := resolutionBase[resolution]
	if !ok {
		base = 1024
	}
	parts := strings.SplitN(aspectRatio, ":", 2)
	if len(parts) != 2 {
		return base, base
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return base, base
	}
	if w >= h {
		return base, base * h / w
	}
	return base * w / h, base
}
