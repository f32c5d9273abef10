package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio/internal/backend"
	"studio/internal/domain"
	"studio/internal/ledger"
)

const statusQueryTimeout = 30 * time.Second

// schedulePoll arranges the next status query for the task. The handle is
// kept so Delete can cancel a pending poll; a handle that fires after its
// task was removed falls through the registry guard and does nothing.
func (o *Orchestrator) schedulePoll(id string, delay time.Duration, deadline time.Time) {
	handle := o.scheduler.After(delay, func() {
		o.poll(id, deadline)
	})
	o.mu.Lock()
	o.polls[id] = handle
	o.mu.Unlock()
}

// poll runs one status query and classifies the response. Job-level failure
// ends polling with a refund; a completed result ends polling with the asset
// URL; anything else reschedules. A transport failure is not a task failure:
// it only stretches the schedule.
func (o *Orchestrator) poll(id string, deadline time.Time) {
	o.mu.Lock()
	delete(o.polls, id)
	o.mu.Unlock()

	task, ok := o.registry.Get(id)
	if !ok || task.Status != domain.TaskStatusProcessing || task.JobID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
	defer cancel()

	status, err := o.backend.Status(ctx, task.JobID)
	if err != nil {
		o.appendLog(id, fmt.Sprintf("connectivity: %v (will retry)", err))
		if o.expired(deadline) {
			o.escalateTimeout(id)
			return
		}
		o.schedulePoll(id, o.cfg.TransportRetryInterval, deadline)
		return
	}

	switch {
	case status.Failed():
		msg := status.Message
		if msg == "" {
			msg = status.Status
		}
		o.appendLog(id, fmt.Sprintf("job failed: %s", msg))
		o.finishError(id, true)
	case status.Status == backend.StatusDone && len(status.Images) > 0:
		o.appendLog(id, "render complete")
		o.finishDone(id, status.Images[0])
	default:
		o.appendLog(id, fmt.Sprintf("polling: status %q", status.Status))
		if o.expired(deadline) {
			o.escalateTimeout(id)
			return
		}
		o.schedulePoll(id, o.cfg.PollInterval, deadline)
	}
}

func (o *Orchestrator) expired(deadline time.Time) bool {
	return !deadline.IsZero() && o.now().After(deadline)
}

func (o *Orchestrator) escalateTimeout(id string) {
	o.appendLog(id, "giving up: job did not reach a terminal state in time")
	o.finishError(id, true)
}

// finishError moves the task to error. When refundable, the refund decision
// is made inside the registry update so a repeated terminal classification
// can never credit twice.
func (o *Orchestrator) finishError(id string, refundable bool) {
	var refund int64
	updated := o.registry.Update(id, func(t *domain.GenerationTask) {
		if t.Status != domain.TaskStatusProcessing {
			return
		}
		t.Status = domain.TaskStatusError
		t.URL = ""
		if refundable && t.Channel == domain.PaymentChannelCredits && !t.Refunded && t.Cost > 0 {
			t.Refunded = true
			refund = t.Cost
			t.AppendLog(o.now(), fmt.Sprintf("refunded %d credits", t.Cost))
		}
	})
	if !updated {
		return
	}
	if refund > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
		defer cancel()
		if err := o.ledger.Credit(ctx, refund, ledger.ReasonRefundFailure, id); err != nil {
			o.logger.Error().Err(err).Str("task_id", id).Msg("orchestrator: refund failed")
		}
		o.notifyBalance(ctx)
	}
	o.recordHistory(id)
}

// finishDone moves the task to done with its asset URL, then fires the
// best-effort balance refresh and history resync.
func (o *Orchestrator) finishDone(id, url string) {
	updated := o.registry.Update(id, func(t *domain.GenerationTask) {
		if t.Status != domain.TaskStatusProcessing {
			return
		}
		t.Status = domain.TaskStatusDone
		t.URL = url
	})
	if !updated {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
	defer cancel()
	o.notifyBalance(ctx)
	o.recordHistory(id)
}

// recordHistory resyncs the task into the history sink. Failure here never
// touches task state.
func (o *Orchestrator) recordHistory(id string) {
	task, ok := o.registry.Get(id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusQueryTimeout)
	defer cancel()
	if err := o.history.Record(ctx, task); err != nil {
		o.logger.Warn().Err(err).Str("task_id", id).Msg("orchestrator: history resync failed")
	}
}

func errorsIsEntityNotFound(err error) bool {
	return errors.Is(err, domain.ErrProviderEntityNotFound)
}
