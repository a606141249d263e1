package backups

import (
	"context"
	"errors"

	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/notify"
	"github.com/edvin/backupdash/internal/validate"
)

// Result tracks one dispatched mutation.
type Result struct {
	done chan struct{}
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) finish(err error) {
	r.err = err
	close(r.done)
}

// Done is closed when the mutation has settled and its notification was sent.
func (r *Result) Done() <-chan struct{} { return r.done }

// Wait blocks until the mutation settles and returns its error.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return r.err
	}
}

type mutation struct {
	op         notify.Operation
	success    string
	fallback   string
	invalidate []string
	call       func(ctx context.Context) error
}

// CreateBackup starts a backup of the given connection. On success the
// backups family is invalidated; the new record appears only after a refetch.
func (o *Orchestrator) CreateBackup(connectionID string) (*Result, error) {
	if err := validate.ConnectionID(connectionID); err != nil {
		return nil, err
	}
	return o.run(mutation{
		op:         notify.OpCreateBackup,
		success:    "Backup started successfully",
		fallback:   "Failed to start backup",
		invalidate: []string{FamilyBackups},
		call: func(ctx context.Context) error {
			return o.api.SaveBackup(ctx, connectionID)
		},
	})
}

// CreateSchedule attaches a backup schedule to a connection.
func (o *Orchestrator) CreateSchedule(params model.ScheduleBackupParams) (*Result, error) {
	if err := validate.ConnectionID(params.ConnectionID); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	return o.run(mutation{
		op:         notify.OpCreateSchedule,
		success:    "Backup schedule created successfully",
		fallback:   "Failed to create backup schedule",
		invalidate: []string{FamilyBackups, FamilyConnections},
		call: func(ctx context.Context) error {
			return o.api.ScheduleBackup(ctx, params)
		},
	})
}

// UpdateExistingSchedule replaces the cron expression and retention of a
// connection's schedule.
func (o *Orchestrator) UpdateExistingSchedule(connectionID string, params model.UpdateScheduleParams) (*Result, error) {
	if err := validate.ConnectionID(connectionID); err != nil {
		return nil, err
	}
	if err := validate.Struct(params); err != nil {
		return nil, err
	}
	return o.run(mutation{
		op:         notify.OpUpdateSchedule,
		success:    "Backup schedule updated successfully",
		fallback:   "Failed to update backup schedule",
		invalidate: []string{FamilyBackups, FamilyConnections},
		call: func(ctx context.Context) error {
			return o.api.UpdateSchedule(ctx, connectionID, params)
		},
	})
}

// DisableSchedule turns off a connection's schedule.
func (o *Orchestrator) DisableSchedule(connectionID string) (*Result, error) {
	if err := validate.ConnectionID(connectionID); err != nil {
		return nil, err
	}
	return o.run(mutation{
		op:         notify.OpDisableSchedule,
		success:    "Backup schedule disabled successfully",
		fallback:   "Failed to disable backup schedule",
		invalidate: []string{FamilyBackups, FamilyConnections},
		call: func(ctx context.Context) error {
			return o.api.DisableBackupSchedule(ctx, connectionID)
		},
	})
}

// run dispatches m in the background. Each mutation produces exactly one
// notification; only a successful one invalidates.
func (o *Orchestrator) run(m mutation) (*Result, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	o.pending[m.op]++
	o.mutations.Add(1)
	o.mu.Unlock()
	o.signal()

	r := newResult()
	go func() {
		defer o.mutations.Done()

		ctx, cancel := context.WithTimeout(o.ctx, o.mutationTimeout)
		err := m.call(ctx)
		cancel()

		log := o.logger.With().Str("operation", string(m.op)).Logger()
		switch {
		case err == nil:
			for _, family := range m.invalidate {
				o.cache.Invalidate(family)
			}
			log.Info().Msg("mutation succeeded")
			o.sink.Notify(notify.Success(m.op, m.success))
		case errors.Is(err, context.Canceled) && o.ctx.Err() != nil:
			// Shutdown cancelled it: nobody is left to show a notification
			// to, so the outcome goes to the log only.
			log.Warn().Msg("mutation cancelled by shutdown")
		default:
			log.Error().Err(err).Msg("mutation failed")
			o.sink.Notify(notify.Failure(m.op, err, m.fallback))
		}

		o.mu.Lock()
		o.pending[m.op]--
		o.mu.Unlock()
		o.signal()
		r.finish(err)
	}()
	return r, nil
}
