package replication

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// cycle is one push-then-pull run against the remote.
type cycle struct {
	store    LocalStore
	cursors  CursorStore
	remote   Remote
	options  Options
	observer eventstore.Observer
	deviceID string

	cursor eventstore.Cursor
	pushed int
	pulled int
}

func (m *Manager) runCycle(ctx context.Context) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.Lock()
	remote, options := m.remote, m.options
	m.mu.Unlock()

	if remote == nil {
		return ErrNotConfigured
	}

	ctx, span := m.observer.StartSpan(ctx, SpanNameCycle, map[string]string{LogAttrNamespace: options.Namespace})
	start := time.Now()

	c := &cycle{
		store:    m.store,
		cursors:  m.cursors,
		remote:   remote,
		options:  options,
		observer: m.observer,
		deviceID: m.store.DeviceID(),
	}
	err := c.run(ctx)
	duration := time.Since(start)

	m.mu.Lock()
	if c.cursor != (eventstore.Cursor{}) {
		m.cursor = c.cursor
	}
	if err == nil {
		m.lastSyncAt = m.clock()
	}
	pushedSeq := m.cursor.PushedSeq
	m.mu.Unlock()

	m.observer.RecordValue(ctx, SyncPendingMetric, float64(m.pendingCount(ctx, pushedSeq)), nil)

	if err != nil {
		m.observer.LogWarn(ctx, LogMsgCycleFailed,
			LogAttrNamespace, options.Namespace,
			LogAttrErrorType, errorType(err),
			eventstore.LogAttrError, err.Error())
		m.observer.RecordDuration(ctx, SyncCycleDurationMetric, duration, map[string]string{eventstore.LabelStatus: eventstore.StatusError})
		m.observer.IncrementCounter(ctx, SyncCyclesMetric, map[string]string{
			eventstore.LabelStatus:    eventstore.StatusError,
			eventstore.LabelErrorType: errorType(err),
		})
		m.observer.FinishSpan(span, eventstore.StatusError, map[string]string{eventstore.LabelErrorType: errorType(err)})

		return err
	}

	m.observer.LogDebug(ctx, LogMsgCycleCompleted,
		LogAttrNamespace, options.Namespace,
		LogAttrPushed, c.pushed,
		LogAttrPulled, c.pulled,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration))
	m.observer.RecordDuration(ctx, SyncCycleDurationMetric, duration, map[string]string{eventstore.LabelStatus: eventstore.StatusSuccess})
	m.observer.IncrementCounter(ctx, SyncCyclesMetric, map[string]string{eventstore.LabelStatus: eventstore.StatusSuccess})
	m.observer.FinishSpan(span, eventstore.StatusSuccess, map[string]string{
		LogAttrPushed: strconv.Itoa(c.pushed),
		LogAttrPulled: strconv.Itoa(c.pulled),
	})

	return nil
}

func (c *cycle) run(ctx context.Context) error {
	cursor, err := c.cursors.LoadCursor(ctx, c.options.RemoteKey())
	if err != nil {
		return errors.Join(eventstore.ErrPersistence, fmt.Errorf("load sync cursor: %w", err))
	}
	c.cursor = cursor

	if err := c.push(ctx); err != nil {
		return err
	}

	return c.pull(ctx)
}

// push sends the local events above the pushed cursor, one batch per remote call.
func (c *cycle) push(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := c.store.EventsAfterSeq(ctx, c.cursor.PushedSeq)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		batch, examined := c.nextPushBatch(events)
		if len(batch) > 0 {
			err := c.call(ctx, operationPush, func(ctx context.Context) error {
				_, err := c.remote.Push(ctx, c.options.Namespace, batch)
				return err
			})
			if err != nil {
				return err
			}
			c.pushed += len(batch)
			for _, event := range batch {
				c.observer.IncrementCounter(ctx, SyncPushedEventsMetric, map[string]string{eventstore.LogAttrEventType: event.Type})
			}
		}

		next := c.cursor
		next.PushedSeq = examined
		if err := c.saveCursor(ctx, next); err != nil {
			return err
		}
	}
}

// nextPushBatch collects up to BatchSize events created on this device and returns the highest seq it looked at.
func (c *cycle) nextPushBatch(events eventstore.Events) (eventstore.Events, eventstore.SequenceNumber) {
	batch := make(eventstore.Events, 0, min(len(events), c.options.BatchSize))
	examined := c.cursor.PushedSeq

	for _, event := range events {
		if event.Origin == c.deviceID {
			if len(batch) == c.options.BatchSize {
				break
			}
			batch = append(batch, event)
		}
		examined = event.Seq
	}

	return batch, examined
}

// pull appends the remote events above the pulled cursor. An applied batch always commits fully.
func (c *cycle) pull(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var result PullResult
		err := c.call(ctx, operationPull, func(ctx context.Context) error {
			var err error
			result, err = c.remote.Pull(ctx, c.options.Namespace, c.cursor.PulledRevision, c.options.BatchSize)
			return err
		})
		if err != nil {
			return err
		}

		if err := c.apply(context.WithoutCancel(ctx), result.Events); err != nil {
			return err
		}

		if result.Revision > c.cursor.PulledRevision {
			next := c.cursor
			next.PulledRevision = result.Revision
			if err := c.saveCursor(ctx, next); err != nil {
				return err
			}
		}

		if !result.HasMore || len(result.Events) == 0 {
			return nil
		}
	}
}

func (c *cycle) apply(ctx context.Context, events eventstore.Events) error {
	for _, event := range events {
		if c.store.Contains(event.ID) {
			continue
		}

		_, err := c.store.Append(ctx, event)
		switch {
		case err == nil:
			c.pulled++
			c.observer.IncrementCounter(ctx, SyncPulledEventsMetric, map[string]string{eventstore.LogAttrEventType: event.Type})
		case errors.Is(err, eventstore.ErrValidation):
			c.observer.LogWarn(ctx, LogMsgEventSkipped,
				eventstore.LogAttrEventID, event.ID.String(),
				eventstore.LogAttrEventType, event.Type,
				eventstore.LogAttrError, err.Error())
		default:
			return err
		}
	}

	return nil
}

func (c *cycle) saveCursor(ctx context.Context, cursor eventstore.Cursor) error {
	if err := c.cursors.SaveCursor(context.WithoutCancel(ctx), c.options.RemoteKey(), cursor); err != nil {
		return errors.Join(eventstore.ErrPersistence, fmt.Errorf("save sync cursor: %w", err))
	}
	c.cursor = cursor

	return nil
}

// call runs one remote operation with a timeout per attempt and retries connectivity failures.
// Rejections are returned as they are; every other failure not caused by the caller's context
// is reported as ErrSyncConnectivity.
func (c *cycle) call(ctx context.Context, operation string, fn RetryableFunc) error {
	attempt := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.options.CycleTimeout)
		defer cancel()

		err := fn(callCtx)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return err
		case errors.Is(err, ErrRemoteRejected), errors.Is(err, ErrSyncConnectivity):
			return err
		case callCtx.Err() != nil:
			return errors.Join(ErrSyncConnectivity, fmt.Errorf("%s timed out after %s: %w", operation, c.options.CycleTimeout, err))
		default:
			return errors.Join(ErrSyncConnectivity, fmt.Errorf("%s: %w", operation, err))
		}
	}

	return RetryWithExponentialBackoff(ctx, attempt,
		WithMaxAttempts(c.options.RetryAttempts),
		WithBaseDelay(c.options.RetryBaseDelay),
		withObserver(c.observer, operation))
}
