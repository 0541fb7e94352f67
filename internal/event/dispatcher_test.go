package event_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"auditflow/internal/event"
	"auditflow/internal/event/mocks"
	"auditflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_StateChanged(t *testing.T) {
	ev := event.StateChange{
		AuditID:   1,
		OldState:  model.StateProgrammed,
		NewState:  model.StateLoading,
		Reason:    "evidence in",
		Timestamp: time.Now().UTC(),
	}

	t.Run("delivers to both sinks", func(t *testing.T) {
		notifier := new(mocks.MockNotifier)
		broadcaster := new(mocks.MockBroadcaster)
		notifier.On("NotifyStateChange", mock.Anything, ev).Return(nil)
		broadcaster.On("Broadcast", mock.Anything, event.ChannelStateChanges, ev).Return(nil)

		d := event.NewDispatcher(notifier, broadcaster, discardLogger())
		d.StateChanged(ev)
		d.Flush()

		notifier.AssertExpectations(t)
		broadcaster.AssertExpectations(t)
	})

	t.Run("sink errors are swallowed", func(t *testing.T) {
		notifier := new(mocks.MockNotifier)
		broadcaster := new(mocks.MockBroadcaster)
		notifier.On("NotifyStateChange", mock.Anything, ev).Return(errors.New("smtp down"))
		broadcaster.On("Broadcast", mock.Anything, event.ChannelStateChanges, ev).Return(errors.New("redis down"))

		d := event.NewDispatcher(notifier, broadcaster, discardLogger())
		d.StateChanged(ev)
		d.Flush()

		// A failing notifier must not stop the broadcast.
		broadcaster.AssertNumberOfCalls(t, "Broadcast", 1)
	})

	t.Run("nil sinks are skipped", func(t *testing.T) {
		d := event.NewDispatcher(nil, nil, discardLogger())

		assert.NotPanics(t, func() {
			d.StateChanged(ev)
			d.Flush()
		})
	})
}

func TestDispatcher_DeadlineReached(t *testing.T) {
	ev := event.DeadlinePassed{
		AuditID:       1,
		State:         model.StatePendingEvaluation,
		Deadline:      time.Now().UTC(),
		DocumentCount: 3,
		Transitioned:  true,
	}

	notifier := new(mocks.MockNotifier)
	broadcaster := new(mocks.MockBroadcaster)
	notifier.On("NotifyDeadline", mock.Anything, ev).Return(nil)
	broadcaster.On("Broadcast", mock.Anything, event.ChannelDeadlines, ev).Return(nil)

	d := event.NewDispatcher(notifier, broadcaster, discardLogger())
	d.DeadlineReached(ev)
	d.Flush()

	notifier.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestDispatcher_Flush(t *testing.T) {
	notifier := new(mocks.MockNotifier)
	notifier.On("NotifyStateChange", mock.Anything, mock.Anything).
		After(20*time.Millisecond).Return(nil)

	d := event.NewDispatcher(notifier, nil, discardLogger())
	d.StateChanged(event.StateChange{AuditID: 1})
	d.Flush()

	// After Flush the slow delivery must have completed.
	notifier.AssertNumberOfCalls(t, "NotifyStateChange", 1)
}
