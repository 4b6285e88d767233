package workers

import (
	"chatlark/domain/event"
	"chatlark/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout_InOrder(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockEventSink(ctrl)
	second := mocks.NewMockEventSink(ctrl)
	evt := event.NewMessage{ID: 1, Room: 7, Content: "hello"}

	// Given two sinks, the first one failing
	gomock.InOrder(
		first.EXPECT().Consume(gomock.Any(), evt).Return(fmt.Errorf("boom")),
		second.EXPECT().Consume(gomock.Any(), evt).Return(nil),
	)

	fanout := NewEventFanout(log, nil).Add(first, second)

	// When the event is fanned out
	fanout.Fanout(context.Background(), evt)

	// Then both sinks were called in order (checked by gomock)
	req.Len(fanout.sinks, 2)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	slow := mocks.NewMockEventSink(ctrl)

	// Given a sink waiting for its context
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	fanout := NewEventFanout(log, nil).Add(slow).WithSinkTimeout(20 * time.Millisecond)

	// When fanning out, the call returns once the timeout hits
	start := time.Now()
	fanout.Fanout(context.Background(), event.Status{Msg: "x"})
	req.Less(time.Since(start), time.Second)
}

func TestEventFanout_Filter(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockEventSink(ctrl)
	kept := event.NewMessage{ID: 2, Room: 7}

	// Given a filter keeping room 7 only
	fanout := NewEventFanout(log, nil).Add(sink).
		WithFilter(func(e event.DomainEvent) bool { return e.RoomID() == 7 })
	sink.EXPECT().Consume(gomock.Any(), kept).Return(nil).Times(1)

	// When events of rooms 3 and 7 are fanned out, only room 7 reaches the sink
	fanout.Fanout(context.Background(), event.NewMessage{ID: 1, Room: 3})
	fanout.Fanout(context.Background(), kept)
}

func TestEventFanout_Run(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockEventSink(ctrl)
	events := make(chan event.DomainEvent, 3)

	var consumed atomic.Int32
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, event.DomainEvent) error {
			consumed.Add(1)
			return nil
		}).
		Times(3)

	// Given three queued events
	for i := 1; i <= 3; i++ {
		events <- event.NewMessage{ID: 1, Room: 7}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- NewEventFanout(log, events).Add(sink).Run(ctx) }()

	// Then all of them reach the sink
	req.Eventually(func() bool { return consumed.Load() == 3 }, time.Second, 10*time.Millisecond)

	// And the worker exits cleanly on cancellation
	cancel()
	req.NoError(<-done)
}

func TestDirectoryPoller_Run(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	directory := mocks.NewMockRefresher(ctrl)
	var refreshed atomic.Int32

	// Given a directory failing once then succeeding
	directory.EXPECT().Refresh(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			if refreshed.Add(1) == 1 {
				return fmt.Errorf("boom")
			}
			return nil
		}).
		MinTimes(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- NewDirectoryPoller(log, directory, 10*time.Millisecond).Run(ctx) }()

	// Then polling goes on past the failure
	req.Eventually(func() bool { return refreshed.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)
}
