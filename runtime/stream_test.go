package runtime

import (
	"chatlark/domain"
	"chatlark/errors"
	"chatlark/mocks"
	"chatlark/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func at(sec int) domain.Timestamp {
	return domain.At(time.Date(2024, 1, 1, 10, 0, sec, 0, time.UTC))
}

func page(pageNumber, pages int, messages ...domain.Message) domain.Page[domain.Message] {
	return domain.Page[domain.Message]{
		Items:      messages,
		Pagination: domain.Pagination{Page: pageNumber, PerPage: 50, Total: len(messages), Pages: pages},
	}
}

func contents(s Snapshot) []string {
	return lo.Map(s.Messages, func(m domain.Message, _ int) string { return m.Content })
}

func newStream(t *testing.T, ctrl *gomock.Controller) (*MessageStream, *mocks.MockMessageAPI, *mocks.MockNotifier, *observability.Monitoring) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	api := mocks.NewMockMessageAPI(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	monitoring := observability.NewMonitoring(log)
	session := domain.NewSession("id", &domain.User{ID: 1, Login: "alice"})
	return NewMessageStream(7, api, session, notifier, log, monitoring, 50), api, notifier, monitoring
}

func TestMessageStream_Load_OrdersAscending(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	// Given the server answers newest first, out of order
	api.EXPECT().FetchMessages(gomock.Any(), domain.RoomID(7), 1, 50).Return(page(1, 1,
		domain.Message{ID: 3, Content: "T3", CreatedAt: at(3), SenderID: 1},
		domain.Message{ID: 1, Content: "T1", CreatedAt: at(1), SenderID: 2},
		domain.Message{ID: 2, Content: "T2", CreatedAt: at(2), SenderID: 2},
	), nil)

	// When loading with defaults
	req.NoError(stream.Load(context.Background(), 0, 0))

	// Then messages are ascending and ownership is flagged
	snapshot := stream.Snapshot()
	req.Equal([]string{"T1", "T2", "T3"}, contents(snapshot))
	req.True(snapshot.Messages[2].Own)
	req.False(snapshot.Messages[0].Own)
	req.False(snapshot.Stale)
	req.False(snapshot.LoadedAt.IsZero())
}

func TestMessageStream_Load_LastRequestWins(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, monitoring := newStream(t, ctrl)

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var firstCtxErr error

	// Given a first load stuck in flight, then a second one answering right away
	gomock.InOrder(
		api.EXPECT().FetchMessages(gomock.Any(), domain.RoomID(7), 1, 50).
			DoAndReturn(func(ctx context.Context, _ domain.RoomID, _, _ int) (domain.Page[domain.Message], error) {
				close(firstStarted)
				<-releaseFirst
				firstCtxErr = ctx.Err()
				return page(1, 1, domain.Message{ID: 1, Content: "old", CreatedAt: at(1)}), nil
			}),
		api.EXPECT().FetchMessages(gomock.Any(), domain.RoomID(7), 1, 50).
			Return(page(1, 1, domain.Message{ID: 2, Content: "new", CreatedAt: at(2)}), nil),
	)

	firstDone := make(chan error)
	go func() { firstDone <- stream.Load(context.Background(), 1, 50) }()
	<-firstStarted

	// When the second load completes before the first one
	req.NoError(stream.Load(context.Background(), 1, 50))
	close(releaseFirst)

	// Then the late answer is discarded
	req.ErrorIs(<-firstDone, errors.ErrStaleResponse)
	req.ErrorIs(firstCtxErr, context.Canceled)
	req.Equal([]string{"new"}, contents(stream.Snapshot()))
	req.Equal(uint64(1), monitoring.GetLatest().StaleDiscarded)
}

func TestMessageStream_Load_FailureKeepsSnapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, notifier, _ := newStream(t, ctrl)

	gomock.InOrder(
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			Return(page(1, 1, domain.Message{ID: 1, Content: "kept", CreatedAt: at(1)}), nil),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			Return(domain.Page[domain.Message]{}, errors.ErrUnexpectedStatus),
	)
	notifier.EXPECT().Error("Failed to load messages").Times(1)

	req.NoError(stream.Load(context.Background(), 1, 50))
	err := stream.Invalidate(context.Background())

	req.ErrorIs(err, errors.ErrLoadFailed)
	req.Equal(errors.KindNetwork, errors.KindOf(err))
	snapshot := stream.Snapshot()
	req.Equal([]string{"kept"}, contents(snapshot))
	req.True(snapshot.Stale)
}

func TestMessageStream_Invalidate_MergesWithoutDuplicates(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	first := domain.Message{ID: 1, Content: "hello", CreatedAt: at(1)}
	gomock.InOrder(
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).Return(page(1, 1, first), nil),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).Return(page(1, 1,
			domain.Message{ID: 2, Content: "world", CreatedAt: at(2)},
			domain.Message{ID: 1, Content: "hello (edited)", CreatedAt: at(1)},
		), nil),
	)

	var seen []Snapshot
	stream.OnChange(func(s Snapshot) { seen = append(seen, s) })

	req.NoError(stream.Load(context.Background(), 1, 50))
	req.NoError(stream.Invalidate(context.Background()))

	req.Equal([]string{"hello (edited)", "world"}, contents(stream.Snapshot()))
	req.Len(seen, 2)
	req.Greater(seen[1].Generation, seen[0].Generation)
}

func TestMessageStream_LoadOlder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	gomock.InOrder(
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			Return(page(1, 2, domain.Message{ID: 2, Content: "recent", CreatedAt: at(2)}), nil),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 2, 50).
			Return(page(2, 2, domain.Message{ID: 1, Content: "ancient", CreatedAt: at(1)}), nil),
	)

	req.NoError(stream.Load(context.Background(), 1, 50))
	req.True(stream.Snapshot().HasOlder)

	req.NoError(stream.LoadOlder(context.Background()))
	req.Equal([]string{"ancient", "recent"}, contents(stream.Snapshot()))
	req.False(stream.Snapshot().HasOlder)

	// Nothing left, no request
	req.NoError(stream.LoadOlder(context.Background()))
}

func TestMessageStream_LoadOlder_ReissuesSupersededInvalidate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	invalidateStarted := make(chan struct{})
	gomock.InOrder(
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			Return(page(1, 2, domain.Message{ID: 2, Content: "recent", CreatedAt: at(2)}), nil),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			DoAndReturn(func(ctx context.Context, _ domain.RoomID, _, _ int) (domain.Page[domain.Message], error) {
				close(invalidateStarted)
				<-ctx.Done()
				return domain.Page[domain.Message]{}, ctx.Err()
			}),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 2, 50).
			Return(page(2, 2, domain.Message{ID: 1, Content: "ancient", CreatedAt: at(1)}), nil),
		api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 50).
			Return(page(1, 2,
				domain.Message{ID: 3, Content: "pushed", CreatedAt: at(3)},
				domain.Message{ID: 2, Content: "recent", CreatedAt: at(2)},
			), nil),
	)

	// Given a pushed message made the stream stale and its re-pull is in flight
	req.NoError(stream.Load(context.Background(), 1, 50))
	invalidated := make(chan error)
	go func() { invalidated <- stream.Invalidate(context.Background()) }()
	<-invalidateStarted

	// When older history is requested meanwhile
	req.NoError(stream.LoadOlder(context.Background()))

	// Then the superseded re-pull is issued again and the push shows up
	req.NoError(<-invalidated)
	snapshot := stream.Snapshot()
	req.False(snapshot.Stale)
	req.Equal([]string{"ancient", "recent", "pushed"}, contents(snapshot))
}

func TestMessageStream_Load_OlderPageDoesNotClearStale(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 2, 50).
		Return(page(2, 2, domain.Message{ID: 1, Content: "ancient", CreatedAt: at(1)}), nil)

	stream.mu.Lock()
	stream.stale = true
	stream.mu.Unlock()

	req.NoError(stream.Load(context.Background(), 2, 50))
	req.True(stream.Snapshot().Stale)
}

func TestMessageStream_Listeners_NeverGoBackInGenerations(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, _, _, _ := newStream(t, ctrl)

	var seen []uint64
	listeners := []func(Snapshot){func(s Snapshot) { seen = append(seen, s.Generation) }}

	// Given generation 3 was delivered first
	stream.notify(Snapshot{Generation: 3}, listeners)

	// When generation 2 finishes its delivery late, it is dropped
	stream.notify(Snapshot{Generation: 2}, listeners)
	stream.notify(Snapshot{Generation: 4}, listeners)

	req.Equal([]uint64{3, 4}, seen)
}

func TestMessageStream_Close_DiscardsLateResults(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stream, api, _, _ := newStream(t, ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.RoomID, _, _ int) (domain.Page[domain.Message], error) {
			close(started)
			<-release
			return page(1, 1, domain.Message{ID: 1, Content: "late"}), nil
		})

	done := make(chan error)
	go func() { done <- stream.Load(context.Background(), 1, 50) }()
	<-started

	// When the stream is discarded mid flight
	stream.Close()
	close(release)

	// Then its result never lands
	req.ErrorIs(<-done, errors.ErrStaleResponse)
	req.Empty(stream.Snapshot().Messages)
	req.ErrorIs(stream.Load(context.Background(), 1, 50), errors.ErrStaleResponse)
}
