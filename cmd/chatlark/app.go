package main

import (
	"chatlark/domain"
	"chatlark/infrastructure/realtime"
	"chatlark/infrastructure/rest"
	"chatlark/internal"
	"chatlark/observability"
	"chatlark/repositories"
	"chatlark/services"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// app holds everything a command needs. Commands build it through newApp and
// must call close when done.
type app struct {
	config     internal.Config
	log        *slog.Logger
	db         *badger.DB
	console    *console
	notifier   terminalNotifier
	monitoring *observability.Monitoring

	client      *rest.Client
	transport   *realtime.Transport
	repository  *repositories.SessionRepository
	sessions    *services.SessionService
	session     domain.Session
	directory   *services.RoomDirectory
	memberships *services.MembershipCache
}

func newApp(ctx context.Context, config internal.Config) (*app, error) {
	// 1. Logger
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), holding the current user slot
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}

	// 3. Transports
	transport, err := realtime.NewTransport(config.APIHost, config.RealtimePath, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	client := rest.NewClient(config.APIHost, config.RequestTimeout, log)

	a := &app{
		config:     config,
		log:        log,
		db:         db,
		console:    newConsole(os.Stdout),
		monitoring: observability.NewMonitoring(log),
		client:     client,
		transport:  transport,
		repository: repositories.NewSessionRepository(db, log),
	}
	a.notifier = terminalNotifier{console: a.console}

	// 4. Session, resolved once and passed down
	a.sessions = services.NewSessionService(a.repository, client, a.notifier, log)
	session, err := a.sessions.Resolve(ctx, config.Identity)
	if err != nil && !session.LoggedIn() {
		a.close()
		return nil, fmt.Errorf("could not resolve user %q: %w", config.Identity, err)
	}
	if err != nil {
		log.Warn("Using stored user", "error", err)
	}
	a.session = session

	// 5. Caches
	a.directory = services.NewRoomDirectory(client, session, a.notifier, log, a.monitoring, config.DirectoryPerPage)
	a.memberships = services.NewMembershipCache(client, client, a.directory, a.notifier, log, config.DirectoryPerPage)
	return a, nil
}

func (a *app) close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	a.log.Debug("Closing BadgerDB...")
	_ = a.db.Close()
}
