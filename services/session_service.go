package services

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/errors"
	"chatlark/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
)

type ISessionService interface {
	Resolve(ctx context.Context, identity string) (domain.Session, error)
	Refresh(ctx context.Context, identity string) (domain.Session, error)
	Forget() error
	Close()
}

// SessionService resolves who the current user is.
// The last resolved user is kept in the durable app_user slot so a restart
// does not wait for the network.
type SessionService struct {
	repository repositories.ISessionRepository
	api        contract.IdentityAPI
	notifier   contract.Notifier
	log        *slog.Logger

	// background refreshes started by Resolve on a slot hit
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionService(repository repositories.ISessionRepository, api contract.IdentityAPI,
	notifier contract.Notifier, log *slog.Logger) *SessionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{repository: repository, api: api, notifier: notifier, log: log,
		ctx: ctx, cancel: cancel}
}

// Resolve answers from the slot when it was stored for this identity, from the
// server otherwise. A slot hit still re-resolves the identity in the background
// so the slot follows renames and profile changes.
func (s *SessionService) Resolve(ctx context.Context, identity string) (domain.Session, error) {
	user, err := s.repository.LoadUser(identity)
	if err == nil {
		s.log.Debug(fmt.Sprintf("Using stored user %d", user.ID))
		s.refreshInBackground(identity)
		return domain.NewSession(identity, &user), nil
	}
	if !goerrors.Is(err, errors.ErrSessionMissing) {
		s.log.Warn("Reading stored user failed", "error", err)
	}
	return s.Refresh(ctx, identity)
}

// Refresh re-resolves the identity and overwrites the slot on success.
// On failure the stored user, if any, is kept and returned with the error.
func (s *SessionService) Refresh(ctx context.Context, identity string) (domain.Session, error) {
	user, err := s.api.FetchUserByIdentity(ctx, identity)
	if err != nil {
		s.log.Warn("Failed to load user data", "identity", identity, "error", err)
		s.notifier.Error("Failed to load user data")
		session := domain.NewSession(identity, nil)
		if stored, loadErr := s.repository.LoadUser(identity); loadErr == nil {
			session.User = &stored
		}
		return session, fmt.Errorf("%w: %v", errors.ErrIdentityFailed, err)
	}

	if err := s.repository.SaveUser(identity, user); err != nil {
		s.log.Warn("Storing user failed", "error", err)
	}
	s.log.Info(fmt.Sprintf("Logged in as %s (%d)", user.Login, user.ID))
	return domain.NewSession(identity, &user), nil
}

// refreshInBackground overwrites the slot when the server answers.
// Failures are only logged: the stored user is already in use.
func (s *SessionService) refreshInBackground(identity string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		user, err := s.api.FetchUserByIdentity(s.ctx, identity)
		if err != nil {
			s.log.Debug("Background user refresh failed", "identity", identity, "error", err)
			return
		}
		if err := s.repository.SaveUser(identity, user); err != nil {
			s.log.Warn("Storing user failed", "error", err)
		}
	}()
}

// Close stops pending background refreshes and waits for them.
// The repository must stay open until Close returns.
func (s *SessionService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Forget wipes the stored user.
func (s *SessionService) Forget() error {
	return s.repository.Clear()
}
