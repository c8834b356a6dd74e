package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/usecase/service_interfaces"
)

const (
	currentUserKey = "currentUser"
	tokenKey       = "token"
)

type subscriber struct {
	id int
	fn func(domain.Session)
}

// SessionService owns the single authentication slot of the process.
// Subscribers are called synchronously, in registration order, and must not
// call Login or Logout from inside the callback.
type SessionService struct {
	store   repo_interfaces.KeyValueStore
	gateway service_interfaces.BackendGateway
	metrics *metrics.Metrics

	// transitionMu orders state changes with their notifications.
	transitionMu sync.Mutex

	mu          sync.RWMutex
	session     domain.Session
	subscribers []subscriber
	nextID      int
}

// NewSessionService builds the service and hydrates it from the store.
func NewSessionService(
	ctx context.Context,
	store repo_interfaces.KeyValueStore,
	gateway service_interfaces.BackendGateway,
	m *metrics.Metrics,
) (*SessionService, error) {
	s := &SessionService{
		store:   store,
		gateway: gateway,
		metrics: m,
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory session with what the store holds. An
// unreadable identity is dropped; the token is kept on its own.
func (s *SessionService) Load(ctx context.Context) error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	token, err := s.store.Get(ctx, tokenKey)
	if err != nil && !errors.Is(err, commons.ErrRecordNotFound) {
		return fmt.Errorf("load session token: %w", err)
	}

	rawIdentity, err := s.store.Get(ctx, currentUserKey)
	if err != nil && !errors.Is(err, commons.ErrRecordNotFound) {
		return fmt.Errorf("load session identity: %w", err)
	}

	session := domain.Session{Token: strings.TrimSpace(token)}
	if strings.TrimSpace(rawIdentity) != "" {
		var identity domain.Identity
		if err := json.Unmarshal([]byte(rawIdentity), &identity); err != nil {
			logger.Warn("session service discarded unreadable identity", logger.Fields{
				"error": err.Error(),
			})
		} else {
			session.Identity = &identity
		}
	}

	s.setAndPublish(session, "load")

	logger.Info("session service loaded session", logger.Fields{
		"authenticated": session.IsAuthenticated(),
		"hasIdentity":   session.Identity != nil,
	})
	return nil
}

func (s *SessionService) CurrentIdentity() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.Identity == nil {
		return nil
	}
	identity := *s.session.Identity
	return &identity
}

func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated()
}

func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Session returns a copy of the current session.
func (s *SessionService) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.session)
}

func (s *SessionService) Login(ctx context.Context, username string, password string) (domain.Identity, error) {
	logger.Info("session service login request", logger.Fields{
		"payload": logger.SanitizePayload(map[string]any{
			"username": username,
			"password": password,
		}),
	})

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Identity{}, fmt.Errorf("login: %w", domain.ErrAuthentication)
	}

	result, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		logger.Error("session service login failed", err, logger.Fields{
			"username": username,
		})
		return domain.Identity{}, err
	}

	identity := domain.Identity{
		ID:            result.AccountID,
		Username:      username,
		HolderName:    result.HolderName,
		AccountNumber: domain.MaskAccountNumber(result.AccountID),
	}
	session := domain.Session{Identity: &identity, Token: result.Token}

	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	previous := s.Session()
	if err := s.persist(ctx, session); err != nil {
		logger.Error("session service persist login failed", err, logger.Fields{
			"accountId": identity.ID,
		})
		if restoreErr := s.restore(ctx, previous); restoreErr != nil {
			logger.Error("session service restore previous session failed", restoreErr, nil)
		}
		return domain.Identity{}, fmt.Errorf("persist session: %w", err)
	}

	s.setAndPublish(session, "login")

	logger.Info("session service login success", logger.Fields{
		"accountId":  identity.ID,
		"holderName": identity.HolderName,
	})
	return identity, nil
}

// Logout clears the stored session and publishes the empty one. Store errors
// are logged and otherwise ignored.
func (s *SessionService) Logout(ctx context.Context) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	for _, key := range []string{currentUserKey, tokenKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			logger.Error("session service clear stored key failed", err, logger.Fields{
				"key": key,
			})
		}
	}

	s.setAndPublish(domain.Session{}, "logout")
	logger.Info("session service logout", nil)
}

// Subscribe registers fn and calls it once with the current session before
// returning. The returned func removes the registration.
func (s *SessionService) Subscribe(fn func(domain.Session)) func() {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	current := copySession(s.session)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Watch delivers sessions on a channel that always holds the latest value.
// The channel is closed once ctx is done.
func (s *SessionService) Watch(ctx context.Context) <-chan domain.Session {
	ch := make(chan domain.Session, 1)

	var mu sync.Mutex
	closed := false

	unsubscribe := s.Subscribe(func(session domain.Session) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- session
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

func (s *SessionService) persist(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.store.Set(ctx, currentUserKey, string(raw)); err != nil {
		return err
	}
	return s.store.Set(ctx, tokenKey, session.Token)
}

func (s *SessionService) restore(ctx context.Context, previous domain.Session) error {
	if previous.Identity == nil && previous.Token == "" {
		return errors.Join(
			s.store.Delete(ctx, currentUserKey),
			s.store.Delete(ctx, tokenKey),
		)
	}
	if previous.Identity == nil {
		return errors.Join(
			s.store.Delete(ctx, currentUserKey),
			s.store.Set(ctx, tokenKey, previous.Token),
		)
	}
	return s.persist(ctx, previous)
}

// setAndPublish must be called with transitionMu held.
func (s *SessionService) setAndPublish(session domain.Session, kind string) {
	s.mu.Lock()
	s.session = copySession(session)
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	s.metrics.ObserveSessionChange(kind)

	for _, sub := range subs {
		sub.fn(copySession(session))
	}
}

func copySession(session domain.Session) domain.Session {
	out := domain.Session{Token: session.Token}
	if session.Identity != nil {
		identity := *session.Identity
		out.Identity = &identity
	}
	return out
}
