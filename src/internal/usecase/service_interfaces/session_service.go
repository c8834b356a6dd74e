package service_interfaces

import (
	"context"

	"github.com/api-sage/moneytransfer/src/internal/domain"
)

type SessionService interface {
	CurrentIdentity() *domain.Identity
	Login(ctx context.Context, username string, password string) (domain.Identity, error)
	Logout(ctx context.Context)
	IsAuthenticated() bool
	Token() string
	Subscribe(fn func(domain.Session)) (unsubscribe func())
	Watch(ctx context.Context) <-chan domain.Session
}
