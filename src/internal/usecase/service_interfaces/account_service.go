package service_interfaces

import (
	"context"

	"github.com/api-sage/moneytransfer/src/internal/domain"
)

type AccountService interface {
	GetAccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error)
	Refresh(ctx context.Context) (domain.AccountSnapshot, error)
	Invalidate()
	CachedSnapshot() (domain.AccountSnapshot, bool)
}
