package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/api-sage/moneytransfer/src/internal/domain"
)

type identityView struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	HolderName    string `json:"holderName"`
	AccountNumber string `json:"accountNumber"`
}

type transactionView struct {
	ID           string    `json:"id"`
	OccurredAt   time.Time `json:"occurredAt"`
	Direction    string    `json:"direction"`
	Amount       string    `json:"amount"`
	Counterparty string    `json:"counterparty"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
}

type snapshotView struct {
	Account      identityView      `json:"account"`
	Balance      string            `json:"balance"`
	Status       string            `json:"status,omitempty"`
	Transactions []transactionView `json:"transactions,omitempty"`
}

func (a *app) run(ctx context.Context, command string, args []string) int {
	var err error
	switch command {
	case "login":
		err = a.login(ctx, args)
	case "logout":
		a.sessions.Logout(ctx)
		err = a.print(commons.SuccessResponse("Logged out", struct{}{}))
	case "whoami":
		err = a.whoami()
	case "balance":
		err = a.snapshot(ctx, "balance", args, false)
	case "history":
		err = a.snapshot(ctx, "history", args, true)
	case "transfer":
		err = a.transfer(ctx, args)
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		usage()
		return 2
	}

	if err != nil {
		_ = a.print(errorResponse(err))
		return 1
	}
	return 0
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("user", "", "account id")
	password := fs.String("password", os.Getenv("TRANSFERCTL_PASSWORD"), "password (defaults to $TRANSFERCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	identity, err := a.sessions.Login(ctx, *user, *password)
	if err != nil {
		return err
	}
	return a.print(commons.SuccessResponse("Login successful", toIdentityView(identity)))
}

func (a *app) whoami() error {
	identity := a.sessions.CurrentIdentity()
	if identity == nil {
		return domain.ErrNotAuthenticated
	}
	return a.print(commons.SuccessResponse("Current session", toIdentityView(*identity)))
}

func (a *app) snapshot(ctx context.Context, name string, args []string, withHistory bool) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "bypass the cached snapshot")
	var direction *string
	if withHistory {
		direction = fs.String("direction", "all", "all, debit or credit")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	var keep func(domain.Direction) bool
	if withHistory {
		var err error
		if keep, err = directionFilter(*direction); err != nil {
			return err
		}
	}

	var (
		snapshot domain.AccountSnapshot
		err      error
	)
	if *refresh {
		snapshot, err = a.accounts.Refresh(ctx)
	} else {
		snapshot, err = a.accounts.GetAccountSnapshot(ctx)
	}
	if err != nil {
		return err
	}

	view := snapshotView{
		Account: toIdentityView(snapshot.Identity),
		Balance: snapshot.Balance.StringFixed(2),
		Status:  string(snapshot.Status),
	}
	if withHistory {
		view.Transactions = make([]transactionView, 0, len(snapshot.Transactions))
		for _, tx := range snapshot.Transactions {
			if keep(tx.Direction) {
				view.Transactions = append(view.Transactions, toTransactionView(tx))
			}
		}
	}
	return a.print(commons.SuccessResponse("Account snapshot", view))
}

func (a *app) transfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	to := fs.String("to", "", "destination account id")
	rawAmount := fs.String("amount", "", "amount, e.g. 250.00")
	remarks := fs.String("remarks", "", "optional description")
	key := fs.String("key", "", "idempotency key of a cancelled transfer to resume")
	if err := fs.Parse(args); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(*rawAmount)
	if err != nil {
		return &domain.ValidationError{Reason: domain.ReasonInvalidAmount}
	}

	var record domain.TransactionRecord
	if *key == "" {
		record, err = a.transfers.SubmitTransfer(ctx, *to, amount, *remarks)
	} else {
		attempt := a.transfers.NewAttempt(*to, amount, *remarks)
		attempt.IdempotencyKey = *key
		record, err = a.transfers.Submit(ctx, attempt)
	}
	if err != nil {
		return err
	}
	return a.print(commons.SuccessResponse("Transfer completed successfully", toTransactionView(record)))
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func directionFilter(name string) (func(domain.Direction) bool, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return func(domain.Direction) bool { return true }, nil
	case "debit", "sent":
		return func(d domain.Direction) bool { return d == domain.DirectionDebit }, nil
	case "credit", "received":
		return func(d domain.Direction) bool { return d == domain.DirectionCredit }, nil
	default:
		return nil, fmt.Errorf("invalid direction %q: want all, debit or credit", name)
	}
}

func errorResponse(err error) commons.Response[struct{}] {
	res := commons.ErrorResponse[struct{}](describeError(err), errorCode(err), err.Error())

	var cancelled *domain.CancelledError
	if errors.As(err, &cancelled) {
		res = res.WithIdempotencyKey(cancelled.IdempotencyKey)
	}
	return res
}

func errorCode(err error) string {
	var (
		validation *domain.ValidationError
		rejected   *domain.RejectedError
		notFound   *domain.NotFoundError
		cancelled  *domain.CancelledError
	)

	switch {
	case errors.Is(err, domain.ErrAuthentication):
		return commons.CodeAuthFailed
	case errors.Is(err, domain.ErrNotAuthenticated):
		return commons.CodeNotAuthenticated
	case errors.As(err, &validation):
		return commons.CodeValidationError
	case errors.As(err, &rejected):
		if rejected.Code != "" {
			return rejected.Code
		}
		return commons.CodeUnknown
	case errors.As(err, &notFound):
		return commons.CodeAccountNotFound
	case errors.As(err, &cancelled):
		return commons.CodeCancelled
	case domain.IsTransport(err):
		return commons.CodeTransportError
	default:
		return commons.CodeUnknown
	}
}

func describeError(err error) string {
	var (
		validation *domain.ValidationError
		rejected   *domain.RejectedError
		notFound   *domain.NotFoundError
		cancelled  *domain.CancelledError
	)

	switch {
	case errors.Is(err, domain.ErrAuthentication):
		return "Invalid username or password"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "Not logged in"
	case errors.As(err, &validation):
		return "Transfer not sent: " + validation.Reason
	case errors.As(err, &rejected):
		return "Rejected by backend"
	case errors.As(err, &notFound):
		return "Not found"
	case errors.As(err, &cancelled):
		return fmt.Sprintf("Cancelled; resubmit with key %s", cancelled.IdempotencyKey)
	case domain.IsTransport(err):
		return "Backend unreachable"
	default:
		return "Command failed"
	}
}

func toIdentityView(identity domain.Identity) identityView {
	return identityView{
		ID:            identity.ID,
		Username:      identity.Username,
		HolderName:    identity.HolderName,
		AccountNumber: identity.AccountNumber,
	}
}

func toTransactionView(tx domain.TransactionRecord) transactionView {
	return transactionView{
		ID:           tx.ID,
		OccurredAt:   tx.OccurredAt,
		Direction:    string(tx.Direction),
		Amount:       tx.Amount.StringFixed(2),
		Counterparty: tx.CounterpartyLabel,
		Status:       string(tx.Status),
		Description:  tx.Description,
	}
}
