package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	accountStore "caretrack/internal/adapters/storage/account"
	"caretrack/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Username string
	Password string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
}

var ErrUsernameAlreadyExists = errors.New("an account with this username already exists")

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid username, password >= 8 chars, valid role
// POST: Account created with hashed password
// INVARIANT: Username must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	username := strings.TrimSpace(input.Username)

	if _, err := deps.AccountStore.GetByUsername(ctx, username); err == nil {
		return "", ErrUsernameAlreadyExists
	} else if !errors.Is(err, accountStore.ErrNotFound) {
		return "", err
	}

	acct := account.Account{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      input.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}

	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		if errors.Is(err, accountStore.ErrDuplicateUsername) {
			return "", ErrUsernameAlreadyExists
		}
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "username", username, "role", input.Role)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates the configured admin account if no accounts exist.
// PRE: Database is migrated
// POST: Admin account created if count == 0; returns whether one was created
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, username, password string) (bool, error) {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Username: username,
		Password: password,
		Role:     account.RoleAdmin,
	}, deps); err != nil {
		return false, err
	}

	slog.Info("auth_event", "event", "admin_seeded", "username", username)
	return true, nil
}

// AccountStoreForList defines the store interface needed by ListAccounts.
type AccountStoreForList interface {
	List(ctx context.Context, filter accountStore.ListFilter) ([]account.Account, error)
}

// ExecuteListAccounts returns every account, oldest first, optionally filtered by role.
func ExecuteListAccounts(ctx context.Context, role string, store AccountStoreForList) ([]account.Account, error) {
	return store.List(ctx, accountStore.ListFilter{Role: role})
}
