package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/repository"
)

// testHasher uses lightweight Argon2 parameters so unit tests stay fast.
func testHasher(t *testing.T) *security.PasswordHasher {
	t.Helper()
	hasher, err := security.NewPasswordHasher(security.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return hasher
}

func testTokens(t *testing.T, now func() time.Time) *security.TokenManager {
	t.Helper()
	tokens, err := security.NewTokenManager("unit-test-secret", "patrimoniotools", 24*time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return tokens.WithClock(now)
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	history  map[string][]domain.PasswordHistoryEntry
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[string]domain.Account),
		history:  make(map[string][]domain.PasswordHistoryEntry),
	}
}

func (f *fakeAccountRepo) Create(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := account
	return &copied, nil
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if strings.EqualFold(account.Username, username) {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id string, passwordHash string, changedAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordLastChanged = changedAt
	account.PasswordExpiresAt = expiresAt
	account.UpdatedAt = changedAt
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) UpdateProfile(_ context.Context, id string, email, phone *string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Email = email
	account.Phone = phone
	account.UpdatedAt = updatedAt
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) ListPasswordHistory(_ context.Context, accountID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := append([]domain.PasswordHistoryEntry(nil), f.history[accountID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeAccountRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[entry.AccountID] = append(f.history[entry.AccountID], entry)
	return nil
}

func (f *fakeAccountRepo) TrimPasswordHistory(_ context.Context, accountID string, maxEntries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[accountID]
	if maxEntries <= 0 || len(entries) <= maxEntries {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	f.history[accountID] = entries[:maxEntries]
	return nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (f *fakeAttemptRepo) key(username, sourceAddress string) func(domain.LoginAttempt) bool {
	return func(a domain.LoginAttempt) bool {
		return a.Username == username && a.SourceAddress == sourceAddress
	}
}

func (f *fakeAttemptRepo) Record(_ context.Context, attempt domain.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeAttemptRepo) Latest(_ context.Context, username, sourceAddress string) (*domain.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match := f.key(username, sourceAddress)
	var latest *domain.LoginAttempt
	for i := range f.attempts {
		attempt := f.attempts[i]
		if !match(attempt) {
			continue
		}
		if latest == nil || attempt.AttemptedAt.After(latest.AttemptedAt) {
			copied := attempt
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeAttemptRepo) CountFailuresSinceSuccess(_ context.Context, username, sourceAddress string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match := f.key(username, sourceAddress)

	var lastSuccess time.Time
	for _, attempt := range f.attempts {
		if match(attempt) && attempt.Success && attempt.AttemptedAt.After(lastSuccess) {
			lastSuccess = attempt.AttemptedAt
		}
	}

	count := 0
	for _, attempt := range f.attempts {
		if match(attempt) && !attempt.Success && attempt.AttemptedAt.After(lastSuccess) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) Lock(_ context.Context, username, sourceAddress string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	match := f.key(username, sourceAddress)
	for i := range f.attempts {
		if match(f.attempts[i]) {
			lock := until
			f.attempts[i].LockedUntil = &lock
		}
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAuditRepo) Record(_ context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []domain.AuditEntry
	for _, entry := range f.entries {
		if entry.AccountID != nil && *entry.AccountID == accountID {
			entries = append(entries, entry)
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.AuditEntry
	var removed int64
	for _, entry := range f.entries {
		if entry.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	f.entries = kept
	return removed, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (f *fakeAuditRepo) last() *domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	entry := f.entries[len(f.entries)-1]
	return &entry
}

type fakePublisher struct {
	mu        sync.Mutex
	succeeded []domain.LoginSucceededEvent
	failed    []domain.LoginFailedEvent
	locked    []domain.AccountLockedEvent
	changed   []domain.PasswordChangedEvent
	created   []domain.UserRegisteredEvent
}

func (f *fakePublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded = append(f.succeeded, event)
	return nil
}

func (f *fakePublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, event)
	return nil
}

func (f *fakePublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, event)
	return nil
}

func (f *fakePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, event)
	return nil
}

func (f *fakePublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, event)
	return nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
