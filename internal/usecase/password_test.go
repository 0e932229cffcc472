package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
)

type passwordFixture struct {
	service  *PasswordService
	accounts *fakeAccountRepo
	auditLog *fakeAuditRepo
	events   *fakePublisher
	hasher   *security.PasswordHasher
	now      time.Time
}

func newPasswordFixture(t *testing.T) *passwordFixture {
	t.Helper()

	f := &passwordFixture{
		accounts: newFakeAccountRepo(),
		auditLog: &fakeAuditRepo{},
		events:   &fakePublisher{},
		hasher:   testHasher(t),
		now:      time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	audit := NewAuditRecorder(f.auditLog, testLogger()).WithClock(clock)
	f.service = NewPasswordService(
		f.accounts,
		security.DefaultPasswordValidator(),
		f.hasher,
		audit,
		f.events,
		testLogger(),
	).WithClock(clock)
	return f
}

func (f *passwordFixture) seedAccount(t *testing.T, password string) domain.Account {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := domain.Account{
		ID:                  "acct-1",
		Username:            "joao.silva",
		PasswordHash:        hash,
		CreatedAt:           f.now,
		UpdatedAt:           f.now,
		PasswordLastChanged: f.now,
		PasswordExpiresAt:   f.now.Add(domain.PasswordMaxAge),
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if err := f.accounts.AddPasswordHistory(context.Background(), domain.PasswordHistoryEntry{
		ID:           "hist-0",
		AccountID:    account.ID,
		PasswordHash: hash,
		CreatedAt:    f.now,
	}); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	return account
}

func TestChangePasswordSuccess(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	f.now = f.now.Add(time.Hour)
	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "Old!Passw0rd",
		NewPassword:     "New!Passw0rd",
		SourceAddress:   "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Change returned error: %v", err)
	}

	updated, err := f.accounts.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}

	ok, err := f.hasher.Verify("New!Passw0rd", updated.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected new password to verify, ok=%v err=%v", ok, err)
	}
	if want := f.now.Add(domain.PasswordMaxAge); !updated.PasswordExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, updated.PasswordExpiresAt)
	}

	history, _ := f.accounts.ListPasswordHistory(context.Background(), account.ID, 10)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}

	if f.auditLog.last().Action != domain.AuditPasswordChanged {
		t.Fatalf("expected PASSWORD_CHANGED audit, got %s", f.auditLog.last().Action)
	}
	if len(f.events.changed) != 1 {
		t.Fatalf("expected password changed event, got %d", len(f.events.changed))
	}
}

func TestChangePasswordReportsAllPolicyViolations(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "Old!Passw0rd",
		NewPassword:     "abc",
	})

	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
	if len(policyErr.Violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(policyErr.Violations), policyErr.Messages())
	}

	entry := f.auditLog.last()
	if entry.Action != domain.AuditPasswordChangeFailed || entry.Details["reason"] != "policy_violation" {
		t.Fatalf("expected PASSWORD_CHANGE_FAILED policy audit, got %+v", entry)
	}
}

func TestChangePasswordPolicyCheckedBeforeCurrentPassword(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	// Wrong current password and weak candidate: the policy failure wins.
	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "wrong",
		NewPassword:     "weak",
	})

	var policyErr *PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError before credential check, got %v", err)
	}
}

func TestChangePasswordRejectsCurrentPasswordReuse(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "Old!Passw0rd",
		NewPassword:     "Old!Passw0rd",
	})
	if !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}

	entry := f.auditLog.last()
	if entry.Details["reason"] != "password_reused" {
		t.Fatalf("expected password_reused audit reason, got %v", entry.Details["reason"])
	}
}

func TestChangePasswordRejectsHistoricalReuse(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	f.now = f.now.Add(time.Hour)
	if err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "Old!Passw0rd",
		NewPassword:     "New!Passw0rd",
	}); err != nil {
		t.Fatalf("first change failed: %v", err)
	}

	// The original password is still in history.
	f.now = f.now.Add(time.Hour)
	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "New!Passw0rd",
		NewPassword:     "Old!Passw0rd",
	})
	if !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused for historical password, got %v", err)
	}
}

func TestChangePasswordWrongCurrentPassword(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: "wrong",
		NewPassword:     "New!Passw0rd",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	entry := f.auditLog.last()
	if entry.Details["reason"] != "wrong_current_password" {
		t.Fatalf("expected wrong_current_password audit reason, got %v", entry.Details["reason"])
	}
}

func TestChangePasswordUnknownAccount(t *testing.T) {
	f := newPasswordFixture(t)

	err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       "ghost",
		CurrentPassword: "Old!Passw0rd",
		NewPassword:     "New!Passw0rd",
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestChangePasswordHistoryDepthBounded(t *testing.T) {
	f := newPasswordFixture(t)
	account := f.seedAccount(t, "Old!Passw0rd")

	current := "Old!Passw0rd"
	for i := 0; i < domain.PasswordHistoryDepth+2; i++ {
		f.now = f.now.Add(time.Hour)
		next := fmt.Sprintf("Rotat3d!Pass%d", i)
		if err := f.service.Change(context.Background(), ChangePasswordInput{
			AccountID:       account.ID,
			CurrentPassword: current,
			NewPassword:     next,
		}); err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
		current = next
	}

	history, _ := f.accounts.ListPasswordHistory(context.Background(), account.ID, 0)
	if len(history) != domain.PasswordHistoryDepth {
		t.Fatalf("expected history bounded at %d, got %d", domain.PasswordHistoryDepth, len(history))
	}

	// A password that fell out of the retained window may be used again.
	f.now = f.now.Add(time.Hour)
	if err := f.service.Change(context.Background(), ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: current,
		NewPassword:     "Old!Passw0rd",
	}); err != nil {
		t.Fatalf("expected aged-out password to be accepted, got %v", err)
	}
}
