package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/config"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
)

type authFixture struct {
	service  *AuthService
	accounts *fakeAccountRepo
	attempts *fakeAttemptRepo
	auditLog *fakeAuditRepo
	events   *fakePublisher
	hasher   *security.PasswordHasher
	tokens   *security.TokenManager
	now      time.Time
	clock    func() time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	f := &authFixture{
		accounts: newFakeAccountRepo(),
		attempts: &fakeAttemptRepo{},
		auditLog: &fakeAuditRepo{},
		events:   &fakePublisher{},
		hasher:   testHasher(t),
		now:      now,
	}
	f.clock = func() time.Time { return f.now }

	f.tokens = testTokens(t, f.clock)
	guard := NewLockoutGuard(f.attempts, config.LockoutSettings{
		MaxAttempts:  5,
		LockDuration: 15 * time.Minute,
	}).WithClock(f.clock)
	audit := NewAuditRecorder(f.auditLog, testLogger()).WithClock(f.clock)

	f.service = NewAuthService(f.accounts, guard, audit, f.events, f.hasher, f.tokens, testLogger()).WithClock(f.clock)
	return f
}

func (f *authFixture) seedAccount(t *testing.T, username, password string) domain.Account {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	account := domain.Account{
		ID:                  "acct-" + username,
		Username:            username,
		PasswordHash:        hash,
		CreatedAt:           f.now,
		UpdatedAt:           f.now,
		PasswordLastChanged: f.now,
		PasswordExpiresAt:   f.now.Add(domain.PasswordMaxAge),
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	result, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := f.tokens.Verify(result.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != account.ID || claims.Username != "joao.silva" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if result.Account.PasswordHash != "" {
		t.Fatal("expected sanitized account in result")
	}

	if len(f.attempts.attempts) != 1 || !f.attempts.attempts[0].Success {
		t.Fatalf("expected exactly one successful attempt, got %+v", f.attempts.attempts)
	}

	actions := f.auditLog.actions()
	if len(actions) != 1 || actions[0] != domain.AuditLoginSuccess {
		t.Fatalf("expected LOGIN_SUCCESS audit, got %v", actions)
	}
	if len(f.events.succeeded) != 1 {
		t.Fatalf("expected login succeeded event, got %d", len(f.events.succeeded))
	}
}

func TestLoginRejectsEmptyInputWithoutSideEffects(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	var vErr *ValidationError
	_, err := f.service.Login(context.Background(), LoginInput{Password: "x", SourceAddress: "203.0.113.7"})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = f.service.Login(context.Background(), LoginInput{Username: "joao.silva", SourceAddress: "203.0.113.7"})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if len(f.attempts.attempts) != 0 {
		t.Fatalf("expected no attempts recorded, got %d", len(f.attempts.attempts))
	}
	if len(f.auditLog.actions()) != 0 {
		t.Fatalf("expected no audit entries, got %v", f.auditLog.actions())
	}
}

func TestLoginUnknownUsernameStillThrottled(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "ghost",
		Password:      "whatever",
		SourceAddress: "203.0.113.7",
	})

	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if loginErr.RemainingAttempts == nil || *loginErr.RemainingAttempts != 4 {
		t.Fatalf("expected 4 remaining attempts, got %v", loginErr.RemainingAttempts)
	}

	entry := f.auditLog.last()
	if entry == nil || entry.Action != domain.AuditLoginFailed {
		t.Fatalf("expected LOGIN_FAILED audit, got %+v", entry)
	}
	if entry.AccountID != nil {
		t.Fatalf("expected nil account id for unknown username, got %v", *entry.AccountID)
	}

	if len(f.attempts.attempts) != 1 {
		t.Fatalf("expected one attempt recorded, got %d", len(f.attempts.attempts))
	}
}

func TestLoginWrongPasswordCountsDown(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	for i := 1; i <= 2; i++ {
		f.now = f.now.Add(time.Second)
		_, err := f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})

		var loginErr *LoginError
		if !errors.As(err, &loginErr) {
			t.Fatalf("attempt %d: expected LoginError, got %v", i, err)
		}
		if loginErr.RemainingAttempts == nil || *loginErr.RemainingAttempts != 5-i {
			t.Fatalf("attempt %d: expected %d remaining, got %v", i, 5-i, loginErr.RemainingAttempts)
		}
	}

	entry := f.auditLog.last()
	if entry.AccountID == nil || *entry.AccountID != account.ID {
		t.Fatal("expected failure audit bound to the account")
	}
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	var lastErr error
	for i := 0; i < 5; i++ {
		f.now = f.now.Add(time.Second)
		_, lastErr = f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})
	}

	var lockedErr *LockedError
	if !errors.As(lastErr, &lockedErr) {
		t.Fatalf("expected LockedError on fifth failure, got %v", lastErr)
	}
	if want := f.now.Add(15 * time.Minute); !lockedErr.Until.Equal(want) {
		t.Fatalf("expected lock until %v, got %v", want, lockedErr.Until)
	}

	actions := f.auditLog.actions()
	if actions[len(actions)-1] != domain.AuditAccountLocked {
		t.Fatalf("expected ACCOUNT_LOCKED audit, got %v", actions)
	}
	if len(f.events.locked) != 1 {
		t.Fatalf("expected account locked event, got %d", len(f.events.locked))
	}

	// Correct password while locked is still rejected and recorded.
	f.now = f.now.Add(time.Minute)
	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	})
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected LockedError while lock active, got %v", err)
	}
	if f.auditLog.last().Action != domain.AuditLoginBlocked {
		t.Fatalf("expected LOGIN_BLOCKED audit, got %s", f.auditLog.last().Action)
	}
	if len(f.attempts.attempts) != 6 {
		t.Fatalf("expected blocked attempt recorded, got %d attempts", len(f.attempts.attempts))
	}
}

func TestLoginLockHoldsAcrossRepeatedRetries(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	for i := 0; i < 5; i++ {
		f.now = f.now.Add(time.Second)
		_, _ = f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})
	}
	lockedAt := f.now

	// Every retry inside the window must stay locked, even though each one
	// appends a fresh attempt row that becomes the newest for the pair.
	var lockedErr *LockedError
	for i, offset := range []time.Duration{time.Minute, 7 * time.Minute, 14 * time.Minute} {
		f.now = lockedAt.Add(offset)
		_, err := f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "Str0ng!Passphrase",
			SourceAddress: "203.0.113.7",
		})
		if !errors.As(err, &lockedErr) {
			t.Fatalf("retry %d: expected LockedError, got %v", i, err)
		}
		if want := lockedAt.Add(15 * time.Minute); !lockedErr.Until.Equal(want) {
			t.Fatalf("retry %d: expected lock until %v, got %v", i, want, lockedErr.Until)
		}
	}

	// Once the original expiry passes the pair unlocks by time alone.
	f.now = lockedAt.Add(16 * time.Minute)
	if _, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	}); err != nil {
		t.Fatalf("expected login after lock expiry to succeed, got %v", err)
	}
}

func TestLoginSuccessResetsFailureStreak(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	for i := 0; i < 4; i++ {
		f.now = f.now.Add(time.Second)
		_, _ = f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})
	}

	f.now = f.now.Add(time.Second)
	if _, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	}); err != nil {
		t.Fatalf("expected success on fifth attempt, got %v", err)
	}

	// Only failures after the success count against the budget.
	f.now = f.now.Add(time.Second)
	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "wrong",
		SourceAddress: "203.0.113.7",
	})

	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if loginErr.RemainingAttempts == nil || *loginErr.RemainingAttempts != 4 {
		t.Fatalf("expected 4 remaining after reset, got %v", loginErr.RemainingAttempts)
	}
}

func TestLoginLockExpires(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	for i := 0; i < 5; i++ {
		f.now = f.now.Add(time.Second)
		_, _ = f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})
	}

	f.now = f.now.Add(16 * time.Minute)
	result, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("expected login to succeed after lock expiry, got %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
}

func TestLoginLockIsScopedToSourceAddress(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	for i := 0; i < 5; i++ {
		f.now = f.now.Add(time.Second)
		_, _ = f.service.Login(context.Background(), LoginInput{
			Username:      "joao.silva",
			Password:      "wrong",
			SourceAddress: "203.0.113.7",
		})
	}

	// Same username from another address is unaffected.
	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "198.51.100.1",
	})
	if err != nil {
		t.Fatalf("expected login from other address to succeed, got %v", err)
	}
}

func TestLoginPasswordExpired(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	// Move past the rotation window.
	f.now = account.PasswordLastChanged.Add(domain.PasswordMaxAge + time.Hour)

	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	})
	if !errors.Is(err, ErrPasswordExpired) {
		t.Fatalf("expected ErrPasswordExpired, got %v", err)
	}
	if f.auditLog.last().Action != domain.AuditLoginPasswordExpired {
		t.Fatalf("expected LOGIN_PASSWORD_EXPIRED audit, got %s", f.auditLog.last().Action)
	}
	if len(f.attempts.attempts) != 1 || !f.attempts.attempts[0].Success {
		t.Fatal("expected the verified attempt to be recorded as success")
	}
}

func TestLoginAtExactRotationBoundaryIsAccepted(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	f.now = account.PasswordLastChanged.Add(domain.PasswordMaxAge)

	if _, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	}); err != nil {
		t.Fatalf("expected login at exact boundary to succeed, got %v", err)
	}
}

func TestLoginZeroPasswordTimestampFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")
	account.PasswordLastChanged = time.Time{}
	_ = f.accounts.Create(context.Background(), account)

	_, err := f.service.Login(context.Background(), LoginInput{
		Username:      "joao.silva",
		Password:      "Str0ng!Passphrase",
		SourceAddress: "203.0.113.7",
	})
	if !errors.Is(err, ErrPasswordExpired) {
		t.Fatalf("expected ErrPasswordExpired for zero timestamp, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	f := newAuthFixture(t)
	account := f.seedAccount(t, "joao.silva", "Str0ng!Passphrase")

	token, _, err := f.tokens.Issue(account.ID, account.Username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	loaded, claims, err := f.service.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if loaded.ID != account.ID || claims.Username != account.Username {
		t.Fatalf("unexpected validate result: %+v", loaded)
	}
	if loaded.PasswordHash != "" {
		t.Fatal("expected sanitized account")
	}

	if _, _, err := f.service.Validate(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	f.now = f.now.Add(25 * time.Hour)
	if _, _, err := f.service.Validate(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateMissingAccount(t *testing.T) {
	f := newAuthFixture(t)

	token, _, err := f.tokens.Issue("gone", "ghost")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, _, err := f.service.Validate(context.Background(), token); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
