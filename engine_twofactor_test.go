package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestTwoFactorFlow(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)
	ctx := context.Background()

	otp, err := engine.GenerateTwoFactorCode(ctx, user.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactorCode failed: %v", err)
	}
	if len(otp.Code) != 8 {
		t.Fatalf("expected 8-digit code, got %q", otp.Code)
	}

	if err := engine.VerifyTwoFactorCode(ctx, user.ID, otp.Code); err != nil {
		t.Fatalf("VerifyTwoFactorCode failed: %v", err)
	}
	if !provider.twoFactorVerified[user.ID] {
		t.Fatal("expected MarkTwoFactorVerified to be called")
	}
}

func TestTwoFactorCodeSingleUse(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)
	ctx := context.Background()

	otp, err := engine.GenerateTwoFactorCode(ctx, user.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactorCode failed: %v", err)
	}

	if err := engine.VerifyTwoFactorCode(ctx, user.ID, otp.Code); err != nil {
		t.Fatalf("VerifyTwoFactorCode failed: %v", err)
	}
	if err := engine.VerifyTwoFactorCode(ctx, user.ID, otp.Code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on reuse, got %v", err)
	}
}

func TestTwoFactorCodeBoundToUser(t *testing.T) {
	provider := newMockUserProvider()
	jane := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	eve := provider.addUser(t, "eve@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)
	ctx := context.Background()

	otp, err := engine.GenerateTwoFactorCode(ctx, jane.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactorCode failed: %v", err)
	}

	// Someone else's code does not verify.
	if err := engine.VerifyTwoFactorCode(ctx, eve.ID, otp.Code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for wrong user, got %v", err)
	}

	// The failed attempt must not consume the rightful owner's code.
	if err := engine.VerifyTwoFactorCode(ctx, jane.ID, otp.Code); err != nil {
		t.Fatalf("owner's code should still verify, got %v", err)
	}
}

func TestTwoFactorWrongCode(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)
	ctx := context.Background()

	if _, err := engine.GenerateTwoFactorCode(ctx, user.ID); err != nil {
		t.Fatalf("GenerateTwoFactorCode failed: %v", err)
	}

	if err := engine.VerifyTwoFactorCode(ctx, user.ID, "00000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}
