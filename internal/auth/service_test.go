package auth

import (
	"context"
	"testing"
	"time"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/logging"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
	"github.com/monitor-mbg/monitor_mbg/internal/user"
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:             "test",
		JWTSecret:          "test_secret",
		RateLimitPerSecond: 100,
		OTPTTL:             300 * time.Second,
		OTPMaxAttempts:     5,
		PhonePrefix:        "62",
	}
}

func newTestService(t *testing.T) (*Service, *otp.MemoryStore) {
	t.Helper()
	cfg := testConfig()
	store := otp.NewMemoryStore(cfg.OTPTTL, cfg.OTPMaxAttempts, otp.NewPhoneRules(cfg.PhonePrefix))
	svc, err := NewService(cfg, user.NewMemoryDirectory(), store, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

// capturingChannel records the last delivery so tests can learn the code.
type capturingChannel struct {
	enabled bool
	fail    bool
	phone   string
	code    string
	ref     string
}

func (c *capturingChannel) Enabled() bool { return c.enabled }

func (c *capturingChannel) Send(_ context.Context, phone, code, referenceID string) error {
	c.phone, c.code, c.ref = phone, code, referenceID
	if c.fail {
		return apperr.ServiceUnavailable("Failed to send WhatsApp message")
	}
	return nil
}

func registerInput() RegisterInput {
	return RegisterInput{
		Name:       "  Test User  ",
		Role:       user.RoleKitchen,
		UniqueCode: "  KITCHEN_TEST  ",
		Password:   "password123",
		Phone:      "08123456789",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, created, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if created.Name != "Test User" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.UniqueCode != "KITCHEN_TEST" {
		t.Fatalf("expected trimmed unique code, got %q", created.UniqueCode)
	}

	// The token carries the created record's id and role.
	claims, err := svc.Codec().Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("parse subject: %v", err)
	}
	if id != created.ID || claims.Role != created.Role {
		t.Fatalf("token claims do not match created record")
	}

	loginToken, account, err := svc.Login(ctx, "KITCHEN_TEST", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginToken == "" || account.ID != created.ID {
		t.Fatalf("unexpected login result")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, registerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	for name, attempt := range map[string][2]string{
		"wrong password": {"KITCHEN_TEST", "wrongpassword"},
		"unknown user":   {"NONEXISTENT", "password123"},
	} {
		_, _, err := svc.Login(ctx, attempt[0], attempt[1])
		if err == nil {
			t.Fatalf("%s: expected login to fail", name)
		}
		ae, ok := apperr.As(err)
		if !ok || ae.Kind != apperr.KindUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
		if ae.Message != "Invalid credentials" {
			t.Fatalf("%s: expected uniform message, got %q", name, ae.Message)
		}
	}
}

func TestLoginUnknownUserDoesKDFWork(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, registerInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	known := failedLoginDuration(t, svc, "KITCHEN_TEST", "wrongpassword")
	unknown := failedLoginDuration(t, svc, "NONEXISTENT", "wrongpassword")

	// Without the dummy-hash derivation the unknown-user path would return
	// in microseconds while the wrong-password path runs the full KDF.
	if unknown < known/4 {
		t.Fatalf("unknown-user login took %s vs %s for a wrong password", unknown, known)
	}
}

func failedLoginDuration(t *testing.T, svc *Service, code, password string) time.Duration {
	t.Helper()
	var best time.Duration
	for i := 0; i < 3; i++ {
		start := time.Now()
		if _, _, err := svc.Login(context.Background(), code, password); err == nil {
			t.Fatal("expected login to fail")
		}
		if d := time.Since(start); i == 0 || d < best {
			best = d
		}
	}
	return best
}

func TestRegisterDuplicateUniqueCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := registerInput()
	in.UniqueCode = "DUPLICATE_CODE"
	if _, _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}

	in.Password = "different-password"
	_, _, err := svc.Register(ctx, in)
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if ae.Message != "User with this unique code already exists" {
		t.Fatalf("unexpected message %q", ae.Message)
	}
}

func TestRegisterValidationBoundaries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*RegisterInput){
		"password too short": func(in *RegisterInput) { in.Password = "five5" },
		"password too long":  func(in *RegisterInput) { in.Password = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" },
		"empty name":         func(in *RegisterInput) { in.Name = "   " },
		"empty unique code":  func(in *RegisterInput) { in.UniqueCode = "" },
		"invalid role":       func(in *RegisterInput) { in.Role = "inspector" },
	}

	for name, mutate := range cases {
		in := registerInput()
		mutate(&in)
		_, _, err := svc.Register(ctx, in)
		if err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
		ae, ok := apperr.As(err)
		if !ok || ae.Kind != apperr.KindBadRequest {
			t.Fatalf("%s: expected bad request, got %v", name, err)
		}
	}
}

func TestSendOTPInvalidPhone(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.SendOTP(context.Background(), "12345")
	if err == nil {
		t.Fatal("expected invalid phone to fail")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestSendOTPDisabledChannel(t *testing.T) {
	svc, _ := newTestService(t)

	ref, ttl, err := svc.SendOTP(context.Background(), "08123456789")
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if ref == "" {
		t.Fatal("expected a reference id")
	}
	if ttl != 300 {
		t.Fatalf("expected ttl 300 got %d", ttl)
	}
}

func TestSendOTPDeliveryFailureRollsBack(t *testing.T) {
	cfg := testConfig()
	store := otp.NewMemoryStore(cfg.OTPTTL, cfg.OTPMaxAttempts, otp.NewPhoneRules(cfg.PhonePrefix))
	channel := &capturingChannel{enabled: true, fail: true}
	svc, err := NewService(cfg, user.NewMemoryDirectory(), store, channel, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, _, err = svc.SendOTP(context.Background(), "08123456789")
	if err == nil {
		t.Fatal("expected delivery failure to surface")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindServiceUnavailable {
		t.Fatalf("expected service unavailable, got %v", err)
	}

	// The stored entry was rolled back with the failed delivery.
	outcome, err := store.Verify(context.Background(), channel.ref, "08123456789", channel.code, time.Now())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != otp.OutcomeNotFound {
		t.Fatalf("expected rolled-back entry, got %s", outcome)
	}
}

func TestOTPFullFlow(t *testing.T) {
	cfg := testConfig()
	store := otp.NewMemoryStore(cfg.OTPTTL, cfg.OTPMaxAttempts, otp.NewPhoneRules(cfg.PhonePrefix))
	channel := &capturingChannel{enabled: true}
	svc, err := NewService(cfg, user.NewMemoryDirectory(), store, channel, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	ref, _, err := svc.SendOTP(ctx, "08123456789")
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if channel.ref != ref {
		t.Fatalf("expected channel delivery for %s, got %s", ref, channel.ref)
	}

	verified, err := svc.VerifyOTP(ctx, ref, "08123456789", channel.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified {
		t.Fatal("expected verification to succeed")
	}

	_, err = svc.VerifyOTP(ctx, ref, "08123456789", channel.code)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindBadRequest || ae.Message != "OTP has already been verified" {
		t.Fatalf("expected already-verified error, got %v", err)
	}
}

func TestVerifyOTPAttemptCap(t *testing.T) {
	cfg := testConfig()
	store := otp.NewMemoryStore(cfg.OTPTTL, cfg.OTPMaxAttempts, otp.NewPhoneRules(cfg.PhonePrefix))
	channel := &capturingChannel{enabled: true}
	svc, err := NewService(cfg, user.NewMemoryDirectory(), store, channel, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	ref, _, err := svc.SendOTP(ctx, "08123456789")
	if err != nil {
		t.Fatalf("send otp: %v", err)
	}

	wrong := "000000"
	if wrong == channel.code {
		wrong = "000001"
	}

	for i := 0; i < 4; i++ {
		verified, err := svc.VerifyOTP(ctx, ref, "08123456789", wrong)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if verified {
			t.Fatalf("attempt %d: expected mismatch", i)
		}
	}

	_, err = svc.VerifyOTP(ctx, ref, "08123456789", wrong)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindTooManyRequests {
		t.Fatalf("expected too many requests, got %v", err)
	}

	_, err = svc.VerifyOTP(ctx, ref, "08123456789", channel.code)
	ae, ok = apperr.As(err)
	if !ok || ae.Kind != apperr.KindNotFound {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}

func TestVerifyOTPUnknownReference(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyOTP(context.Background(), "otp_missing", "08123456789", "123456")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindNotFound || ae.Message != "Invalid reference ID" {
		t.Fatalf("expected invalid-reference error, got %v", err)
	}
}
