package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/config"
	"github.com/monitor-mbg/monitor_mbg/internal/otp"
	"github.com/monitor-mbg/monitor_mbg/internal/user"
	"github.com/monitor-mbg/monitor_mbg/internal/whatsapp"
)

const invalidCredentials = "Invalid credentials"

// Service orchestrates registration, login and phone verification.
type Service struct {
	cfg     config.Config
	users   user.Directory
	otps    otp.Store
	channel whatsapp.Channel
	codec   *TokenCodec
	rules   otp.PhoneRules
	logger  *slog.Logger

	// dummyHash is verified against whenever the looked-up account is
	// missing, so login does the same KDF work on every path.
	dummyHash string
}

// NewService wires the credential core. The dummy hash is derived once at
// startup with production parameters from a random throwaway password.
func NewService(cfg config.Config, users user.Directory, otps otp.Store, channel whatsapp.Channel, logger *slog.Logger) (*Service, error) {
	dummy, err := HashPassword(uuid.NewString(), DefaultParams)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		users:     users,
		otps:      otps,
		channel:   channel,
		codec:     NewTokenCodec(cfg.JWTSecret),
		rules:     otp.NewPhoneRules(cfg.PhonePrefix),
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Codec exposes the token codec for the request guard.
func (s *Service) Codec() *TokenCodec { return s.codec }

// RegisterInput carries the registration fields after JSON decoding.
type RegisterInput struct {
	Name            string
	Role            user.Role
	UniqueCode      string
	Password        string
	Phone           string
	InstitutionName string
}

// Register validates the input, stores the new account and issues a token
// derived from the created record.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, user.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.UniqueCode = strings.TrimSpace(in.UniqueCode)

	if len(in.Password) < 8 {
		return "", user.User{}, apperr.BadRequest("Password must be at least 8 characters long")
	}
	if len(in.Password) > 32 {
		return "", user.User{}, apperr.BadRequest("Password must be less than 32 characters long")
	}
	if in.UniqueCode == "" || len(in.UniqueCode) > 50 {
		return "", user.User{}, apperr.BadRequest("Unique code must be between 1 and 50 characters")
	}
	if in.Name == "" || len(in.Name) > 255 {
		return "", user.User{}, apperr.BadRequest("Name must be between 1 and 255 characters")
	}
	if !in.Role.Valid() {
		return "", user.User{}, apperr.BadRequest("Invalid role")
	}

	hash, err := HashPassword(in.Password, DefaultParams)
	if err != nil {
		return "", user.User{}, apperr.Internal("hash password", err)
	}

	record := user.User{
		ID:              uuid.New(),
		Name:            in.Name,
		Role:            in.Role,
		UniqueCode:      in.UniqueCode,
		PasswordHash:    hash,
		Phone:           in.Phone,
		InstitutionName: in.InstitutionName,
		CreatedAt:       time.Now().UTC(),
	}

	id, err := s.users.Insert(ctx, record)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUniqueCode) {
			return "", user.User{}, apperr.BadRequest("User with this unique code already exists")
		}
		return "", user.User{}, apperr.Internal("insert user", err)
	}

	created, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", user.User{}, apperr.Internal("fetch created user", err)
	}

	token, err := s.codec.Encode(created.ID, created.Role)
	if err != nil {
		return "", user.User{}, err
	}

	return token, created, nil
}

// Login authenticates by unique code and password. The KDF runs on every
// path, against the dummy hash when the account is missing, and every
// failure mode yields the same Unauthorized error.
func (s *Service) Login(ctx context.Context, uniqueCode, password string) (string, user.User, error) {
	uniqueCode = strings.TrimSpace(uniqueCode)
	if len(password) > 32 {
		return "", user.User{}, apperr.BadRequest("Password too long")
	}

	account, err := s.users.GetByUniqueCode(ctx, uniqueCode)
	found := true
	storedHash := account.PasswordHash
	switch {
	case errors.Is(err, user.ErrNotFound):
		found = false
		storedHash = s.dummyHash
	case err != nil:
		return "", user.User{}, apperr.Internal("lookup user", err)
	case storedHash == "":
		found = false
		storedHash = s.dummyHash
	}

	ok, err := VerifyPassword(password, storedHash)
	if err != nil || !ok || !found {
		return "", user.User{}, apperr.Unauthorized(invalidCredentials)
	}

	token, err := s.codec.Encode(account.ID, account.Role)
	if err != nil {
		return "", user.User{}, err
	}

	return token, account, nil
}

// SendOTP generates, stores and delivers a fresh code, returning the
// reference handle and the TTL in seconds.
func (s *Service) SendOTP(ctx context.Context, phone string) (string, int, error) {
	ttlSeconds := int(s.cfg.OTPTTL.Seconds())

	if !s.rules.Valid(phone) {
		return "", 0, apperr.BadRequest("Invalid phone number format")
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return "", 0, apperr.Internal("generate otp code", err)
	}
	referenceID := otp.NewReferenceID()

	if err := s.otps.Put(ctx, referenceID, phone, code, time.Now()); err != nil {
		return "", 0, apperr.Internal("store otp", err)
	}

	if s.channel != nil && s.channel.Enabled() {
		if err := s.channel.Send(ctx, phone, code, referenceID); err != nil {
			if rmErr := s.otps.Remove(ctx, referenceID); rmErr != nil {
				s.logger.Warn("otp rollback failed", slog.String("reference_id", referenceID), slog.Any("error", rmErr))
			}
			return "", 0, err
		}
	} else if s.cfg.IsDev() {
		s.logger.Info("otp channel disabled, code not delivered",
			slog.String("phone", phone),
			slog.String("code", code),
			slog.String("reference_id", referenceID),
		)
	}

	return referenceID, ttlSeconds, nil
}

// VerifyOTP checks a code against the stored attempt. It returns true on a
// match, false on a plain mismatch, and a typed error for every terminal
// state.
func (s *Service) VerifyOTP(ctx context.Context, referenceID, phone, code string) (bool, error) {
	referenceID = strings.TrimSpace(referenceID)
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)

	outcome, err := s.otps.Verify(ctx, referenceID, phone, code, time.Now())
	if err != nil {
		return false, apperr.Internal("verify otp", err)
	}

	switch outcome {
	case otp.OutcomeValid:
		return true, nil
	case otp.OutcomeInvalid:
		return false, nil
	case otp.OutcomeExpired:
		return false, apperr.BadRequest("OTP has expired")
	case otp.OutcomeAlreadyVerified:
		return false, apperr.BadRequest("OTP has already been verified")
	case otp.OutcomeTooManyAttempts:
		return false, apperr.TooManyRequests("Maximum verification attempts exceeded")
	case otp.OutcomeNotFound:
		return false, apperr.NotFound("Invalid reference ID")
	default:
		return false, apperr.Internal("unexpected otp outcome", nil)
	}
}

// Me returns the profile of the authenticated user.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (user.User, error) {
	account, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.Unauthorized("Invalid token")
		}
		return user.User{}, apperr.Internal("lookup user", err)
	}
	return account, nil
}
