package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"farm-store/internal/models"
	"farm-store/internal/store"
	"farm-store/internal/token"
	"farm-store/internal/util"
)

var validate = validator.New()

// AccountService is the credential store: registration, login, password
// reset and the customer profile.
type AccountService struct {
	users       UserRepository
	orders      OrderRepository
	resetTokens *token.Issuer
	mailer      ResetMailer
	baseURL     string
	resetMaxAge time.Duration
	logger      *zap.Logger
}

func NewAccountService(users UserRepository, orders OrderRepository, resetTokens *token.Issuer, mailer ResetMailer, baseURL string, resetMaxAge time.Duration) *AccountService {
	return &AccountService{
		users:       users,
		orders:      orders,
		resetTokens: resetTokens,
		mailer:      mailer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		resetMaxAge: resetMaxAge,
		logger:      util.GetLogger(),
	}
}

// Profile is a user together with their orders, newest first.
type Profile struct {
	User   *models.User   `json:"user"`
	Orders []models.Order `json:"orders"`
}

// Register creates an account. The email is normalised before the
// uniqueness check.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	email = models.NormalizeEmail(email)
	if err := missingFields(map[string]string{"email": email, "password": password}, "email", "password"); err != nil {
		return nil, err
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, &ValidationError{Fields: []string{"email"}, Reason: "enter a valid email address"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate returns the user for a matching email and password.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Authenticate")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset mails a reset link when the address belongs to an
// account. Callers get the same nil result either way.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.RequestPasswordReset")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("Failed to look up user for password reset", zap.Error(err))
		return nil
	}

	tok, err := s.resetTokens.Issue(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to issue reset token", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil
	}
	link := fmt.Sprintf("%s/reset/%s", s.baseURL, url.PathEscape(tok))

	if err := s.mailer.SendPasswordReset(ctx, user.Email, link, s.resetMaxAge); err != nil {
		s.logger.Warn("Failed to send password reset email",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
	return nil
}

// CheckResetToken reports whether a reset link is still usable.
func (s *AccountService) CheckResetToken(ctx context.Context, tok string) error {
	_, err := s.resetUser(ctx, tok)
	return err
}

// ResetPassword sets a new password for the account named by a valid reset
// token.
func (s *AccountService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.ResetPassword")
	defer span.End()

	user, err := s.resetUser(ctx, tok)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return &ValidationError{Fields: []string{"password"}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		return translate(err)
	}

	s.logger.Info("Password reset", zap.Int64("user_id", user.ID))
	return nil
}

func (s *AccountService) resetUser(ctx context.Context, tok string) (*models.User, error) {
	claims, err := s.resetTokens.Verify(tok, s.resetMaxAge)
	if err != nil {
		s.logger.Debug("Reset token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Email != models.NormalizeEmail(claims.Email) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Profile returns the user and their orders.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	orders, err := s.orders.ListOrders(ctx, models.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &Profile{User: user, Orders: orders}, nil
}
