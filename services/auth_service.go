package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/notifications"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/session"
	"github.com/superfunded/payout_portal/utils"
)

const (
	resetTokenTTL     = 15 * time.Minute
	minPasswordLength = 6
)

var resetColumns = []string{"reset_password_token", "reset_password_token_expires_at"}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User, columns ...string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
}

type AuthConfig struct {
	Secret      []byte
	TokenTTL    time.Duration
	FrontendURL string
}

type RegisterInput struct {
	Email         string
	Password      string
	DisplayName   string
	TwitterHandle string
}

type ProfileUpdate struct {
	DisplayName   *string
	TwitterHandle *string
}

type AuthService struct {
	users   UserStore
	revoker session.Revoker
	mailer  Notifier
	cfg     AuthConfig
	now     func() time.Time

	wg sync.WaitGroup
}

func NewAuthService(users UserStore, revoker session.Revoker, mailer Notifier, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:   users,
		revoker: revoker,
		mailer:  mailer,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Wait() {
	s.wg.Wait()
}

// Register creates an unverified account and mails its verification link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*session.Profile, error) {
	email := normalizeEmail(in.Email)
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "password must be at least 6 characters")
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		return nil, invalid("display_name", "display name is required")
	}
	if utf8.RuneCountInString(displayName) > maxNameLength {
		return nil, invalid("display_name", "display name must be 100 characters or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := utils.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	user := &models.User{
		Email:             email,
		Password:          string(hashed),
		DisplayName:       &displayName,
		TwitterHandle:     optional(strings.TrimSpace(in.TwitterHandle)),
		VerificationToken: &token,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user registered")

	subject, body := notifications.VerificationEmail(s.link("/verify-email", token))
	s.notify(*user, subject, body)

	profile := ProfileFromUser(user)
	return &profile, nil
}

// Login checks credentials and issues a signed token. Unknown emails and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *session.Profile, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", nil, err
	}

	profile := ProfileFromUser(user)
	return token, &profile, nil
}

func (s *AuthService) issueToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"jti":     uuid.NewString(),
		"exp":     s.now().Add(s.cfg.TokenTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// LoadSession resolves validated token claims into a session. Flags come
// from the stored profile, never from the token.
func (s *AuthService) LoadSession(ctx context.Context, claims jwt.MapClaims) (*session.Session, error) {
	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	tokenID, _ := claims["jti"].(string)
	if tokenID == "" {
		return nil, ErrInvalidToken
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return session.New(ProfileFromUser(user), tokenID, time.Unix(int64(exp), 0).UTC()), nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, caller *session.Session) error {
	if caller == nil || s.revoker == nil {
		return nil
	}
	ttl := caller.ExpiresAt().Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, caller.TokenID(), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}

	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("get user: %w", err)
	}

	user.IsVerified = true
	user.VerificationToken = nil
	if err := s.users.UpdateUser(ctx, user, "is_verified", "verification_token"); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("email verified")
	return nil
}

// ForgotPassword mails a reset link when the account exists. Callers get
// the same answer either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiresAt := s.now().Add(resetTokenTTL)
	user.ResetPasswordToken = &token
	user.ResetPasswordTokenExpiresAt = &expiresAt
	if err := s.users.UpdateUser(ctx, user, resetColumns...); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	subject, body := notifications.PasswordResetEmail(s.link("/reset-password", token))
	s.notify(*user, subject, body)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return invalid("new_password", "password must be at least 6 characters")
	}

	user, err := s.users.GetUserByResetToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("get user: %w", err)
	}

	if user.ResetPasswordTokenExpiresAt == nil || user.ResetPasswordTokenExpiresAt.Before(s.now()) {
		user.ResetPasswordToken = nil
		user.ResetPasswordTokenExpiresAt = nil
		if err := s.users.UpdateUser(ctx, user, resetColumns...); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to clear expired reset token")
		}
		return ErrInvalidToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	user.ResetPasswordToken = nil
	user.ResetPasswordTokenExpiresAt = nil
	if err := s.users.UpdateUser(ctx, user, append([]string{"password"}, resetColumns...)...); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// UpdateProfile changes display name and twitter handle only.
func (s *AuthService) UpdateProfile(ctx context.Context, caller *session.Session, update ProfileUpdate) (*session.Profile, error) {
	if caller == nil {
		return nil, ErrForbidden
	}

	user, err := s.users.GetUserByID(ctx, caller.UserID())
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, invalid("display_name", "display name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, invalid("display_name", "display name must be 100 characters or fewer")
		}
		user.DisplayName = &name
	}
	if update.TwitterHandle != nil {
		handle := strings.TrimSpace(*update.TwitterHandle)
		if utf8.RuneCountInString(handle) > maxNameLength {
			return nil, invalid("twitter_handle", "twitter handle must be 100 characters or fewer")
		}
		user.TwitterHandle = optional(handle)
	}

	if err := s.users.UpdateUser(ctx, user, "display_name", "twitter_handle"); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	profile := ProfileFromUser(user)
	return &profile, nil
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *AuthService) notify(to models.User, subject, body string) {
	if s.mailer == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := s.mailer.SendEmail(ctx, to.Name(), to.Email, subject, body); err != nil {
			log.Warn().Err(err).Str("user_id", to.ID.String()).Msg("account email failed")
		}
	}()
}

func ProfileFromUser(u *models.User) session.Profile {
	p := session.Profile{
		UserID:     u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
	}
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.TwitterHandle != nil {
		p.TwitterHandle = *u.TwitterHandle
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
