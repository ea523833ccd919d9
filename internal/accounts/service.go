package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/geocoder89/focustodo/internal/notifications"
	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/geocoder89/focustodo/internal/security"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserStore is the credential store the auth flow runs against. Both the
// postgres and the in-memory repositories satisfy it.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByVerificationToken(ctx context.Context, token string) (user.User, error)
	GetByValidResetToken(ctx context.Context, token string, now time.Time) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
}

type SessionIssuer interface {
	GenerateSessionToken(userID string) (raw string, expiresAt time.Time, err error)
}

type Deps struct {
	Users     UserStore
	Sessions  SessionIssuer
	Mailer    notifications.Mailer
	ClientURL string

	// optional
	Logger *slog.Logger
	Prom   *observability.Prom
	Now    func() time.Time
}

type Service struct {
	users     UserStore
	sessions  SessionIssuer
	tokens    *security.TokenIssuer
	mailer    notifications.Mailer
	clientURL string

	log    *slog.Logger
	prom   *observability.Prom
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	return &Service{
		users:     d.Users,
		sessions:  d.Sessions,
		tokens:    security.NewTokenIssuer(d.Now),
		mailer:    d.Mailer,
		clientURL: d.ClientURL,
		log:       d.Logger,
		prom:      d.Prom,
		tracer:    otel.Tracer(observability.TracerName),
		now:       d.Now,
	}
}

type RegisterInput struct {
	Email          string
	Password       string
	Name           string
	ProfilePicture string
}

type LoginResult struct {
	User         user.User
	SessionToken string
	ExpiresAt    time.Time
}

type ProfileUpdate struct {
	Name           string
	ProfilePicture string
	Password       string
}

// Register creates an unverified account and mails the verification link.
// When the mail cannot be sent the account is kept and the returned error
// wraps ErrNotificationFailed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (u user.User, err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Register")
	defer func() { s.finish(span, "register", err) }()

	if in.Email == "" || in.Password == "" || in.Name == "" {
		return user.User{}, ErrValidation
	}

	_, err = s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return user.User{}, ErrEmailTaken
	case !errors.Is(err, user.ErrUserNotFound):
		return user.User{}, s.storeFailure(ctx, "register", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return user.User{}, err
	}

	token, expires, err := s.tokens.NewVerificationToken()
	if err != nil {
		return user.User{}, fmt.Errorf("issue verification token: %w", err)
	}

	u, err = s.users.Create(ctx, user.User{
		ID:                       uuid.NewString(),
		Email:                    in.Email,
		PasswordHash:             hash,
		Name:                     in.Name,
		ProfilePicture:           in.ProfilePicture,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			return user.User{}, ErrEmailTaken
		}
		return user.User{}, s.storeFailure(ctx, "register", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))

	err = s.dispatch(ctx, "verification", func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, notifications.SendLinkInput{
			Email: u.Email,
			Name:  u.Name,
			Link:  notifications.VerificationLink(s.clientURL, token),
		})
	})

	return u, err
}

// Login checks the password before the verified flag, so the "verify first"
// answer is only given to someone who knows the password.
func (s *Service) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Login")
	defer func() { s.finish(span, "login", err) }()

	if email == "" || password == "" {
		return LoginResult{}, ErrValidation
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, s.storeFailure(ctx, "login", err)
	}

	if !security.PasswordMatches(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !u.IsVerified {
		return LoginResult{}, ErrNotVerified
	}

	raw, expiresAt, err := s.sessions.GenerateSessionToken(u.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}

	return LoginResult{User: u, SessionToken: raw, ExpiresAt: expiresAt}, nil
}

// VerifyEmail looks the user up by token alone. An expired token is reported
// as such and left in place; only a successful verification clears it.
func (s *Service) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.VerifyEmail")
	defer func() { s.finish(span, "verify_email", err) }()

	if token == "" {
		return ErrInvalidToken
	}

	u, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return s.storeFailure(ctx, "verify_email", err)
	}

	now := s.now()
	if u.VerificationTokenExpires == nil || !u.VerificationTokenExpires.After(now) {
		return ErrTokenExpired
	}

	u.IsVerified = true
	u.ClearVerificationToken()

	if _, err := s.users.Update(ctx, u); err != nil {
		return s.storeFailure(ctx, "verify_email", err)
	}

	return nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.ForgotPassword")
	defer func() { s.finish(span, "forgot_password", err) }()

	if email == "" {
		return ErrValidation
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return s.storeFailure(ctx, "forgot_password", err)
	}

	token, expires, err := s.tokens.NewResetToken()
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	u.ResetPasswordToken = &token
	u.ResetPasswordTokenExpires = &expires

	if _, err := s.users.Update(ctx, u); err != nil {
		return s.storeFailure(ctx, "forgot_password", err)
	}

	return s.dispatch(ctx, "password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, notifications.SendLinkInput{
			Email: u.Email,
			Name:  u.Name,
			Link:  notifications.ResetPasswordLink(s.clientURL, token),
		})
	})
}

// ResetPassword only matches a token that is still valid at the moment of
// the lookup; the store applies both conditions in one query.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.ResetPassword")
	defer func() { s.finish(span, "reset_password", err) }()

	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	if password == "" {
		return ErrValidation
	}

	u, err := s.users.GetByValidResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return s.storeFailure(ctx, "reset_password", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	u.ClearResetToken()

	if _, err := s.users.Update(ctx, u); err != nil {
		return s.storeFailure(ctx, "reset_password", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, s.storeFailure(ctx, "get_current_user", err)
	}

	return u, nil
}

// UpdateProfile always targets userID, the authenticated caller. Empty
// fields keep their stored value; a non-empty password is re-hashed.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (u user.User, err error) {
	ctx, span := s.tracer.Start(ctx, "accounts.UpdateProfile")
	defer func() { s.finish(span, "update_profile", err) }()

	u, err = s.GetCurrentUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.ProfilePicture != "" {
		u.ProfilePicture = in.ProfilePicture
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return user.User{}, err
		}
		u.PasswordHash = hash
	}

	u, err = s.users.Update(ctx, u)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, s.storeFailure(ctx, "update_profile", err)
	}

	return u, nil
}

// EnsureVerifiedUser creates an already verified account unless the email is
// taken. Used to seed a login at startup.
func (s *Service) EnsureVerifiedUser(ctx context.Context, email, password, name string) (created bool, err error) {
	if email == "" || password == "" {
		return false, nil
	}

	_, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return false, err
	}

	_, err = s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsVerified:   true,
	})
	if errors.Is(err, user.ErrEmailAlreadyUsed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *Service) dispatch(ctx context.Context, kind string, send func(context.Context) error) error {
	err := send(ctx)

	switch {
	case err == nil:
		s.prom.IncEmailSend(kind, "ok")
		return nil
	case errors.Is(err, notifications.ErrCircuitOpen):
		s.prom.IncEmailSend(kind, "circuit_open")
	default:
		s.prom.IncEmailSend(kind, "error")
	}

	s.log.ErrorContext(ctx, "email dispatch failed", "kind", kind, "err", err)

	return fmt.Errorf("%w: %s email: %v", ErrNotificationFailed, kind, err)
}

func hashPassword(plain string) (string, error) {
	hash, err := security.HashPassword(plain)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *Service) storeFailure(ctx context.Context, op string, err error) error {
	s.log.ErrorContext(ctx, "credential store failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = resultLabel(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	s.prom.IncAuthEvent(op, result)
	span.End()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotVerified):
		return "not_verified"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrNotificationFailed):
		return "notification_failed"
	default:
		return "error"
	}
}
