package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/readly/internal/domain/entity"
	repo "github.com/oksasatya/readly/internal/domain/repository"
	"github.com/oksasatya/readly/pkg/apperror"
	"github.com/oksasatya/readly/pkg/helpers"
	"github.com/oksasatya/readly/pkg/mailer/templates"
)

const signupAttempts = 3

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// Client-facing messages. Credential and token failures stay generic.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User already exists"
	msgUserNotFound       = "User not found"
	msgInvalidCode        = "Invalid or expired verification code"
	msgInvalidResetToken  = "Invalid or expired reset token"
	msgAlreadyVerified    = "Email already verified"
	msgPasswordTooLong    = "Password must be at most 72 bytes"
	msgMailFailed         = "failed to send email"
)

// EmailSender delivers one rendered email. Implemented by mailer.Mailgun,
// mailer.QueueSender and mailer.LogSender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// UserIndexer mirrors sanitized users into the search index.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]entity.PublicUser, error)
}

type Options struct {
	BcryptCost      int
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Brand           templates.Brand
}

func (o Options) withDefaults() Options {
	if o.VerificationTTL <= 0 {
		o.VerificationTTL = 24 * time.Hour
	}
	if o.ResetTTL <= 0 {
		o.ResetTTL = time.Hour
	}
	return o
}

type Service struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Mail   EmailSender
	Index  UserIndexer
	Logger *logrus.Logger
	Opts   Options

	Now                 func() time.Time
	NewVerificationCode func() (string, error)
	NewResetToken       func() (string, error)
}

// Session is a freshly issued session token; the handler puts it in the cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type SignupInput struct {
	Email    string
	Name     string
	Password string
}

func NewService(r repo.UserRepository, jwt *helpers.JWTManager, mail EmailSender, index UserIndexer, logger *logrus.Logger, opts Options) *Service {
	return &Service{
		Repo:                r,
		JWT:                 jwt,
		Mail:                mail,
		Index:               index,
		Logger:              logger,
		Opts:                opts.withDefaults(),
		Now:                 time.Now,
		NewVerificationCode: helpers.GenVerificationCode,
		NewResetToken:       helpers.GenResetToken,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup creates an unverified user, issues a session and emails the verification code.
// If the email cannot be sent the user stays created, the session is still returned
// and the error is internal.
func (s *Service) Signup(ctx context.Context, in SignupInput) (entity.PublicUser, Session, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return entity.PublicUser{}, Session{}, apperror.Validation("All fields are required")
	}
	if len(in.Password) > maxPasswordBytes {
		return entity.PublicUser{}, Session{}, apperror.Validation(msgPasswordTooLong)
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return entity.PublicUser{}, Session{}, apperror.Conflict(msgUserExists)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return entity.PublicUser{}, Session{}, s.internal("lookup user failed", err, logrus.Fields{"op": "signup"})
	}

	hash, err := helpers.HashPasswordCost(in.Password, s.Opts.BcryptCost)
	if err != nil {
		return entity.PublicUser{}, Session{}, s.internal("hash password failed", err, logrus.Fields{"op": "signup"})
	}

	u, err := s.createWithCode(ctx, email, name, hash)
	if err != nil {
		return entity.PublicUser{}, Session{}, err
	}
	signups.Add(1)
	s.index(ctx, u)

	token, exp, err := s.JWT.Generate(u.ID, u.Role.String())
	if err != nil {
		return entity.PublicUser{}, Session{}, s.internal("issue session failed", err, logrus.Fields{"user_id": u.ID})
	}

	return u.Public(), Session{Token: token, ExpiresAt: exp}, s.sendCode(ctx, u)
}

// ResendVerification issues a fresh code to an unverified user, replacing the previous one.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return s.internal("lookup user failed", err, logrus.Fields{"user_id": userID})
	}
	if u.IsVerified {
		return apperror.Conflict(msgAlreadyVerified)
	}
	if err := s.reissueCode(ctx, u); err != nil {
		return err
	}
	verificationResends.Add(1)
	return s.sendCode(ctx, u)
}

// reissueCode stores a new code on u, retrying while the code is held by another pending user.
func (s *Service) reissueCode(ctx context.Context, u *entity.User) error {
	for attempt := 0; attempt < signupAttempts; attempt++ {
		code, err := s.NewVerificationCode()
		if err != nil {
			return s.internal("generate verification code failed", err, nil)
		}
		exp := s.now().Add(s.Opts.VerificationTTL)

		err = s.Repo.SetVerificationToken(ctx, u.ID, code, exp)
		switch {
		case err == nil:
			u.SetVerificationToken(code, exp)
			return nil
		case errors.Is(err, repo.ErrTokenCollision):
			continue
		case errors.Is(err, repo.ErrNotFound):
			// verified between the lookup and the write
			return apperror.Conflict(msgAlreadyVerified)
		default:
			return s.internal("store verification code failed", err, logrus.Fields{"user_id": u.ID})
		}
	}
	return s.internal("store verification code failed", repo.ErrTokenCollision, logrus.Fields{"attempts": signupAttempts})
}

func (s *Service) sendCode(ctx context.Context, u *entity.User) error {
	if err := s.notify(ctx, templates.VerifyEmail, u,
		templates.WithCode(*u.VerificationToken),
		templates.WithExpiry(s.now(), s.Opts.VerificationTTL),
	); err != nil {
		return s.mailFailed(err, u.ID)
	}
	return nil
}

// createWithCode retries when the generated code is already held by another pending user.
func (s *Service) createWithCode(ctx context.Context, email, name, hash string) (*entity.User, error) {
	for attempt := 0; attempt < signupAttempts; attempt++ {
		code, err := s.NewVerificationCode()
		if err != nil {
			return nil, s.internal("generate verification code failed", err, nil)
		}
		u := &entity.User{Email: email, Name: name, PasswordHash: hash, Role: entity.RoleUser}
		u.SetVerificationToken(code, s.now().Add(s.Opts.VerificationTTL))

		err = s.Repo.Create(ctx, u)
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, repo.ErrEmailTaken):
			return nil, apperror.Conflict(msgUserExists)
		case errors.Is(err, repo.ErrTokenCollision):
			continue
		default:
			return nil, s.internal("create user failed", err, logrus.Fields{"op": "signup"})
		}
	}
	return nil, s.internal("create user failed", repo.ErrTokenCollision, logrus.Fields{"attempts": signupAttempts})
}

func (s *Service) VerifyEmail(ctx context.Context, code string) (entity.PublicUser, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return entity.PublicUser{}, apperror.Validation("Verification code is required")
	}

	u, err := s.Repo.ConsumeVerificationToken(ctx, code, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return entity.PublicUser{}, apperror.NotFound(msgInvalidCode)
	}
	if err != nil {
		return entity.PublicUser{}, s.internal("consume verification code failed", err, nil)
	}
	verifications.Add(1)
	s.index(ctx, u)

	if err := s.notify(ctx, templates.Welcome, u); err != nil {
		return entity.PublicUser{}, s.mailFailed(err, u.ID)
	}
	return u.Public(), nil
}

// Login answers unknown email and wrong password with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (entity.PublicUser, Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return entity.PublicUser{}, Session{}, apperror.Validation("Email and password are required")
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		failedLogins.Add(1)
		return entity.PublicUser{}, Session{}, apperror.Auth(msgInvalidCredentials)
	}
	if err != nil {
		return entity.PublicUser{}, Session{}, s.internal("lookup user failed", err, logrus.Fields{"op": "login"})
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		failedLogins.Add(1)
		return entity.PublicUser{}, Session{}, apperror.Auth(msgInvalidCredentials)
	}

	token, exp, err := s.JWT.Generate(u.ID, u.Role.String())
	if err != nil {
		return entity.PublicUser{}, Session{}, s.internal("issue session failed", err, logrus.Fields{"user_id": u.ID})
	}

	now := s.now()
	if err := s.Repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return entity.PublicUser{}, Session{}, s.internal("update last login failed", err, logrus.Fields{"user_id": u.ID})
	}
	u.LastLogin = now
	logins.Add(1)
	return u.Public(), Session{Token: token, ExpiresAt: exp}, nil
}

// ForgotPassword stores a reset token and emails the link. The token is never returned.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.Validation("Email is required")
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return s.internal("lookup user failed", err, logrus.Fields{"op": "forgot_password"})
	}

	token, err := s.NewResetToken()
	if err != nil {
		return s.internal("generate reset token failed", err, nil)
	}
	issued := s.now()
	if err := s.Repo.SetResetToken(ctx, u.ID, token, issued.Add(s.Opts.ResetTTL)); err != nil {
		return s.internal("store reset token failed", err, logrus.Fields{"user_id": u.ID})
	}
	resetRequests.Add(1)

	link := strings.TrimRight(s.Opts.Brand.ClientURI, "/") + "/reset-password/" + token
	if err := s.notify(ctx, templates.ResetPassword, u,
		templates.WithResetURL(link),
		templates.WithExpiry(issued, s.Opts.ResetTTL),
	); err != nil {
		return s.mailFailed(err, u.ID)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return apperror.Validation("Password is required")
	}
	if len(password) > maxPasswordBytes {
		return apperror.Validation(msgPasswordTooLong)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.NotFound(msgInvalidResetToken)
	}

	hash, err := helpers.HashPasswordCost(password, s.Opts.BcryptCost)
	if err != nil {
		return s.internal("hash password failed", err, logrus.Fields{"op": "reset_password"})
	}

	u, err := s.Repo.ConsumeResetToken(ctx, token, hash, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.NotFound(msgInvalidResetToken)
	}
	if err != nil {
		return s.internal("consume reset token failed", err, nil)
	}
	resets.Add(1)

	if err := s.notify(ctx, templates.ResetSuccess, u); err != nil {
		return s.mailFailed(err, u.ID)
	}
	return nil
}

// CheckAuth resolves an authenticated identity to the current user.
func (s *Service) CheckAuth(ctx context.Context, userID string) (entity.PublicUser, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return entity.PublicUser{}, apperror.NotFound(msgUserNotFound)
	}
	if err != nil {
		return entity.PublicUser{}, s.internal("lookup user failed", err, logrus.Fields{"user_id": userID})
	}
	return u.Public(), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]entity.PublicUser, error) {
	return s.list(ctx, "")
}

func (s *Service) ListAdmins(ctx context.Context) ([]entity.PublicUser, error) {
	return s.list(ctx, entity.RoleAdmin)
}

func (s *Service) list(ctx context.Context, role entity.Role) ([]entity.PublicUser, error) {
	users, err := s.Repo.ListByRole(ctx, role)
	if err != nil {
		return nil, s.internal("list users failed", err, logrus.Fields{"role": string(role)})
	}
	return entity.PublicUsers(users), nil
}

// SearchUsers queries the directory index. Without an index it returns an empty list.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]entity.PublicUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("Search query is required")
	}
	if s.Index == nil {
		return []entity.PublicUser{}, nil
	}
	out, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, s.internal("search users failed", err, nil)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, tmpl string, u *entity.User, opts ...templates.Option) error {
	if s.Mail == nil {
		return nil
	}
	opts = append([]templates.Option{templates.WithTime(s.now())}, opts...)
	data := templates.NewEmailData(s.Opts.Brand, tmpl, u.Name, u.Email, opts...)
	subject, text, html, err := templates.Render(tmpl, data)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, u.Email, subject, text, html)
}

// index is best effort; failures are only logged.
func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func (s *Service) mailFailed(err error, userID string) error {
	mailFailures.Add(1)
	return s.internal(msgMailFailed, err, logrus.Fields{"user_id": userID})
}

func (s *Service) internal(msg string, err error, fields logrus.Fields) error {
	helpers.LogError(s.Logger, msg, err, fields)
	return apperror.Internal(err, "")
}
