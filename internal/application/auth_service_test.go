package application

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/internal/infrastructure/memory"
	"github.com/oksasatya/readly/pkg/apperror"
	"github.com/oksasatya/readly/pkg/helpers"
	"github.com/oksasatya/readly/pkg/mailer/templates"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	To, Subject, Text, HTML string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no email sent")
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	svc   *Service
	repo  *memory.UserRepository
	mail  *fakeSender
	clock *clock
	jwt   *helpers.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := memory.NewUserRepository().WithClock(clk.Now)
	jwt, err := helpers.NewJWTManager("test-secret", 7*24*time.Hour)
	require.NoError(t, err)
	jwt.WithClock(clk.Now)
	mail := &fakeSender{}

	svc := NewService(repo, jwt, mail, nil, nil, Options{
		BcryptCost: 4,
		Brand:      templates.Brand{AppName: "Readly", ClientURI: "http://localhost:5173/"},
	})
	svc.Now = clk.Now
	return &fixture{svc: svc, repo: repo, mail: mail, clock: clk, jwt: jwt}
}

func (f *fixture) signup(t *testing.T, email string) (entity.PublicUser, string) {
	t.Helper()
	u, _, err := f.svc.Signup(context.Background(), SignupInput{Email: email, Name: "A", Password: "Secret1!"})
	require.NoError(t, err)
	stored, err := f.repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)
	return u, *stored.VerificationToken
}

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func TestSignup_CreatesUnverifiedUserAndSendsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pub, sess, err := f.svc.Signup(ctx, SignupInput{Email: "a@b.com", Name: "A", Password: "Secret1!"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", pub.Email)
	assert.False(t, pub.IsVerified)
	assert.Equal(t, entity.RoleUser, pub.Role)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), sess.ExpiresAt)

	all, err := f.repo.ListByRole(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)

	stored := all[0]
	assert.NotEqual(t, "Secret1!", stored.PasswordHash)
	assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, "Secret1!"))
	require.NotNil(t, stored.VerificationToken)
	assert.Regexp(t, sixDigits, *stored.VerificationToken)
	require.NotNil(t, stored.VerificationTokenExpiresAt)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), *stored.VerificationTokenExpiresAt)

	m := f.mail.last(t)
	assert.Equal(t, "a@b.com", m.To)
	assert.Contains(t, m.Text, *stored.VerificationToken)

	claims, err := f.jwt.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestSignup_RequiresAllFields(t *testing.T) {
	f := newFixture(t)
	cases := []SignupInput{
		{Name: "A", Password: "x"},
		{Email: "a@b.com", Password: "x"},
		{Email: "a@b.com", Name: "A"},
	}
	for _, in := range cases {
		_, _, err := f.svc.Signup(context.Background(), in)
		assert.True(t, apperror.Is(err, apperror.KindValidation), "input %+v", in)
	}
	assert.Empty(t, f.mail.sent)
}

func TestSignup_DuplicateEmailConflictsAndKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com")
	before, err := f.repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	_, _, err = f.svc.Signup(ctx, SignupInput{Email: "a@b.com", Name: "Other", Password: "Another1!"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	after, err := f.repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSignup_RetriesOnCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codes := []string{"111111", "111111", "222222"}
	f.svc.NewVerificationCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	f.signup(t, "first@b.com")
	f.signup(t, "second@b.com")

	second, err := f.repo.GetByEmail(ctx, "second@b.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", *second.VerificationToken)
}

func TestSignup_MailFailureKeepsUser(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("mailgun down")

	_, sess, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "A", Password: "Secret1!"})
	assert.True(t, apperror.Is(err, apperror.KindInternal))
	assert.NotContains(t, apperror.MessageOf(err), "mailgun")
	require.NotEmpty(t, sess.Token)

	stored, err := f.repo.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	claims, err := f.jwt.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)
}

func TestVerifyEmail(t *testing.T) {
	t.Run("wrong code", func(t *testing.T) {
		f := newFixture(t)
		_, code := f.signup(t, "a@b.com")
		wrong := "100000"
		if code == wrong {
			wrong = "100001"
		}
		_, err := f.svc.VerifyEmail(context.Background(), wrong)
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("expired code is rejected even when it matches", func(t *testing.T) {
		f := newFixture(t)
		_, code := f.signup(t, "a@b.com")
		f.clock.Advance(24*time.Hour + time.Second)

		_, err := f.svc.VerifyEmail(context.Background(), code)
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("expiry instant itself is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, code := f.signup(t, "a@b.com")
		f.clock.Advance(24 * time.Hour)

		_, err := f.svc.VerifyEmail(context.Background(), code)
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("succeeds once", func(t *testing.T) {
		f := newFixture(t)
		_, code := f.signup(t, "a@b.com")
		f.clock.Advance(23 * time.Hour)

		u, err := f.svc.VerifyEmail(context.Background(), code)
		require.NoError(t, err)
		assert.True(t, u.IsVerified)
		assert.Contains(t, f.mail.last(t).Subject, "Welcome")

		stored, err := f.repo.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Nil(t, stored.VerificationToken)
		assert.Nil(t, stored.VerificationTokenExpiresAt)

		_, err = f.svc.VerifyEmail(context.Background(), code)
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("empty code", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.VerifyEmail(context.Background(), " ")
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.com")

	_, _, errUnknown := f.svc.Login(context.Background(), "nobody@b.com", "Secret1!")
	_, _, errWrong := f.svc.Login(context.Background(), "a@b.com", "wrong")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, apperror.KindOf(errUnknown), apperror.KindOf(errWrong))
	assert.Equal(t, apperror.KindAuth, apperror.KindOf(errWrong))
	assert.Equal(t, apperror.MessageOf(errUnknown), apperror.MessageOf(errWrong))
}

func TestLogin_IssuesSessionAndTouchesLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com")
	f.clock.Advance(time.Hour)

	u, sess, err := f.svc.Login(ctx, "a@b.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), u.LastLogin)

	stored, err := f.repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), stored.LastLogin)

	claims, err := f.jwt.Parse(sess.Token)
	require.NoError(t, err)
	me, err := f.svc.CheckAuth(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", me.Email)
	assert.Equal(t, entity.Role(claims.Role), me.Role)
}

func TestLogin_RequiresFields(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Login(context.Background(), "", "x")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func resetTokenFrom(t *testing.T, m sentMail) string {
	t.Helper()
	i := strings.Index(m.Text, "/reset-password/")
	require.GreaterOrEqual(t, i, 0, "reset link missing")
	rest := m.Text[i+len("/reset-password/"):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestForgotPassword(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ForgotPassword(context.Background(), "nobody@b.com")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("emails link with stored token", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "a@b.com")
		require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@b.com"))

		m := f.mail.last(t)
		assert.Contains(t, m.Text, "http://localhost:5173/reset-password/")
		tok := resetTokenFrom(t, m)
		assert.Len(t, tok, 2*helpers.ResetTokenBytes)

		stored, err := f.repo.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		require.NotNil(t, stored.ResetPasswordToken)
		assert.Equal(t, tok, *stored.ResetPasswordToken)
		assert.Equal(t, f.clock.Now().Add(time.Hour), *stored.ResetPasswordTokenExpiresAt)
	})
}

func TestResetPassword_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com")
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.com"))
	tok := resetTokenFrom(t, f.mail.last(t))

	require.NoError(t, f.svc.ResetPassword(ctx, tok, "NewSecret2!"))
	assert.Contains(t, f.mail.last(t).Subject, "password")

	err := f.svc.ResetPassword(ctx, tok, "Another3!")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, _, err = f.svc.Login(ctx, "a@b.com", "NewSecret2!")
	assert.NoError(t, err)
	_, _, err = f.svc.Login(ctx, "a@b.com", "Secret1!")
	assert.True(t, apperror.Is(err, apperror.KindAuth))

	stored, err := f.repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordTokenExpiresAt)
}

func TestResetPassword_ExpiryBoundary(t *testing.T) {
	cases := []struct {
		name  string
		after time.Duration
		ok    bool
	}{
		{"59m59s", 59*time.Minute + 59*time.Second, true},
		{"1h0m1s", time.Hour + time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.signup(t, "a@b.com")
			require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.com"))
			tok := resetTokenFrom(t, f.mail.last(t))

			f.clock.Advance(tc.after)
			err := f.svc.ResetPassword(ctx, tok, "NewSecret2!")
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.Is(err, apperror.KindNotFound))
			}
		})
	}
}

func TestResetPassword_RequiresPassword(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ResetPassword(context.Background(), "abc", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCheckAuth_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CheckAuth(context.Background(), "missing")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListUsersAndAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com")
	f.signup(t, "boss@b.com")
	boss, err := f.repo.GetByEmail(ctx, "boss@b.com")
	require.NoError(t, err)
	require.NoError(t, f.repo.SetRole(ctx, boss.ID, entity.RoleAdmin))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	admins, err := f.svc.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "boss@b.com", admins[0].Email)
}

func TestSearchUsers_WithoutIndex(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SearchUsers(context.Background(), "", 10)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	out, err := f.svc.SearchUsers(context.Background(), "ann", 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

type fakeIndex struct {
	indexed []string
	err     error
}

func (f *fakeIndex) IndexUser(_ context.Context, u *entity.User) error {
	f.indexed = append(f.indexed, u.Email)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, q string, _ int) ([]entity.PublicUser, error) {
	return []entity.PublicUser{{Email: q}}, nil
}

func TestIndexFailureDoesNotFailSignup(t *testing.T) {
	f := newFixture(t)
	idx := &fakeIndex{err: errors.New("es unavailable")}
	f.svc.Index = idx

	_, code := f.signup(t, "a@b.com")
	_, err := f.svc.VerifyEmail(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com", "a@b.com"}, idx.indexed)

	out, err := f.svc.SearchUsers(context.Background(), "a@b.com", 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestPassword_OverBcryptLimitIsValidation(t *testing.T) {
	long := strings.Repeat("x", 73)

	t.Run("signup", func(t *testing.T) {
		f := newFixture(t)
		_, sess, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "A", Password: long})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
		assert.Empty(t, sess.Token)

		all, err := f.repo.ListByRole(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("72 bytes is accepted", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Name: "A", Password: long[:72]})
		require.NoError(t, err)
	})

	t.Run("reset keeps the token", func(t *testing.T) {
		f := newFixture(t)
		f.signup(t, "a@b.com")
		require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@b.com"))
		token := resetTokenFrom(t, f.mail.last(t))

		err := f.svc.ResetPassword(context.Background(), token, long)
		assert.True(t, apperror.Is(err, apperror.KindValidation))
		require.NoError(t, f.svc.ResetPassword(context.Background(), token, "NewSecret2!"))
	})
}

func TestResendVerification(t *testing.T) {
	t.Run("replaces an expired code", func(t *testing.T) {
		f := newFixture(t)
		pub, old := f.signup(t, "a@b.com")
		f.clock.Advance(25 * time.Hour)

		require.NoError(t, f.svc.ResendVerification(context.Background(), pub.ID))
		stored, err := f.repo.GetByID(context.Background(), pub.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.VerificationToken)
		fresh := *stored.VerificationToken
		assert.Regexp(t, sixDigits, fresh)
		assert.Equal(t, f.clock.Now().Add(24*time.Hour), *stored.VerificationTokenExpiresAt)
		assert.Contains(t, f.mail.last(t).Text, fresh)

		if fresh != old {
			_, err = f.svc.VerifyEmail(context.Background(), old)
			assert.True(t, apperror.Is(err, apperror.KindNotFound))
		}
		u, err := f.svc.VerifyEmail(context.Background(), fresh)
		require.NoError(t, err)
		assert.True(t, u.IsVerified)
	})

	t.Run("already verified", func(t *testing.T) {
		f := newFixture(t)
		pub, code := f.signup(t, "a@b.com")
		_, err := f.svc.VerifyEmail(context.Background(), code)
		require.NoError(t, err)

		err = f.svc.ResendVerification(context.Background(), pub.ID)
		assert.True(t, apperror.Is(err, apperror.KindConflict))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ResendVerification(context.Background(), "missing")
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("retries a held code", func(t *testing.T) {
		f := newFixture(t)
		codes := []string{"111111", "222222", "111111", "333333"}
		f.svc.NewVerificationCode = func() (string, error) {
			c := codes[0]
			codes = codes[1:]
			return c, nil
		}
		f.signup(t, "first@b.com")
		second, _ := f.signup(t, "second@b.com")

		require.NoError(t, f.svc.ResendVerification(context.Background(), second.ID))
		stored, err := f.repo.GetByID(context.Background(), second.ID)
		require.NoError(t, err)
		assert.Equal(t, "333333", *stored.VerificationToken)
	})

	t.Run("mail failure is internal", func(t *testing.T) {
		f := newFixture(t)
		pub, _ := f.signup(t, "a@b.com")
		f.mail.err = errors.New("mailgun down")
		err := f.svc.ResendVerification(context.Background(), pub.ID)
		assert.True(t, apperror.Is(err, apperror.KindInternal))
	})
}
