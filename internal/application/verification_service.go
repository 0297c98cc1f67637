package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/mailer"
	mailtpl "github.com/oksasatya/appserv/pkg/mailer/templates"
	"github.com/oksasatya/appserv/pkg/validation"
)

// Mailer hands an email to the background sender.
type Mailer interface {
	Dispatch(job mailer.EmailJob)
}

type VerifyConfig struct {
	CaptchaTTL     time.Duration
	CodeTTL        time.Duration
	ResendInterval time.Duration
}

// VerificationService runs the pre-auth challenges (captcha and email code)
// bound to a client verification session id.
type VerificationService struct {
	Store repository.VerificationStore
	Mail  Mailer
	Brand mailtpl.Brand
	Cfg   VerifyConfig
	Now   func() time.Time

	newCaptcha func() (string, string, error)
	newCode    func() (string, error)
}

func NewVerificationService(store repository.VerificationStore, mail Mailer, brand mailtpl.Brand, cfg VerifyConfig) *VerificationService {
	return &VerificationService{
		Store:      store,
		Mail:       mail,
		Brand:      brand,
		Cfg:        cfg,
		Now:        time.Now,
		newCaptcha: helpers.NewCaptcha,
		newCode:    helpers.GenOTPCode,
	}
}

func verifyKey(sid, field string) string { return "verify:" + sid + ":" + field }

func verifyKeys(sid string) []string {
	return []string{
		verifyKey(sid, "captcha"),
		verifyKey(sid, "code"),
		verifyKey(sid, "email"),
		verifyKey(sid, "time"),
	}
}

// NewSessionID returns a fresh verification session id.
func (s *VerificationService) NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Captcha stores a new answer for sid and returns the image as base64 PNG.
func (s *VerificationService) Captcha(ctx context.Context, sid string) (string, error) {
	answer, png, err := s.newCaptcha()
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := s.Store.Put(ctx, verifyKey(sid, "captcha"), answer, s.Cfg.CaptchaTTL); err != nil {
		return "", apperr.Internal(err)
	}
	return png, nil
}

func (s *VerificationService) get(ctx context.Context, sid, field string) (string, bool, error) {
	if sid == "" {
		return "", false, nil
	}
	v, ok, err := s.Store.Get(ctx, verifyKey(sid, field))
	if err != nil {
		return "", false, apperr.Internal(err)
	}
	return v, ok, nil
}

// CheckCaptcha compares case-insensitively. A missing or expired answer is a mismatch.
func (s *VerificationService) CheckCaptcha(ctx context.Context, sid, answer string) error {
	want, ok, err := s.get(ctx, sid, "captcha")
	if err != nil {
		return err
	}
	if !ok || answer == "" || !strings.EqualFold(want, strings.TrimSpace(answer)) {
		return apperr.ErrCaptcha
	}
	return nil
}

// SendEmailCode checks the captcha, enforces the resend interval and mails a new code to email.
func (s *VerificationService) SendEmailCode(ctx context.Context, sid, email, captcha string) error {
	email = helpers.NormalizeEmail(email)
	if !validation.Email(email) {
		return apperr.ErrInvalidEmail
	}
	if err := s.CheckCaptcha(ctx, sid, captcha); err != nil {
		return err
	}

	now := s.Now()
	last, ok, err := s.get(ctx, sid, "time")
	if err != nil {
		return err
	}
	if ok {
		if t, perr := strconv.ParseInt(last, 10, 64); perr == nil && now.Sub(time.Unix(t, 0)) < s.Cfg.ResendInterval {
			return apperr.ErrFrequent
		}
	}

	code, err := s.newCode()
	if err != nil {
		return apperr.Internal(err)
	}
	for field, v := range map[string]string{
		"code":  code,
		"email": email,
		"time":  strconv.FormatInt(now.Unix(), 10),
	} {
		if err := s.Store.Put(ctx, verifyKey(sid, field), v, s.Cfg.CodeTTL); err != nil {
			return apperr.Internal(err)
		}
	}

	s.Mail.Dispatch(mailer.EmailJob{
		To:       email,
		Template: mailtpl.VerifyCode,
		Data:     mailtpl.NewVerifyCodeData(s.Brand, email, code, mailtpl.WithExpiresIn(s.Cfg.CodeTTL)),
	})
	return nil
}

// CheckEmailCode verifies captcha, code and that email is the address the code was sent to.
func (s *VerificationService) CheckEmailCode(ctx context.Context, sid, captcha, code, email string) error {
	if err := s.CheckCaptcha(ctx, sid, captcha); err != nil {
		return err
	}
	want, ok, err := s.get(ctx, sid, "code")
	if err != nil {
		return err
	}
	if !ok || !strings.EqualFold(want, strings.TrimSpace(code)) {
		return apperr.ErrEmailVerifyCode
	}
	sent, ok, err := s.get(ctx, sid, "email")
	if err != nil {
		return err
	}
	if !ok || sent != helpers.NormalizeEmail(email) {
		return apperr.ErrEmailDiff
	}
	return nil
}

// Clear drops every challenge of sid so it cannot be replayed.
func (s *VerificationService) Clear(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.Store.Delete(ctx, verifyKeys(sid)...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
