package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/infrastructure/search"
	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/pkg/apperr"
	"github.com/oksasatya/appserv/pkg/helpers"
	"github.com/oksasatya/appserv/pkg/mailer"
	mailtpl "github.com/oksasatya/appserv/pkg/mailer/templates"
	"github.com/oksasatya/appserv/pkg/validation"
)

// UserIndexer is the searchable user directory.
type UserIndexer interface {
	Index(ctx context.Context, doc search.UserDoc) error
	Search(ctx context.Context, q string, size int) ([]search.UserDoc, error)
}

type AccountService struct {
	Repo    repository.AccountRepository
	Verify  *VerificationService
	Avatars repository.AvatarStore
	Index   UserIndexer
	Mail    Mailer
	Brand   mailtpl.Brand
	Metrics *metrics.Collector
	Logger  *logrus.Logger
}

type SignupInput struct {
	UserName string
	Email    string
	Passwd   string
	Captcha  string
	Code     string
	Product  string
}

type SigninInput struct {
	Email    string
	Passwd   string
	Captcha  string
	Product  string
	AutoOpen bool
}

type ResetInput struct {
	Email   string
	Passwd  string
	Captcha string
	Code    string
}

// ModifyInput changes the user name and/or password. A new password needs the current one.
type ModifyInput struct {
	UserName  *string
	Passwd    *string
	NewPasswd *string
}

func checkCredentials(email, passwd string) error {
	if !validation.Email(helpers.NormalizeEmail(email)) {
		return apperr.ErrInvalidEmail
	}
	if len(passwd) < validation.MinPasswordLen {
		return apperr.ErrPasswordTooShort
	}
	return nil
}

// Signup creates the account after the captcha and email code of sid are verified.
// The verification session is consumed even when creation fails afterwards.
func (s *AccountService) Signup(ctx context.Context, sid string, in SignupInput) (*entity.User, error) {
	if in.Product == "" {
		return nil, apperr.Parse("product is required")
	}
	if err := checkCredentials(in.Email, in.Passwd); err != nil {
		return nil, err
	}
	if err := s.Verify.CheckEmailCode(ctx, sid, in.Captcha, in.Code, in.Email); err != nil {
		return nil, err
	}
	if err := s.Verify.Clear(ctx, sid); err != nil {
		return nil, err
	}

	email := helpers.NormalizeEmail(in.Email)
	user, err := s.Repo.CreateUser(ctx, repository.SignupParams{
		UserName:    in.UserName,
		Email:       email,
		PasswdHash:  helpers.HashPassword(email, in.Passwd),
		ProductCode: in.Product,
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.RecordSignup()
	s.index(ctx, user)
	s.Mail.Dispatch(mailer.EmailJob{
		To:       user.Email,
		Template: mailtpl.SignupSuccess,
		Data:     mailtpl.NewSignupSuccessData(s.Brand, user.UserName, user.Email, mailtpl.WithProduct(in.Product)),
	})
	return user, nil
}

// Signin checks the captcha of sid, then the credentials, and issues a session for the product.
func (s *AccountService) Signin(ctx context.Context, sid string, in SigninInput) (*entity.SigninResult, error) {
	if in.Email == "" || in.Passwd == "" || in.Product == "" {
		return nil, apperr.Parse("email, passwd and product are required")
	}
	if err := s.Verify.CheckCaptcha(ctx, sid, in.Captcha); err != nil {
		return nil, err
	}
	if err := s.Verify.Clear(ctx, sid); err != nil {
		return nil, err
	}

	email := helpers.NormalizeEmail(in.Email)
	res, err := s.Repo.SigninUser(ctx, repository.SigninParams{
		Email:       email,
		PasswdHash:  helpers.HashPassword(email, in.Passwd),
		ProductCode: in.Product,
		AutoOpen:    in.AutoOpen,
	})
	s.Metrics.RecordSignin(err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AccountService) Signout(ctx context.Context, token string) error {
	return s.Repo.DeleteSession(ctx, token)
}

func (s *AccountService) ResetPassword(ctx context.Context, sid string, in ResetInput) error {
	if err := checkCredentials(in.Email, in.Passwd); err != nil {
		return err
	}
	if err := s.Verify.CheckEmailCode(ctx, sid, in.Captcha, in.Code, in.Email); err != nil {
		return err
	}
	if err := s.Verify.Clear(ctx, sid); err != nil {
		return err
	}
	email := helpers.NormalizeEmail(in.Email)
	return s.Repo.ResetPassword(ctx, email, helpers.HashPassword(email, in.Passwd))
}

func (s *AccountService) Modify(ctx context.Context, auth *entity.AuthContext, in ModifyInput) error {
	p := repository.UserInfoParams{
		UserID:    auth.User.ID,
		ProductID: auth.Product.ID,
		UserName:  in.UserName,
	}
	if in.NewPasswd != nil {
		if len(*in.NewPasswd) < validation.MinPasswordLen {
			return apperr.ErrPasswordTooShort
		}
		if in.Passwd == nil || !helpers.CompareHashAndPassword(auth.User.Passwd, helpers.HashPassword(auth.User.Email, *in.Passwd)) {
			return apperr.ErrUserPasswdError
		}
		hash := helpers.HashPassword(auth.User.Email, *in.NewPasswd)
		p.PasswdHash = &hash
	}
	if err := s.Repo.UpdateUserInfo(ctx, p); err != nil {
		return err
	}
	if in.UserName != nil {
		u := auth.User
		u.UserName = *in.UserName
		s.index(ctx, &u)
	}
	return nil
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// avatarName generates a 32 hex character name keeping a sane original extension.
func avatarName(filename string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext := strings.ToLower(filepath.Ext(filename)); extPattern.MatchString(ext) {
		name += ext
	}
	return name
}

// UploadAvatar stores the file, points the membership at it and removes the previous file.
func (s *AccountService) UploadAvatar(ctx context.Context, auth *entity.AuthContext, filename, contentType string, r io.Reader) (string, error) {
	name := avatarName(filename)
	if err := s.Avatars.Write(ctx, name, contentType, r); err != nil {
		return "", apperr.Internal(err)
	}
	if err := s.Repo.UpdateUserInfo(ctx, repository.UserInfoParams{
		UserID:    auth.User.ID,
		ProductID: auth.Product.ID,
		Avatar:    &name,
	}); err != nil {
		_ = s.Avatars.Delete(ctx, name)
		return "", err
	}
	if old := auth.Membership.Avatar; old != "" && old != name {
		if err := s.Avatars.Delete(ctx, old); err != nil {
			s.Logger.WithError(err).WithField("avatar", old).Warn("delete previous avatar failed")
		}
	}
	return name, nil
}

var errAvatarNotFound = apperr.Parse("avatar not found")

func (s *AccountService) Avatar(ctx context.Context, name string) (io.ReadCloser, error) {
	ok, err := s.Avatars.Exists(ctx, name)
	if err != nil || !ok {
		return nil, errAvatarNotFound
	}
	rc, err := s.Avatars.Read(ctx, name)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rc, nil
}

func (s *AccountService) Products(ctx context.Context) ([]entity.Product, error) {
	return s.Repo.Products(ctx)
}

func (s *AccountService) UserProducts(ctx context.Context, userID int64) ([]entity.Product, error) {
	return s.Repo.UserProducts(ctx, userID)
}

func (s *AccountService) OpenProduct(ctx context.Context, userID int64, code string) (*entity.Membership, error) {
	if code == "" {
		return nil, apperr.Parse("product is required")
	}
	return s.Repo.OpenProduct(ctx, userID, code)
}

func (s *AccountService) SearchUsers(ctx context.Context, q string, size int) ([]search.UserDoc, error) {
	if s.Index == nil {
		return []search.UserDoc{}, nil
	}
	docs, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return docs, nil
}

// index is best effort; failures are only logged.
func (s *AccountService) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, search.DocOf(u)); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("index user failed")
	}
}
