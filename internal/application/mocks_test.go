package application

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/pkg/mailer"
)

type mockAccountRepo struct {
	mock.Mock
}

var _ repository.AccountRepository = (*mockAccountRepo)(nil)

func (m *mockAccountRepo) CreateUser(ctx context.Context, p repository.SignupParams) (*entity.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *mockAccountRepo) SigninUser(ctx context.Context, p repository.SigninParams) (*entity.SigninResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SigninResult), args.Error(1)
}

func (m *mockAccountRepo) GetSession(ctx context.Context, token string) (*entity.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *mockAccountRepo) CreateSession(ctx context.Context, userID, productID int64) (*entity.Session, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *mockAccountRepo) RotateSession(ctx context.Context, token string) (*entity.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *mockAccountRepo) DeleteSession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAccountRepo) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAccountRepo) UpdateUserInfo(ctx context.Context, p repository.UserInfoParams) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockAccountRepo) ResetPassword(ctx context.Context, email, passwdHash string) error {
	return m.Called(ctx, email, passwdHash).Error(0)
}

func (m *mockAccountRepo) QueryUser(ctx context.Context, userID int64) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *mockAccountRepo) QueryProduct(ctx context.Context, productID int64) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *mockAccountRepo) QueryMembership(ctx context.Context, userID, productID int64) (*entity.Membership, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Membership), args.Error(1)
}

func (m *mockAccountRepo) Products(ctx context.Context) ([]entity.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *mockAccountRepo) UserProducts(ctx context.Context, userID int64) ([]entity.Product, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *mockAccountRepo) OpenProduct(ctx context.Context, userID int64, code string) (*entity.Membership, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Membership), args.Error(1)
}

func (m *mockAccountRepo) Avatars(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

// recordingMailer keeps dispatched jobs instead of sending them.
type recordingMailer struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (r *recordingMailer) Dispatch(job mailer.EmailJob) {
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
}

func (r *recordingMailer) sent() []mailer.EmailJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mailer.EmailJob(nil), r.jobs...)
}

type mockPreferenceRepo struct {
	mock.Mock
}

var _ repository.PreferenceRepository = (*mockPreferenceRepo)(nil)

func (m *mockPreferenceRepo) NewRecently(ctx context.Context, userID int64, items []entity.Recently) (int, error) {
	args := m.Called(ctx, userID, items)
	return args.Int(0), args.Error(1)
}

func (m *mockPreferenceRepo) ModifyRecently(ctx context.Context, userID int64, item entity.Recently) error {
	return m.Called(ctx, userID, item).Error(0)
}

func (m *mockPreferenceRepo) ClearRecently(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPreferenceRepo) QueryRecently(ctx context.Context, userID int64) ([]entity.Recently, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.Recently), args.Error(1)
}

func (m *mockPreferenceRepo) NewGroups(ctx context.Context, userID int64, groups []entity.FavGroup) (int, error) {
	args := m.Called(ctx, userID, groups)
	return args.Int(0), args.Error(1)
}

func (m *mockPreferenceRepo) ModifyGroup(ctx context.Context, userID int64, oldName string, group entity.FavGroup) error {
	return m.Called(ctx, userID, oldName, group).Error(0)
}

func (m *mockPreferenceRepo) DeleteGroups(ctx context.Context, userID int64, names []string) error {
	return m.Called(ctx, userID, names).Error(0)
}

func (m *mockPreferenceRepo) QueryGroups(ctx context.Context, userID int64, name string) ([]entity.FavGroup, error) {
	args := m.Called(ctx, userID, name)
	return args.Get(0).([]entity.FavGroup), args.Error(1)
}

func (m *mockPreferenceRepo) NewFavorite(ctx context.Context, userID int64, items []entity.StationGroup) (int, error) {
	args := m.Called(ctx, userID, items)
	return args.Int(0), args.Error(1)
}

func (m *mockPreferenceRepo) DeleteFavorite(ctx context.Context, userID int64, stations, groupNames []string) error {
	return m.Called(ctx, userID, stations, groupNames).Error(0)
}

func (m *mockPreferenceRepo) ModifyFavorite(ctx context.Context, userID int64, station string, groupNames []string) error {
	return m.Called(ctx, userID, station, groupNames).Error(0)
}

func (m *mockPreferenceRepo) QueryFavorites(ctx context.Context, userID int64) ([]entity.StationGroup, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.StationGroup), args.Error(1)
}

func (m *mockPreferenceRepo) QuerySync(ctx context.Context, userID int64, since int64) (*entity.SyncSet, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SyncSet), args.Error(1)
}
