package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal_kz/internal/model"
	"signal_kz/internal/repository"
	"signal_kz/internal/transport"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Insert(ctx context.Context, user *model.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id int64, role model.Role) (bool, error) {
	args := m.Called(ctx, id, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) FindIDsByRole(ctx context.Context, role model.Role) ([]int64, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role *model.Role) ([]model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockReportRepository is a mock implementation of repository.ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id int64) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) Find(ctx context.Context, filter repository.ReportFilter) ([]model.Report, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportRepository) CompareAndSetStatus(ctx context.Context, id int64, from []model.Status, to model.Status, at time.Time) (*model.Report, error) {
	args := m.Called(ctx, id, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

// MockStatusUpdateRepository is a mock implementation of repository.StatusUpdateRepository
type MockStatusUpdateRepository struct {
	mock.Mock
}

func (m *MockStatusUpdateRepository) Append(ctx context.Context, entry *model.StatusUpdate) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStatusUpdateRepository) HistoryFor(ctx context.Context, reportID int64, limit int) ([]model.StatusUpdate, error) {
	args := m.Called(ctx, reportID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusUpdate), args.Error(1)
}

// fakeStore hands the same mocks to plain and transactional work
type fakeStore struct {
	repos     repository.Repositories
	commits   int
	rollbacks int
}

func newFakeStore(users *MockUserRepository, reports *MockReportRepository, updates *MockStatusUpdateRepository) *fakeStore {
	return &fakeStore{repos: repository.Repositories{Users: users, Reports: reports, StatusUpdates: updates}}
}

func (s *fakeStore) Repos() repository.Repositories {
	return s.repos
}

func (s *fakeStore) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := fn(s.repos); err != nil {
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

// MockRoleService is a mock implementation of RoleService
type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) EnsureRegistered(ctx context.Context, userID int64, profile model.Profile) error {
	args := m.Called(ctx, userID, profile)
	return args.Error(0)
}

func (m *MockRoleService) RoleOf(ctx context.Context, userID int64) (model.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Role), args.Error(1)
}

func (m *MockRoleService) Get(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockRoleService) SetRole(ctx context.Context, actorID, targetID int64, role string) (model.Role, error) {
	args := m.Called(ctx, actorID, targetID, role)
	return args.Get(0).(model.Role), args.Error(1)
}

func (m *MockRoleService) SelfAssign(ctx context.Context, userID int64, role model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockRoleService) Cohort(ctx context.Context, role model.Role) ([]int64, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockReportService is a mock implementation of ReportService
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Submit(ctx context.Context, draft model.Draft) (*model.Report, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) Moderate(ctx context.Context, reportID int64, actorRole model.Role, decision model.Decision) (*model.Report, error) {
	args := m.Called(ctx, reportID, actorRole, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) ChangeStatus(ctx context.Context, reportID int64, actorID int64, actorRole model.Role, newStatus model.Status, comment string) (*model.Report, error) {
	args := m.Called(ctx, reportID, actorID, actorRole, newStatus, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) CheckStatusChangeable(ctx context.Context, reportID int64, actorRole model.Role) (*model.Report, error) {
	args := m.Called(ctx, reportID, actorRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) View(ctx context.Context, reportID int64) (*model.ReportDetail, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReportDetail), args.Error(1)
}

func (m *MockReportService) History(ctx context.Context, reportID int64) ([]model.StatusUpdate, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusUpdate), args.Error(1)
}

func (m *MockReportService) ListByAuthor(ctx context.Context, authorID int64) ([]model.Report, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportService) ListPending(ctx context.Context, actorRole model.Role) ([]model.Report, error) {
	args := m.Called(ctx, actorRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportService) ListActive(ctx context.Context, actorRole model.Role) ([]model.Report, error) {
	args := m.Called(ctx, actorRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

type sent struct {
	to  int64
	msg transport.Message
}

// fakeSender records deliveries and fails for the configured recipients
type fakeSender struct {
	mu       sync.Mutex
	fail     map[int64]bool
	sent     []sent
	canceled int
}

var errUnreachable = errors.New("bot was blocked by the user")

func (s *fakeSender) Send(ctx context.Context, recipientID int64, msg transport.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		s.canceled++
	}
	s.sent = append(s.sent, sent{to: recipientID, msg: msg})
	if s.fail[recipientID] {
		return errUnreachable
	}
	return nil
}

func (s *fakeSender) recipients() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.sent))
	for _, m := range s.sent {
		ids = append(ids, m.to)
	}
	return ids
}

type cohortCall struct {
	role model.Role
	msg  transport.Message
}

// fakeNotifier records what services asked to deliver
type fakeNotifier struct {
	mu      sync.Mutex
	cohorts []cohortCall
	users   []sent
	replies []sent
}

func (n *fakeNotifier) NotifyCohort(ctx context.Context, role model.Role, msg transport.Message) FanoutResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cohorts = append(n.cohorts, cohortCall{role: role, msg: msg})
	return FanoutResult{}
}

func (n *fakeNotifier) NotifyUser(ctx context.Context, userID int64, msg transport.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, sent{to: userID, msg: msg})
	return nil
}

func (n *fakeNotifier) Reply(ctx context.Context, chatID int64, msg transport.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, sent{to: chatID, msg: msg})
	return nil
}

func (n *fakeNotifier) lastReply() transport.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.replies) == 0 {
		return transport.Message{}
	}
	return n.replies[len(n.replies)-1].msg
}
