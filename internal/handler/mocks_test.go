package handler

import (
	"context"
	"net/http"
	"sync"

	"signal_kz/internal/model"
	"signal_kz/internal/service"
	"signal_kz/internal/session"
	"signal_kz/internal/transport"

	"github.com/stretchr/testify/mock"
)

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

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) BeginSubmission(ctx context.Context, userID, chatID int64) {
	m.Called(ctx, userID, chatID)
}

func (m *MockSessionService) BeginStatusComment(ctx context.Context, userID, chatID, reportID int64, status model.Status) {
	m.Called(ctx, userID, chatID, reportID, status)
}

func (m *MockSessionService) Handle(ctx context.Context, userID, chatID int64, in service.Input) bool {
	args := m.Called(ctx, userID, chatID, in)
	return args.Bool(0)
}

func (m *MockSessionService) Cancel(userID int64) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockSessionService) Current(userID int64) (session.Session, bool) {
	args := m.Called(userID)
	return args.Get(0).(session.Session), args.Bool(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) IssueToken(ctx context.Context, userID int64) (string, *model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.User), args.Error(2)
}

func (m *MockAuthService) TokenLifetimeHours() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

type sent struct {
	to  int64
	msg transport.Message
}

// fakeNotifier records replies and direct notifications
type fakeNotifier struct {
	mu      sync.Mutex
	users   []sent
	replies []sent
}

func (n *fakeNotifier) NotifyCohort(ctx context.Context, role model.Role, msg transport.Message) service.FanoutResult {
	return service.FanoutResult{}
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

func (n *fakeNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.replies))
	for _, r := range n.replies {
		out = append(out, r.msg.Text)
	}
	return out
}

func (n *fakeNotifier) last() transport.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.replies) == 0 {
		return transport.Message{}
	}
	return n.replies[len(n.replies)-1].msg
}

type fakeAcker struct {
	acked []string
}

func (a *fakeAcker) Ack(ctx context.Context, callbackID string) error {
	a.acked = append(a.acked, callbackID)
	return nil
}

type fakeParser struct {
	in  transport.Inbound
	ok  bool
	err error
}

func (p *fakeParser) ParseWebhook(r *http.Request) (transport.Inbound, bool, error) {
	return p.in, p.ok, p.err
}

type recordingUpdates struct {
	got []transport.Inbound
}

func (u *recordingUpdates) Handle(ctx context.Context, in transport.Inbound) {
	u.got = append(u.got, in)
}
