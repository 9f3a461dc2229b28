package service

import (
	"context"
	"sync/atomic"

	"signal_kz/internal/metrics"
	"signal_kz/internal/model"
	"signal_kz/internal/transport"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	audienceUser  = "user"
	audienceReply = "reply"
)

// FanoutResult counts the outcome of a cohort broadcast
type FanoutResult struct {
	Recipients int
	Delivered  int
	Failed     int
}

// NotificationService delivers messages best-effort: a failed recipient is
// logged and counted, never returned to the caller as a failure of the
// operation that triggered it.
type NotificationService interface {
	NotifyCohort(ctx context.Context, role model.Role, msg transport.Message) FanoutResult
	NotifyUser(ctx context.Context, userID int64, msg transport.Message) error
	// Reply answers the chat an update came from.
	Reply(ctx context.Context, chatID int64, msg transport.Message) error
}

type notificationService struct {
	sender      transport.Sender
	roles       RoleService
	metrics     *metrics.Metrics
	concurrency int
	log         *logrus.Logger
}

// NewNotificationService creates a new NotificationService sending at most
// concurrency messages of one broadcast in parallel
func NewNotificationService(sender transport.Sender, roles RoleService, m *metrics.Metrics, concurrency int, log *logrus.Logger) NotificationService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &notificationService{sender: sender, roles: roles, metrics: m, concurrency: concurrency, log: log}
}

func (s *notificationService) NotifyCohort(ctx context.Context, role model.Role, msg transport.Message) FanoutResult {
	// deliveries follow a committed change and must not die with the request
	ctx = context.WithoutCancel(ctx)

	ids, err := s.roles.Cohort(ctx, role)
	if err != nil {
		s.log.WithError(err).WithField("audience", role).Error("Failed to load notification cohort")
		return FanoutResult{}
	}

	var delivered, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if s.deliver(ctx, string(role), id, msg) == nil {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := FanoutResult{Recipients: len(ids), Delivered: int(delivered.Load()), Failed: int(failed.Load())}
	s.log.WithFields(logrus.Fields{
		"audience":   role,
		"recipients": res.Recipients,
		"delivered":  res.Delivered,
		"failed":     res.Failed,
	}).Debug("Cohort notified")
	return res
}

func (s *notificationService) NotifyUser(ctx context.Context, userID int64, msg transport.Message) error {
	return s.deliver(context.WithoutCancel(ctx), audienceUser, userID, msg)
}

func (s *notificationService) Reply(ctx context.Context, chatID int64, msg transport.Message) error {
	return s.deliver(ctx, audienceReply, chatID, msg)
}

func (s *notificationService) deliver(ctx context.Context, audience string, recipientID int64, msg transport.Message) error {
	err := s.sender.Send(ctx, recipientID, msg)
	s.metrics.RecordDelivery(audience, err == nil)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"recipient_id": recipientID, "audience": audience}).
			Warn("Failed to deliver notification")
	}
	return err
}
