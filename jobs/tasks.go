package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-rbac/internal/jobs"
	"github.com/odyssey-erp/odyssey-rbac/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendInvite is the task type for delivering invitation emails.
	TaskTypeSendInvite = "mail:invite"
)

// SendInvitePayload describes the invitation message to deliver.
type SendInvitePayload struct {
	To               string `json:"to"`
	AcceptLink       string `json:"accept_link"`
	DeclineLink      string `json:"decline_link"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

func (p SendInvitePayload) invite() mail.Invite {
	return mail.Invite{
		To:          p.To,
		AcceptLink:  p.AcceptLink,
		DeclineLink: p.DeclineLink,
		ExpiresIn:   time.Duration(p.ExpiresInSeconds) * time.Second,
	}
}

// NewSendInviteTask constructs an Asynq task.
func NewSendInviteTask(inv mail.Invite) (*asynq.Task, error) {
	data, err := json.Marshal(SendInvitePayload{
		To:               inv.To,
		AcceptLink:       inv.AcceptLink,
		DeclineLink:      inv.DeclineLink,
		ExpiresInSeconds: int64(inv.ExpiresIn / time.Second),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendInvite, data), nil
}

// InviteSender delivers a single invitation.
type InviteSender interface {
	SendInvite(ctx context.Context, inv mail.Invite) error
}

// SendInviteJob delivers queued invitations through the mail transport.
type SendInviteJob struct {
	sender  InviteSender
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSendInviteJob builds the handler for TaskTypeSendInvite.
func NewSendInviteJob(sender InviteSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendInviteJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendInviteJob{sender: sender, logger: logger, metrics: metrics}
}

// Handle processes TaskTypeSendInvite tasks. Malformed payloads are not retried.
func (j *SendInviteJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeSendInvite)
	var payload SendInvitePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("decode invite payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
	}
	if err := j.sender.SendInvite(ctx, payload.invite()); err != nil {
		j.logger.Warn("invite delivery attempt failed", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("invite delivered", slog.String("to", payload.To))
	return tracker.End(nil)
}
