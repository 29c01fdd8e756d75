// Package events provides NATS JetStream publishing for finished imports
// so downstream services (licensing, finance) can react to new clubs and
// members without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"license-console-service/internal/models"
)

const (
	streamName = "IMPORT_EVENTS"

	// SubjectImportCompleted is published after a successful commit
	SubjectImportCompleted = "import.completed"
	// SubjectImportFailed is published when the import API rejects a commit
	SubjectImportFailed = "import.failed"
)

// ImportEvent is the wire payload for import lifecycle events
type ImportEvent struct {
	EventType   string                   `json:"eventType"`
	TenantID    string                   `json:"tenantId"`
	Timestamp   time.Time                `json:"timestamp"`
	SubjectType models.ImportSubjectType `json:"subjectType"`
	ClubID      *string                  `json:"clubId,omitempty"`
	OperatorID  string                   `json:"operatorId"`
	FileName    string                   `json:"fileName,omitempty"`
	RowCount    int                      `json:"rowCount"`
	CreateCount int                      `json:"createCount"`
	SkipCount   int                      `json:"skipCount"`
	Message     *string                  `json:"message,omitempty"`
}

// Publisher publishes import lifecycle events to NATS
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the import events stream
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://nats.nats.svc.cluster.local:4222"
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("license-console-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnf("[NATS] Disconnected: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"import.>"},
	}); err != nil {
		logger.WithError(err).Warn("Failed to ensure IMPORT_EVENTS stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "events.publisher"),
	}, nil
}

// PublishImportCompleted publishes an import.completed event
func (p *Publisher) PublishImportCompleted(ctx context.Context, attempt *models.ImportAttempt) error {
	return p.publish(ctx, SubjectImportCompleted, attempt)
}

// PublishImportFailed publishes an import.failed event
func (p *Publisher) PublishImportFailed(ctx context.Context, attempt *models.ImportAttempt) error {
	return p.publish(ctx, SubjectImportFailed, attempt)
}

func (p *Publisher) publish(ctx context.Context, subject string, attempt *models.ImportAttempt) error {
	event := ImportEvent{
		EventType:   subject,
		TenantID:    attempt.TenantID,
		Timestamp:   time.Now().UTC(),
		SubjectType: attempt.SubjectType,
		ClubID:      attempt.ClubID,
		OperatorID:  attempt.OperatorID,
		FileName:    attempt.FileName,
		RowCount:    attempt.RowCount,
		CreateCount: attempt.CreateCount,
		SkipCount:   attempt.SkipCount,
		Message:     attempt.Message,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal import event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.WithFields(logrus.Fields{
		"subject": subject,
		"tenant":  attempt.TenantID,
		"rows":    attempt.RowCount,
	}).Debug("import event published")

	return nil
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
