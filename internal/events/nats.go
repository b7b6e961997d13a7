package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// NATSSink publishes sync lifecycle events to NATS subjects so other
// systems can react to fresh bars without polling the store.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *logrus.Entry
}

// NewNATSSink connects to NATS and returns a sink publishing under the
// configured subject prefix.
func NewNATSSink(cfg *config.NATSConfig, logger *logrus.Logger) (*NATSSink, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSink{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger.WithField("component", "nats-sink"),
	}, nil
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() {
	s.conn.Close()
}

func (s *NATSSink) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal event")
		return
	}
	if err := s.conn.Publish(s.prefix+"."+subject, data); err != nil {
		s.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

func (s *NATSSink) CycleStarted(_ context.Context, series int) {
	s.publish("cycle.started", map[string]interface{}{
		"series": series,
		"time":   time.Now().UTC(),
	})
}

func (s *NATSSink) SeriesSynced(_ context.Context, table string, appended int) {
	s.publish("series.synced", map[string]interface{}{
		"table":    table,
		"appended": appended,
		"time":     time.Now().UTC(),
	})
}

func (s *NATSSink) SeriesFailed(_ context.Context, table string, err error) {
	s.publish("series.failed", map[string]interface{}{
		"table": table,
		"error": err.Error(),
		"time":  time.Now().UTC(),
	})
}

func (s *NATSSink) CycleCompleted(_ context.Context, result *models.CycleResult) {
	s.publish("cycle.completed", result)
}
