package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"issuance-backend/internal/config"
	"issuance-backend/internal/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient wraps the NATS connection used to publish engine events.
type NATSClient struct {
	conn *nats.Conn
}

// NewNATSClient connects to the NATS server.
func NewNATSClient(url string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	reconnectWait := 5 * time.Second
	maxReconnects := -1
	if config.AppConfig != nil {
		if config.AppConfig.NATS.Timeout > 0 {
			connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
		}
		if config.AppConfig.NATS.ReconnectWait > 0 {
			reconnectWait = time.Duration(config.AppConfig.NATS.ReconnectWait) * time.Second
		}
		if config.AppConfig.NATS.MaxReconnects > 0 {
			maxReconnects = config.AppConfig.NATS.MaxReconnects
		}
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logrus.WithError(err).Warn("NATS disconnected")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logrus.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	return &NATSClient{conn: conn}, nil
}

// Publish marshals payload to JSON and publishes it on subject.
func (c *NATSClient) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		metrics.NATSPublishFailed.WithLabelValues(subject).Inc()
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(subject).Inc()
	return nil
}

// IsConnected reports the current connection state.
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
