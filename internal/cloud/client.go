// Package cloud provides the MQTT connectivity layer: snapshot publishes
// and the remote-configuration subscription that keeps the engine
// settings synchronized with the fleet backend.
package cloud

import (
	"context"
	"net/url"
	"sync/atomic"

	"codeberg.org/mutker/obdmon/internal/engine"
	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/logger"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

const (
	ErrConnect      = errors.ErrorCode("cloud_connect_failed")
	ErrPublish      = errors.ErrorCode("cloud_publish_failed")
	ErrDisconnect   = errors.ErrorCode("cloud_disconnect_failed")
	ErrBadConfigDoc = errors.ErrorCode("cloud_config_invalid")
)

const (
	keepAliveSeconds      = 20
	sessionExpirySeconds  = 60
	clientIDSuffixLength  = 8
	telemetryTopicSuffix  = "/telemetry"
	configTopicSuffix     = "/config"
	telemetryPublishQoS   = 1
	configSubscriptionQoS = 1
)

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

type Client struct {
	cm             *autopaho.ConnectionManager
	telemetryTopic string
	configTopic    string
	settings       *engine.Settings
	connected      atomic.Bool
}

// Connect starts the connection manager. The manager reconnects on its
// own; an error here means the broker URL itself is unusable.
func Connect(ctx context.Context, cfg Config, settings *engine.Settings) (*Client, error) {
	broker, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, errors.Wrap(ErrConnect, err)
	}

	c := &Client{
		telemetryTopic: cfg.TopicPrefix + telemetryTopicSuffix,
		configTopic:    cfg.TopicPrefix + configTopicSuffix,
		settings:       settings,
	}

	clientID := cfg.ClientID + "-" + uuid.New().String()[:clientIDSuffixLength]

	clientConfig := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     keepAliveSeconds,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         sessionExpirySeconds,
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError: func(err error) {
			c.connected.Store(false)
			logger.Warn().Err(err).Msg("cloud connection attempt failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.onPublishReceived,
			},
			OnClientError: func(err error) {
				c.connected.Store(false)
				logger.Warn().Err(err).Msg("cloud client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				c.connected.Store(false)
				logger.Warn().Int("reason_code", int(d.ReasonCode)).Msg("cloud server disconnect")
			},
		},
	}

	c.cm, err = autopaho.NewConnection(ctx, clientConfig)
	if err != nil {
		return nil, errors.Wrap(ErrConnect, err)
	}

	logger.Info().
		Str("broker", cfg.Broker).
		Str("client_id", clientID).
		Msg("Cloud connection manager started")

	return c, nil
}

func (c *Client) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.connected.Store(true)
	logger.Info().Msg("Cloud connection up")

	// The config document is retained, so each (re)connect replays the
	// current remote settings.
	go func() {
		_, err := cm.Subscribe(context.Background(), &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: c.configTopic, QoS: configSubscriptionQoS},
			},
		})
		if err != nil {
			logger.Warn().Err(err).Str("topic", c.configTopic).Msg("config subscription failed")
		}
	}()
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Publish sends a telemetry payload at QoS 1.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	_, err := c.cm.Publish(ctx, &paho.Publish{
		QoS:     telemetryPublishQoS,
		Topic:   c.telemetryTopic,
		Payload: payload,
	})
	if err != nil {
		return errors.Wrap(ErrPublish, err)
	}

	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.cm.Disconnect(ctx); err != nil {
		return errors.Wrap(ErrDisconnect, err)
	}

	return nil
}

func (c *Client) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	if pr.Packet.Topic != c.configTopic {
		return false, nil
	}

	if err := ApplySettings(c.settings, pr.Packet.Payload); err != nil {
		logger.Warn().Err(err).Msg("rejected remote settings document")
	}

	return true, nil
}
