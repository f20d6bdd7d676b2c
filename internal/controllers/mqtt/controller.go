package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	// Identity
	Project string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainProgress  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.SweepService
	cfg Config
	log *slog.Logger

	client mqtt.Client
}

func New(svc ports.SweepService, cfg Config, logger *slog.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.Project == "" {
		return nil, errors.New("mqtt: Project is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "parasweep/" + cfg.Project
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "parasweep-" + cfg.Project
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: logger,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("cmd/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error("mqtt subscribe", "topic", topic, "err", err)
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish progress on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.svc.Get()
	c.publishProgress()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				c.publishProgress()
				last = cur
			}
		}
	}
}

func (c *Controller) publishProgress() {
	p := c.svc.Get()
	dto := progressDTO{
		Project:    c.cfg.Project,
		SweepID:    p.SweepID,
		State:      p.State.String(),
		Current:    p.Current,
		Total:      p.Total,
		Succeeded:  p.Succeeded,
		Failed:     p.Failed,
		Scenario:   p.Scenario,
		OutputFile: p.OutputFile,
		LastError:  p.LastError,
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("progress"), c.cfg.QoS, c.cfg.RetainProgress, b)
}

func (c *Controller) publishError(err error) {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	c.client.Publish(c.topic("error"), c.cfg.QoS, false, b)
}

type progressDTO struct {
	Project    string             `json:"project"`
	SweepID    string             `json:"sweep_id"`
	State      string             `json:"state"`
	Current    int                `json:"current"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Scenario   map[string]float64 `json:"scenario,omitempty"`
	OutputFile string             `json:"output_file,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/cmd/<command>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/cmd/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	command := strings.TrimPrefix(t, prefix)

	switch command {
	case "run":
		form, err := decodeValueStrict[sweep.Form](msg.Payload())
		if err != nil {
			c.log.Warn("mqtt: bad run command", "err", err)
			c.publishError(err)
			return
		}
		if err := c.svc.Start(form); err != nil {
			c.log.Warn("mqtt: sweep rejected", "err", err)
			c.publishError(err)
			return
		}
		c.publishProgress()
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
