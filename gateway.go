package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/i4energy/espuplink/modem"
)

var (
	// ErrQueueFull is returned by Enqueue when the worker is too far behind.
	ErrQueueFull = errors.New("job queue full")
	// ErrInvalidJob wraps every validation failure of an incoming job.
	ErrInvalidJob = errors.New("invalid job")
)

// JobKind names the flow a Job runs.
type JobKind string

const (
	JobWifi     JobKind = "wifi"
	JobCloudLog JobKind = "cloudlog"
	JobWebhook  JobKind = "webhook"
)

type WifiRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

type CloudLogRequest struct {
	Host   string    `json:"host"`
	APIKey string    `json:"api_key"`
	Fields []float64 `json:"fields"`
}

type WebhookRequest struct {
	Event string `json:"event"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Job is one queued flow invocation. Exactly one of the request pointers
// matching Kind is set.
type Job struct {
	ID       string
	Kind     JobKind
	Wifi     *WifiRequest
	CloudLog *CloudLogRequest
	Webhook  *WebhookRequest
}

// decodeJob reads a JSON request of the given kind.
func decodeJob(kind JobKind, r io.Reader) (Job, error) {
	job := Job{Kind: kind}
	var target any
	switch kind {
	case JobWifi:
		job.Wifi = &WifiRequest{}
		target = job.Wifi
	case JobCloudLog:
		job.CloudLog = &CloudLogRequest{}
		target = job.CloudLog
	case JobWebhook:
		job.Webhook = &WebhookRequest{}
		target = job.Webhook
	default:
		return Job{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidJob, kind)
	}

	if err := json.NewDecoder(r).Decode(target); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, nil
}

// Uplink is the part of *modem.Modem the gateway drives.
type Uplink interface {
	ConnectWifi(ctx context.Context, ssid, password string) bool
	ConnectCloudLog(ctx context.Context, host, apiKey string, fields []float64)
	TriggerWebhook(ctx context.Context, event, key, value string)
	State() modem.State
}

// StatusPublisher receives the connection flags after every job.
type StatusPublisher interface {
	PublishStatus(state modem.State) error
}

// GatewayConfig holds request defaults and pacing for a Gateway.
type GatewayConfig struct {
	CloudLogHost      string
	CloudLogAPIKey    string
	WebhookKey        string
	MinUploadInterval time.Duration
	QueueSize         int
}

// Gateway queues flow requests from HTTP and MQTT and runs them one at a
// time against the module.
type Gateway struct {
	Logger *slog.Logger
	// Publisher is optional
	Publisher StatusPublisher

	uplink  Uplink
	config  GatewayConfig
	queue   chan Job
	limiter *rate.Limiter
}

func NewGateway(logger *slog.Logger, uplink Uplink, config GatewayConfig) *Gateway {
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}

	limit := rate.Inf
	if config.MinUploadInterval > 0 {
		limit = rate.Every(config.MinUploadInterval)
	}

	return &Gateway{
		Logger:  logger,
		uplink:  uplink,
		config:  config,
		queue:   make(chan Job, config.QueueSize),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Enqueue fills in defaults, validates job and queues it. It returns the
// job ID without waiting for the job to run.
func (g *Gateway) Enqueue(job Job) (string, error) {
	if err := g.prepare(&job); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	select {
	case g.queue <- job:
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (g *Gateway) prepare(job *Job) error {
	switch job.Kind {
	case JobWifi:
		if job.Wifi == nil || job.Wifi.SSID == "" {
			return fmt.Errorf("%w: 'ssid' is required", ErrInvalidJob)
		}
	case JobCloudLog:
		req := job.CloudLog
		if req == nil {
			return fmt.Errorf("%w: missing cloud log request", ErrInvalidJob)
		}
		if req.Host == "" {
			req.Host = g.config.CloudLogHost
		}
		if req.APIKey == "" {
			req.APIKey = g.config.CloudLogAPIKey
		}
		if req.Host == "" || req.APIKey == "" {
			return fmt.Errorf("%w: 'host' and 'api_key' are required", ErrInvalidJob)
		}
	case JobWebhook:
		req := job.Webhook
		if req == nil {
			return fmt.Errorf("%w: missing webhook request", ErrInvalidJob)
		}
		if req.Key == "" {
			req.Key = g.config.WebhookKey
		}
		if req.Event == "" || req.Key == "" {
			return fmt.Errorf("%w: 'event' and 'key' are required", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidJob, job.Kind)
	}
	return nil
}

// Run processes queued jobs until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-g.queue:
			// select may pick a ready job after cancel
			if ctx.Err() != nil {
				g.Logger.Info("Job dropped on shutdown", "job_id", job.ID, "kind", job.Kind)
				return
			}
			g.process(ctx, job)
		}
	}
}

func (g *Gateway) process(ctx context.Context, job Job) {
	logger := g.Logger.With("job_id", job.ID, "kind", job.Kind)

	switch job.Kind {
	case JobWifi:
		g.uplink.ConnectWifi(ctx, job.Wifi.SSID, job.Wifi.Password)
	case JobCloudLog:
		if err := g.limiter.Wait(ctx); err != nil {
			logger.Warn("Cloud log upload abandoned", "error", err)
			return
		}
		g.uplink.ConnectCloudLog(ctx, job.CloudLog.Host, job.CloudLog.APIKey, job.CloudLog.Fields)
	case JobWebhook:
		g.uplink.TriggerWebhook(ctx, job.Webhook.Event, job.Webhook.Key, job.Webhook.Value)
	}

	state := g.uplink.State()
	logger.Info("Job finished",
		"wifi_connected", state.WifiConnected,
		"cloudlog_connected", state.CloudLogConnected,
		"last_upload_successful", state.LastUploadSuccessful)

	if g.Publisher != nil {
		if err := g.Publisher.PublishStatus(state); err != nil {
			logger.Error("Failed to publish status", "error", err)
		}
	}
}
