package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/posture-monitor/internal/evaluator"
	"github.com/oshokin/posture-monitor/internal/logger"
	"github.com/oshokin/posture-monitor/internal/notifier"
	"github.com/oshokin/posture-monitor/internal/tracker"
)

// Config holds the settings of one monitoring session.
type Config struct {
	// ElbowExtendThreshold is the elbow angle in degrees above which an arm is overextended.
	ElbowExtendThreshold float64 `yaml:"elbow_extend_threshold"`
	// TorsoAngleThreshold is the torso lean in degrees above which the hips are away.
	TorsoAngleThreshold float64 `yaml:"torso_angle_threshold"`
	// HipDXThreshold is the normalized hip offset above which the hips are away.
	HipDXThreshold float64 `yaml:"hip_dx_threshold"`
	// SmoothingFrames is the run of positive frames needed to raise an issue.
	SmoothingFrames int `yaml:"smoothing_frames"`
	// WebhookDebounceSecs is the per-issue spacing between notifications.
	WebhookDebounceSecs float64 `yaml:"webhook_debounce_secs"`
	// NotificationSinkAddress is the webhook URL. Empty disables notifications.
	NotificationSinkAddress string `yaml:"notification_sink_address"`
	// WebhookTimeout bounds a single delivery attempt.
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	// WebhookQueueSize is the number of notifications buffered for delivery.
	WebhookQueueSize int `yaml:"webhook_queue_size"`
	// WebhookRatePerMinute caps deliveries across all issues. Zero disables the cap.
	WebhookRatePerMinute int `yaml:"webhook_rate_per_minute"`
	// RearmAfterFrames lets an issue fire again after that many clean frames. Zero is one-shot.
	RearmAfterFrames int `yaml:"rearm_after_frames"`
	// MissingFramePolicy is either "freeze" or "reset".
	MissingFramePolicy string `yaml:"missing_frame_policy"`
	// EventLogPath is the CSV file receiving one row per issue event.
	EventLogPath string `yaml:"event_log_path"`
	// EventLogAppend keeps existing rows instead of truncating the log.
	EventLogAppend bool `yaml:"event_log_append"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// HealthAddress is the gRPC health listener. Empty disables it.
	HealthAddress string `yaml:"health_address"`
	// MetricsAddress is the Prometheus listener. Empty disables it.
	MetricsAddress string `yaml:"metrics_address"`
	// Source describes where keypoint frames come from.
	Source SourceConfig `yaml:"source"`
}

// SourceConfig selects and configures the keypoint source.
type SourceConfig struct {
	// Type is SourceJSONL or SourceMQTT.
	Type string `yaml:"type"`
	// Path is the JSON Lines file; "-" reads stdin.
	Path string `yaml:"path"`
	// MQTT is used when Type is SourceMQTT.
	MQTT MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig holds the broker subscription settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "posture-monitor.yaml"

	// DefaultEventLogFilename is the default CSV event log.
	DefaultEventLogFilename = "pose_issues_log.csv"

	// DefaultMQTTTopic is the topic subscribed to when none is configured.
	DefaultMQTTTopic = "pose/keypoints"

	// SourceJSONL reads JSON Lines from a file or stdin.
	SourceJSONL = "jsonl"
	// SourceMQTT subscribes to an MQTT topic.
	SourceMQTT = "mqtt"

	// StdinPath selects stdin for the JSON Lines source.
	StdinPath = "-"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeValue is returned when a threshold or window is below zero.
	errNegativeValue = errors.New("value must not be negative")
	// errUnknownLogLevel is returned for unsupported log levels.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownSource is returned for unsupported source types.
	errUnknownSource = errors.New("unknown source type")
	// errBrokerRequired is returned when the MQTT source has no broker.
	errBrokerRequired = errors.New("mqtt broker must be provided")
	// errInvalidQoS is returned for MQTT QoS values above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
)

// Default returns the stock settings.
func Default() *Config {
	return &Config{
		ElbowExtendThreshold: evaluator.DefaultElbowExtendThreshold,
		TorsoAngleThreshold:  evaluator.DefaultTorsoAngleThreshold,
		HipDXThreshold:       evaluator.DefaultHipDXThreshold,
		SmoothingFrames:      tracker.DefaultSmoothingFrames,
		WebhookDebounceSecs:  notifier.DefaultDebounce.Seconds(),
		WebhookTimeout:       notifier.DefaultWebhookTimeout,
		WebhookQueueSize:     notifier.DefaultWebhookQueueSize,
		WebhookRatePerMinute: notifier.DefaultWebhookRatePerMinute,
		MissingFramePolicy:   string(tracker.MissingFreeze),
		EventLogPath:         DefaultEventLogFilename,
		LogLevel:             "info",
		Source: SourceConfig{
			Type: SourceJSONL,
			Path: StdinPath,
			MQTT: MQTTConfig{Topic: DefaultMQTTTopic},
		},
	}
}

// Load reads configuration from the provided path and validates it.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load, except that an empty path whose default
// file does not exist yields Default(). An explicit missing path is an error.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg, err := Load(DefaultConfigFilename)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and rejects invalid values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	fillDefaults(cfg)

	for name, v := range map[string]float64{
		"elbow_extend_threshold":  cfg.ElbowExtendThreshold,
		"torso_angle_threshold":   cfg.TorsoAngleThreshold,
		"hip_dx_threshold":        cfg.HipDXThreshold,
		"webhook_debounce_secs":   cfg.WebhookDebounceSecs,
		"rearm_after_frames":      float64(cfg.RearmAfterFrames),
		"webhook_rate_per_minute": float64(cfg.WebhookRatePerMinute),
	} {
		if v < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeValue)
		}
	}

	if _, err := tracker.ParseMissingPolicy(cfg.MissingFramePolicy); err != nil {
		return err
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	if cfg.NotificationSinkAddress != "" {
		if err := notifier.ValidateURL(cfg.NotificationSinkAddress); err != nil {
			return err
		}
	}

	for name, addr := range map[string]string{
		"health_address":  cfg.HealthAddress,
		"metrics_address": cfg.MetricsAddress,
	} {
		if addr == "" {
			continue
		}

		if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return validateSource(&cfg.Source)
}

// Debounce returns the webhook debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.WebhookDebounceSecs * float64(time.Second))
}

func fillDefaults(cfg *Config) {
	if cfg.SmoothingFrames < 1 {
		cfg.SmoothingFrames = tracker.DefaultSmoothingFrames
	}

	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = notifier.DefaultWebhookTimeout
	}

	if cfg.WebhookQueueSize <= 0 {
		cfg.WebhookQueueSize = notifier.DefaultWebhookQueueSize
	}

	if cfg.MissingFramePolicy == "" {
		cfg.MissingFramePolicy = string(tracker.MissingFreeze)
	}

	if cfg.EventLogPath == "" {
		cfg.EventLogPath = DefaultEventLogFilename
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Source.Type == "" {
		cfg.Source.Type = SourceJSONL
	}

	if cfg.Source.Path == "" {
		cfg.Source.Path = StdinPath
	}

	if cfg.Source.MQTT.Topic == "" {
		cfg.Source.MQTT.Topic = DefaultMQTTTopic
	}
}

func validateSource(src *SourceConfig) error {
	switch src.Type {
	case SourceJSONL:
		return nil
	case SourceMQTT:
		if src.MQTT.Broker == "" {
			return errBrokerRequired
		}

		if src.MQTT.QoS > 2 {
			return errInvalidQoS
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownSource, src.Type)
	}
}
