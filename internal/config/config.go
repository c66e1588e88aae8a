// Package config loads the typed configuration tree for the detection core.
// YAML/TOML file parsing itself sits outside the core's contract; this
// package is the shape the rest of the system is constructed from.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// CameraConfig describes one RTSP source and its per-camera overrides.
type CameraConfig struct {
	ID                              string   `mapstructure:"id"`
	Name                            string   `mapstructure:"name"`
	URL                             string   `mapstructure:"url"`
	ConfidenceThreshold             float64  `mapstructure:"confidence_threshold"`
	Classes                         []string `mapstructure:"classes"`
	ImmediateNotificationConfidence float64  `mapstructure:"immediate_notification_confidence"`
	PromptTemplate                  string   `mapstructure:"prompt_template"`
}

// DetectionConfig is the global fallback for per-camera detection settings.
type DetectionConfig struct {
	ModelPath           string   `mapstructure:"model_path"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	IOUThreshold        float64  `mapstructure:"iou_threshold"`
	Classes             []string `mapstructure:"classes"`
	InputWidth          int      `mapstructure:"input_width"`
	InputHeight         int      `mapstructure:"input_height"`
}

// EventConfig governs recording/snapshot output and event timing.
type EventConfig struct {
	EventsDir              string `mapstructure:"events_dir"`
	SnapshotsDir           string `mapstructure:"snapshots_dir"`
	PrerollSeconds         int    `mapstructure:"preroll_seconds"`
	MaxDurationSeconds     int    `mapstructure:"max_duration_seconds"`
	PostRollDefaultSeconds int    `mapstructure:"post_roll_default_seconds"`
	FPS                    int    `mapstructure:"fps"`
}

// MQTTConfig configures the event bus transport.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         byte   `mapstructure:"qos"`
}

// AMQPConfig configures the alternate bus transport.
type AMQPConfig struct {
	URL              string `mapstructure:"amqp_url"`
	Exchange         string `mapstructure:"exchange"`
	RoutingKeyPrefix string `mapstructure:"routing_key_prefix"`
}

// DatabaseConfig configures event/detection persistence.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// RedisConfig configures the optional motion/start event dedup cache.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Prefix     string `mapstructure:"prefix"`
}

// VisionConfig configures the captioning HTTP client.
type VisionConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Endpoint              string `mapstructure:"endpoint"`
	Model                 string `mapstructure:"model"`
	TimeoutSeconds        int    `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	MaxWords              int    `mapstructure:"max_words"`
}

// OptimizationConfig tunes worker/buffer sizing and reconnect policy.
type OptimizationConfig struct {
	MaxWorkers         int `mapstructure:"max_workers"`
	BufferSize         int `mapstructure:"buffer_size"`
	CircuitMaxFailures int `mapstructure:"circuit_max_failures"`
	CircuitResetSec    int `mapstructure:"circuit_reset_seconds"`
}

// Compression configures optional zstd compression of archived output.
type Compression struct {
	Enabled bool `mapstructure:"enabled"`
	Level   int  `mapstructure:"level"`
}

// Config is the root configuration tree.
type Config struct {
	Protocol     string             `mapstructure:"protocol"`
	Cameras      []CameraConfig     `mapstructure:"cameras"`
	Detection    DetectionConfig    `mapstructure:"detection"`
	Event        EventConfig        `mapstructure:"event"`
	MQTT         MQTTConfig         `mapstructure:"mqtt"`
	AMQP         AMQPConfig         `mapstructure:"amqp"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Vision       VisionConfig       `mapstructure:"vision"`
	Optimization OptimizationConfig `mapstructure:"optimization"`
	Compression  Compression        `mapstructure:"compression"`
}

// RingCapacity computes the per-camera ring buffer size from preroll
// duration and fps, with a floor of 75 frames.
func (c *EventConfig) RingCapacity() int {
	cap := c.PrerollSeconds * c.FPS
	if cap <= 0 {
		return 75
	}
	return cap
}

// PoolCapacity sizes the frame pool as ring capacity plus headroom for
// in-flight frames.
func (c *EventConfig) PoolCapacity() int {
	const headroom = 15
	return c.RingCapacity() + headroom
}

// LoadConfig reads and unmarshals a YAML/TOML/JSON config file via viper.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FrameInterval returns the capture target interval derived from FPS,
// defaulting to 10fps when unset.
func (c *EventConfig) FrameInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = 10
	}
	return time.Second / time.Duration(fps)
}
