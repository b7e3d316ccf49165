package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath               = "/etc/wanhealth/config.yaml"
	EnvPath                   = "WANHEALTH_CONFIG"
	DefaultSatelliteAlias     = "wan"
	DefaultSatellitePort      = 9200
	DefaultManagementIP       = "192.168.100.1"
	DefaultSatelliteTimeout   = 5 * time.Second
	DefaultPrimaryTarget      = "8.8.8.8"
	DefaultSecondaryTarget    = "1.1.1.1"
	DefaultCountUnlimited     = 5
	DefaultCountLimited       = 2
	DefaultProbeTimeout       = 2 * time.Second
	DefaultATTool             = "gsmctl"
	DefaultATFlag             = "-A"
	DefaultSignalThreshold    = 30
	DefaultTemperatureLimit   = 70
	DefaultHandshakeTimeout   = 300 * time.Second
	DefaultInterval           = 60 * time.Second
	MultiInterfaceInterval    = 60 * time.Second
	DefaultWorkers            = 4
	DefaultCollectorTimeout   = 10 * time.Second
	DefaultPIDFile            = "/var/run/wanhealth.pid"
	DefaultStateFile          = "/var/run/wanhealth.state.yaml"
	DefaultStopTimeout        = 10 * time.Second
	DefaultMetricsDir         = "/var/log/wanhealth"
	DefaultLocation           = "rutos"
	DefaultLogLevel           = "info"
	DefaultConnectionType     = "unlimited"
	DefaultInfluxMeasurement  = "wan_health"
)

var DefaultSTUNServers = []string{"stun.l.google.com:19302", "stun.cloudflare.com:3478"}

// Config is the immutable snapshot handed to collectors and the scheduler.
type Config struct {
	Interfaces []InterfaceConfig `yaml:"interfaces" validate:"required,min=1,dive"`
	Satellite  SatelliteConfig   `yaml:"satellite"`
	Probe      ProbeConfig       `yaml:"probe"`
	Cellular   CellularConfig    `yaml:"cellular"`
	WireGuard  WireGuardConfig   `yaml:"wireguard"`
	Daemon     DaemonConfig      `yaml:"daemon"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Influx     InfluxConfig      `yaml:"influx"`
	Server     ServerConfig      `yaml:"server"`
	Log        LogConfig         `yaml:"log"`
	Tracing    TracingConfig     `yaml:"tracing"`
}

type InterfaceConfig struct {
	Name           string `yaml:"name" validate:"required"`
	ConnectionType string `yaml:"connection_type" validate:"omitempty,oneof=unlimited limited"`
}

type SatelliteConfig struct {
	Alias        string        `yaml:"alias"`
	Endpoints    []string      `yaml:"endpoints"`
	ManagementIP string        `yaml:"management_ip" validate:"omitempty,ip"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

type ProbeConfig struct {
	Primary        string        `yaml:"primary"`
	Secondary      string        `yaml:"secondary"`
	CountUnlimited int           `yaml:"count_unlimited" validate:"gte=0"`
	CountLimited   int           `yaml:"count_limited" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	STUNServers    []string      `yaml:"stun_servers"`
}

type CellularConfig struct {
	ATTool               string  `yaml:"at_tool"`
	ATFlag               string  `yaml:"at_flag"`
	SignalThreshold      float64 `yaml:"signal_threshold" validate:"gte=0,lte=100"`
	TemperatureThreshold float64 `yaml:"temperature_threshold"`
}

type WireGuardConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gte=0"`
}

type DaemonConfig struct {
	Interval         time.Duration `yaml:"interval" validate:"gte=0"`
	Workers          int           `yaml:"workers" validate:"gte=0"`
	CollectorTimeout time.Duration `yaml:"collector_timeout" validate:"gte=0"`
	PIDFile          string        `yaml:"pid_file"`
	StateFile        string        `yaml:"state_file"`
	StopTimeout      time.Duration `yaml:"stop_timeout" validate:"gte=0"`
}

type MetricsConfig struct {
	Dir      string `yaml:"dir"`
	Location string `yaml:"location"`
}

// InfluxConfig enables the InfluxDB v2 sink when URL is set.
type InfluxConfig struct {
	URL         string `yaml:"url" validate:"omitempty,url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org" validate:"required_with=URL"`
	Bucket      string `yaml:"bucket" validate:"required_with=URL"`
	Measurement string `yaml:"measurement"`
}

type ServerConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ResolvePath picks the config path: explicit flag, then env, then default.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML and fills in defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules the tags cannot express.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Interfaces))
	for _, iface := range cfg.Interfaces {
		if _, dup := seen[iface.Name]; dup {
			return fmt.Errorf("interfaces: duplicate name %q", iface.Name)
		}
		seen[iface.Name] = struct{}{}
	}
	if cfg.Probe.Primary == "" && cfg.Probe.Secondary == "" {
		return fmt.Errorf("probe: at least one target is required")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	for i := range cfg.Interfaces {
		if cfg.Interfaces[i].ConnectionType == "" {
			cfg.Interfaces[i].ConnectionType = DefaultConnectionType
		}
	}

	if cfg.Satellite.Alias == "" {
		cfg.Satellite.Alias = DefaultSatelliteAlias
	}
	if len(cfg.Satellite.Endpoints) == 0 {
		cfg.Satellite.Endpoints = []string{DefaultManagementIP}
	}
	if cfg.Satellite.ManagementIP == "" {
		cfg.Satellite.ManagementIP = DefaultManagementIP
	}
	if cfg.Satellite.Timeout == 0 {
		cfg.Satellite.Timeout = DefaultSatelliteTimeout
	}

	if cfg.Probe.Primary == "" && cfg.Probe.Secondary == "" {
		cfg.Probe.Primary = DefaultPrimaryTarget
		cfg.Probe.Secondary = DefaultSecondaryTarget
	}
	if cfg.Probe.CountUnlimited == 0 {
		cfg.Probe.CountUnlimited = DefaultCountUnlimited
	}
	if cfg.Probe.CountLimited == 0 {
		cfg.Probe.CountLimited = DefaultCountLimited
	}
	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = DefaultProbeTimeout
	}
	if cfg.Probe.STUNServers == nil {
		cfg.Probe.STUNServers = append([]string(nil), DefaultSTUNServers...)
	}

	if cfg.Cellular.ATTool == "" {
		cfg.Cellular.ATTool = DefaultATTool
	}
	if cfg.Cellular.ATFlag == "" {
		cfg.Cellular.ATFlag = DefaultATFlag
	}
	if cfg.Cellular.SignalThreshold == 0 {
		cfg.Cellular.SignalThreshold = DefaultSignalThreshold
	}
	if cfg.Cellular.TemperatureThreshold == 0 {
		cfg.Cellular.TemperatureThreshold = DefaultTemperatureLimit
	}

	if cfg.WireGuard.HandshakeTimeout == 0 {
		cfg.WireGuard.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if cfg.Daemon.Interval == 0 {
		cfg.Daemon.Interval = DefaultInterval
	}
	if cfg.Daemon.Workers == 0 {
		cfg.Daemon.Workers = DefaultWorkers
	}
	if cfg.Daemon.CollectorTimeout == 0 {
		cfg.Daemon.CollectorTimeout = DefaultCollectorTimeout
	}
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = DefaultPIDFile
	}
	if cfg.Daemon.StateFile == "" {
		cfg.Daemon.StateFile = DefaultStateFile
	}
	if cfg.Daemon.StopTimeout == 0 {
		cfg.Daemon.StopTimeout = DefaultStopTimeout
	}

	if cfg.Metrics.Dir == "" {
		cfg.Metrics.Dir = DefaultMetricsDir
	}
	if cfg.Metrics.Location == "" {
		cfg.Metrics.Location = DefaultLocation
	}

	if cfg.Influx.Measurement == "" {
		cfg.Influx.Measurement = DefaultInfluxMeasurement
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// EffectiveInterval is the sleep between cycles. More than one interface
// pins it to one minute regardless of daemon.interval.
func (c Config) EffectiveInterval() time.Duration {
	if len(c.Interfaces) > 1 {
		return MultiInterfaceInterval
	}
	return c.Daemon.Interval
}

// InterfaceNames returns the configured interface names in order.
func (c Config) InterfaceNames() []string {
	out := make([]string, 0, len(c.Interfaces))
	for _, iface := range c.Interfaces {
		out = append(out, iface.Name)
	}
	return out
}
