package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceAuto asks the serial source to probe /dev/ttyACM* and /dev/ttyUSB*.
const DeviceAuto = "auto"

type Config struct {
	GPS    GPSConfig    `yaml:"gps"`
	Output OutputConfig `yaml:"output"`
	Web    WebConfig    `yaml:"web"`
	Logs   LogsConfig   `yaml:"logs"`
}

type GPSConfig struct {
	Enable   bool   `yaml:"enable"`
	Source   string `yaml:"source"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	GPSDAddr string `yaml:"gpsd_addr"`

	// Parser options, read once when the service is built.
	SpeedEnable     bool    `yaml:"speed_enable"`
	HNREnable       bool    `yaml:"hnr_enable"`
	PrecisionFactor float64 `yaml:"precision_factor"`

	SirfInit []string `yaml:"sirf_init"`
	UBXInit  []string `yaml:"ubx_init"`

	Record RecordConfig `yaml:"record"`
	Replay ReplayConfig `yaml:"replay"`
	Sim    SimConfig    `yaml:"sim"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

// SimConfig drives the built-in receiver emulator (gps.source: sim).
type SimConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
	Satellites   int           `yaml:"satellites"`
	Interval     time.Duration `yaml:"interval"`
}

type OutputConfig struct {
	UDP   UDPConfig   `yaml:"udp"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Redis RedisConfig `yaml:"redis"`
}

// UDPConfig rebroadcasts fixes as NMEA sentences.
type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

type RedisConfig struct {
	Enable    bool          `yaml:"enable"`
	Addr      string        `yaml:"addr"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// LogsConfig controls the rotating log file. An empty Path logs to stdout only.
type LogsConfig struct {
	Path        string `yaml:"path"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	MaxBackups  int    `yaml:"max_backups"`
	Compress    bool   `yaml:"compress"`
	BufferLines int    `yaml:"buffer_lines"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, decodeError(err)
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeError drops yaml's line prefixes so messages read like the
// validation errors.
func decodeError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	unknown := true
	msgs := make([]string, 0, len(te.Errors))
	for _, e := range te.Errors {
		if strings.HasPrefix(e, "line ") {
			if _, rest, ok := strings.Cut(e, ": "); ok {
				e = rest
			}
		}
		if !strings.Contains(e, "not found in type") {
			unknown = false
		}
		msgs = append(msgs, e)
	}
	if unknown {
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("config is invalid: %s", strings.Join(msgs, "; "))
}

// DefaultAndValidate fills unset fields and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if err := defaultGPS(&cfg.GPS); err != nil {
		return err
	}
	if err := defaultOutput(&cfg.Output); err != nil {
		return err
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 10
	}
	if cfg.Logs.MaxBackups < 0 {
		return fmt.Errorf("logs.max_backups must be >= 0")
	}
	if cfg.Logs.MaxAgeDays < 0 {
		return fmt.Errorf("logs.max_age_days must be >= 0")
	}
	if cfg.Logs.BufferLines <= 0 {
		cfg.Logs.BufferLines = 2000
	}
	return nil
}

func defaultGPS(g *GPSConfig) error {
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "serial"
	}
	if g.PrecisionFactor == 0 {
		g.PrecisionFactor = 5.0
	}
	if g.PrecisionFactor < 0 {
		return fmt.Errorf("gps.precision_factor must be > 0")
	}
	if !g.Enable {
		return nil
	}

	switch g.Source {
	case "serial":
		if strings.TrimSpace(g.Device) == "" {
			return fmt.Errorf("gps.device is required when gps.source is 'serial'")
		}
		if g.Baud == 0 {
			g.Baud = 9600
		}
		if g.Baud < 0 {
			return fmt.Errorf("gps.baud must be > 0")
		}
	case "gpsd":
		if g.GPSDAddr == "" {
			g.GPSDAddr = "127.0.0.1:2947"
		}
	case "replay":
		if g.Replay.Path == "" {
			return fmt.Errorf("gps.replay.path is required when gps.source is 'replay'")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
		if g.Record.Enable {
			return fmt.Errorf("gps.record cannot be used with gps.source 'replay'")
		}
	case "sim":
		if g.Sim.CenterLatDeg < -90 || g.Sim.CenterLatDeg > 90 {
			return fmt.Errorf("gps.sim.center_lat_deg must be within [-90,90]")
		}
		if g.Sim.CenterLonDeg < -180 || g.Sim.CenterLonDeg > 180 {
			return fmt.Errorf("gps.sim.center_lon_deg must be within [-180,180]")
		}
		if g.Sim.RadiusM <= 0 {
			g.Sim.RadiusM = 500
		}
		if g.Sim.Period <= 0 {
			g.Sim.Period = 120 * time.Second
		}
		if g.Sim.Satellites <= 0 {
			g.Sim.Satellites = 10
		}
		if g.Sim.Interval <= 0 {
			g.Sim.Interval = time.Second
		}
	default:
		return fmt.Errorf("gps.source must be one of 'serial', 'gpsd', 'replay', 'sim' (got %q)", g.Source)
	}

	if len(g.SirfInit) > 0 && g.Source != "serial" {
		return fmt.Errorf("gps.sirf_init requires gps.source 'serial'")
	}
	if len(g.UBXInit) > 0 && g.Source != "serial" {
		return fmt.Errorf("gps.ubx_init requires gps.source 'serial'")
	}

	if g.Record.Enable && g.Record.Path == "" {
		return fmt.Errorf("gps.record.path is required when gps.record.enable is true")
	}
	return nil
}

func defaultOutput(o *OutputConfig) error {
	if o.UDP.Enable && strings.TrimSpace(o.UDP.Dest) == "" {
		return fmt.Errorf("output.udp.dest is required when output.udp.enable is true")
	}

	if o.MQTT.Enable {
		if strings.TrimSpace(o.MQTT.Broker) == "" {
			return fmt.Errorf("output.mqtt.broker is required when output.mqtt.enable is true")
		}
		if o.MQTT.QoS < 0 || o.MQTT.QoS > 2 {
			return fmt.Errorf("output.mqtt.qos must be 0, 1 or 2")
		}
	}
	if o.MQTT.ClientID == "" {
		o.MQTT.ClientID = "gnss-bridge"
	}
	if o.MQTT.TopicPrefix == "" {
		o.MQTT.TopicPrefix = "gnss"
	}

	if o.Redis.Addr == "" {
		o.Redis.Addr = "127.0.0.1:6379"
	}
	if o.Redis.KeyPrefix == "" {
		o.Redis.KeyPrefix = "gnss"
	}
	if o.Redis.TTL == 0 {
		o.Redis.TTL = 60 * time.Second
	}
	if o.Redis.TTL < 0 {
		return fmt.Errorf("output.redis.ttl must be > 0")
	}
	if o.Redis.DB < 0 {
		return fmt.Errorf("output.redis.db must be >= 0")
	}
	return nil
}
