package config

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/driftworks/vehiclectl/internal/vehicle"
)

// FileName is the config file looked up in the config directory.
const FileName = "vehiclectl.cfg.json"

// SimConfig holds the loop timing.
type SimConfig struct {
	FixedStep     time.Duration `json:"fixedStep" mapstructure:"fixedStep"`
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
	MaxCatchUp    int           `json:"maxCatchUp" mapstructure:"maxCatchUp"`
}

// MemoryConfig holds in-memory/JSON telemetry backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds connection settings shared by the postgres backend
type PostgresConfig struct {
	Host          string        `json:"host" mapstructure:"host"`
	Port          string        `json:"port" mapstructure:"port"`
	Username      string        `json:"username" mapstructure:"username"`
	Password      string        `json:"password" mapstructure:"password"`
	Database      string        `json:"database" mapstructure:"database"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
}

// InfluxConfig holds InfluxDB backend settings
type InfluxConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// WebSocketConfig holds the streaming backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// OriginConfig geo-references the simulation origin for exported tracks
type OriginConfig struct {
	Lon float64 `json:"lon" mapstructure:"lon"`
	Lat float64 `json:"lat" mapstructure:"lat"`
}

// TelemetryConfig selects and configures the frame recording backend
type TelemetryConfig struct {
	Type       string          `json:"type" mapstructure:"type"`
	BufferSize int             `json:"bufferSize" mapstructure:"bufferSize"`
	Memory     MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite     SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres   PostgresConfig  `json:"postgres" mapstructure:"postgres"`
	Influx     InfluxConfig    `json:"influx" mapstructure:"influx"`
	WebSocket  WebSocketConfig `json:"websocket" mapstructure:"websocket"`
	Origin     OriginConfig    `json:"origin" mapstructure:"origin"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds the GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default. Load calls it; tools that run without a
// config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./vehiclelogs")

	d := vehicle.DefaultConfig()
	viper.SetDefault("vehicle.acceleration", d.Acceleration)
	viper.SetDefault("vehicle.brakePower", d.BrakePower)
	viper.SetDefault("vehicle.maxSteerAngle", d.MaxSteerAngle)
	viper.SetDefault("vehicle.steerSpeed", d.SteerSpeed)
	viper.SetDefault("vehicle.maxSpeed", d.MaxSpeed)
	viper.SetDefault("vehicle.handbrakeTorque", d.HandbrakeTorque)
	viper.SetDefault("vehicle.driftStiffness", d.DriftStiffness)
	viper.SetDefault("vehicle.baselineStiffness", d.BaselineStiffness)
	viper.SetDefault("vehicle.centerOfMass", []float64{d.CenterOfMass[0], d.CenterOfMass[1], d.CenterOfMass[2]})

	viper.SetDefault("sim.fixedStep", "20ms")
	viper.SetDefault("sim.frameInterval", "16ms")
	viper.SetDefault("sim.maxCatchUp", 5)

	viper.SetDefault("telemetry.type", "memory")
	viper.SetDefault("telemetry.bufferSize", 1024)
	viper.SetDefault("telemetry.memory.outputDir", "./runs")
	viper.SetDefault("telemetry.memory.compressOutput", true)
	viper.SetDefault("telemetry.sqlite.outputDir", "./runs")
	viper.SetDefault("telemetry.sqlite.dumpInterval", "1m")
	viper.SetDefault("telemetry.websocket.url", "ws://localhost:5000/telemetry")
	viper.SetDefault("telemetry.websocket.secret", "")
	viper.SetDefault("telemetry.origin.lon", 0.0)
	viper.SetDefault("telemetry.origin.lat", 0.0)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vehiclectl")
	viper.SetDefault("db.flushInterval", "2s")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "vehiclectl")
	viper.SetDefault("influx.bucket", "vehicle-frames")
	viper.SetDefault("influx.backupDir", "./runs/influx")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vehiclectl")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetVehicleConfig decodes the vehicle section strictly: every value must have its
// JSON type and centerOfMass must be an array of exactly three numbers. Range
// checks are left to vehicle.Config.Validate.
func GetVehicleConfig() (vehicle.Config, error) {
	var doc struct {
		Vehicle vehicle.Config `mapstructure:"vehicle"`
	}
	err := viper.Unmarshal(&doc, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = false
		dc.DecodeHook = mapstructure.DecodeHookFuncType(vec3Hook)
	})
	if err != nil {
		return vehicle.Config{}, &vehicle.ConfigError{
			Field: "vehicle",
			Err:   fmt.Errorf("%w: %w", vehicle.ErrInvalidConfig, err),
		}
	}
	return doc.Vehicle, nil
}

var vec3Type = reflect.TypeOf(mgl64.Vec3{})

// vec3Hook turns a JSON array ([]any of float64) or a SetDefault []float64 into
// an mgl64.Vec3.
func vec3Hook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != vec3Type {
		return data, nil
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("want an array of 3 numbers, got %T", data)
	}
	if rv.Len() != 3 {
		return nil, fmt.Errorf("want 3 components, got %d", rv.Len())
	}
	var v mgl64.Vec3
	for i := range 3 {
		e := rv.Index(i)
		for e.Kind() == reflect.Interface && !e.IsNil() {
			e = e.Elem()
		}
		switch {
		case e.CanFloat():
			v[i] = e.Float()
		case e.CanInt():
			v[i] = float64(e.Int())
		case e.CanUint():
			v[i] = float64(e.Uint())
		default:
			return nil, fmt.Errorf("component %d: want a number, got %v", i, e)
		}
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return nil, fmt.Errorf("component %d: not finite", i)
		}
	}
	return v, nil
}

// GetSimConfig returns the loop timing configuration.
func GetSimConfig() SimConfig {
	return SimConfig{
		FixedStep:     viper.GetDuration("sim.fixedStep"),
		FrameInterval: viper.GetDuration("sim.frameInterval"),
		MaxCatchUp:    viper.GetInt("sim.maxCatchUp"),
	}
}

// GetTelemetryConfig returns the telemetry backend configuration.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Type:       viper.GetString("telemetry.type"),
		BufferSize: viper.GetInt("telemetry.bufferSize"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("telemetry.memory.outputDir"),
			CompressOutput: viper.GetBool("telemetry.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("telemetry.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("telemetry.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:          viper.GetString("db.host"),
			Port:          viper.GetString("db.port"),
			Username:      viper.GetString("db.username"),
			Password:      viper.GetString("db.password"),
			Database:      viper.GetString("db.database"),
			FlushInterval: viper.GetDuration("db.flushInterval"),
		},
		Influx: InfluxConfig{
			Host:      viper.GetString("influx.host"),
			Port:      viper.GetString("influx.port"),
			Protocol:  viper.GetString("influx.protocol"),
			Token:     viper.GetString("influx.token"),
			Org:       viper.GetString("influx.org"),
			Bucket:    viper.GetString("influx.bucket"),
			BackupDir: viper.GetString("influx.backupDir"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("telemetry.websocket.url"),
			Secret: viper.GetString("telemetry.websocket.secret"),
		},
		Origin: OriginConfig{
			Lon: viper.GetFloat64("telemetry.origin.lon"),
			Lat: viper.GetFloat64("telemetry.origin.lat"),
		},
	}
}

// GetOTelConfig returns OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
