package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/debranko/obedio-yacht-crew-management-sub003/common/config"
)

// Config yachtcrew-core configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled    bool
	Database     commoncfg.DatabaseConfig
	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	MQTTEnabled  bool
	MQTT         commoncfg.MQTTConfig
	Log          struct {
		Level  string
		Format string
	}
	Duty      DutyConfig
	Lifecycle LifecycleConfig
	Realtime  RealtimeConfig
	Topics    TopicsConfig
}

// DutyConfig duty status resolution settings
type DutyConfig struct {
	Timezone   string
	Department string
	Tick       time.Duration
	CacheTTL   time.Duration
}

// LifecycleConfig service request timers
type LifecycleConfig struct {
	ServingNowTimeout      time.Duration
	StaleAssignedThreshold time.Duration
	ReaperTick             time.Duration
}

// RealtimeConfig event stream settings
type RealtimeConfig struct {
	Stream string
	MaxLen int64
}

// TopicsConfig MQTT topics. DeviceCommand is a format string taking the device id.
type TopicsConfig struct {
	ButtonPress    string
	WatchUpdate    string
	ServiceRequest string
	DeviceCommand  string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB unavailable at startup falls back to memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "yachtcrew",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "yachtcrew-core",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Duty.Timezone = getEnv("TIMEZONE", "Local")
	cfg.Duty.Department = getEnv("DUTY_DEPARTMENT", "Interior")
	cfg.Duty.Tick = seconds("DUTY_TICK_SECONDS", 1)
	cfg.Duty.CacheTTL = seconds("DUTY_CACHE_TTL_SECONDS", 5)

	cfg.Lifecycle.ServingNowTimeout = seconds("SERVING_NOW_TIMEOUT_SECONDS", 5)
	cfg.Lifecycle.StaleAssignedThreshold = seconds("STALE_ASSIGNED_THRESHOLD_SECONDS", 3600)
	cfg.Lifecycle.ReaperTick = seconds("REAPER_TICK_SECONDS", 1)

	cfg.Realtime.Stream = getEnv("REALTIME_STREAM", "yachtcrew:events")
	cfg.Realtime.MaxLen = int64(parseInt(getEnv("REALTIME_STREAM_MAXLEN", "10000"), 10000))

	cfg.Topics.ButtonPress = getEnv("BUTTON_TOPIC", "obedio/button/+/press")
	cfg.Topics.WatchUpdate = getEnv("WATCH_UPDATE_TOPIC", "obedio/service/update")
	cfg.Topics.ServiceRequest = getEnv("SERVICE_REQUEST_TOPIC", "obedio/service/request")
	cfg.Topics.DeviceCommand = getEnv("DEVICE_COMMAND_TOPIC", "obedio/device/%s/command")

	return cfg
}

// Location resolves the vessel time zone, falling back to time.Local
func (c *Config) Location() *time.Location {
	if c.Duty.Timezone == "" || c.Duty.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Duty.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// seconds reads a positive second count; non-positive values keep the default
func seconds(key string, def int) time.Duration {
	n := parseInt(getEnv(key, strconv.Itoa(def)), def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
