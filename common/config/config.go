// Package config holds connection settings shared by yachtcrew binaries.
// Each struct carries its defaults and reads <PREFIX>_* overrides.
package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Env reads PREFIX_KEY variables into existing fields. Unset or unparsable
// values leave the field untouched.
type Env struct {
	Prefix string
}

func (e Env) lookup(key string) (string, bool) {
	name := key
	if e.Prefix != "" {
		name = e.Prefix + "_" + key
	}
	v := os.Getenv(name)
	return v, v != ""
}

func (e Env) String(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e Env) Int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Seconds reads a whole number of seconds
func (e Env) Seconds(key string, dst *time.Duration) {
	n := -1
	e.Int(key, &n)
	if n >= 0 {
		*dst = time.Duration(n) * time.Second
	}
}

// DatabaseConfig Postgres connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DSN lib/pq URL form of the settings
func (c *DatabaseConfig) DSN() string {
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout/time.Second)))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// LoadFromEnv reads HOST, PORT, USER, PASSWORD, NAME, SSLMODE, MAX_CONNS,
// MAX_IDLE and CONN_MAX_LIFETIME_SECONDS under prefix
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	e := Env{Prefix: prefix}
	e.String("HOST", &c.Host)
	e.Int("PORT", &c.Port)
	e.String("USER", &c.User)
	e.String("PASSWORD", &c.Password)
	e.String("NAME", &c.Database)
	e.String("SSLMODE", &c.SSLMode)
	e.Int("MAX_CONNS", &c.MaxConns)
	e.Int("MAX_IDLE", &c.MaxIdle)
	e.Seconds("CONN_MAX_LIFETIME_SECONDS", &c.ConnMaxLifetime)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

func (c *RedisConfig) LoadFromEnv(prefix string) {
	e := Env{Prefix: prefix}
	e.String("ADDR", &c.Addr)
	e.String("PASSWORD", &c.Password)
	e.Int("DB", &c.DB)
	e.Int("POOL_SIZE", &c.PoolSize)
}

// MQTTConfig broker settings. QoS outside 0..2 is ignored.
type MQTTConfig struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
	KeepAlive time.Duration
}

func (c *MQTTConfig) LoadFromEnv(prefix string) {
	e := Env{Prefix: prefix}
	e.String("BROKER", &c.Broker)
	e.String("CLIENT_ID", &c.ClientID)
	e.String("USERNAME", &c.Username)
	e.String("PASSWORD", &c.Password)
	e.Seconds("KEEPALIVE_SECONDS", &c.KeepAlive)

	qos := -1
	e.Int("QOS", &qos)
	if qos >= 0 && qos <= 2 {
		c.QoS = byte(qos)
	}
}
