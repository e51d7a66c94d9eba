package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port          string
		ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	}
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
	AbuseIPDB struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"abuseipdb"`
	Geolocation struct {
		BaseURL string `mapstructure:"base_url"`
	}
	GeoIP struct {
		CityPath string `mapstructure:"city_path"`
		ASNPath  string `mapstructure:"asn_path"`
	} `mapstructure:"geoip"`
	VirusTotal struct {
		APIKey    string        `mapstructure:"api_key"`
		BaseURL   string        `mapstructure:"base_url"`
		PollDelay time.Duration `mapstructure:"poll_delay"`
	} `mapstructure:"virustotal"`
	Upstream struct {
		Timeout time.Duration
	}
	RateLimit struct {
		Window        time.Duration
		IPThreatLimit int           `mapstructure:"ip_threat_limit"`
		ScanURLLimit  int           `mapstructure:"scan_url_limit"`
		VisitorLimit  int           `mapstructure:"visitor_limit"`
		Store         string        // memory | redis
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
		ExemptIPs     []string      `mapstructure:"exempt_ips"`
	} `mapstructure:"ratelimit"`
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	InfluxDB struct {
		URL    string
		Token  string
		Org    string
		Bucket string
	}
	MySQL struct {
		DSN     string
		MaxIdle int `mapstructure:"max_idle"`
		MaxOpen int `mapstructure:"max_open"`
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Webhook struct {
		URL      string
		Cooldown time.Duration
	}
	Log struct {
		Level string
		Path  string
	}
}

var GlobalConfig Config

// Init loads the configuration into GlobalConfig.
func Init() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Load reads config/config.yaml when present and overlays the environment
// (a local .env file is applied first).
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// The browser-facing deployment documents these names without a prefix.
	_ = v.BindEnv("cors.allowed_origins", "ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.RateLimit.ExemptIPs = splitList(cfg.RateLimit.ExemptIPs)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("abuseipdb.api_key", "")
	v.SetDefault("abuseipdb.base_url", "https://api.abuseipdb.com")
	v.SetDefault("geolocation.base_url", "http://ip-api.com")
	v.SetDefault("geoip.city_path", "")
	v.SetDefault("geoip.asn_path", "")
	v.SetDefault("virustotal.api_key", "")
	v.SetDefault("virustotal.base_url", "https://www.virustotal.com")
	v.SetDefault("virustotal.poll_delay", 2*time.Second)
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.ip_threat_limit", 60)
	v.SetDefault("ratelimit.scan_url_limit", 30)
	v.SetDefault("ratelimit.visitor_limit", 120)
	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.sweep_interval", 5*time.Minute)
	v.SetDefault("ratelimit.exempt_ips", []string{})
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("influxdb.url", "")
	v.SetDefault("influxdb.token", "")
	v.SetDefault("influxdb.org", "")
	v.SetDefault("influxdb.bucket", "")
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.max_idle", 2)
	v.SetDefault("mysql.max_open", 10)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "threat-lookups")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.cooldown", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
}

// splitList flattens comma-separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
