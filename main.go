package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-vortexguard/pkg/alerter"
	"go-vortexguard/pkg/analyzer"
	"go-vortexguard/pkg/api"
	"go-vortexguard/pkg/config"
	"go-vortexguard/pkg/cors"
	"go-vortexguard/pkg/intel"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/publisher"
	"go-vortexguard/pkg/ratelimit"
	"go-vortexguard/pkg/storage"
)

func init() {
	if err := config.Init(); err != nil {
		logger.Log.Fatal("load config failed: ", err)
	}

	if err := logger.Init(config.GlobalConfig.Log.Level, config.GlobalConfig.Log.Path); err != nil {
		logger.Log.Fatal("init logger failed: ", err)
	}
}

func main() {
	defer logger.Sync()
	cfg := config.GlobalConfig

	logger.Log.Info("starting vortexguard...")

	store, closeStore := initRateLimitStore(cfg)
	defer closeStore()

	exempt := ratelimit.NewExempt(cfg.RateLimit.ExemptIPs)

	httpClient := intel.NewHTTPClient(cfg.Upstream.Timeout)

	var abuse analyzer.AbuseChecker
	if cfg.AbuseIPDB.APIKey != "" {
		abuse = intel.NewAbuseIPDBClient(cfg.AbuseIPDB.APIKey, cfg.AbuseIPDB.BaseURL, httpClient)
	} else {
		logger.Log.Warn("abuseipdb api key not configured, ip verdicts will lack abuse data")
	}

	var geo intel.Geolocator = intel.NewIPAPIClient(cfg.Geolocation.BaseURL, httpClient)
	if cfg.GeoIP.CityPath != "" {
		mm, err := intel.OpenMaxMind(cfg.GeoIP.CityPath, cfg.GeoIP.ASNPath)
		if err != nil {
			logger.Log.Fatal("open geoip database failed: ", err)
		}
		defer mm.Close()
		geo = mm
		logger.Log.Infof("geolocation from local database: %s", cfg.GeoIP.CityPath)
	}

	var vt analyzer.URLReputation
	if cfg.VirusTotal.APIKey != "" {
		vt = intel.NewVirusTotalClient(cfg.VirusTotal.APIKey, cfg.VirusTotal.BaseURL, httpClient)
	} else {
		logger.Log.Warn("virustotal api key not configured, url scans will return 503")
	}

	st, err := storage.NewStorage(cfg)
	if err != nil {
		logger.Log.Fatal("init storage failed: ", err)
	}
	defer st.Close()

	var recorders []api.Recorder
	if cfg.InfluxDB.URL != "" {
		recorders = append(recorders, st)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publisher.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Log.Fatal("init kafka publisher failed: ", err)
		}
		defer pub.Close()
		recorders = append(recorders, pub)
	}

	var alerts api.EventHandler
	if cfg.Webhook.URL != "" || cfg.MySQL.DSN != "" {
		al := alerter.NewAlerter(st, cfg.Webhook.URL, cfg.Webhook.Cooldown)
		al.Start(time.Minute)
		defer al.Stop()
		alerts = al
	}

	window := cfg.RateLimit.Window
	server := api.NewServer(cfg.Server.Port, api.Deps{
		IPs:            analyzer.NewIPAnalyzer(abuse, geo),
		URLs:           analyzer.NewURLScanner(vt, cfg.VirusTotal.PollDelay),
		CORS:           cors.New(cfg.CORS.AllowedOrigins),
		IPLimiter:      ratelimit.New("check-ip-threat", cfg.RateLimit.IPThreatLimit, window, store, exempt),
		URLLimiter:     ratelimit.New("scan-url", cfg.RateLimit.ScanURLLimit, window, store, exempt),
		VisitorLimiter: ratelimit.New("get-visitor-ip", cfg.RateLimit.VisitorLimit, window, store, exempt),
		Recorders:      recorders,
		Alerter:        alerts,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := server.Start()
	select {
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Log.Info("vortexguard stopped")
}

func initRateLimitStore(cfg config.Config) (ratelimit.Store, func()) {
	switch cfg.RateLimit.Store {
	case "redis":
		rs, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Log.Fatal("connect redis failed: ", err)
		}
		logger.Log.Infof("rate limit store: redis at %s", cfg.Redis.Addr)
		return rs, func() { _ = rs.Close() }
	default:
		ms := ratelimit.NewMemoryStore()
		ms.StartSweeper(cfg.RateLimit.SweepInterval)
		logger.Log.Info("rate limit store: memory")
		return ms, ms.Stop
	}
}
