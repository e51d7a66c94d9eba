package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/multierr"

	"go-vortexguard/pkg/config"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/models"
)

const lookupMeasurement = "threat_lookups"

// Storage writes lookup history to InfluxDB and alert events to MySQL.
// Each backend is optional; calls against a missing backend are no-ops.
type Storage struct {
	influxClient influxdb2.Client
	writeAPI     api.WriteAPIBlocking
	mysqlDB      *sql.DB
}

func NewStorage(cfg config.Config) (*Storage, error) {
	s := &Storage{}

	if cfg.InfluxDB.URL != "" {
		s.influxClient = influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
		s.writeAPI = s.influxClient.WriteAPIBlocking(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		logger.Log.Infof("lookup history enabled: influxdb=%s, bucket=%s", cfg.InfluxDB.URL, cfg.InfluxDB.Bucket)
	}

	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxIdleConns(cfg.MySQL.MaxIdle)
		db.SetMaxOpenConns(cfg.MySQL.MaxOpen)
		db.SetConnMaxLifetime(time.Hour)
		s.mysqlDB = db
		logger.Log.Infof("alert persistence enabled: mysql")
	}

	return s, nil
}

func (s *Storage) Name() string { return "influxdb" }

// RecordLookup writes one lookup verdict as a point.
func (s *Storage) RecordLookup(ctx context.Context, ev models.LookupEvent) error {
	if s.writeAPI == nil {
		return nil
	}

	p := influxdb2.NewPoint(
		lookupMeasurement,
		map[string]string{
			"kind":         string(ev.Kind),
			"threat_level": string(ev.ThreatLevel),
		},
		map[string]interface{}{
			"subject":   ev.Subject,
			"score":     ev.Score,
			"client_ip": ev.ClientIP,
		},
		ev.CheckedAt,
	)

	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write lookup point: %w", err)
	}
	return nil
}

// SaveAlertEvent stores an event that triggered an alert.
func (s *Storage) SaveAlertEvent(ctx context.Context, ev models.LookupEvent) error {
	if s.mysqlDB == nil {
		return nil
	}

	query := `
        INSERT INTO alert_events (
            kind, subject, threat_level,
            score, client_ip, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)
    `

	result, err := s.mysqlDB.ExecContext(ctx, query,
		string(ev.Kind),
		ev.Subject,
		string(ev.ThreatLevel),
		ev.Score,
		ev.ClientIP,
		ev.CheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}

	affected, _ := result.RowsAffected()
	logger.Log.Debugf("alert event saved: subject=%s, rows=%d", ev.Subject, affected)
	return nil
}

// RecentAlerts returns the latest alert time per kind:subject key since the
// given instant. The DSN must set parseTime=true.
func (s *Storage) RecentAlerts(ctx context.Context, since time.Time) (map[string]time.Time, error) {
	recent := make(map[string]time.Time)
	if s.mysqlDB == nil {
		return recent, nil
	}

	query := `
		SELECT kind, subject, MAX(created_at)
		FROM alert_events
		WHERE created_at > ?
		GROUP BY kind, subject
	`

	rows, err := s.mysqlDB.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, subject string
		var createdAt time.Time
		if err := rows.Scan(&kind, &subject, &createdAt); err != nil {
			logger.Log.Errorf("scan alert event failed: %v", err)
			continue
		}
		recent[kind+":"+subject] = createdAt
	}
	return recent, rows.Err()
}

func (s *Storage) Close() error {
	var err error
	if s.influxClient != nil {
		s.influxClient.Close()
	}
	if s.mysqlDB != nil {
		err = multierr.Append(err, s.mysqlDB.Close())
	}
	return err
}
