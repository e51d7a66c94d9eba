// Package analyzer turns provider answers into threat verdicts.
package analyzer

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"go-vortexguard/pkg/intel"
	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
	"go-vortexguard/pkg/models"
)

// AbuseChecker looks up abuse reports for an IP.
type AbuseChecker interface {
	Check(ctx context.Context, ip string) (*models.AbuseData, error)
}

// IPAnalyzer combines abuse reputation and geolocation for one address.
// Either source may be nil; a missing or failing source leaves its field null.
type IPAnalyzer struct {
	abuse AbuseChecker
	geo   intel.Geolocator
	now   func() time.Time
}

func NewIPAnalyzer(abuse AbuseChecker, geo intel.Geolocator) *IPAnalyzer {
	return &IPAnalyzer{abuse: abuse, geo: geo, now: time.Now}
}

// Check never fails. Threat level comes from the abuse confidence score
// only; without abuse data the verdict is safe with a score of 0.
func (a *IPAnalyzer) Check(ctx context.Context, ip string) models.ThreatIntelligence {
	var (
		abuse *models.AbuseData
		geo   *models.Geolocation
		wg    conc.WaitGroup
	)

	if a.abuse != nil {
		wg.Go(func() {
			data, err := a.abuse.Check(ctx, ip)
			if err != nil {
				logger.Log.Warnf("abuse lookup failed: ip=%s, err=%v", ip, err)
				return
			}
			abuse = data
		})
	} else {
		logger.Log.Debugf("abuse lookup skipped, no api key configured: ip=%s", ip)
	}

	if a.geo != nil {
		wg.Go(func() {
			loc, err := a.geo.Locate(ctx, ip)
			if err != nil {
				logger.Log.Warnf("geolocation lookup failed: ip=%s, err=%v", ip, err)
				return
			}
			geo = loc
		})
	}

	wg.Wait()

	score := 0
	if abuse != nil {
		score = abuse.ConfidenceScore
	}
	level := ThreatLevelFromConfidence(score)
	metrics.Verdicts.WithLabelValues(string(models.LookupIP), string(level)).Inc()

	return models.ThreatIntelligence{
		IP:          ip,
		ThreatLevel: level,
		RiskScore:   score,
		AbuseData:   abuse,
		Geolocation: geo,
		CheckedAt:   models.FormatTime(a.now()),
	}
}

// ThreatLevelFromConfidence maps an abuse confidence score (0-100) to a level.
func ThreatLevelFromConfidence(score int) models.ThreatLevel {
	switch {
	case score >= 80:
		return models.ThreatCritical
	case score >= 60:
		return models.ThreatHigh
	case score >= 40:
		return models.ThreatMedium
	case score >= 20:
		return models.ThreatLow
	}
	return models.ThreatSafe
}
