package models

import (
	"time"
)

// ISO8601 mirrors the millisecond UTC layout browsers produce for timestamps.
const ISO8601 = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in the ISO8601 layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

// ThreatLevel is the normalized verdict shared by IP and URL lookups.
type ThreatLevel string

const (
	ThreatSafe     ThreatLevel = "safe"
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// RateLimitRecord is one client's counter inside the current window.
type RateLimitRecord struct {
	Count     int
	ResetTime time.Time
}

type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// AbuseData is the subset of the abuse-reputation answer exposed to clients.
type AbuseData struct {
	ConfidenceScore int     `json:"confidenceScore"`
	TotalReports    int     `json:"totalReports"`
	IsTor           bool    `json:"isTor"`
	ISP             string  `json:"isp"`
	Domain          string  `json:"domain"`
	UsageType       string  `json:"usageType"`
	LastReportedAt  *string `json:"lastReportedAt"`
	CountryCode     string  `json:"countryCode"`
	IsWhitelisted   bool    `json:"isWhitelisted"`
}

type Geolocation struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	Timezone    string  `json:"timezone"`
}

// ThreatIntelligence is the IP reputation verdict.
type ThreatIntelligence struct {
	IP          string       `json:"ip"`
	ThreatLevel ThreatLevel  `json:"threatLevel"`
	RiskScore   int          `json:"riskScore"`
	AbuseData   *AbuseData   `json:"abuseData"`
	Geolocation *Geolocation `json:"geolocation"`
	CheckedAt   string       `json:"checkedAt"`
}

type ScanStats struct {
	Malicious    int `json:"malicious"`
	Suspicious   int `json:"suspicious"`
	Harmless     int `json:"harmless"`
	Undetected   int `json:"undetected"`
	TotalEngines int `json:"totalEngines"`
}

type FlaggedEngine struct {
	Engine   string `json:"engine"`
	Category string `json:"category"`
	Result   string `json:"result"`
}

// URLScanResult is the URL reputation verdict.
type URLScanResult struct {
	URL              string            `json:"url"`
	ThreatLevel      ThreatLevel       `json:"threatLevel"`
	ThreatScore      float64           `json:"threatScore"`
	Stats            ScanStats         `json:"stats"`
	FlaggedEngines   []FlaggedEngine   `json:"flaggedEngines"`
	Categories       map[string]string `json:"categories"`
	LastAnalysisDate *string           `json:"lastAnalysisDate"`
	CheckedAt        string            `json:"checkedAt"`
}

type VisitorIPResponse struct {
	IP         string `json:"ip"`
	DetectedAt string `json:"detectedAt"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeScanError        = "SCAN_ERROR"
	CodeLookupError      = "LOOKUP_ERROR"
	CodeConfigError      = "CONFIG_ERROR"
)

// LookupKind tells sinks which service produced a LookupEvent.
type LookupKind string

const (
	LookupIP  LookupKind = "ip"
	LookupURL LookupKind = "url"
)

// LookupEvent is handed to sinks and the alerter after a successful lookup.
type LookupEvent struct {
	Kind        LookupKind  `json:"kind"`
	Subject     string      `json:"subject"`
	ThreatLevel ThreatLevel `json:"threatLevel"`
	Score       float64     `json:"score"`
	ClientIP    string      `json:"clientIp"`
	CheckedAt   time.Time   `json:"checkedAt"`
}
