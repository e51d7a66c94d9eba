package intel

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go-vortexguard/pkg/models"
)

// AbuseIPDBClient queries abuse confidence scores.
type AbuseIPDBClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type abuseCheckResponse struct {
	Data abuseCheckData `json:"data"`
}

type abuseCheckData struct {
	IPAddress            string   `json:"ipAddress"`
	IsPublic             bool     `json:"isPublic"`
	IPVersion            int      `json:"ipVersion"`
	IsWhitelisted        bool     `json:"isWhitelisted"`
	AbuseConfidenceScore int      `json:"abuseConfidenceScore"`
	CountryCode          string   `json:"countryCode"`
	CountryName          string   `json:"countryName"`
	UsageType            string   `json:"usageType"`
	ISP                  string   `json:"isp"`
	Domain               string   `json:"domain"`
	Hostnames            []string `json:"hostnames"`
	IsTor                bool     `json:"isTor"`
	TotalReports         int      `json:"totalReports"`
	NumDistinctUsers     int      `json:"numDistinctUsers"`
	LastReportedAt       *string  `json:"lastReportedAt"`
}

func NewAbuseIPDBClient(apiKey, baseURL string, httpClient *http.Client) *AbuseIPDBClient {
	return &AbuseIPDBClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
	}
}

// Check returns the abuse report summary for ip over the last 90 days.
func (c *AbuseIPDBClient) Check(ctx context.Context, ip string) (*models.AbuseData, error) {
	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", "90")
	q.Set("verbose", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v2/check?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	var resp abuseCheckResponse
	if err := doJSON(c.HTTPClient, req, ProviderAbuseIPDB, &resp); err != nil {
		return nil, err
	}

	d := resp.Data
	return &models.AbuseData{
		ConfidenceScore: d.AbuseConfidenceScore,
		TotalReports:    d.TotalReports,
		IsTor:           d.IsTor,
		ISP:             d.ISP,
		Domain:          d.Domain,
		UsageType:       d.UsageType,
		LastReportedAt:  d.LastReportedAt,
		CountryCode:     d.CountryCode,
		IsWhitelisted:   d.IsWhitelisted,
	}, nil
}
