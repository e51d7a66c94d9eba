package intel

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
)

// VirusTotalClient talks to the v3 URL reputation API.
type VirusTotalClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type AnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
	Timeout    int `json:"timeout"`
}

type EngineResult struct {
	EngineName string `json:"engine_name"`
	Category   string `json:"category"`
	Result     string `json:"result"`
	Method     string `json:"method"`
}

// URLAttributes covers both URL objects (last_analysis_*) and analysis
// objects (stats/results).
type URLAttributes struct {
	LastAnalysisStats   *AnalysisStats          `json:"last_analysis_stats"`
	Stats               *AnalysisStats          `json:"stats"`
	LastAnalysisResults map[string]EngineResult `json:"last_analysis_results"`
	Results             map[string]EngineResult `json:"results"`
	Categories          map[string]string       `json:"categories"`
	LastAnalysisDate    int64                   `json:"last_analysis_date"`
	Status              string                  `json:"status"`
}

// EffectiveStats prefers the URL object's stats over an analysis object's.
func (a *URLAttributes) EffectiveStats() AnalysisStats {
	switch {
	case a.LastAnalysisStats != nil:
		return *a.LastAnalysisStats
	case a.Stats != nil:
		return *a.Stats
	}
	return AnalysisStats{}
}

func (a *URLAttributes) EffectiveResults() map[string]EngineResult {
	if a.LastAnalysisResults != nil {
		return a.LastAnalysisResults
	}
	return a.Results
}

type vtObject struct {
	Data struct {
		ID         string        `json:"id"`
		Type       string        `json:"type"`
		Attributes URLAttributes `json:"attributes"`
	} `json:"data"`
}

func NewVirusTotalClient(apiKey, baseURL string, httpClient *http.Client) *VirusTotalClient {
	return &VirusTotalClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
	}
}

// URLIdentifier is the unpadded URL-safe base64 form VirusTotal uses as a URL id.
func URLIdentifier(rawURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rawURL))
}

// LookupURL fetches the stored report for a URL id. A URL the provider has
// never seen yields an error matching ErrNotFound.
func (c *VirusTotalClient) LookupURL(ctx context.Context, id string) (*URLAttributes, error) {
	return c.getObject(ctx, "/api/v3/urls/"+id)
}

// SubmitURL queues rawURL for analysis and returns the analysis id.
func (c *VirusTotalClient) SubmitURL(ctx context.Context, rawURL string) (string, error) {
	form := url.Values{}
	form.Set("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v3/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-apikey", c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var obj vtObject
	if err := doJSON(c.HTTPClient, req, ProviderVirusTotal, &obj); err != nil {
		return "", err
	}
	return obj.Data.ID, nil
}

func (c *VirusTotalClient) GetAnalysis(ctx context.Context, analysisID string) (*URLAttributes, error) {
	return c.getObject(ctx, "/api/v3/analyses/"+url.PathEscape(analysisID))
}

func (c *VirusTotalClient) getObject(ctx context.Context, path string) (*URLAttributes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-apikey", c.APIKey)
	req.Header.Set("Accept", "application/json")

	var obj vtObject
	if err := doJSON(c.HTTPClient, req, ProviderVirusTotal, &obj); err != nil {
		return nil, err
	}
	return &obj.Data.Attributes, nil
}
