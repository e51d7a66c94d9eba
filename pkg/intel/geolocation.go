package intel

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go-vortexguard/pkg/models"
)

// Geolocator resolves the location of an IP. A nil result with a nil error
// means the provider has no location for the address.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (*models.Geolocation, error)
}

const ipAPIFields = "status,message,country,countryCode,region,regionName,city,zip,lat,lon,timezone,isp,org,as,query"

// IPAPIClient uses the keyless ip-api.com JSON endpoint.
type IPAPIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ Geolocator = (*IPAPIClient)(nil)

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Query       string  `json:"query"`
}

func NewIPAPIClient(baseURL string, httpClient *http.Client) *IPAPIClient {
	return &IPAPIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
	}
}

func (c *IPAPIClient) Locate(ctx context.Context, ip string) (*models.Geolocation, error) {
	endpoint := c.BaseURL + "/json/" + url.PathEscape(ip) + "?fields=" + ipAPIFields

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp ipAPIResponse
	if err := doJSON(c.HTTPClient, req, ProviderIPAPI, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, nil
	}

	return &models.Geolocation{
		Country:     resp.Country,
		CountryCode: resp.CountryCode,
		Region:      resp.RegionName,
		City:        resp.City,
		Lat:         resp.Lat,
		Lon:         resp.Lon,
		ISP:         resp.ISP,
		Org:         resp.Org,
		Timezone:    resp.Timezone,
	}, nil
}
