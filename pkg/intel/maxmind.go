package intel

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/multierr"

	"go-vortexguard/pkg/models"
)

// MaxMindLocator answers from local GeoIP2/GeoLite2 databases instead of a
// remote provider. The ASN database is optional and fills isp/org.
type MaxMindLocator struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

var _ Geolocator = (*MaxMindLocator)(nil)

func OpenMaxMind(cityPath, asnPath string) (*MaxMindLocator, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("open city database: %w", err)
	}

	var asn *geoip2.Reader
	if asnPath != "" {
		asn, err = geoip2.Open(asnPath)
		if err != nil {
			city.Close()
			return nil, fmt.Errorf("open asn database: %w", err)
		}
	}

	return &MaxMindLocator{city: city, asn: asn}, nil
}

func (m *MaxMindLocator) Locate(_ context.Context, ipStr string) (*models.Geolocation, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("maxmind: unparseable address %q", ipStr)
	}

	record, err := m.city.City(ip)
	if err != nil {
		return nil, fmt.Errorf("maxmind city lookup: %w", err)
	}
	if record.Country.IsoCode == "" && record.City.GeoNameID == 0 {
		return nil, nil
	}

	geo := &models.Geolocation{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Lat:         record.Location.Latitude,
		Lon:         record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		geo.Region = record.Subdivisions[0].Names["en"]
	}

	if m.asn != nil {
		if asn, err := m.asn.ASN(ip); err == nil {
			geo.ISP = asn.AutonomousSystemOrganization
			geo.Org = asn.AutonomousSystemOrganization
		}
	}
	return geo, nil
}

func (m *MaxMindLocator) Close() error {
	err := m.city.Close()
	if m.asn != nil {
		err = multierr.Append(err, m.asn.Close())
	}
	return err
}
