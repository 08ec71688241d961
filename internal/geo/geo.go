package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Location is the slice of a GeoIP record the audience endpoints care
// about: the names match the location dimension's country_name and
// state_name columns.
type Location struct {
	Country string
	State   string
}

// Resolver translates caller IPs into location filters using a MaxMind
// GeoLite2 City database.
type Resolver struct {
	reader *geoip2.Reader
}

func NewResolver(dbPath string) (*Resolver, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Resolve looks up the location for an IP address. An IP the database does
// not know yields an empty Location, not an error.
func (r *Resolver) Resolve(ip string) (*Location, error) {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ip)
	}

	record, err := r.reader.City(parsedIP)
	if err != nil {
		return nil, err
	}

	loc := &Location{Country: record.Country.Names["en"]}
	if len(record.Subdivisions) > 0 {
		loc.State = record.Subdivisions[0].Names["en"]
	}
	return loc, nil
}

// Close closes the GeoIP database.
func (r *Resolver) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}
