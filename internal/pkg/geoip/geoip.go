// Package geoip resolves click source IPs to a country and city using a
// local GeoLite2 database. The database is optional; without it every
// lookup degrades to Unknown/Unknown and click recording proceeds.
package geoip

import (
	"net"
	"os"
	"strings"
	"sync"

	"log/slog"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leadtrace/internal/config"
)

// Unknown is the sentinel for unresolvable geo attributes.
const Unknown = "Unknown"

var (
	geoDB  *geoip2.Reader
	once   sync.Once
	mu     sync.RWMutex
	logger *slog.Logger

	countryIndex = gountries.New()
	titleCaser   = cases.Title(language.AmericanEnglish)
)

// InitLogger sets the logger for the geoip package.
func InitLogger(l *slog.Logger) {
	logger = l
}

// InitGeoDB opens the GeoLite2 database configured at GeoDBPath.
// Returns nil if the path is unset or the file is missing.
func InitGeoDB() *geoip2.Reader {
	cfg := config.GetConfig()
	if cfg.GeoDBPath == "" {
		if logger != nil {
			logger.Debug("GeoIP database path not configured, geo lookups disabled")
		}
		return nil
	}

	if _, err := os.Stat(cfg.GeoDBPath); err != nil {
		if logger != nil {
			logger.Info("GeoLite2 database not found, geo lookups disabled",
				slog.String("path", cfg.GeoDBPath),
				slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		}
		return nil
	}

	db, err := geoip2.Open(cfg.GeoDBPath)
	if err != nil {
		if logger != nil {
			logger.Error("Failed to open GeoLite2 database",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
		}
		return nil
	}

	if logger != nil {
		logger.Info("GeoLite2 database initialized",
			slog.String("path", cfg.GeoDBPath))
	}
	return db
}

// GetGeoDB returns the GeoLite2 reader, initializing it on first use.
func GetGeoDB() *geoip2.Reader {
	once.Do(func() {
		mu.Lock()
		geoDB = InitGeoDB()
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return geoDB
}

// ReloadGeoDB reopens the database from disk. Call after the updater job
// replaces the file.
func ReloadGeoDB() {
	// Force GetGeoDB past the once guard on first reload too.
	once.Do(func() {})

	mu.Lock()
	defer mu.Unlock()

	if geoDB != nil {
		geoDB.Close()
	}
	geoDB = InitGeoDB()

	if geoDB != nil && logger != nil {
		logger.Info("GeoLite2 database reloaded")
	}
}

// Resolve maps an IP address to a human-readable country name and city.
// Either attribute independently falls back to Unknown; a private or
// unparseable address yields Unknown/Unknown.
func Resolve(ipAddress string) (country, city string) {
	country, city = Unknown, Unknown

	db := GetGeoDB()
	if db == nil {
		return country, city
	}

	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return country, city
	}

	record, err := db.City(ip)
	if err != nil {
		if logger != nil {
			logger.Debug("GeoIP lookup failed",
				slog.String("ip_address", ipAddress),
				slog.Any("error", err))
		}
		return country, city
	}

	if iso := record.Country.IsoCode; iso != "" && iso != "--" {
		country = countryDisplayName(iso)
	}
	if name := record.City.Names["en"]; name != "" {
		city = titleCaser.String(name)
	}
	return country, city
}

// countryDisplayName converts an ISO alpha-2 code to its common English
// name, falling back to the uppercased code for entries gountries lacks.
func countryDisplayName(iso string) string {
	found, err := countryIndex.FindCountryByAlpha(iso)
	if err != nil {
		return strings.ToUpper(iso)
	}
	return found.Name.Common
}
