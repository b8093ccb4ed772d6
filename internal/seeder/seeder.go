// Package seeder generates realistic demo data for development: a batch of
// tracked links across a few campaigns plus click histories with hot-lead
// clusters and never-clicked leads.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"leadtrace/internal/clicks"
	"leadtrace/internal/links"
)

// Seeder handles the data seeding process.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	LinkCount int
}

var (
	firstNames = []string{"Ava", "Noah", "Mia", "Liam", "Zoe", "Ethan", "Ivy", "Lucas", "Nora", "Owen"}
	lastNames  = []string{"Nguyen", "Garcia", "Smith", "Kowalski", "Tanaka", "Muller", "Rossi", "Dubois", "Novak", "Silva"}
	campaigns  = []string{"default", "q3-outbound", "webinar-september", "product-launch"}
	icps       = []string{"saas-founder", "agency-owner", "ecommerce", ""}
	referers   = []string{"", "https://www.linkedin.com/", "https://mail.google.com/", "https://outlook.live.com/"}
	countries  = []string{"United States", "Germany", "France", "Japan", "Brazil"}
	cities     = []string{"Austin", "Berlin", "Lyon", "Osaka", "Recife"}
)

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, linkCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if linkCount <= 0 {
		linkCount = 50
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		LinkCount: linkCount,
	}
}

// Run seeds links and their click histories. Roughly a fifth of the leads
// get a hot-lead click volume and another fifth never click at all.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding demo data...", slog.Int("linkCount", s.LinkCount))

	db := s.DBManager.GetConnection()

	seededLinks, err := s.seedLinks(db)
	if err != nil {
		return fmt.Errorf("failed to seed links: %w", err)
	}

	clickTotal, err := s.seedClicks(ctx, db, seededLinks)
	if err != nil {
		return fmt.Errorf("failed to seed clicks: %w", err)
	}

	s.Logger.Info("Seeding completed",
		slog.Int("links", len(seededLinks)),
		slog.Int("clicks", clickTotal),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) seedLinks(db *gorm.DB) ([]links.Link, error) {
	seeded := make([]links.Link, 0, s.LinkCount)

	err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for i := 0; i < s.LinkCount; i++ {
			first := firstNames[rand.IntN(len(firstNames))]
			last := lastNames[rand.IntN(len(lastNames))]
			link := links.Link{
				ShortCode:      fmt.Sprintf("demo%04d", i),
				FirstName:      first,
				LastName:       last,
				Email:          fmt.Sprintf("%s.%s.%d@example.com", first, last, i),
				ICP:            icps[rand.IntN(len(icps))],
				Campaign:       campaigns[rand.IntN(len(campaigns))],
				CompanyName:    fmt.Sprintf("%s Labs", last),
				DestinationURL: "https://example.com/book-a-demo",
				CreatedAt:      time.Now().UTC().AddDate(0, 0, -rand.IntN(45)),
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			seeded = append(seeded, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seeded, nil
}

func (s *Seeder) seedClicks(ctx context.Context, db *gorm.DB, seededLinks []links.Link) (int, error) {
	total := 0

	err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		for i, link := range seededLinks {
			if err := ctx.Err(); err != nil {
				return err
			}

			var clickCount int
			switch {
			case i%5 == 0:
				// Hot lead cluster
				clickCount = 5 + rand.IntN(10)
			case i%5 == 1:
				// Never clicked
				clickCount = 0
			default:
				clickCount = 1 + rand.IntN(3)
			}

			ip := fmt.Sprintf("203.0.113.%d", 1+rand.IntN(250))
			geo := rand.IntN(len(countries))

			for c := 0; c < clickCount; c++ {
				click := clicks.Click{
					ShortCode: link.ShortCode,
					ClickedAt: time.Now().UTC().Add(-time.Duration(rand.IntN(30*24)) * time.Hour),
					IPAddress: ip,
					UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
					Country:   countries[geo],
					City:      cities[geo],
					Referer:   referers[rand.IntN(len(referers))],
				}
				if err := tx.Create(&click).Error; err != nil {
					return err
				}
				total++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
