package http

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
)

type healthReport struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthIndexAction reports process liveness and whether the click store
// answers a ping. A broken store degrades the status instead of failing the
// endpoint, so load balancers can tell the two conditions apart.
func HealthIndexAction(ctx *cartridge.Context) error {
	report := healthReport{Status: "ok", Database: "ok", CheckedAt: time.Now().UTC()}

	if err := pingDatabase(ctx); err != nil {
		ctx.Logger.Error("Health check database ping failed", slog.Any("error", err))
		report.Status = "degraded"
		report.Database = "error"
	}

	return ctx.JSON(report)
}

func pingDatabase(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	if db == nil {
		return errNoConnection
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

var errNoConnection = errors.New("database connection unavailable")
