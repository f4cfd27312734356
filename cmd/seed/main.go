package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-sql/civil"
	"go.uber.org/zap"

	"github.com/hackgods/provider-booking/internal/appointment"
	"github.com/hackgods/provider-booking/internal/db"
	"github.com/hackgods/provider-booking/internal/logger"
)

// Each seeded window starts on one of these hours and lasts 3 to 8 hours.
var openingHours = []int{7, 8, 9, 10, 12}

func main() {
	providers := flag.Int("providers", 25, "number of providers to create")
	days := flag.Int("days", 14, "number of days of availability per provider, starting the day after tomorrow")
	flag.Parse()

	lg, err := logger.New(os.Getenv("APP_ENV"), "info")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		lg.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{MaxConns: 2})
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	repo := appointment.NewPgRepository(pool)
	firstDay := civil.DateOf(time.Now()).AddDays(2)

	lg.Info("seed starting", zap.Int("providers", *providers), zap.Int("days", *days), zap.Stringer("from", firstDay))

	windows := 0
	for i := 0; i < *providers; i++ {
		p, err := repo.CreateProvider(ctx, "Dr. "+gofakeit.LastName())
		if err != nil {
			lg.Fatal("seed provider", zap.Error(err))
		}

		for d := 0; d < *days; d++ {
			// skip roughly one day in five so some dates have no availability
			if gofakeit.Number(1, 5) == 1 {
				continue
			}
			open := openingHours[gofakeit.Number(0, len(openingHours)-1)]
			length := gofakeit.Number(3, 8)

			w, err := appointment.NewAvailabilityWindow(p.ID, firstDay.AddDays(d),
				civil.Time{Hour: open}, civil.Time{Hour: min(open+length, 23)})
			if err != nil {
				lg.Fatal("build window", zap.Error(err))
			}
			if _, err := repo.CreateAvailabilityWindow(ctx, w); err != nil {
				lg.Fatal("seed window", zap.Error(err))
			}
			windows++
		}
	}

	lg.Info("seed complete", zap.Int("providers", *providers), zap.Int("windows", windows))
}
