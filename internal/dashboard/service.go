package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort describes the aggregate reads used by Service.
type RepositoryPort interface {
	Totals(ctx context.Context, lowStock int) (Totals, error)
	CropDistribution(ctx context.Context) ([]CropStock, error)
	DailySales(ctx context.Context, since time.Time) ([]DailyTotal, error)
	DailyPurchases(ctx context.Context, since time.Time) ([]DailyTotal, error)
}

// Config tunes the dashboard.
type Config struct {
	LowStockThreshold int
}

// Service serves cached dashboard read models. Concurrent misses for the
// same key share one rebuild.
type Service struct {
	repo     RepositoryPort
	cache    *Cache
	group    singleflight.Group
	lowStock int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a repository with the cache helper. A nil cache serves
// every read from the repository.
func NewService(repo RepositoryPort, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, lowStock: cfg.LowStockThreshold, logger: logger, now: time.Now}
}

// Metrics returns the trading summary.
func (s *Service) Metrics(ctx context.Context) (Metrics, error) {
	var out Metrics
	err := s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		totals, err := s.repo.Totals(ctx, s.lowStock)
		if err != nil {
			return nil, err
		}
		return metricsFrom(totals), nil
	}, "metrics", strconv.Itoa(s.lowStock))
	return out, err
}

// CropDistribution returns positive stock per crop.
func (s *Service) CropDistribution(ctx context.Context) ([]CropStock, error) {
	var out []CropStock
	err := s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		rows, err := s.repo.CropDistribution(ctx)
		if rows == nil {
			rows = []CropStock{}
		}
		return rows, err
	}, "crop_distribution")
	return out, err
}

// SalesTrend returns daily sales and purchase totals for the period, one
// point per day ending today, with zero for days without activity.
func (s *Service) SalesTrend(ctx context.Context, period Period) ([]TrendPoint, error) {
	days, err := period.Days()
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	var out []TrendPoint
	err = s.fetch(ctx, &out, func(ctx context.Context) (any, error) {
		sales, err := s.repo.DailySales(ctx, start)
		if err != nil {
			return nil, err
		}
		purchases, err := s.repo.DailyPurchases(ctx, start)
		if err != nil {
			return nil, err
		}
		return buildTrend(start, days, sales, purchases), nil
	}, "trend", strconv.Itoa(days), today.Format("2006-01-02"))
	return out, err
}

// Invalidate drops every cached read model.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return (*Cache)(nil).FetchJSON(ctx, "", dest, loader)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, loader)
		return raw, err
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.(json.RawMessage), dest)
}

func buildTrend(start time.Time, days int, sales, purchases []DailyTotal) []TrendPoint {
	byDay := func(rows []DailyTotal) map[string]decimal.Decimal {
		m := make(map[string]decimal.Decimal, len(rows))
		for _, r := range rows {
			m[r.Day.Format("2006-01-02")] = r.Total
		}
		return m
	}
	s, p := byDay(sales), byDay(purchases)
	points := make([]TrendPoint, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, TrendPoint{Date: d, Sales: s[d], Purchases: p[d]})
	}
	return points
}
