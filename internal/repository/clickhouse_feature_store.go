package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	applogger "InsightHub/pkg/logger"
)

// CHFeatureStore reads candle bars from ClickHouse for the analytics harvester.
type CHFeatureStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHFeatureStore(db *sql.DB, database string, l *applogger.Logger) *CHFeatureStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHFeatureStore{db: db, database: database, l: l.Component("feature_store")}
}

// GetLatestNCandles returns the newest n bars in ascending order.
func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, res domrepo.Resolution) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?`, s.table(res))
	out, err := s.query(ctx, "latest_candles", res, q, symbol, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHFeatureStore) query(ctx context.Context, op string, res domrepo.Resolution, q string, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	fail := func(stage string, err error) error {
		s.l.Error("clickhouse "+op+" "+stage+" error",
			applogger.String("table", s.table(res)),
			applogger.Any("args", args),
			applogger.Error(err),
		)
		return fmt.Errorf("%s %s: %w", op, stage, err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fail("query", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fail("scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("rows", err)
	}

	s.l.Debug("clickhouse "+op+" ok",
		applogger.String("table", s.table(res)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (s *CHFeatureStore) table(res domrepo.Resolution) string {
	return candleTable(s.database, res)
}

func candleTable(database string, res domrepo.Resolution) string {
	return fmt.Sprintf("%s.candles_%s", database, domrepo.NormalizeResolution(string(res)))
}

var _ domrepo.FeatureStore = (*CHFeatureStore)(nil)
