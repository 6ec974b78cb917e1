package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	pkgch "QuantPredict/pkg/clickhouse"
	applogger "QuantPredict/pkg/logger"
)

// Schema returns the DDL for the tables this service reads and writes.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
			symbol LowCardinality(String),
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			adj_close Nullable(Float64),
			volume Nullable(Float64)
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, date)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.forecasts (
			id UUID,
			symbol LowCardinality(String),
			kind LowCardinality(String),
			horizon UInt16,
			dates Array(String),
			predicted Array(Float64),
			actual Array(Float64),
			rmse Float64,
			mae Float64,
			r2 Nullable(Float64),
			created_at DateTime64(3)
		) ENGINE = MergeTree ORDER BY (symbol, created_at)`, database),
	}
}

// dailyBar is one row of daily_bars.
type dailyBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose sql.NullFloat64
	Volume   sql.NullFloat64
}

// historyHeader is the RawTable header produced from daily_bars.
var historyHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// CHHistoryStore implements HistoryStore over the daily_bars table.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.HistoryStore = (*CHHistoryStore)(nil)

func NewCHHistoryStore(ch *pkgch.Client) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), table: ch.Database() + ".daily_bars", l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHHistoryStore) History(ctx context.Context, symbol string, limit int) (models.RawTable, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, adj_close, volume
		FROM %s FINAL
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.RawTable{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	bars := make([]dailyBar, 0, limit)
	for rows.Next() {
		var b dailyBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return models.RawTable{}, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, fmt.Errorf("rows: %w", err)
	}
	if len(bars) == 0 {
		return models.RawTable{}, models.NewError(models.KindInsufficientData, "no stored history for %s", symbol)
	}
	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return barsToTable(bars), nil
}

// barsToTable converts newest-first bars into an ascending RawTable.
func barsToTable(bars []dailyBar) models.RawTable {
	t := models.RawTable{Header: historyHeader, Records: make([][]string, len(bars))}
	for i := range bars {
		b := bars[len(bars)-1-i]
		t.Records[i] = []string{
			b.Date.Format("2006-01-02"),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatNull(b.AdjClose),
			formatNull(b.Volume),
		}
	}
	return t
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}
