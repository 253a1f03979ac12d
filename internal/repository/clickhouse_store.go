package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	pkgch "TickAttrib/pkg/clickhouse"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/util"
)

// SchemaStatements are the idempotent DDL run at startup. Stamps are kept
// verbatim in `stamp` for round-tripping; `ts_ms` carries the parsed epoch
// milliseconds used for ordering and window arithmetic (clock-only stamps
// anchor at the zero date, so the value can be negative).
var SchemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS tickattrib`,
	`CREATE TABLE IF NOT EXISTS tickattrib.ticks (
        case_id String,
        symbol  String,
        ts_ms   Int64,
        stamp   String,
        price   Float64,
        open    Float64,
        high    Float64,
        low     Float64,
        close   Float64,
        volume  Float64,
        amount  Float64
    ) ENGINE = MergeTree ORDER BY (case_id, symbol, ts_ms)`,
	`CREATE TABLE IF NOT EXISTS tickattrib.news (
        case_id   String,
        symbol    String,
        ts_ms     Int64,
        stamp     String,
        source    String,
        content   String,
        news_type String
    ) ENGINE = MergeTree ORDER BY (case_id, symbol, ts_ms)`,
	`CREATE TABLE IF NOT EXISTS tickattrib.case_meta (
        case_id      String,
        symbol       String,
        symbol_name  String,
        case_date    String,
        description  String,
        anomaly_type String,
        tick_count   UInt64,
        news_count   UInt64,
        updated_at   DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(updated_at) ORDER BY case_id`,
}

const insertChunkSize = 2000

// ClickHouseStore is the durable AlignmentStore. One instance is scoped to a
// single case; the Kafka ingestion path writes through it, replays of
// archived cases read from it.
type ClickHouseStore struct {
	db     *sql.DB
	caseID string
	l      *applogger.Logger
}

func NewClickHouseStore(ch *pkgch.Client, caseID string) *ClickHouseStore {
	return &ClickHouseStore{db: ch.DB(), caseID: caseID}
}

// SetLogger injects a structured logger.
func (s *ClickHouseStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.AlignmentStore = (*ClickHouseStore)(nil)

func (s *ClickHouseStore) InsertTicks(ctx context.Context, ticks []models.Tick) (int, error) {
	inserted := 0
	for start := 0; start < len(ticks); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*11)
		for _, t := range ticks[start:end] {
			ts, ok := util.ParseStamp(t.Timestamp)
			if !ok {
				return inserted, fmt.Errorf("insert ticks: bad timestamp %q", t.Timestamp)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				s.caseID, t.Symbol, ts.UnixMilli(), t.Timestamp,
				t.Price, t.Open, t.High, t.Low, t.Close, t.Volume, t.Amount,
			)
		}
		q := "INSERT INTO tickattrib.ticks (case_id, symbol, ts_ms, stamp, price, open, high, low, close, volume, amount) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse insert_ticks error",
					applogger.String("case_id", s.caseID),
					applogger.Error(err),
				)
			}
			return inserted, fmt.Errorf("insert ticks: %w", err)
		}
		inserted += len(values)
	}
	return inserted, nil
}

func (s *ClickHouseStore) InsertNews(ctx context.Context, items []models.NewsItem) (int, error) {
	inserted := 0
	for start := 0; start < len(items); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(items) {
			end = len(items)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, n := range items[start:end] {
			ts, ok := util.ParseStamp(n.Timestamp)
			if !ok {
				return inserted, fmt.Errorf("insert news: bad timestamp %q", n.Timestamp)
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				s.caseID, n.Symbol, ts.UnixMilli(), n.Timestamp,
				n.Source, n.Content, n.NewsType,
			)
		}
		q := "INSERT INTO tickattrib.news (case_id, symbol, ts_ms, stamp, source, content, news_type) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse insert_news error",
					applogger.String("case_id", s.caseID),
					applogger.Error(err),
				)
			}
			return inserted, fmt.Errorf("insert news: %w", err)
		}
		inserted += len(values)
	}
	return inserted, nil
}

func (s *ClickHouseStore) Ticks(ctx context.Context, symbol string, limit int) ([]models.Tick, error) {
	start := time.Now()
	q := `
        SELECT symbol, stamp, price, open, high, low, close, volume, amount
        FROM tickattrib.ticks
        WHERE case_id = ? AND (? = '' OR symbol = ?)
        ORDER BY ts_ms ASC
    `
	args := []interface{}{s.caseID, symbol, symbol}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 1024)
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &t.Price, &t.Open, &t.High, &t.Low, &t.Close, &t.Volume, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse ticks ok",
			applogger.String("case_id", s.caseID),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseStore) AlignedNews(ctx context.Context, symbol, anomalyTS string, before, after time.Duration) ([]models.NewsItem, error) {
	anchor, ok := util.ParseStamp(anomalyTS)
	if !ok {
		return nil, fmt.Errorf("aligned news: bad anomaly timestamp %q", anomalyTS)
	}
	lo := anchor.Add(-before).UnixMilli()
	hi := anchor.Add(after).UnixMilli()

	const q = `
        SELECT symbol, stamp, source, content, news_type
        FROM tickattrib.news
        WHERE case_id = ? AND (? = '' OR symbol = ?) AND ts_ms >= ? AND ts_ms <= ?
        ORDER BY ts_ms ASC
    `
	rows, err := s.db.QueryContext(ctx, q, s.caseID, symbol, symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query aligned news: %w", err)
	}
	defer rows.Close()

	var out []models.NewsItem
	for rows.Next() {
		var n models.NewsItem
		if err := rows.Scan(&n.Symbol, &n.Timestamp, &n.Source, &n.Content, &n.NewsType); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseStore) SetCaseMeta(ctx context.Context, meta models.CaseMeta) error {
	var tickCount, newsCount uint64
	if err := s.db.QueryRowContext(ctx,
		"SELECT count() FROM tickattrib.ticks WHERE case_id = ?", s.caseID,
	).Scan(&tickCount); err != nil {
		return fmt.Errorf("count ticks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT count() FROM tickattrib.news WHERE case_id = ?", s.caseID,
	).Scan(&newsCount); err != nil {
		return fmt.Errorf("count news: %w", err)
	}

	const q = `
        INSERT INTO tickattrib.case_meta
            (case_id, symbol, symbol_name, case_date, description, anomaly_type, tick_count, news_count)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		s.caseID, meta.Symbol, meta.SymbolName, meta.CaseDate,
		meta.Description, meta.AnomalyType, tickCount, newsCount,
	)
	if err != nil {
		return fmt.Errorf("set case meta: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) CaseMeta(ctx context.Context) (*models.CaseMeta, error) {
	const q = `
        SELECT case_id, symbol, symbol_name, case_date, description, anomaly_type, tick_count, news_count
        FROM tickattrib.case_meta FINAL
        WHERE case_id = ?
    `
	var m models.CaseMeta
	var tickCount, newsCount uint64
	err := s.db.QueryRowContext(ctx, q, s.caseID).Scan(
		&m.CaseID, &m.Symbol, &m.SymbolName, &m.CaseDate,
		&m.Description, &m.AnomalyType, &tickCount, &newsCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query case meta: %w", err)
	}
	m.TickCount = int(tickCount)
	m.NewsCount = int(newsCount)
	return &m, nil
}

func (s *ClickHouseStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}
