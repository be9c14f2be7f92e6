package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
)

// AuditSchema returns the DDL for the audit tables in database.
func AuditSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.insight_snapshots (
            exported_at DateTime64(3, 'UTC'),
            raw_count UInt32,
            fused_count UInt32,
            strategy LowCardinality(String),
            risk Float64,
            alignment Float64,
            payload String
        ) ENGINE = MergeTree
        ORDER BY exported_at
        TTL toDateTime(exported_at) + INTERVAL 30 DAY`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.fused_insights (
            exported_at DateTime64(3, 'UTC'),
            id String,
            subject LowCardinality(String),
            kind LowCardinality(String),
            strategy LowCardinality(String),
            confidence Float64,
            actionability Float64,
            authenticity Float64,
            sources Array(String),
            merged UInt8
        ) ENGINE = MergeTree
        ORDER BY (subject, exported_at)
        TTL toDateTime(exported_at) + INTERVAL 30 DAY`, database),
	}
}

// ClickHouseAuditSink writes every exported snapshot as one summary row plus one row per fused insight.
type ClickHouseAuditSink struct {
	db       *sql.DB
	database string
}

func NewClickHouseAuditSink(db *sql.DB, database string) *ClickHouseAuditSink {
	return &ClickHouseAuditSink{db: db, database: database}
}

func (s *ClickHouseAuditSink) WriteSnapshot(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	strategy, risk, alignment := "", 0.0, 0.0
	if snap.Synthesis != nil {
		strategy = string(snap.Synthesis.UnifiedStrategy)
		risk = snap.Synthesis.RiskAssessment
		alignment = snap.Synthesis.CrossSystemAlignment
	}

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s.insight_snapshots (exported_at, raw_count, fused_count, strategy, risk, alignment, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.database),
		snap.ExportedAt, uint32(len(snap.Insights)), uint32(len(snap.FusedInsights)), strategy, risk, alignment, string(payload),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if len(snap.FusedInsights) == 0 {
		return nil
	}

	// clickhouse-go batches prepared inserts inside a transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fused batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s.fused_insights (exported_at, id, subject, kind, strategy, confidence, actionability, authenticity, sources, merged)`, s.database))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare fused batch: %w", err)
	}
	defer stmt.Close()

	for _, f := range snap.FusedInsights {
		var merged uint8
		if f.Merged {
			merged = 1
		}
		if _, err := stmt.ExecContext(ctx, snap.ExportedAt, f.ID, f.Subject, string(f.Kind), string(f.Strategy),
			f.Confidence, f.Actionability, f.AuthenticityScore, f.ContributingSources, merged); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append fused %s: %w", f.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fused batch: %w", err)
	}
	return nil
}

var _ domrepo.AuditSink = (*ClickHouseAuditSink)(nil)
