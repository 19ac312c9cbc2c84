package contracts

import (
	"context"
	"time"
)

// SnapshotSource assembles the three input series
// ⭐ SSOT: 데이터 수집 인터페이스 (core 는 fetch 하지 않음)
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// SeriesRepository persists raw series
type SeriesRepository interface {
	Upsert(ctx context.Context, series Series) error
	Load(ctx context.Context, name SeriesName) (Series, error)
}

// EvaluationRepository persists computed evaluations.
// Interpretations are derived and not stored.
type EvaluationRepository interface {
	Save(ctx context.Context, eval *Evaluation) error
	Latest(ctx context.Context) (*Evaluation, error)
	History(ctx context.Context, from, to time.Time, limit int) ([]*Evaluation, error)
}

// COTRepository keeps the weekly reports behind the positioning series
type COTRepository interface {
	SaveCOT(ctx context.Context, report COTReport) error
	LatestCOT(ctx context.Context) (*COTReport, error)
}
