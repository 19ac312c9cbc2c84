package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/database"
)

// SeriesRepository implements contracts.SeriesRepository and contracts.COTRepository
// ⭐ SSOT: 시계열 저장/조회는 여기서만
type SeriesRepository struct {
	db *database.DB
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(db *database.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

// Upsert writes every point, replacing values already stored for a date
func (r *SeriesRepository) Upsert(ctx context.Context, series contracts.Series) error {
	if len(series.Points) == 0 {
		return nil
	}

	query := `
		INSERT INTO heat.series_points (series, obs_date, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (series, obs_date) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range series.Points {
			batch.Queue(query, string(series.Name), p.Date, p.Value)
		}

		br := tx.SendBatch(ctx, batch)
		for range series.Points {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to upsert %s point: %w", series.Name, err)
			}
		}
		return br.Close()
	})
}

// Load returns the stored series in date order
func (r *SeriesRepository) Load(ctx context.Context, name contracts.SeriesName) (contracts.Series, error) {
	query := `
		SELECT obs_date, value
		FROM heat.series_points
		WHERE series = $1
		ORDER BY obs_date
	`

	rows, err := r.db.Pool.Query(ctx, query, string(name))
	if err != nil {
		return contracts.Series{}, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	series := contracts.Series{Name: name}
	for rows.Next() {
		var p contracts.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return contracts.Series{}, fmt.Errorf("failed to scan row: %w", err)
		}
		p.Date = p.Date.UTC()
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return contracts.Series{}, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(series.Points) == 0 {
		return contracts.Series{}, fmt.Errorf("series %s: %w", name, contracts.ErrNotFound)
	}
	return series, nil
}

// SaveCOT stores one weekly report
func (r *SeriesRepository) SaveCOT(ctx context.Context, report contracts.COTReport) error {
	query := `
		INSERT INTO heat.cot_reports (report_date, retail_net, open_interest)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_date) DO UPDATE SET
			retail_net = EXCLUDED.retail_net,
			open_interest = EXCLUDED.open_interest
	`
	if _, err := r.db.Pool.Exec(ctx, query, report.Date, report.RetailNet, report.OpenInterest); err != nil {
		return fmt.Errorf("failed to save COT report: %w", err)
	}
	return nil
}

// LatestCOT returns the most recent report
func (r *SeriesRepository) LatestCOT(ctx context.Context) (*contracts.COTReport, error) {
	query := `
		SELECT report_date, retail_net, open_interest
		FROM heat.cot_reports
		ORDER BY report_date DESC
		LIMIT 1
	`

	var report contracts.COTReport
	err := r.db.Pool.QueryRow(ctx, query).Scan(&report.Date, &report.RetailNet, &report.OpenInterest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("COT report: %w", contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get COT report: %w", err)
	}
	report.Date = report.Date.UTC()
	return &report, nil
}

// EvaluationRepository implements contracts.EvaluationRepository
// ⭐ SSOT: 평가 결과 저장/조회는 여기서만 (interpretation 은 저장하지 않음)
type EvaluationRepository struct {
	db *database.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *database.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Save stores the evaluation and its three signal results
func (r *EvaluationRepository) Save(ctx context.Context, eval *contracts.Evaluation) error {
	if eval.ID == "" {
		return errors.New("evaluation has no ID")
	}
	if err := eval.Complete(); err != nil {
		return fmt.Errorf("save evaluation %s: %w", eval.ID, err)
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO heat.evaluations (id, as_of, heat, change, config_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, eval.ID, eval.AsOf, eval.Heat, eval.Change, eval.ConfigHash, eval.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert evaluation: %w", err)
		}

		for _, res := range eval.Results() {
			var z *float64
			if res.Z.Available() {
				v := res.Z.Value
				z = &v
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO heat.signal_results
					(evaluation_id, signal, score, z_value, z_status, raw, latest, obs_date, window_size)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, eval.ID, string(res.Signal), int(res.Score), z, res.Z.Status.String(),
				res.Raw, res.Latest, res.Date, res.Window)
			if err != nil {
				return fmt.Errorf("failed to insert %s result: %w", res.Signal, err)
			}
		}
		return nil
	})
}

// Latest returns the evaluation with the latest as-of date, newest first on ties
func (r *EvaluationRepository) Latest(ctx context.Context) (*contracts.Evaluation, error) {
	evals, err := r.query(ctx, `
		SELECT id, as_of, heat, change, config_hash, created_at
		FROM heat.evaluations
		ORDER BY as_of DESC, created_at DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, err
	}
	if len(evals) == 0 {
		return nil, fmt.Errorf("evaluation: %w", contracts.ErrNotFound)
	}
	return evals[0], nil
}

// History returns evaluations with as_of in [from, to] in ascending order.
// A zero bound is open. limit > 0 keeps the most recent evaluations.
func (r *EvaluationRepository) History(ctx context.Context, from, to time.Time, limit int) ([]*contracts.Evaluation, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		fromArg = &from
	}
	if !to.IsZero() {
		toArg = &to
	}
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}

	return r.query(ctx, `
		SELECT id, as_of, heat, change, config_hash, created_at FROM (
			SELECT id, as_of, heat, change, config_hash, created_at
			FROM heat.evaluations
			WHERE ($1::date IS NULL OR as_of >= $1::date)
			  AND ($2::date IS NULL OR as_of <= $2::date)
			ORDER BY as_of DESC, created_at DESC
			LIMIT $3
		) recent
		ORDER BY as_of, created_at
	`, fromArg, toArg, limitArg)
}

func (r *EvaluationRepository) query(ctx context.Context, sql string, args ...any) ([]*contracts.Evaluation, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var (
		evals []*contracts.Evaluation
		ids   []string
		byID  = make(map[string]*contracts.Evaluation)
	)
	for rows.Next() {
		var (
			eval         contracts.Evaluation
			heat, change int16
		)
		if err := rows.Scan(&eval.ID, &eval.AsOf, &heat, &change, &eval.ConfigHash, &eval.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		eval.Heat, eval.Change = int(heat), int(change)
		eval.AsOf = eval.AsOf.UTC()
		eval.CreatedAt = eval.CreatedAt.UTC()

		evals = append(evals, &eval)
		ids = append(ids, eval.ID)
		byID[eval.ID] = &eval
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return evals, nil
	}
	if err := r.loadResults(ctx, ids, byID); err != nil {
		return nil, err
	}
	return evals, nil
}

func (r *EvaluationRepository) loadResults(ctx context.Context, ids []string, byID map[string]*contracts.Evaluation) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT evaluation_id, signal, score, z_value, z_status, raw, latest, obs_date, window_size
		FROM heat.signal_results
		WHERE evaluation_id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query signal results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, signal, status string
			score              int16
			z                  *float64
			res                contracts.SignalResult
		)
		if err := rows.Scan(&id, &signal, &score, &z, &status, &res.Raw, &res.Latest, &res.Date, &res.Window); err != nil {
			return fmt.Errorf("failed to scan signal result: %w", err)
		}
		res.Signal = contracts.SeriesName(signal)
		res.Score = contracts.SubScore(score)
		res.Z.Status = contracts.ParseZStatus(status)
		if z != nil {
			res.Z.Value = *z
		}
		res.Date = res.Date.UTC()

		eval, ok := byID[id]
		if !ok {
			continue
		}
		switch res.Signal {
		case contracts.SeriesPositioning:
			eval.Positioning = res
		case contracts.SeriesFlow:
			eval.Flow = res
		case contracts.SeriesPremium:
			eval.Premium = res
		}
	}
	return rows.Err()
}
