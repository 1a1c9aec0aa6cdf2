package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linuxdo-keepalive/internal/domain"
	"linuxdo-keepalive/internal/infra/metrics"
)

// Postgres хранит историю прогонов.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.RunRecorder = (*Postgres)(nil)
	_ domain.RunHistory  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS keepalive_runs (
	id            TEXT PRIMARY KEY,
	username      TEXT        NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	authenticated BOOLEAN     NOT NULL,
	state         TEXT        NOT NULL,
	path          JSONB       NOT NULL,
	error         TEXT        NOT NULL DEFAULT '',
	skipped       INT         NOT NULL,
	browsed       INT         NOT NULL,
	liked         INT         NOT NULL,
	replied       INT         NOT NULL,
	collected     INT         NOT NULL,
	errored       INT         NOT NULL,
	connect_info  JSONB
);
CREATE TABLE IF NOT EXISTS keepalive_topics (
	run_id       TEXT    NOT NULL REFERENCES keepalive_runs(id) ON DELETE CASCADE,
	position     INT     NOT NULL,
	title        TEXT    NOT NULL,
	url          TEXT    NOT NULL,
	kind         TEXT    NOT NULL,
	skip_reason  TEXT    NOT NULL DEFAULT '',
	error_reason TEXT    NOT NULL DEFAULT '',
	error        TEXT    NOT NULL DEFAULT '',
	liked        BOOLEAN NOT NULL,
	reply        TEXT    NOT NULL DEFAULT '',
	collected    BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS keepalive_runs_finished_idx ON keepalive_runs (finished_at DESC);
`

// EnsureSchema создаёт таблицы, если их нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "keepalive_runs", start, err)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordRun сохраняет прогон и исходы тем в одной транзакции.
func (p *Postgres) RecordRun(ctx context.Context, run domain.RunRecord) error {
	path, err := json.Marshal(run.Path)
	if err != nil {
		return fmt.Errorf("marshal path: %w", err)
	}
	var connect []byte
	if len(run.ConnectInfo) > 0 {
		if connect, err = json.Marshal(run.ConnectInfo); err != nil {
			return fmt.Errorf("marshal connect info: %w", err)
		}
	}

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "keepalive_runs", start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	c := run.Counts
	start = time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO keepalive_runs (id, username, started_at, finished_at, authenticated, state, path, error,
	skipped, browsed, liked, replied, collected, errored, connect_info)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`, run.Session.ID, run.Session.Username, run.Session.StartedAt, run.Session.FinishedAt, run.Session.Authenticated,
		string(run.State), path, run.Error, c.Skipped, c.Browsed, c.Liked, c.Replied, c.Collected, c.Errored, connect)
	metrics.ObserveNetworkRequest("postgres", "runs_insert", "keepalive_runs", start, err)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Outcomes) > 0 {
		batch := &pgx.Batch{}
		for i, o := range run.Outcomes {
			batch.Queue(`
INSERT INTO keepalive_topics (run_id, position, title, url, kind, skip_reason, error_reason, error, liked, reply, collected)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, run.Session.ID, i, o.Topic.Title, o.Topic.URL, string(o.Kind), string(o.SkipReason), string(o.ErrorReason),
				o.Error, o.Liked, o.Reply, o.Collected)
		}
		start = time.Now()
		err = tx.SendBatch(ctx, batch).Close()
		metrics.ObserveNetworkRequest("postgres", "topics_insert", "keepalive_topics", start, err)
		if err != nil {
			return fmt.Errorf("insert topics: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Last возвращает последний прогон вместе с исходами тем.
func (p *Postgres) Last(ctx context.Context) (domain.RunRecord, error) {
	var (
		run     domain.RunRecord
		state   string
		path    []byte
		connect []byte
	)
	c := &run.Counts
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, username, started_at, finished_at, authenticated, state, path, error,
	skipped, browsed, liked, replied, collected, errored, connect_info
FROM keepalive_runs ORDER BY finished_at DESC LIMIT 1
`).Scan(&run.Session.ID, &run.Session.Username, &run.Session.StartedAt, &run.Session.FinishedAt,
		&run.Session.Authenticated, &state, &path, &run.Error,
		&c.Skipped, &c.Browsed, &c.Liked, &c.Replied, &c.Collected, &c.Errored, &connect)
	metrics.ObserveNetworkRequest("postgres", "runs_last", "keepalive_runs", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RunRecord{}, domain.ErrNoRuns
	}
	if err != nil {
		return domain.RunRecord{}, err
	}
	run.State = domain.RunState(state)
	if err := json.Unmarshal(path, &run.Path); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode path: %w", err)
	}
	if len(connect) > 0 {
		if err := json.Unmarshal(connect, &run.ConnectInfo); err != nil {
			return domain.RunRecord{}, fmt.Errorf("decode connect info: %w", err)
		}
	}

	start = time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT title, url, kind, skip_reason, error_reason, error, liked, reply, collected
FROM keepalive_topics WHERE run_id=$1 ORDER BY position
`, run.Session.ID)
	metrics.ObserveNetworkRequest("postgres", "topics_list", "keepalive_topics", start, err)
	if err != nil {
		return domain.RunRecord{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var o domain.TopicOutcome
		var kind, skipReason, errReason string
		if err := rows.Scan(&o.Topic.Title, &o.Topic.URL, &kind, &skipReason, &errReason, &o.Error,
			&o.Liked, &o.Reply, &o.Collected); err != nil {
			return domain.RunRecord{}, err
		}
		o.Kind = domain.OutcomeKind(kind)
		o.SkipReason = domain.SkipReason(skipReason)
		o.ErrorReason = domain.ErrorReason(errReason)
		o.Replied = o.Reply != ""
		run.Outcomes = append(run.Outcomes, o)
	}
	return run, rows.Err()
}
