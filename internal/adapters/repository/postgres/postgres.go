// Package postgres implements a Postgres-backed point repository.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/misc"
	"github.com/vshulcz/Telemetra/internal/ports"
)

// Repo persists points in Postgres with retryable operations.
type Repo struct {
	db *sql.DB
}

var _ ports.PointsRepo = (*Repo)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
}

const (
	qInsertBatch = `INSERT INTO batches (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	qInsertPoint = `INSERT INTO points (batch_id, metric, value, tags, ts) VALUES ($1, $2, $3, $4, $5)`
	qCount       = `SELECT count(*) FROM points`
)

// New returns a Postgres-backed repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Append stores points in one transaction. A batch id seen before is
// rejected with domain.ErrDuplicateBatch and its points are not stored again.
func (r *Repo) Append(ctx context.Context, batchID string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		tags, err := encodeTags(p.Tags())
		if err != nil {
			return err
		}
		ts, _ := p.Timestamp()
		rows = append(rows, []any{nullString(batchID), p.Metric(), p.Value(), tags, ts})
	}

	attempt := func() error {
		tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if batchID != "" {
			res, err := tx.ExecContext(ctx, qInsertBatch, batchID)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return domain.ErrDuplicateBatch
			}
		}

		stmt, err := tx.PrepareContext(ctx, qInsertPoint)
		if err != nil {
			return err
		}
		defer func() {
			_ = stmt.Close()
		}()
		for _, args := range rows {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, attempt)
}

// Query returns matching points in insertion order. With a limit only the
// newest points are returned.
func (r *Repo) Query(ctx context.Context, q ports.PointQuery) ([]domain.Point, error) {
	query, args := buildQuery(q)

	var result []domain.Point
	op := func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		var out []domain.Point
		for rows.Next() {
			var (
				metric string
				value  float64
				raw    []byte
				ts     int64
			)
			if err := rows.Scan(&metric, &value, &raw, &ts); err != nil {
				return err
			}
			tags, err := decodeTags(raw)
			if err != nil {
				return err
			}
			out = append(out, domain.NewPoint(metric, value).WithTags(tags).WithTimestamp(ts).Build())
		}
		if err := rows.Err(); err != nil {
			return err
		}
		result = out
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return result, nil
}

func buildQuery(q ports.PointQuery) (string, []any) {
	var args []any
	where := ""
	if q.Metric != "" {
		args = append(args, q.Metric)
		where = ` WHERE metric = $1`
	}
	if q.Limit <= 0 {
		return `SELECT metric, value, tags, ts FROM points` + where + ` ORDER BY id`, args
	}
	args = append(args, q.Limit)
	return fmt.Sprintf(`SELECT metric, value, tags, ts FROM (SELECT id, metric, value, tags, ts FROM points%s ORDER BY id DESC LIMIT $%d) p ORDER BY id`, where, len(args)), args
}

// Count returns the number of stored points.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	op := func() error {
		return r.db.QueryRowContext(ctx, qCount).Scan(&n)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return 0, err
	}
	return n, nil
}

// Ping verifies the database connection using a short-lived context.
func (r *Repo) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	op := func() error {
		return r.db.PingContext(ctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

func encodeTags(tags map[string]string) (string, error) {
	if len(tags) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tags map[string]string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
