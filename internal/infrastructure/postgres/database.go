// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var dbTracer = otel.Tracer("moneta.db")

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DB wraps sql.DB so every query, row lookup and exec runs inside an
// OpenTelemetry span carrying the redacted statement.
type DB struct {
	*sql.DB
}

func New(connStr string) (*DB, error) {
	pool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{pool}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) startSpan(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return dbTracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", queryVerb(query)),
		attribute.String("db.statement", redactStatement(query)),
	))
}

func markSpanErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := db.startSpan(ctx, "db.Query", query)
	defer span.End()

	rows, err := db.DB.QueryContext(ctx, query, args...)
	markSpanErr(span, err)
	return rows, err
}

// spanRow keeps the query span open until Scan, where sql.Row reports
// every error (sql.ErrNoRows included).
type spanRow struct {
	row  *sql.Row
	span trace.Span
}

func (r *spanRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if r.span != nil {
		markSpanErr(r.span, err)
		r.span.End()
		r.span = nil
	}
	return err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *spanRow {
	ctx, span := db.startSpan(ctx, "db.QueryRow", query)
	return &spanRow{
		row:  db.DB.QueryRowContext(ctx, query, args...),
		span: span,
	}
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := db.startSpan(ctx, "db.Exec", query)
	defer span.End()

	result, err := db.DB.ExecContext(ctx, query, args...)
	markSpanErr(span, err)
	return result, err
}

const statementLimit = 256

// redactStatement masks string and numeric literals before a statement
// is attached to a span, so trace storage never sees user data. Bind
// placeholders like $1 carry no values and pass through unchanged.
func redactStatement(q string) string {
	out := make([]byte, 0, len(q)+8)
	i := 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == '\'':
			out = append(out, '\'', '?', '\'')
			i = skipQuoted(q, i+1)
		case isDigit(c) && i > 0 && q[i-1] == '$':
			for i < len(q) && isDigit(q[i]) {
				out = append(out, q[i])
				i++
			}
		case isDigit(c) && (i == 0 || !identByte(q[i-1])):
			out = append(out, '?')
			for i < len(q) && (isDigit(q[i]) || q[i] == '.') {
				i++
			}
		default:
			out = append(out, c)
			i++
		}
	}
	if len(out) > statementLimit {
		return string(out[:statementLimit]) + "..."
	}
	return string(out)
}

// skipQuoted returns the index just past the closing quote of a string
// literal whose opening quote sits at i-1, treating '' as an escaped
// quote within the literal.
func skipQuoted(q string, i int) int {
	for i < len(q) {
		if q[i] != '\'' {
			i++
			continue
		}
		if i+1 < len(q) && q[i+1] == '\'' {
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func identByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func queryVerb(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, ' '); i > 0 {
		q = q[:i]
	}
	return strings.ToUpper(q)
}
