package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// PGStore persists records in one table per resource, with undeclared keys in an extra JSONB column.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

// List returns all rows ordered by id.
func (s *PGStore) List(ctx context.Context, schema shared.ResourceSchema) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, selectColumns(schema), table(schema))
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows, schema)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return records, nil
}

// Insert stores a complete row and returns it as persisted.
func (s *PGStore) Insert(ctx context.Context, schema shared.ResourceSchema, values Values) (Record, error) {
	cols := make([]string, 0, len(schema.Fields)+1)
	params := make([]string, 0, len(schema.Fields)+1)
	args := make([]any, 0, len(schema.Fields)+1)
	for _, field := range schema.Fields {
		args = append(args, values.Columns[field.Name])
		cols = append(cols, pgx.Identifier{field.Name}.Sanitize())
		params = append(params, placeholder(field, len(args)))
	}
	extra, err := extraArg(values.Extra)
	if err != nil {
		return nil, err
	}
	args = append(args, extra)
	cols = append(cols, "extra")
	params = append(params, fmt.Sprintf("$%d::jsonb", len(args)))

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		table(schema), strings.Join(cols, ", "), strings.Join(params, ", "), selectColumns(schema))
	return scanRecord(s.pool.QueryRow(ctx, query, args...), schema)
}

// Update overwrites the supplied columns and merges extras into the existing row.
func (s *PGStore) Update(ctx context.Context, schema shared.ResourceSchema, id int64, values Values) error {
	if values.Empty() {
		var one int
		err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, table(schema)), id).Scan(&one)
		return notFound(schema, id, db.MapError(err))
	}
	args := []any{id}
	sets := make([]string, 0, len(values.Columns)+1)
	for _, field := range schema.Fields {
		text, ok := values.Columns[field.Name]
		if !ok {
			continue
		}
		args = append(args, text)
		sets = append(sets, fmt.Sprintf("%s = %s", pgx.Identifier{field.Name}.Sanitize(), placeholder(field, len(args))))
	}
	if len(values.Extra) > 0 {
		extra, err := extraArg(values.Extra)
		if err != nil {
			return err
		}
		args = append(args, extra)
		sets = append(sets, fmt.Sprintf("extra = extra || $%d::jsonb", len(args)))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, table(schema), strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(schema, id, shared.ErrNotFound)
	}
	return nil
}

// Delete removes a row by id.
func (s *PGStore) Delete(ctx context.Context, schema shared.ResourceSchema, id int64) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table(schema)), id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(schema, id, shared.ErrNotFound)
	}
	return nil
}

func table(schema shared.ResourceSchema) string {
	return pgx.Identifier{string(schema.Name)}.Sanitize()
}

// selectColumns reads declared columns as text; numeric columns keep their exact decimal form.
func selectColumns(schema shared.ResourceSchema) string {
	cols := []string{"id", "created_at"}
	for _, field := range schema.Fields {
		cols = append(cols, pgx.Identifier{field.Name}.Sanitize()+"::text")
	}
	return strings.Join(append(cols, "extra"), ", ")
}

func placeholder(field shared.Field, n int) string {
	if field.Kind == shared.FieldNumber {
		return fmt.Sprintf("$%d::text::numeric", n)
	}
	return fmt.Sprintf("$%d", n)
}

func extraArg(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return "", shared.Validationf("extra fields are not JSON encodable")
	}
	return string(raw), nil
}

func scanRecord(row pgx.Row, schema shared.ResourceSchema) (Record, error) {
	var (
		id        int64
		createdAt time.Time
		extra     map[string]any
	)
	texts := make([]string, len(schema.Fields))
	dest := []any{&id, &createdAt}
	for i := range texts {
		dest = append(dest, &texts[i])
	}
	dest = append(dest, &extra)
	if err := row.Scan(dest...); err != nil {
		return nil, db.MapError(err)
	}
	record := make(Record, len(extra)+len(schema.Fields)+2)
	for k, v := range extra {
		record[k] = v
	}
	for i, field := range schema.Fields {
		if field.Kind == shared.FieldNumber {
			record[field.Name] = json.Number(texts[i])
		} else {
			record[field.Name] = texts[i]
		}
	}
	record[KeyID] = id
	record[KeyCreatedAt] = createdAt
	return record, nil
}

func notFound(schema shared.ResourceSchema, id int64, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, schema.Name, id)
	}
	return err
}
