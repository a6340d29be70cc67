package catalog

import (
	"context"
	"errors"

	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrEntryNotFound = errors.New("catalog entry not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO catalog_entry
				(id, name, body_part, metric_type, default_unit, image_url, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING;`,
		entry.ID, entry.Name, entry.BodyPart, entry.MetricType,
		entry.DefaultUnit, entry.ImageURL, entry.Description, entry.CreatedAt,
	)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	var entry Entry
	err = r.db.QueryRow(
		ctx,
		`SELECT id, name, body_part, metric_type, default_unit, image_url, description, created_at
			FROM catalog_entry WHERE id = $1;`,
		id,
	).Scan(
		&entry.ID, &entry.Name, &entry.BodyPart, &entry.MetricType,
		&entry.DefaultUnit, &entry.ImageURL, &entry.Description, &entry.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repo) List(ctx context.Context) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, body_part, metric_type, default_unit, image_url, description, created_at
			FROM catalog_entry ORDER BY name;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

func (r *Repo) Search(ctx context.Context, query string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.search")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("query", query))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, body_part, metric_type, default_unit, image_url, description, created_at
			FROM catalog_entry
			WHERE name ILIKE '%' || $1 || '%' OR body_part ILIKE '%' || $1 || '%'
			ORDER BY name;`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *Repo) Update(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entry.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE catalog_entry
			SET name = $2, body_part = $3, metric_type = $4, default_unit = $5, image_url = $6, description = $7
			WHERE id = $1;`,
		entry.ID, entry.Name, entry.BodyPart, entry.MetricType,
		entry.DefaultUnit, entry.ImageURL, entry.Description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) UpdateDescription(ctx context.Context, id, description string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.updateDescription")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE catalog_entry SET description = $2 WHERE id = $1;`,
		id, description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM catalog_entry WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Seed inserts the given entries, skipping the ones already present.
func (r *Repo) Seed(ctx context.Context, entries []Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.catalog.seed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	for _, entry := range entries {
		if err := r.Add(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.Name, &entry.BodyPart, &entry.MetricType,
			&entry.DefaultUnit, &entry.ImageURL, &entry.Description, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
