package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tourbook-backend/internal/apperr"
)

// documentRow is the single table behind the postgres backend. Every
// collection shares it; the document body lives in a JSONB column.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:128"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

type Postgres struct {
	db    *gorm.DB
	clock Clock
}

func NewPostgres(db *gorm.DB, clock Clock) *Postgres {
	return &Postgres{db: db, clock: clock}
}

// OpenPostgres opens the connection and migrates the documents table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	// Containment index for the data @> filters Query emits.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING gin (data jsonb_path_ops)").Error; err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := normalizeDocument(doc)
	now := stamp(p.clock)
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	row := documentRow{Collection: collection, ID: id, Data: datatypes.JSON(data)}
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrAlreadyExists)
	}
	return id, nil
}

func (p *Postgres) Read(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := p.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowDocument(row)
}

func (p *Postgres) Update(ctx context.Context, collection, id string, partial Document) error {
	patch := Document{}
	for k, v := range partial {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		patch[k] = normalize(v)
	}
	patch[FieldUpdatedAt] = stamp(p.clock)
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}

	res := p.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]any{
			"data":       gorm.Expr("data || ?::jsonb", string(data)),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	return p.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error
}

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	tx := p.db.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", collection)
	for _, f := range q.Filters {
		value := normalize(f.Value)
		if f.Op == OpEq {
			probe, err := json.Marshal(map[string]any{f.Field: value})
			if err != nil {
				return nil, fmt.Errorf("marshal filter %s: %w", f.Field, err)
			}
			tx = tx.Where("data @> ?::jsonb", string(probe))
			continue
		}
		// Op comes from the closed Op set, never from caller text.
		switch v := value.(type) {
		case float64:
			tx = tx.Where("(data->>?)::numeric "+string(f.Op)+" ?", f.Field, v)
		default:
			tx = tx.Where("data->>? "+string(f.Op)+" ?", f.Field, v)
		}
	}

	if q.OrderBy != "" {
		sql := "data->? ASC"
		if q.Descending {
			sql = "data->? DESC"
		}
		tx = tx.Order(clause.OrderBy{Expression: clause.Expr{SQL: sql, Vars: []any{q.OrderBy}, WithoutParentheses: true}})
	}
	tx = tx.Order("id")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := rowDocument(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Increment is a single UPDATE ... RETURNING, so concurrent calls serialize on
// the row lock.
func (p *Postgres) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	const incrementSQL = `UPDATE documents
SET data = jsonb_set(
		jsonb_set(data, ARRAY[?]::text[], to_jsonb(COALESCE((data->>?)::numeric, 0) + ?)),
		'{updatedAt}', to_jsonb(?::text)),
	updated_at = now()
WHERE collection = ? AND id = ?
RETURNING (data->>?)::numeric`

	var out []float64
	err := p.db.WithContext(ctx).
		Raw(incrementSQL, field, field, delta, stamp(p.clock), collection, id, field).
		Scan(&out).Error
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	return int64(out[0]), nil
}

func rowDocument(row documentRow) (Document, error) {
	var doc Document
	if err := json.Unmarshal(row.Data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", row.Collection, row.ID, err)
	}
	return doc, nil
}
