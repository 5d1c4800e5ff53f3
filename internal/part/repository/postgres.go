package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part"
	"github.com/garagehub/parts-service/internal/part/dto"
	"github.com/garagehub/parts-service/pkg/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Part) error {
	query := `
        INSERT INTO parts (
            id, part_id, part_number, part_name, stock_quantity,
            min_stock_level, price, gst_rate, price_with_gst, unit,
            created_at, updated_at
        )
        VALUES (
            :id, :part_id, :part_number, :part_name, :stock_quantity,
            :min_stock_level, :price, :gst_rate, :price_with_gst, :unit,
            :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Part, error) {
	var p model.Part
	err := r.DB.GetContext(ctx, &p, `SELECT * FROM parts WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) FindByPartID(ctx context.Context, partID string) (*model.Part, error) {
	var p model.Part
	err := r.DB.GetContext(ctx, &p, `SELECT * FROM parts WHERE part_id = $1 LIMIT 1`, partID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) FindByBusinessKey(ctx context.Context, partID, partNumber, partName string) (*model.Part, error) {
	var p model.Part
	query := `
        SELECT * FROM parts
        WHERE part_id = $1 AND part_number = $2 AND lower(part_name) = lower($3)
        LIMIT 1
    `
	err := r.DB.GetContext(ctx, &p, query, partID, partNumber, partName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.PartFilters) ([]model.Part, int, error) {
	var items []model.Part
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Query != "" {
		conditions = append(conditions, "(part_name ILIKE :query OR part_number ILIKE :query OR part_id ILIKE :query)")
		args["query"] = "%" + f.Query + "%"
	}
	if f.LowStock {
		conditions = append(conditions, "stock_quantity <= min_stock_level AND min_stock_level > 0")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM parts" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return nil, 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM parts" + whereClause + " ORDER BY part_name ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) Update(ctx context.Context, p *model.Part) error {
	query := `
        UPDATE parts SET
            part_number = :part_number,
            part_name = :part_name,
            min_stock_level = :min_stock_level,
            price = :price,
            gst_rate = :gst_rate,
            price_with_gst = :price_with_gst,
            unit = :unit,
            updated_at = :updated_at
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("part %s: %w", p.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) AdjustStockWithHistory(ctx context.Context, adjs []part.StockAdjustment, post func(ctx context.Context) error) ([]model.Part, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated := make([]model.Part, 0, len(adjs))
	for i := range adjs {
		p, err := r.adjustInTx(ctx, tx, &adjs[i])
		if err != nil {
			return nil, err
		}
		updated = append(updated, *p)
	}

	if post != nil {
		if err := post(postgres.WithTx(ctx, tx)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PGRepository) ImportBatch(ctx context.Context, created []*model.Part, merged []part.StockAdjustment) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertQuery := `
        INSERT INTO parts (
            id, part_id, part_number, part_name, stock_quantity,
            min_stock_level, price, gst_rate, price_with_gst, unit,
            created_at, updated_at
        )
        VALUES (
            :id, :part_id, :part_number, :part_name, :stock_quantity,
            :min_stock_level, :price, :gst_rate, :price_with_gst, :unit,
            :created_at, :updated_at
        )
    `
	for _, p := range created {
		if _, err := tx.NamedExecContext(ctx, insertQuery, p); err != nil {
			return fmt.Errorf("insert part %s: %w", p.PartID, err)
		}
	}

	for i := range merged {
		if _, err := r.adjustInTx(ctx, tx, &merged[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// adjustInTx moves stock and records the audit row. The conditional guard on
// decrease is the safety net for writers racing past the use-case lock; the
// pre-check that reports every offending line item lives in the use cases.
func (r *PGRepository) adjustInTx(ctx context.Context, tx *sqlx.Tx, adj *part.StockAdjustment) (*model.Part, error) {
	now := time.Now()

	var p model.Part
	var err error
	if adj.Movement == model.MovementDecrease {
		query := `
            UPDATE parts
            SET stock_quantity = stock_quantity - $1, updated_at = $2
            WHERE id = $3 AND stock_quantity >= $1
            RETURNING *
        `
		err = tx.GetContext(ctx, &p, query, adj.Quantity, now, adj.PartRef)
	} else {
		query := `
            UPDATE parts
            SET stock_quantity = stock_quantity + $1, updated_at = $2
            WHERE id = $3
            RETURNING *
        `
		err = tx.GetContext(ctx, &p, query, adj.Quantity, now, adj.PartRef)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyAdjustFailure(ctx, tx, adj)
		}
		return nil, fmt.Errorf("adjust stock for part %s: %w", adj.PartRef, err)
	}

	previous := p.StockQuantity - adj.Quantity
	if adj.Movement == model.MovementDecrease {
		previous = p.StockQuantity + adj.Quantity
	}

	entry := &model.StockUpdateHistory{
		ID:            uuid.New().String(),
		PartRef:       p.ID,
		PartID:        p.PartID,
		PartNumber:    p.PartNumber,
		PartName:      p.PartName,
		Quantity:      adj.Quantity,
		Movement:      adj.Movement,
		PreviousStock: previous,
		NewStock:      p.StockQuantity,
		JobCardID:     adj.JobCardID,
		JobCardNumber: adj.JobCardNumber,
		CustomerName:  adj.CustomerName,
		EngineerName:  adj.EngineerName,
		UpdatedBy:     adj.UpdatedBy,
		Reason:        adj.Reason,
		CreatedAt:     now,
	}

	historyQuery := `
        INSERT INTO stock_update_history (
            id, part_ref, part_id, part_number, part_name, quantity, movement,
            previous_stock, new_stock, job_card_id, job_card_number,
            customer_name, engineer_name, updated_by, reason, created_at
        )
        VALUES (
            :id, :part_ref, :part_id, :part_number, :part_name, :quantity, :movement,
            :previous_stock, :new_stock, :job_card_id, :job_card_number,
            :customer_name, :engineer_name, :updated_by, :reason, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, historyQuery, entry); err != nil {
		return nil, fmt.Errorf("record stock history for part %s: %w", p.PartID, err)
	}

	return &p, nil
}

// classifyAdjustFailure distinguishes a vanished part from a stock shortfall
// once the guarded update matched nothing.
func (r *PGRepository) classifyAdjustFailure(ctx context.Context, tx *sqlx.Tx, adj *part.StockAdjustment) error {
	var p model.Part
	err := tx.GetContext(ctx, &p, `SELECT * FROM parts WHERE id = $1 LIMIT 1`, adj.PartRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("part %s: %w", adj.PartRef, apperrors.ErrNotFound)
		}
		return err
	}
	return &apperrors.InsufficientStockError{
		Items: []apperrors.InsufficientStockItem{{
			PartID:    p.PartID,
			PartName:  p.PartName,
			Requested: adj.Quantity,
			Available: p.StockQuantity,
		}},
	}
}
