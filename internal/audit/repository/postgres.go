package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/garagehub/parts-service/internal/audit/dto"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.HistoryFilters) ([]model.StockUpdateHistory, int, error) {
	var items []model.StockUpdateHistory
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.PartID != "" {
		conditions = append(conditions, "part_id = :part_id")
		args["part_id"] = f.PartID
	}
	if f.Movement != "" {
		conditions = append(conditions, "movement = :movement")
		args["movement"] = f.Movement
	}
	if f.JobCardID != "" {
		conditions = append(conditions, "job_card_id = :job_card_id")
		args["job_card_id"] = f.JobCardID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_update_history" + whereClause
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

	query := "SELECT * FROM stock_update_history" + whereClause + " ORDER BY created_at DESC"
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
