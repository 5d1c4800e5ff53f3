package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/request/dto"
	"github.com/garagehub/parts-service/pkg/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, req *model.PartsRequest) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	requestQuery := `
        INSERT INTO parts_requests (
            id, job_card_id, job_card_number, vehicle_id, customer_name,
            requested_by, requested_at, status,
            sc_manager_approved, inventory_manager_assigned, work_completed,
            created_at, updated_at
        )
        VALUES (
            :id, :job_card_id, :job_card_number, :vehicle_id, :customer_name,
            :requested_by, :requested_at, :status,
            :sc_manager_approved, :inventory_manager_assigned, :work_completed,
            :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, requestQuery, req); err != nil {
		return fmt.Errorf("insert parts request: %w", err)
	}

	itemQuery := `
        INSERT INTO parts_request_items (
            id, request_id, part_ref, part_id, part_name, quantity,
            serial_number, is_warranty, position
        )
        VALUES (
            :id, :request_id, :part_ref, :part_id, :part_name, :quantity,
            :serial_number, :is_warranty, :position
        )
    `
	for i := range req.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &req.Items[i]); err != nil {
			return fmt.Errorf("insert request item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.PartsRequest, error) {
	var req model.PartsRequest
	err := r.DB.GetContext(ctx, &req, `SELECT * FROM parts_requests WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	req.Items = items[id]
	return &req, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.PartsRequest, int, error) {
	var requests []model.PartsRequest
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.JobCardID != "" {
		conditions = append(conditions, "job_card_id = :job_card_id")
		args["job_card_id"] = f.JobCardID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM parts_requests" + whereClause
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

	query := "SELECT * FROM parts_requests" + whereClause + " ORDER BY requested_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &requests, args); err != nil {
		return nil, 0, err
	}

	if len(requests) > 0 {
		ids := make([]string, len(requests))
		for i, req := range requests {
			ids[i] = req.ID
		}
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range requests {
			requests[i].Items = items[requests[i].ID]
		}
	}

	return requests, count, nil
}

func (r *PGRepository) Update(ctx context.Context, req *model.PartsRequest) error {
	query := `
        UPDATE parts_requests SET
            status = :status,
            sc_manager_approved = :sc_manager_approved,
            sc_approved_by = :sc_approved_by,
            sc_approved_at = :sc_approved_at,
            sc_approval_notes = :sc_approval_notes,
            inventory_manager_assigned = :inventory_manager_assigned,
            assigned_by = :assigned_by,
            assigned_at = :assigned_at,
            assigned_engineer = :assigned_engineer,
            assignment_notes = :assignment_notes,
            rejected_by = :rejected_by,
            rejected_at = :rejected_at,
            rejection_reason = :rejection_reason,
            work_completed = :work_completed,
            work_completed_at = :work_completed_at,
            updated_at = :updated_at
        WHERE id = :id
    `
	// Joins the caller's transaction when assignment runs the update inside
	// the stock adjustment.
	ext := postgres.Ext(ctx, r.DB)
	if _, err := sqlx.NamedExecContext(ctx, ext, query, req); err != nil {
		return fmt.Errorf("update parts request: %w", err)
	}

	// Line items can pick up a ledger resolution during assignment.
	itemQuery := `UPDATE parts_request_items SET part_ref = :part_ref WHERE id = :id`
	for i := range req.Items {
		if _, err := sqlx.NamedExecContext(ctx, ext, itemQuery, &req.Items[i]); err != nil {
			return fmt.Errorf("update request item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) loadItems(ctx context.Context, requestIDs []string) (map[string][]model.PartsRequestItem, error) {
	query, args, err := sqlx.In(`
        SELECT * FROM parts_request_items
        WHERE request_id IN (?)
        ORDER BY position ASC
    `, requestIDs)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var items []model.PartsRequestItem
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	grouped := map[string][]model.PartsRequestItem{}
	for _, item := range items {
		grouped[item.RequestID] = append(grouped[item.RequestID], item)
	}
	return grouped, nil
}
