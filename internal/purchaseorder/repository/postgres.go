package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/purchaseorder/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderQuery := `
        INSERT INTO purchase_orders (
            id, po_number, service_center_id, requested_by, priority, status,
            notes, created_at, updated_at
        )
        VALUES (
            :id, :po_number, :service_center_id, :requested_by, :priority, :status,
            :notes, :created_at, :updated_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, orderQuery, po); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}

	itemQuery := `
        INSERT INTO purchase_order_items (
            id, po_id, part_id, part_number, part_name,
            requested_qty, approved_qty, issued_qty, unit_price, status, position
        )
        VALUES (
            :id, :po_id, :part_id, :part_number, :part_name,
            :requested_qty, :approved_qty, :issued_qty, :unit_price, :status, :position
        )
    `
	for i := range po.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &po.Items[i]); err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.DB.GetContext(ctx, &po, `SELECT * FROM purchase_orders WHERE id = $1 LIMIT 1`, id)
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
	po.Items = items[id]
	return &po, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.PurchaseOrder, int, error) {
	var orders []model.PurchaseOrder
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.ServiceCenterID != "" {
		conditions = append(conditions, "service_center_id = :service_center_id")
		args["service_center_id"] = f.ServiceCenterID
	}
	if f.Priority != "" {
		conditions = append(conditions, "priority = :priority")
		args["priority"] = f.Priority
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM purchase_orders" + whereClause
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

	query := "SELECT * FROM purchase_orders" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &orders, args); err != nil {
		return nil, 0, err
	}

	if len(orders) > 0 {
		ids := make([]string, len(orders))
		for i, po := range orders {
			ids[i] = po.ID
		}
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	return orders, count, nil
}

func (r *PGRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderQuery := `
        UPDATE purchase_orders SET
            status = :status,
            priority = :priority,
            notes = :notes,
            approved_by = :approved_by,
            approved_at = :approved_at,
            rejected_by = :rejected_by,
            rejected_at = :rejected_at,
            rejection_reason = :rejection_reason,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := tx.NamedExecContext(ctx, orderQuery, po); err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}

	itemQuery := `
        UPDATE purchase_order_items SET
            approved_qty = :approved_qty,
            issued_qty = :issued_qty,
            status = :status
        WHERE id = :id
    `
	for i := range po.Items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &po.Items[i]); err != nil {
			return fmt.Errorf("update purchase order item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]model.PurchaseOrderItem, error) {
	query, args, err := sqlx.In(`
        SELECT * FROM purchase_order_items
        WHERE po_id IN (?)
        ORDER BY position ASC
    `, orderIDs)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var items []model.PurchaseOrderItem
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	grouped := map[string][]model.PurchaseOrderItem{}
	for _, item := range items {
		grouped[item.POID] = append(grouped[item.POID], item)
	}
	return grouped, nil
}
