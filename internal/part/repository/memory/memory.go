// Package memory provides an in-memory part repository with the same
// transactional semantics as the Postgres implementation. It backs unit tests
// across the workflow packages.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part"
	"github.com/garagehub/parts-service/internal/part/dto"
	"github.com/google/uuid"
)

type Repository struct {
	mu      sync.Mutex
	parts   map[string]*model.Part
	history []model.StockUpdateHistory
}

var _ part.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{parts: map[string]*model.Part{}}
}

// History returns a copy of every audit row recorded so far.
func (r *Repository) History() []model.StockUpdateHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StockUpdateHistory, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Repository) Create(ctx context.Context, p *model.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.parts[p.ID] = &cp
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*model.Part, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.parts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *Repository) FindByPartID(ctx context.Context, partID string) (*model.Part, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parts {
		if p.PartID == partID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repository) FindByBusinessKey(ctx context.Context, partID, partNumber, partName string) (*model.Part, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parts {
		if p.PartID == partID && p.PartNumber == partNumber &&
			strings.EqualFold(p.PartName, partName) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repository) FindAll(ctx context.Context, f *dto.PartFilters) ([]model.Part, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []model.Part
	for _, p := range r.parts {
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(p.PartName), q) &&
				!strings.Contains(strings.ToLower(p.PartNumber), q) &&
				!strings.Contains(strings.ToLower(p.PartID), q) {
				continue
			}
		}
		if f.LowStock && (p.MinStockLevel <= 0 || p.StockQuantity > p.MinStockLevel) {
			continue
		}
		items = append(items, *p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PartName < items[j].PartName })

	count := len(items)
	if f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start > len(items) {
			start = len(items)
		}
		end := start + f.PageSize
		if end > len(items) {
			end = len(items)
		}
		items = items[start:end]
	}
	return items, count, nil
}

func (r *Repository) Update(ctx context.Context, p *model.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.parts[p.ID]
	if !ok {
		return fmt.Errorf("part %s: %w", p.ID, apperrors.ErrNotFound)
	}
	stock := existing.StockQuantity
	cp := *p
	cp.StockQuantity = stock
	r.parts[p.ID] = &cp
	return nil
}

func (r *Repository) AdjustStockWithHistory(ctx context.Context, adjs []part.StockAdjustment, post func(ctx context.Context) error) ([]model.Part, error) {
	r.mu.Lock()
	backups := make(map[string]model.Part, len(adjs))
	for _, adj := range adjs {
		if p, ok := r.parts[adj.PartRef]; ok {
			backups[adj.PartRef] = *p
		}
	}
	histLen := len(r.history)

	updated, err := r.adjustLocked(adjs)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// A post failure restores the snapshot, mirroring the transaction
	// rollback of the Postgres implementation.
	if post != nil {
		if err := post(ctx); err != nil {
			r.mu.Lock()
			for ref, p := range backups {
				cp := p
				r.parts[ref] = &cp
			}
			r.history = r.history[:histLen]
			r.mu.Unlock()
			return nil, err
		}
	}
	return updated, nil
}

func (r *Repository) ImportBatch(ctx context.Context, created []*model.Part, merged []part.StockAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, adj := range merged {
		p, ok := r.parts[adj.PartRef]
		if !ok {
			return fmt.Errorf("part %s: %w", adj.PartRef, apperrors.ErrNotFound)
		}
		if adj.Movement == model.MovementDecrease && p.StockQuantity < adj.Quantity {
			return &apperrors.InsufficientStockError{Items: []apperrors.InsufficientStockItem{{
				PartID: p.PartID, PartName: p.PartName, Requested: adj.Quantity, Available: p.StockQuantity,
			}}}
		}
	}

	for _, p := range created {
		cp := *p
		r.parts[p.ID] = &cp
	}
	_, err := r.adjustLocked(merged)
	return err
}

// adjustLocked validates every adjustment before applying any, mirroring the
// all-or-nothing transaction of the Postgres repository.
func (r *Repository) adjustLocked(adjs []part.StockAdjustment) ([]model.Part, error) {
	for _, adj := range adjs {
		p, ok := r.parts[adj.PartRef]
		if !ok {
			return nil, fmt.Errorf("part %s: %w", adj.PartRef, apperrors.ErrNotFound)
		}
		if adj.Movement == model.MovementDecrease && p.StockQuantity < adj.Quantity {
			return nil, &apperrors.InsufficientStockError{Items: []apperrors.InsufficientStockItem{{
				PartID: p.PartID, PartName: p.PartName, Requested: adj.Quantity, Available: p.StockQuantity,
			}}}
		}
	}

	now := time.Now()
	updated := make([]model.Part, 0, len(adjs))
	for _, adj := range adjs {
		p := r.parts[adj.PartRef]
		previous := p.StockQuantity
		if adj.Movement == model.MovementDecrease {
			p.StockQuantity -= adj.Quantity
		} else {
			p.StockQuantity += adj.Quantity
		}
		p.UpdatedAt = now

		r.history = append(r.history, model.StockUpdateHistory{
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
		})
		updated = append(updated, *p)
	}
	return updated, nil
}
