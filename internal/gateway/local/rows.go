package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/gateway"
	"inkwell/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func unknownTable(table string) error {
	return models.NewGatewayError("rows", fmt.Errorf("unknown table %q", table))
}

// Select runs a filtered, ordered, optionally ranged query against the local
// database and returns the row array in the backend's JSON representation.
func (g *Gateway) Select(ctx context.Context, table string, q gateway.Query) (json.RawMessage, int64, error) {
	switch table {
	case gateway.TableBlogs:
		return selectRows[models.Blog](g, ctx, table, q)
	case gateway.TableComments:
		return selectRows[models.Comment](g, ctx, table, q)
	default:
		return nil, 0, unknownTable(table)
	}
}

// SelectByID fetches exactly one row.
func (g *Gateway) SelectByID(ctx context.Context, table, id string) (json.RawMessage, error) {
	switch table {
	case gateway.TableBlogs:
		return selectRowByID[models.Blog](g, ctx, id)
	case gateway.TableComments:
		return selectRowByID[models.Comment](g, ctx, id)
	default:
		return nil, unknownTable(table)
	}
}

// Insert creates one row, assigning the id and timestamps the way the remote
// backend would. A freshly created blog carries updated_at == created_at.
func (g *Gateway) Insert(ctx context.Context, table string, values any) (json.RawMessage, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	now := time.Now().UTC()

	switch table {
	case gateway.TableBlogs:
		var row models.Blog
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, models.NewInternalError(err)
		}
		row.ID = uuid.NewString()
		row.CreatedAt = now
		row.UpdatedAt = now
		return createRow(g, ctx, table, &row)
	case gateway.TableComments:
		var row models.Comment
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, models.NewInternalError(err)
		}
		row.ID = uuid.NewString()
		row.CreatedAt = now
		return createRow(g, ctx, table, &row)
	default:
		return nil, unknownTable(table)
	}
}

// Update patches one row by id and returns its new representation.
func (g *Gateway) Update(ctx context.Context, table, id string, values any) (json.RawMessage, error) {
	switch table {
	case gateway.TableBlogs:
		return updateRow[models.Blog](g, ctx, table, id, values)
	case gateway.TableComments:
		return updateRow[models.Comment](g, ctx, table, id, values)
	default:
		return nil, unknownTable(table)
	}
}

// Delete removes one row by id, reporting gateway.ErrNotFound when the row
// was already gone.
func (g *Gateway) Delete(ctx context.Context, table, id string) error {
	var res *gorm.DB
	switch table {
	case gateway.TableBlogs:
		res = g.db.WithContext(ctx).Delete(&models.Blog{}, "id = ?", id)
	case gateway.TableComments:
		res = g.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	default:
		return unknownTable(table)
	}
	if res.Error != nil {
		return models.NewGatewayError("delete "+table, res.Error)
	}
	if res.RowsAffected == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

func selectRows[T any](g *Gateway, ctx context.Context, table string, q gateway.Query) (json.RawMessage, int64, error) {
	base := func() *gorm.DB {
		tx := g.db.WithContext(ctx).Model(new(T))
		for col, val := range q.Filters {
			tx = tx.Where(col+" = ?", val)
		}
		return tx
	}

	count := int64(-1)
	if q.Count {
		if err := base().Count(&count).Error; err != nil {
			return nil, 0, models.NewGatewayError("select "+table, err)
		}
	}

	tx := base()
	if q.OrderBy != "" {
		dir := " asc"
		if q.Descending {
			dir = " desc"
		}
		tx = tx.Order(q.OrderBy + dir)
	}
	if q.Ranged {
		tx = tx.Offset(q.From).Limit(q.To - q.From + 1)
	}

	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, models.NewGatewayError("select "+table, err)
	}
	if rows == nil {
		rows = []T{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return b, count, nil
}

func selectRowByID[T any](g *Gateway, ctx context.Context, id string) (json.RawMessage, error) {
	var row T
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrNotFound
		}
		return nil, models.NewGatewayError("select", err)
	}
	return json.Marshal(row)
}

func createRow[T any](g *Gateway, ctx context.Context, table string, row *T) (json.RawMessage, error) {
	if err := g.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, models.NewGatewayError("insert "+table, err)
	}
	return json.Marshal(row)
}

func updateRow[T any](g *Gateway, ctx context.Context, table, id string, values any) (json.RawMessage, error) {
	var row T
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrNotFound
		}
		return nil, models.NewGatewayError("update "+table, err)
	}

	patch, err := json.Marshal(values)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := json.Unmarshal(patch, &row); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := g.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, models.NewGatewayError("update "+table, err)
	}
	return json.Marshal(row)
}
