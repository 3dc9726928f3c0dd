package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// ToolInvocationRepository is the Postgres-backed
// ports.ToolInvocationRepository, grounded on the teacher's
// ToolUseRepository (args/result JSON columns, status, error message).
type ToolInvocationRepository struct {
	BaseRepository
}

func NewToolInvocationRepository(pool *pgxpool.Pool) *ToolInvocationRepository {
	return &ToolInvocationRepository{BaseRepository: NewBaseRepository(pool)}
}

func (r *ToolInvocationRepository) Create(ctx context.Context, inv *models.ToolInvocation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	args, err := json.Marshal(inv.Args)
	if err != nil {
		return err
	}
	var result []byte
	if inv.Result != nil {
		result, err = json.Marshal(inv.Result)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO dialogue_tool_invocations (
			id, turn_id, tool_name, tool_version, args, result, status,
			error_desc, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.conn(ctx).Exec(ctx, query,
		inv.ID, inv.TurnID, inv.ToolName, inv.ToolVersion, args, result, inv.Status,
		nullString(inv.ErrorDesc), inv.CreatedAt, nullTime(inv.CompletedAt))
	return err
}

func (r *ToolInvocationRepository) Update(ctx context.Context, inv *models.ToolInvocation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var result []byte
	var err error
	if inv.Result != nil {
		result, err = json.Marshal(inv.Result)
		if err != nil {
			return err
		}
	}

	query := `
		UPDATE dialogue_tool_invocations
		SET result = $2, status = $3, error_desc = $4, completed_at = $5
		WHERE id = $1`

	_, err = r.conn(ctx).Exec(ctx, query, inv.ID, result, inv.Status, nullString(inv.ErrorDesc), nullTime(inv.CompletedAt))
	return err
}

func (r *ToolInvocationRepository) Get(ctx context.Context, id string) (*models.ToolInvocation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, turn_id, tool_name, tool_version, args, result, status,
		       error_desc, created_at, completed_at
		FROM dialogue_tool_invocations WHERE id = $1`

	return r.scanInvocation(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *ToolInvocationRepository) ListByTurn(ctx context.Context, turnID string) ([]*models.ToolInvocation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, turn_id, tool_name, tool_version, args, result, status,
		       error_desc, created_at, completed_at
		FROM dialogue_tool_invocations
		WHERE turn_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ToolInvocation
	for rows.Next() {
		var inv models.ToolInvocation
		var args, result []byte
		var errorDesc sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.TurnID, &inv.ToolName, &inv.ToolVersion, &args, &result,
			&inv.Status, &errorDesc, &inv.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSONField(args, &inv.Args); err != nil {
			return nil, err
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &inv.Result); err != nil {
				return nil, err
			}
		}
		inv.ErrorDesc = getString(errorDesc)
		inv.CompletedAt = getTimePtr(completedAt)
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (r *ToolInvocationRepository) scanInvocation(row pgx.Row) (*models.ToolInvocation, error) {
	var inv models.ToolInvocation
	var args, result []byte
	var errorDesc sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&inv.ID, &inv.TurnID, &inv.ToolName, &inv.ToolVersion, &args, &result,
		&inv.Status, &errorDesc, &inv.CreatedAt, &completedAt)
	if err != nil {
		if checkNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := unmarshalJSONField(args, &inv.Args); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &inv.Result); err != nil {
			return nil, err
		}
	}
	inv.ErrorDesc = getString(errorDesc)
	inv.CompletedAt = getTimePtr(completedAt)
	return &inv, nil
}
