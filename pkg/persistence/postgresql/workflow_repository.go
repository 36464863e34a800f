package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// WorkflowRepository handles workflow database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetByID returns a workflow by tenant and id.
func (r *WorkflowRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , name
		  , status
		  , risk_level
		  , created_at
		  , updated_at
		FROM workflows
		WHERE tenant_id = $1 AND id = $2
	`

	var (
		workflow models.Workflow
		status   string
		risk     string
	)

	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&workflow.ID, &workflow.TenantID, &workflow.Name, &status, &risk,
		&workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	workflow.Status = models.WorkflowStatus(status)
	workflow.RiskLevel = models.RiskLevel(risk)

	return &workflow, nil
}

// Save upserts the workflow.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	query := `
		INSERT INTO workflows (id, tenant_id, name, status, risk_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			risk_level = EXCLUDED.risk_level,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID, workflow.TenantID, workflow.Name, string(workflow.Status),
		string(workflow.RiskLevel), workflow.CreatedAt, workflow.UpdatedAt)

	return err
}
