package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/persistence"
)

// WorkflowRepository stores workflow definitions as one JSON file per
// workflow, grouped in a directory per tenant.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) workflowPath(tenantID, id string) string {
	return filepath.Join(wr.root, "workflows", tenantID, id+".json")
}

// GetByID loads a workflow by tenant and id.
func (wr *WorkflowRepository) GetByID(_ context.Context, tenantID, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.workflowPath(tenantID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	var workflow models.Workflow

	err = json.Unmarshal(data, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// Save writes the workflow to disk.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	dir := filepath.Join(wr.root, "workflows", workflow.TenantID)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(wr.workflowPath(workflow.TenantID, workflow.ID), data, 0o644)
}
