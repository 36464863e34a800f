package postgresql

// migrations returns the versioned schema for the rule and workflow tables.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'inactive',
				risk_level TEXT NOT NULL DEFAULT 'low',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_tenant ON workflows (tenant_id);

			CREATE TABLE IF NOT EXISTS trigger_rules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				config JSONB NOT NULL DEFAULT '{}',
				active BOOLEAN NOT NULL DEFAULT TRUE,
				priority INTEGER NOT NULL DEFAULT 0,
				requires_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_trigger_rules_tenant
				ON trigger_rules (tenant_id, priority DESC, created_at ASC);
		`,
	}
}
