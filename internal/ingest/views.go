package ingest

import (
	"context"
	"fmt"
)

// viewDefinitions are the curated surfaces the agent prefers over raw
// tables. v_interactions_norm must come first, the others read from it.
var viewDefinitions = []struct {
	name string
	ddl  string
}{
	{
		name: "v_interactions_norm",
		ddl: `
CREATE OR REPLACE VIEW v_interactions_norm AS
SELECT
	interaction_id,
	account_id,
	sales_agent,
	LOWER(activity_type) AS activity_type,
	LOWER(status) AS status_lc,
	CAST(interaction_date AS DATE) AS d_interaction,
	comment
FROM interactions`,
	},
	{
		name: "v_pipeline_snapshot",
		ddl: `
CREATE OR REPLACE VIEW v_pipeline_snapshot AS
SELECT
	p.opportunity_id,
	p.account_id,
	a.account,
	p.product,
	p.sales_agent,
	p.deal_stage,
	p.engage_date,
	p.close_date,
	p.close_value
FROM sales_pipeline p
LEFT JOIN accounts a USING (account_id)`,
	},
	{
		name: "v_accounts_summary",
		ddl: `
CREATE OR REPLACE VIEW v_accounts_summary AS
SELECT
	a.account_id,
	a.account AS account_name,
	a.sector,
	a.revenue,
	MAX(i.d_interaction) AS last_touch,
	COALESCE(BOOL_OR(p.deal_stage = 'Engaging'), FALSE) AS has_open_work
FROM accounts a
LEFT JOIN v_interactions_norm i USING (account_id)
LEFT JOIN sales_pipeline p USING (account_id)
GROUP BY a.account_id, a.account, a.sector, a.revenue`,
	},
	{
		name: "v_open_work",
		ddl: `
CREATE OR REPLACE VIEW v_open_work AS
SELECT
	p.account_id,
	a.account,
	p.deal_stage,
	p.sales_agent,
	p.product,
	i.activity_type,
	i.status_lc,
	i.d_interaction,
	i.comment
FROM sales_pipeline p
LEFT JOIN accounts a USING (account_id)
LEFT JOIN v_interactions_norm i
	ON i.account_id = p.account_id
	AND i.d_interaction >= CURRENT_DATE - INTERVAL 30 DAY
WHERE p.deal_stage = 'Engaging'`,
	},
}

// CreateViews defines or replaces all curated views.
func (l *Loader) CreateViews(ctx context.Context) error {
	for _, view := range viewDefinitions {
		if _, err := l.DB.ExecContext(ctx, view.ddl); err != nil {
			return fmt.Errorf("create view %q: %w", view.name, err)
		}
		l.logger().Info("view created", "view", view.name)
	}
	return nil
}

// ViewNames returns the curated view names in creation order.
func ViewNames() []string {
	names := make([]string, 0, len(viewDefinitions))
	for _, view := range viewDefinitions {
		names = append(names, view.name)
	}
	return names
}
