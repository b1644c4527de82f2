package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"inventory-mobile/client/internal/audit"
	auditdomain "inventory-mobile/client/internal/audit/domain"
	"inventory-mobile/client/internal/logging"
	userdomain "inventory-mobile/client/internal/user/domain"
)

const activityQuery = "data.inventory.activity.decisions"

// DefaultActivityPolicy mirrors audit.Filter and audit.CanRevert.
const DefaultActivityPolicy = `package inventory.activity

default privileged := false

privileged if input.viewer.role == "MASTER"

default owns(_) := false

owns(rec) if {
	input.viewer.username != ""
	rec.username == input.viewer.username
}

default visible(_) := false

visible(_) if {
	privileged
	not input.show_mine_only
}

visible(rec) if owns(rec)

default can_revert(_) := false

can_revert(_) if privileged

can_revert(rec) if owns(rec)

decisions := [d |
	some i, rec in input.records
	d := {"index": i, "visible": visible(rec), "can_revert": can_revert(rec)}
]
`

// ActivityEvaluator decides activity log visibility and revert affordances with an OPA Rego policy.
// It implements audit.Policy. Evaluation failures fall back to the built-in rules.
type ActivityEvaluator struct {
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

var _ audit.Policy = (*ActivityEvaluator)(nil)

// NewActivityEvaluator compiles and prepares policy; an empty policy uses DefaultActivityPolicy.
func NewActivityEvaluator(ctx context.Context, policy string, logger *zap.Logger) (*ActivityEvaluator, error) {
	if policy == "" {
		policy = DefaultActivityPolicy
	}
	pq, err := prepare(ctx, policy)
	if err != nil {
		return nil, err
	}
	return &ActivityEvaluator{query: pq, logger: logging.OrNop(logger)}, nil
}

func prepare(ctx context.Context, policy string) (rego.PreparedEvalQuery, error) {
	compiler, err := ast.CompileModules(map[string]string{"activity.rego": policy})
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile activity policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(activityQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare activity policy: %w", err)
	}
	return pq, nil
}

// HealthCheck evaluates the prepared policy against a one-record input.
func (e *ActivityEvaluator) HealthCheck(ctx context.Context) error {
	viewer := &userdomain.User{ID: 1, Username: "health", Role: userdomain.RoleEmployee}
	recs := []auditdomain.ChangeRecord{{ID: 1, Username: "health"}}
	ds, err := e.evaluate(ctx, viewer, false, recs)
	if err != nil {
		return err
	}
	if !ds[0].Visible {
		return fmt.Errorf("activity policy hides the viewer's own record")
	}
	return nil
}

// Decide implements audit.Policy.
func (e *ActivityEvaluator) Decide(ctx context.Context, viewer *userdomain.User, showMineOnly bool, records []auditdomain.ChangeRecord) ([]audit.Decision, error) {
	if viewer == nil {
		return audit.RulePolicy{}.Decide(ctx, nil, showMineOnly, records)
	}
	ds, err := e.evaluate(ctx, viewer, showMineOnly, records)
	if err != nil {
		e.logger.Warn("policy: activity evaluation failed, using defaults", zap.Error(err))
		return audit.RulePolicy{}.Decide(ctx, viewer, showMineOnly, records)
	}
	return ds, nil
}

func (e *ActivityEvaluator) evaluate(ctx context.Context, viewer *userdomain.User, showMineOnly bool, records []auditdomain.ChangeRecord) ([]audit.Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(viewer, showMineOnly, records)))
	if err != nil {
		return nil, fmt.Errorf("eval activity policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, fmt.Errorf("activity policy returned no result")
	}
	raw, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("activity policy decisions have type %T", rs[0].Expressions[0].Value)
	}
	out := make([]audit.Decision, len(records))
	seen := make([]bool, len(records))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("activity policy decision has type %T", item)
		}
		i, err := index(m["index"])
		if err != nil || i < 0 || i >= len(records) {
			return nil, fmt.Errorf("activity policy decision index %v out of range", m["index"])
		}
		visible, _ := m["visible"].(bool)
		canRevert, _ := m["can_revert"].(bool)
		out[i] = audit.Decision{Visible: visible, CanRevert: canRevert}
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("activity policy has no decision for record %d", records[i].ID)
		}
	}
	return out, nil
}

func index(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected index type %T", v)
}

func buildInput(viewer *userdomain.User, showMineOnly bool, records []auditdomain.ChangeRecord) map[string]interface{} {
	recs := make([]interface{}, len(records))
	for i, r := range records {
		recs[i] = map[string]interface{}{
			"id":         r.ID,
			"table_name": r.TableName,
			"record_id":  r.RecordID,
			"action":     string(r.Action),
			"user_id":    r.UserID,
			"username":   r.Username,
		}
	}
	return map[string]interface{}{
		"viewer": map[string]interface{}{
			"id":       viewer.ID,
			"username": viewer.Username,
			"role":     string(viewer.Role),
		},
		"show_mine_only": showMineOnly,
		"records":        recs,
	}
}
