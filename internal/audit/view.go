// Package audit builds the activity log screen's view over the backend's change records:
// role-scoped visibility, the "mine only" toggle, and revert affordances.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"inventory-mobile/client/internal/audit/domain"
	"inventory-mobile/client/internal/logging"
	sessiondomain "inventory-mobile/client/internal/session/domain"
	userdomain "inventory-mobile/client/internal/user/domain"
)

// ErrNoViewer is returned when the activity log is used without a signed-in user.
var ErrNoViewer = errors.New("activity log requires a signed-in user")

// RevertFailure is returned when the backend refuses a revert. The displayed list is unchanged.
type RevertFailure struct {
	RecordID int64
	Err      error
}

func (e *RevertFailure) Error() string {
	return fmt.Sprintf("revert of change %d failed: %v", e.RecordID, e.Err)
}

func (e *RevertFailure) Unwrap() error { return e.Err }

// Source is the backend side of the activity log.
type Source interface {
	ListChangeRecords(ctx context.Context) ([]domain.ChangeRecord, error)
	RevertChange(ctx context.Context, id int64) error
}

// Viewer yields the current session.
type Viewer interface {
	Snapshot() sessiondomain.Session
}

// Decision is the policy outcome for one record.
type Decision struct {
	Visible   bool
	CanRevert bool
}

// Policy decides visibility and revert affordances for a batch of records.
type Policy interface {
	Decide(ctx context.Context, viewer *userdomain.User, showMineOnly bool, records []domain.ChangeRecord) ([]Decision, error)
}

// Entry is a visible record plus its display data.
type Entry struct {
	Record    domain.ChangeRecord
	Summary   string
	CanRevert bool
}

// Filter applies the built-in visibility rule: non-privileged viewers only ever see their own
// records; privileged viewers see everything unless showMineOnly is set.
func Filter(viewer *userdomain.User, showMineOnly bool, records []domain.ChangeRecord) []domain.ChangeRecord {
	if viewer == nil {
		return nil
	}
	out := make([]domain.ChangeRecord, 0, len(records))
	for _, r := range records {
		if visible(viewer, showMineOnly, r) {
			out = append(out, r)
		}
	}
	return out
}

// CanRevert reports whether viewer may ask the backend to revert rec.
func CanRevert(viewer *userdomain.User, rec domain.ChangeRecord) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role.Privileged() || owns(viewer, rec)
}

// RulePolicy is Policy implemented with Filter's and CanRevert's rules.
type RulePolicy struct{}

func (RulePolicy) Decide(_ context.Context, viewer *userdomain.User, showMineOnly bool, records []domain.ChangeRecord) ([]Decision, error) {
	out := make([]Decision, len(records))
	for i, r := range records {
		out[i] = Decision{Visible: viewer != nil && visible(viewer, showMineOnly, r), CanRevert: CanRevert(viewer, r)}
	}
	return out, nil
}

func visible(viewer *userdomain.User, showMineOnly bool, r domain.ChangeRecord) bool {
	if !viewer.Role.Privileged() || showMineOnly {
		return owns(viewer, r)
	}
	return true
}

func owns(viewer *userdomain.User, r domain.ChangeRecord) bool {
	return viewer.Username != "" && r.Username == viewer.Username
}

// ViewModel holds the fetched list and the toggle. It never edits records locally; every
// change to history is observed through a refetch.
type ViewModel struct {
	source Source
	viewer Viewer
	policy Policy
	logger *zap.Logger

	mu           sync.Mutex
	records      []domain.ChangeRecord
	showMineOnly bool
	loaded       bool
}

// NewViewModel returns a ViewModel. A nil policy uses RulePolicy.
func NewViewModel(source Source, viewer Viewer, policy Policy, logger *zap.Logger) *ViewModel {
	if policy == nil {
		policy = RulePolicy{}
	}
	return &ViewModel{source: source, viewer: viewer, policy: policy, logger: logging.OrNop(logger)}
}

// Reload fetches the full list. On failure the previous list is kept and the error returned.
func (v *ViewModel) Reload(ctx context.Context) error {
	records, err := v.source.ListChangeRecords(ctx)
	if err != nil {
		return fmt.Errorf("load activity log: %w", err)
	}
	v.mu.Lock()
	v.records = records
	v.loaded = true
	v.mu.Unlock()
	return nil
}

// SetShowMineOnly sets the toggle. It has no effect on what a non-privileged viewer sees.
func (v *ViewModel) SetShowMineOnly(on bool) {
	v.mu.Lock()
	v.showMineOnly = on
	v.mu.Unlock()
}

// ShowMineOnly returns the toggle.
func (v *ViewModel) ShowMineOnly() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showMineOnly
}

// Loaded reports whether a fetch has succeeded at least once.
func (v *ViewModel) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Entries returns the records the current viewer may see, in backend order.
func (v *ViewModel) Entries(ctx context.Context) ([]Entry, error) {
	viewer := v.viewer.Snapshot().User
	if viewer == nil {
		return nil, ErrNoViewer
	}
	v.mu.Lock()
	records := append([]domain.ChangeRecord(nil), v.records...)
	mine := v.showMineOnly
	v.mu.Unlock()

	decisions, err := v.policy.Decide(ctx, viewer, mine, records)
	if err != nil || len(decisions) != len(records) {
		v.logger.Warn("audit: policy failed, using built-in rules", zap.Error(err), zap.Int("decisions", len(decisions)))
		decisions, _ = RulePolicy{}.Decide(ctx, viewer, mine, records)
	}
	out := make([]Entry, 0, len(records))
	for i, r := range records {
		if !decisions[i].Visible {
			continue
		}
		out = append(out, Entry{Record: r, Summary: Describe(r), CanRevert: decisions[i].CanRevert})
	}
	return out, nil
}

// Revert asks the backend to revert record id and, on success, refetches the list.
// A refusal is returned as *RevertFailure and leaves the list as it was.
func (v *ViewModel) Revert(ctx context.Context, id int64) error {
	viewer := v.viewer.Snapshot().User
	if viewer == nil {
		return ErrNoViewer
	}
	rec, ok := v.find(id)
	if !ok {
		return &RevertFailure{RecordID: id, Err: errors.New("change is not in the activity log")}
	}
	decisions, err := v.policy.Decide(ctx, viewer, false, []domain.ChangeRecord{rec})
	allowed := CanRevert(viewer, rec)
	if err == nil && len(decisions) == 1 {
		allowed = decisions[0].CanRevert
	}
	if !allowed {
		return &RevertFailure{RecordID: id, Err: errors.New("not allowed to revert this change")}
	}
	if err := v.source.RevertChange(ctx, id); err != nil {
		v.logger.Info("audit: revert refused", zap.Int64("change_id", id), zap.Error(err))
		return &RevertFailure{RecordID: id, Err: err}
	}
	if err := v.Reload(ctx); err != nil {
		return fmt.Errorf("revert succeeded but refresh failed: %w", err)
	}
	return nil
}

func (v *ViewModel) find(id int64) (domain.ChangeRecord, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.records {
		if r.ID == id {
			return r, true
		}
	}
	return domain.ChangeRecord{}, false
}
