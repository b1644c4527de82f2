package health

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck_NilDependencies(t *testing.T) {
	r := NewChecker(nil, nil).Check(context.Background())
	if !r.OK() || r.Err() != nil {
		t.Errorf("report = %+v, want OK", r)
	}
}

func TestCheck_AllPass(t *testing.T) {
	r := NewChecker(&mockPinger{}, &mockPolicyChecker{}).Check(context.Background())
	if !r.OK() {
		t.Errorf("report = %+v, want OK", r)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	r := NewChecker(&mockPinger{pingErr: errors.New("database is locked")}, &mockPolicyChecker{}).Check(context.Background())
	if r.OK() {
		t.Fatal("report should not be OK")
	}
	if r.Policy != nil {
		t.Errorf("policy = %v, want nil", r.Policy)
	}
	if !strings.Contains(r.Err().Error(), "token store: database is locked") {
		t.Errorf("Err = %v", r.Err())
	}
}

func TestCheck_BothFail(t *testing.T) {
	storeErr := errors.New("connection refused")
	policyErr := errors.New("rego compile failed")
	r := NewChecker(&mockPinger{pingErr: storeErr}, &mockPolicyChecker{healthErr: policyErr}).Check(context.Background())
	err := r.Err()
	if !errors.Is(err, storeErr) || !errors.Is(err, policyErr) {
		t.Errorf("Err = %v, want both failures", err)
	}
}
