package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inventory-mobile/client/internal/security"
	"inventory-mobile/client/internal/session/domain"
	"inventory-mobile/client/internal/tokenstore"
	"inventory-mobile/client/internal/tokenstore/repository"
	userdomain "inventory-mobile/client/internal/user/domain"
)

type mockNotifier struct {
	mu      sync.Mutex
	calls   []string
	bearers []string
	err     error
	done    chan struct{}
	blockOn chan struct{}
}

func (m *mockNotifier) NotifyLogout(ctx context.Context, accessToken, refreshToken string) error {
	if m.blockOn != nil {
		<-m.blockOn
	}
	m.mu.Lock()
	m.calls = append(m.calls, refreshToken)
	m.bearers = append(m.bearers, accessToken)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return m.err
}

func (m *mockNotifier) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func testUser() *userdomain.User {
	return &userdomain.User{ID: 7, Username: "ana", Name: "Ana", Role: userdomain.RoleEmployee}
}

func newStore() (*tokenstore.Store, *repository.MemoryRepository) {
	repo := repository.NewMemoryRepository()
	return tokenstore.New(repo, nil, nil), repo
}

func TestState_LoginSucceeded(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := NewState(store, nil)

	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())

	snap := s.Snapshot()
	if snap.AccessToken != "access-1" || snap.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q/%q, want access-1/refresh-1", snap.AccessToken, snap.RefreshToken)
	}
	if snap.User == nil || snap.User.Username != "ana" {
		t.Fatalf("User = %+v, want ana", snap.User)
	}
	if got := store.Load(ctx); got.Access != "access-1" || got.Refresh != "refresh-1" {
		t.Errorf("persisted = %+v, want access-1/refresh-1", got)
	}
}

func TestState_LoginWithoutUserClears(t *testing.T) {
	ctx := context.Background()
	s := NewState(nil, nil)
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())
	s.LoginSucceeded(ctx, "access-2", "refresh-2", nil)

	if snap := s.Snapshot(); snap.AccessToken != "" || snap.User != nil {
		t.Errorf("session = %+v, want empty", snap)
	}
}

func TestState_SnapshotIsCopy(t *testing.T) {
	s := NewState(nil, nil)
	s.LoginSucceeded(context.Background(), "a", "r", testUser())
	snap := s.Snapshot()
	snap.User.Username = "mallory"
	if s.Snapshot().User.Username != "ana" {
		t.Error("mutating a snapshot changed the session")
	}
}

func TestState_RefreshSucceeded_KeepsRefreshWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := NewState(store, nil)
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())

	if !s.RefreshSucceeded(ctx, "access-2", "") {
		t.Fatal("RefreshSucceeded returned false")
	}
	snap := s.Snapshot()
	if snap.AccessToken != "access-2" {
		t.Errorf("AccessToken = %q, want access-2", snap.AccessToken)
	}
	if snap.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1 retained", snap.RefreshToken)
	}
	if snap.User.ID != 7 {
		t.Errorf("User.ID = %d, want unchanged 7", snap.User.ID)
	}
	if got := store.Load(ctx); got.Access != "access-2" || got.Refresh != "refresh-1" {
		t.Errorf("persisted = %+v, want access-2/refresh-1", got)
	}
}

func TestState_RefreshSucceeded_Rotates(t *testing.T) {
	ctx := context.Background()
	s := NewState(nil, nil)
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())
	s.RefreshSucceeded(ctx, "access-2", "refresh-2")
	if got := s.RefreshToken(); got != "refresh-2" {
		t.Errorf("RefreshToken = %q, want refresh-2", got)
	}
}

func TestState_RefreshAfterLogoutIsDropped(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := NewState(store, nil)
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())
	s.Clear(ctx)

	if s.RefreshSucceeded(ctx, "access-2", "refresh-2") {
		t.Error("RefreshSucceeded on a cleared session should report false")
	}
	if snap := s.Snapshot(); snap.AccessToken != "" || snap.User != nil {
		t.Errorf("session = %+v, want empty", snap)
	}
	if got := store.Load(ctx); got != (tokenstore.Tokens{}) {
		t.Errorf("persisted = %+v, want nothing", got)
	}
}

func TestState_LogoutClearsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store, repo := newStore()
	notifier := &mockNotifier{done: make(chan struct{}, 1)}
	s := NewState(store, nil, WithLogoutNotifier(notifier))
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())

	s.Logout(ctx)

	snap := s.Snapshot()
	if snap.AccessToken != "" || snap.RefreshToken != "" || snap.User != nil {
		t.Errorf("session after Logout = %+v, want empty", snap)
	}
	for _, k := range []string{tokenstore.KeyAccess, tokenstore.KeyRefresh} {
		if _, ok, _ := repo.Get(ctx, k); ok {
			t.Errorf("%s persisted after Logout", k)
		}
	}
	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("logout notification not sent")
	}
	if calls := notifier.getCalls(); len(calls) != 1 || calls[0] != "refresh-1" {
		t.Errorf("notify calls = %v, want [refresh-1]", calls)
	}
	notifier.mu.Lock()
	bearers := append([]string(nil), notifier.bearers...)
	notifier.mu.Unlock()
	if len(bearers) != 1 || bearers[0] != "access-1" {
		t.Errorf("notify bearers = %v, want the ended session's access-1", bearers)
	}
}

func TestState_LogoutDoesNotWaitForNotifier(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	notifier := &mockNotifier{blockOn: block, err: errors.New("backend down")}
	s := NewState(nil, nil, WithLogoutNotifier(notifier))
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())

	returned := make(chan struct{})
	go func() {
		s.Logout(ctx)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Logout blocked on the backend notification")
	}
	if s.Snapshot().User != nil {
		t.Error("user still set after Logout")
	}
	close(block)
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	s.WaitNotifications(waitCtx)
	if len(notifier.getCalls()) != 1 {
		t.Errorf("notify calls = %d, want 1", len(notifier.getCalls()))
	}
}

func TestState_LogoutWithoutRefreshSkipsNotifier(t *testing.T) {
	ctx := context.Background()
	notifier := &mockNotifier{}
	s := NewState(nil, nil, WithLogoutNotifier(notifier))
	s.LoginSucceeded(ctx, "access-1", "", testUser())
	s.Logout(ctx)
	s.WaitNotifications(ctx)
	if calls := notifier.getCalls(); len(calls) != 0 {
		t.Errorf("notify calls = %v, want none", calls)
	}
}

func TestState_ClearDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	notifier := &mockNotifier{}
	s := NewState(nil, nil, WithLogoutNotifier(notifier))
	s.LoginSucceeded(ctx, "access-1", "refresh-1", testUser())
	s.Clear(ctx)
	s.WaitNotifications(ctx)
	if calls := notifier.getCalls(); len(calls) != 0 {
		t.Errorf("notify calls = %v, want none", calls)
	}
	if snap := s.Snapshot(); snap.User != nil || snap.AccessToken != "" {
		t.Errorf("session after Clear = %+v, want empty", snap)
	}
}

func TestState_Restore(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	token, err := security.NewTestToken(9, "bo", true, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("NewTestToken: %v", err)
	}
	store.Save(ctx, token, "refresh-9")

	s := NewState(store, nil)
	if !s.Restore(ctx) {
		t.Fatal("Restore returned false")
	}
	snap := s.Snapshot()
	if snap.AccessToken != token || snap.RefreshToken != "refresh-9" {
		t.Errorf("tokens not hydrated: %+v", snap)
	}
	if snap.User == nil || snap.User.ID != 9 || snap.User.Role != userdomain.RoleMaster {
		t.Errorf("User = %+v, want id 9 MASTER", snap.User)
	}
}

func TestState_RestoreExpiredTokenStillHydrates(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	token, _ := security.NewTestToken(9, "bo", false, time.Now().Add(-time.Hour))
	store.Save(ctx, token, "")

	s := NewState(store, nil)
	if !s.Restore(ctx) {
		t.Fatal("Restore should hydrate an expired token and leave the verdict to the guard")
	}
}

func TestState_RestoreLegacyToken(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	token, _ := security.NewTestToken(3, "cy", false, time.Now().Add(time.Hour))
	_ = repo.Put(ctx, tokenstore.KeyLegacy, token)

	s := NewState(tokenstore.New(repo, nil, nil), nil)
	if !s.Restore(ctx) {
		t.Fatal("Restore returned false")
	}
	snap := s.Snapshot()
	if snap.AccessToken != token || snap.RefreshToken != "" {
		t.Errorf("session = %+v, want legacy access and no refresh", snap)
	}
}

func TestState_RestoreUndecodableToken(t *testing.T) {
	ctx := context.Background()
	store, repo := newStore()
	store.Save(ctx, "not-a-jwt", "refresh")

	s := NewState(store, nil)
	if s.Restore(ctx) {
		t.Error("Restore should refuse an undecodable token")
	}
	if snap := s.Snapshot(); snap.AccessToken != "" || snap.User != nil {
		t.Errorf("session = %+v, want empty", snap)
	}
	if _, ok, _ := repo.Get(ctx, tokenstore.KeyAccess); ok {
		t.Error("undecodable token should be removed from the store")
	}
}

func TestState_RestoreEmptyStore(t *testing.T) {
	store, _ := newStore()
	if NewState(store, nil).Restore(context.Background()) {
		t.Error("Restore on empty store should return false")
	}
	if NewState(nil, nil).Restore(context.Background()) {
		t.Error("Restore without a store should return false")
	}
}

func TestState_LoadingAndError(t *testing.T) {
	s := NewState(nil, nil)
	s.SetLoading()
	if snap := s.Snapshot(); !snap.Loading || snap.Error != "" {
		t.Errorf("after SetLoading = %+v", snap)
	}
	s.SetError(errors.New("invalid credentials"))
	if snap := s.Snapshot(); snap.Loading || snap.Error != "invalid credentials" {
		t.Errorf("after SetError = %+v", snap)
	}
	s.SetLoading()
	if snap := s.Snapshot(); snap.Error != "" {
		t.Errorf("SetLoading should clear the previous error, got %q", snap.Error)
	}
}

func TestState_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := NewState(nil, nil)
	var got []domain.Session
	unsubscribe := s.Subscribe(func(snap domain.Session) { got = append(got, snap) })

	s.LoginSucceeded(ctx, "a", "r", testUser())
	s.Logout(ctx)
	unsubscribe()
	s.LoginSucceeded(ctx, "a2", "r2", testUser())

	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
	if !got[0].Authenticated() {
		t.Error("first snapshot should be authenticated")
	}
	if got[1].Authenticated() || got[1].User != nil {
		t.Errorf("second snapshot = %+v, want empty", got[1])
	}
}

func TestState_ListenerMayReadState(t *testing.T) {
	s := NewState(nil, nil)
	var seen string
	s.Subscribe(func(domain.Session) { seen = s.AccessToken() })
	s.LoginSucceeded(context.Background(), "a", "r", testUser())
	if seen != "a" {
		t.Errorf("listener read %q, want a", seen)
	}
}

// Readers racing logins and logouts never observe a user without a token or the reverse.
func TestState_NoPartialSnapshots(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	s := NewState(store, nil)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s.LoginSucceeded(ctx, "a", "r", testUser())
				s.RefreshSucceeded(ctx, "a2", "")
				s.Logout(ctx)
				s.Clear(ctx)
			}
		}()
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if (snap.User == nil) != (snap.AccessToken == "") {
			t.Fatalf("partial snapshot: %+v", snap)
		}
	}
	close(stop)
	wg.Wait()
}
