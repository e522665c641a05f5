package stores

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
	"github.com/trezcool/educloud/services"
)

type AuthActions interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (school.User, error)
}

// AuthState is persisted under the "auth-storage" key so a restart restores the signed in user.
type AuthState struct {
	User            *school.User `json:"user"`
	Tenant          string       `json:"tenant,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"-"`
	Error           string       `json:"-"`
}

type AuthStore struct {
	subscribers[AuthState]

	mu       sync.RWMutex
	state    AuthState
	svc      AuthActions
	storage  core.Storage
	loggedIn func() bool
}

// NewAuthStore returns an AuthStore. loggedIn reports whether a session token is stored;
// a snapshot without token is not restored.
func NewAuthStore(svc AuthActions, storage core.Storage, loggedIn func() bool) *AuthStore {
	return &AuthStore{svc: svc, storage: storage, loggedIn: loggedIn}
}

func (s *AuthStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *AuthStore) snapshot() AuthState {
	st := s.state
	if st.User != nil {
		usr := *st.User
		st.User = &usr
	}
	return st
}

func (s *AuthStore) update(fn func(st *AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.snapshot()
	s.mu.Unlock()
	s.notify(st)
}

// Restore loads the persisted snapshot.
func (s *AuthStore) Restore() error {
	raw, found, err := s.storage.Get(core.KeyAuthSnapshot)
	if err != nil {
		return errors.Wrap(err, "reading auth snapshot")
	}
	var st AuthState
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return errors.Wrap(err, "decoding auth snapshot")
		}
	}
	if !s.loggedIn() {
		st = AuthState{}
	}
	s.update(func(curr *AuthState) { *curr = st })
	return nil
}

func (s *AuthStore) persist() error {
	st := s.State()
	if !st.IsAuthenticated {
		return errors.Wrap(s.storage.Delete(core.KeyAuthSnapshot), "deleting auth snapshot")
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding auth snapshot")
	}
	return errors.Wrap(s.storage.Set(core.KeyAuthSnapshot, string(raw)), "storing auth snapshot")
}

func (s *AuthStore) begin() {
	s.update(func(st *AuthState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *AuthStore) fail(err error) {
	s.update(func(st *AuthState) {
		st.Loading = false
		st.Error = err.Error()
	})
}

func (s *AuthStore) signedIn(res *services.AuthResult, tenant string) error {
	if res.Tenant != nil && res.Tenant.Subdomain != "" {
		tenant = res.Tenant.Subdomain
	}
	usr := res.User
	s.update(func(st *AuthState) {
		*st = AuthState{User: &usr, Tenant: tenant, IsAuthenticated: true}
	})
	return s.persist()
}

func (s *AuthStore) Login(ctx context.Context, in services.LoginInput) error {
	s.begin()
	res, err := s.svc.Login(ctx, in)
	if err != nil {
		s.fail(err)
		return err
	}
	return s.signedIn(res, in.SchoolName)
}

func (s *AuthStore) Register(ctx context.Context, in services.RegisterInput) error {
	s.begin()
	res, err := s.svc.Register(ctx, in)
	if err != nil {
		s.fail(err)
		return err
	}
	tenant := in.Subdomain
	if tenant == "" {
		tenant = in.SchoolName
	}
	return s.signedIn(res, tenant)
}

// Logout always ends with a signed out state.
func (s *AuthStore) Logout(ctx context.Context) error {
	err := s.svc.Logout(ctx)
	if rerr := s.Reset(); err == nil {
		err = rerr
	}
	return err
}

// Reset forgets the signed in user without calling the API, eg. once a failed refresh cleared the session.
func (s *AuthStore) Reset() error {
	s.update(func(st *AuthState) { *st = AuthState{} })
	return s.persist()
}

// RefreshUser fetches the signed in user.
func (s *AuthStore) RefreshUser(ctx context.Context) (school.User, error) {
	s.begin()
	usr, err := s.svc.Me(ctx)
	if err != nil {
		s.fail(err)
		return usr, err
	}
	s.update(func(st *AuthState) {
		st.Loading = false
		st.User = &usr
		st.IsAuthenticated = true
	})
	return usr, s.persist()
}
