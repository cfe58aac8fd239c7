package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/hasher"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory users.Repository with a unique email index.
type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	clock time.Time

	// failWith, when set, is returned by every call.
	failWith error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memUsers) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrDuplicateIdentity
		}
	}
	cp := *u
	cp.CreatedAt = m.tick()
	cp.UpdatedAt = cp.CreatedAt
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memUsers) FindMany(context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]*models.User, 0, len(m.byID))
	for _, u := range m.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id string, upd models.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	if upd.Email != nil {
		for _, other := range m.byID {
			if other.ID != id && other.Email == *upd.Email {
				return common.ErrDuplicateIdentity
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = m.tick()
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type fakeRepoManager struct {
	users *memUsers
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository           { return f.users }

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	users  *memUsers
	now    time.Time
	issuer *tokens.Issuer
	auth   *AuthService
	svc    *UserService
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	h, err := hasher.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}

	f := &fixture{db: db, mock: mock, users: newMemUsers(), now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.issuer, err = tokens.NewIssuer(tokens.Config{AccessSecret: "access", RefreshSecret: "refresh"}, tokens.WithClock(f.clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	rm := &fakeRepoManager{users: f.users}
	f.auth = NewAuthService(db, rm, h, f.issuer)
	f.svc = NewUserService(db, rm, h)
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *models.UserSummary {
	t.Helper()
	u, err := f.svc.Create(context.Background(), CreateUserInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Create(%s): %v", email, err)
	}
	return u
}
