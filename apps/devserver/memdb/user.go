package memdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("a user with this email already exists")
)

// User is a school account with its password hash.
type User struct {
	school.User
	PasswordHash []byte `json:"-"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=super_admin admin accountant teacher driver parent student"`
}

func (tdb *TenantDB) CreateUser(nu NewUser) (User, error) {
	email := core.CleanString(nu.Email, true /* lower */)
	role := nu.Role
	if role == "" {
		role = school.RoleStudent
	}
	usr := User{User: school.User{
		ID:        uuid.NewString(),
		Name:      core.CleanString(nu.Name),
		Email:     email,
		Role:      role,
		IsActive:  true,
		Tenant:    tdb.Info.Subdomain,
		CreatedAt: time.Now().UTC(),
	}}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	for _, u := range tdb.users {
		if u.Email == email {
			return User{}, ErrEmailExists
		}
	}
	tdb.users[usr.ID] = &usr
	return usr, nil
}

func (tdb *TenantDB) UserByID(id string) (User, error) {
	tdb.mutex.RLock()
	defer tdb.mutex.RUnlock()

	if usr, ok := tdb.users[id]; ok {
		return *usr, nil
	}
	return User{}, ErrUserNotFound
}

func (tdb *TenantDB) UserByEmail(email string) (User, error) {
	email = core.CleanString(email, true /* lower */)

	tdb.mutex.RLock()
	defer tdb.mutex.RUnlock()

	for _, usr := range tdb.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return User{}, ErrUserNotFound
}

// SaveUser replaces the stored user with usr.
func (tdb *TenantDB) SaveUser(usr User) error {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	if _, ok := tdb.users[usr.ID]; !ok {
		return ErrUserNotFound
	}
	tdb.users[usr.ID] = &usr
	return nil
}
