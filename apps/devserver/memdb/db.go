// Package memdb is the per-tenant in-memory database of the dev server.
package memdb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/school"
)

var (
	// errors
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantExists   = errors.New("a school with this subdomain already exists")
	ErrNotFound       = errors.New("record not found")
)

type (
	// Record is a resource row, as decoded from JSON.
	Record map[string]interface{}

	// Filter applies AND operation on its fields.
	// Search does a case-insensitive match on one of SearchFields.
	Filter struct {
		Search       string
		SearchFields []string
		Equals       map[string]string
		Sort         string // field name, "-" prefixed for descending order
	}

	DB struct {
		tenants map[string]*TenantDB
		mutex   sync.RWMutex
	}

	// TenantDB holds the data of one school.
	TenantDB struct {
		Info    school.Tenant
		users   map[string]*User
		tables  map[string]*table
		refresh map[string]refreshGrant
		mutex   sync.RWMutex
	}

	table struct {
		ids  []string
		rows map[string]Record
	}

	refreshGrant struct {
		userID    string
		expiresAt time.Time
	}
)

func Open() *DB {
	return &DB{tenants: make(map[string]*TenantDB)}
}

// CreateTenant registers a school under its subdomain.
func (db *DB) CreateTenant(name, subdomain string) (*TenantDB, error) {
	subdomain = core.CleanString(subdomain, true /* lower */)
	if !core.IsSubdomain(subdomain) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "subdomain", Error: "subdomain must be a valid subdomain"})
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if _, ok := db.tenants[subdomain]; ok {
		return nil, ErrTenantExists
	}
	tdb := &TenantDB{
		Info: school.Tenant{
			ID:        uuid.NewString(),
			Name:      core.CleanString(name),
			Subdomain: subdomain,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		},
		users:   make(map[string]*User),
		tables:  make(map[string]*table),
		refresh: make(map[string]refreshGrant),
	}
	db.tenants[subdomain] = tdb
	return tdb, nil
}

// Tenant returns the active school registered under subdomain.
func (db *DB) Tenant(subdomain string) (*TenantDB, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	tdb, ok := db.tenants[core.CleanString(subdomain, true /* lower */)]
	if !ok || !tdb.Info.IsActive {
		return nil, ErrTenantNotFound
	}
	return tdb, nil
}

func (tdb *TenantDB) table(name string) *table {
	t, ok := tdb.tables[name]
	if !ok {
		t = &table{rows: make(map[string]Record)}
		tdb.tables[name] = t
	}
	return t
}

// Insert stores rec in the named table, assigning it an "id" if it has none.
func (tdb *TenantDB) Insert(name string, rec Record) Record {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	rec = rec.clone()
	id := rec.ID()
	if id == "" {
		id = uuid.NewString()
		rec["id"] = id
	}
	t := tdb.table(name)
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = rec
	return rec.clone()
}

func (tdb *TenantDB) Get(name, id string) (Record, error) {
	tdb.mutex.RLock()
	defer tdb.mutex.RUnlock()

	if t, ok := tdb.tables[name]; ok {
		if rec, ok := t.rows[id]; ok {
			return rec.clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Update merges patch into the stored record. The "id" cannot be changed.
func (tdb *TenantDB) Update(name, id string, patch Record) (Record, error) {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	t, ok := tdb.tables[name]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := t.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range patch {
		if k != "id" {
			rec[k] = v
		}
	}
	return rec.clone(), nil
}

func (tdb *TenantDB) Delete(name, id string) error {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	t, ok := tdb.tables[name]
	if !ok {
		return ErrNotFound
	}
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	for i, rid := range t.ids {
		if rid == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Query returns the records of the named table matching filter, in insertion order unless sorted.
func (tdb *TenantDB) Query(name string, filter Filter) []Record {
	tdb.mutex.RLock()
	defer tdb.mutex.RUnlock()

	res := make([]Record, 0)
	t, ok := tdb.tables[name]
	if !ok {
		return res
	}
	search := strings.ToLower(core.CleanString(filter.Search))
	for _, id := range t.ids {
		rec := t.rows[id]
		if rec.matches(filter.Equals) && rec.contains(search, filter.SearchFields) {
			res = append(res, rec.clone())
		}
	}

	if field := strings.TrimPrefix(filter.Sort, "-"); field != "" {
		desc := strings.HasPrefix(filter.Sort, "-")
		sort.SliceStable(res, func(i, j int) bool {
			if desc {
				return res[j].String(field) < res[i].String(field)
			}
			return res[i].String(field) < res[j].String(field)
		})
	}
	return res
}

// ID is the record "id" field.
func (rec Record) ID() string {
	return rec.String("id")
}

// String formats a field of the record, "" if it is missing or null.
func (rec Record) String(field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns a numeric field of the record, 0 if it is not a number.
func (rec Record) Float(field string) float64 {
	switch v := rec[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func (rec Record) matches(equals map[string]string) bool {
	for field, want := range equals {
		if !strings.EqualFold(rec.String(field), want) {
			return false
		}
	}
	return true
}

func (rec Record) contains(search string, fields []string) bool {
	if search == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(rec.String(field)), search) {
			return true
		}
	}
	return false
}

func (rec Record) clone() Record {
	c := make(Record, len(rec))
	for k, v := range rec {
		c[k] = v
	}
	return c
}

// ToRecord converts any JSON encodable value to a Record.
func ToRecord(v interface{}) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	rec := make(Record)
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return rec, nil
}

// GrantRefresh issues an opaque refresh token for a user.
func (tdb *TenantDB) GrantRefresh(userID string, ttl time.Duration) string {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	token := uuid.NewString()
	tdb.refresh[token] = refreshGrant{userID: userID, expiresAt: time.Now().Add(ttl)}
	return token
}

// ConsumeRefresh revokes a refresh token and returns the user it was issued to.
func (tdb *TenantDB) ConsumeRefresh(token string) (string, error) {
	tdb.mutex.Lock()
	defer tdb.mutex.Unlock()

	grant, ok := tdb.refresh[token]
	if !ok {
		return "", ErrNotFound
	}
	delete(tdb.refresh, token)
	if time.Now().After(grant.expiresAt) {
		return "", ErrNotFound
	}
	return grant.userID, nil
}
