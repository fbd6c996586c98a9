package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"timeclock_backend/internal/models"
	"timeclock_backend/internal/repositories"
)

// In-memory repository fakes shared by the service tests. They mirror the
// Postgres semantics the real repositories rely on, in particular the
// unique index backing the check-in replay guard.

type fakeStoreSecretRepo struct {
	stores  map[int64]bool
	secrets map[int64]*models.StoreSecret
	getErr  error
}

func newFakeStoreSecretRepo() *fakeStoreSecretRepo {
	return &fakeStoreSecretRepo{
		stores:  map[int64]bool{},
		secrets: map[int64]*models.StoreSecret{},
	}
}

func (f *fakeStoreSecretRepo) provision(storeID int64, secret []byte, generation int64) {
	f.stores[storeID] = true
	f.secrets[storeID] = &models.StoreSecret{
		StoreID:    storeID,
		Secret:     secret,
		Generation: generation,
		CreatedAt:  time.Now(),
		RotatedAt:  time.Now(),
	}
}

func (f *fakeStoreSecretRepo) GetByStoreID(storeID int64) (*models.StoreSecret, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	secret, ok := f.secrets[storeID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	snapshot := *secret
	return &snapshot, nil
}

func (f *fakeStoreSecretRepo) Rotate(_ repositories.SQLExecutor, storeID int64, newSecret []byte) (*models.StoreSecret, error) {
	if !f.stores[storeID] {
		return nil, repositories.ErrNotFound
	}
	existing, ok := f.secrets[storeID]
	generation := int64(1)
	if ok {
		generation = existing.Generation + 1
	}
	f.provision(storeID, newSecret, generation)
	snapshot := *f.secrets[storeID]
	return &snapshot, nil
}

func (f *fakeStoreSecretRepo) StoreExists(storeID int64) (bool, error) {
	return f.stores[storeID], nil
}

type replayKey struct {
	userID     int64
	storeID    int64
	entryType  string
	timeWindow int64
}

type fakeTimeEntryRepo struct {
	entries []models.TimeEntry
	seen    map[replayKey]bool
	nextID  int64
}

func newFakeTimeEntryRepo() *fakeTimeEntryRepo {
	return &fakeTimeEntryRepo{seen: map[replayKey]bool{}, nextID: 1}
}

func (f *fakeTimeEntryRepo) Create(_ repositories.SQLExecutor, entry *models.TimeEntry) (*models.TimeEntry, error) {
	key := replayKey{entry.UserID, entry.StoreID, entry.EntryType, entry.TimeWindow}
	if f.seen[key] {
		return nil, fmt.Errorf("time entry insert: %w", repositories.ErrDuplicateKey)
	}
	f.seen[key] = true

	stored := *entry
	stored.ID = f.nextID
	f.nextID++
	f.entries = append(f.entries, stored)

	created := stored
	return &created, nil
}

func (f *fakeTimeEntryRepo) GetByRange(storeID, userID int64, from, to time.Time) ([]models.TimeEntry, error) {
	var out []models.TimeEntry
	for _, e := range f.entries {
		if e.StoreID != storeID || e.UserID != userID {
			continue
		}
		if e.RecordedAt.Before(from) || !e.RecordedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (f *fakeTimeEntryRepo) GetLatest(storeID, userID int64) (*models.TimeEntry, error) {
	var latest *models.TimeEntry
	for i := range f.entries {
		e := &f.entries[i]
		if e.StoreID != storeID || e.UserID != userID {
			continue
		}
		if latest == nil || e.RecordedAt.After(latest.RecordedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	snapshot := *latest
	return &snapshot, nil
}

type fakeShiftRepo struct {
	shifts []models.Shift
}

func (f *fakeShiftRepo) GetForDate(storeID, userID int64, date time.Time) ([]models.Shift, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []models.Shift
	for _, s := range f.shifts {
		if s.StoreID != storeID || s.UserID != userID {
			continue
		}
		if s.StartTime.Before(dayStart) || !s.StartTime.Before(dayEnd) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeAuthRepo struct {
	users  map[int64]*models.User
	hashes map[int64]string
	roles  map[string]*models.Role
	nextID int64
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:  map[int64]*models.User{},
		hashes: map[int64]string{},
		roles: map[string]*models.Role{
			"owner":   {ID: 1, Name: models.RoleOwner},
			"manager": {ID: 2, Name: models.RoleManager},
			"staff":   {ID: 3, Name: models.RoleStaff},
		},
		nextID: 1,
	}
}

func (f *fakeAuthRepo) addUser(username, hash, roleName string, active bool) int64 {
	id := f.nextID
	f.nextID++
	role := f.roles[strings.ToLower(roleName)]
	f.users[id] = &models.User{
		ID:       id,
		Username: username,
		RoleID:   &role.ID,
		IsActive: active,
		Role:     role,
	}
	f.hashes[id] = hash
	return id
}

func (f *fakeAuthRepo) CreateUser(_ repositories.SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return 0, repositories.ErrDuplicateKey
		}
	}
	roleName := models.RoleStaff
	if user.RoleID != nil {
		for _, role := range f.roles {
			if role.ID == *user.RoleID {
				roleName = role.Name
			}
		}
	}
	return f.addUser(user.Username, hashedPassword, roleName, true), nil
}

func (f *fakeAuthRepo) FindUserByUsername(username string) (*models.User, string, error) {
	for id, user := range f.users {
		if user.Username == username {
			snapshot := *user
			return &snapshot, f.hashes[id], nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (f *fakeAuthRepo) FindUserByID(userID int64) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	snapshot := *user
	return &snapshot, nil
}

func (f *fakeAuthRepo) FindRoleByName(name string) (*models.Role, error) {
	role, ok := f.roles[strings.ToLower(name)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return role, nil
}

type fakeSettingsRepo struct {
	values map[string]string
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: map[string]string{}}
}

func (f *fakeSettingsRepo) GetByKey(key string) (*models.ApplicationSetting, error) {
	value, ok := f.values[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	v := value
	return &models.ApplicationSetting{SettingKey: key, SettingValue: &v}, nil
}

func (f *fakeSettingsRepo) Upsert(_ repositories.SQLExecutor, setting *models.ApplicationSetting) (*models.ApplicationSetting, error) {
	if setting.SettingValue == nil {
		delete(f.values, setting.SettingKey)
	} else {
		f.values[setting.SettingKey] = *setting.SettingValue
	}
	return setting, nil
}
