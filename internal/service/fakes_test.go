package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func testClock() Clock {
	return Clock{Now: func() time.Time { return testNow }, Location: time.UTC}
}

func day(offset int) time.Time {
	return model.DateOf(testNow).AddDate(0, 0, offset)
}

func dayStr(offset int) string {
	return day(offset).Format(time.DateOnly)
}

// memTx сериализует транзакции целиком, как блокировки строк в БД
type memTx struct {
	mu sync.Mutex
}

type memTxKey struct{}

func (m *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

// memStore одно хранилище на все интерфейсы сервисов
type memStore struct {
	mu           sync.Mutex
	users        map[int64]*model.User
	slots        map[int64]*model.TimeSlot
	appointments map[int64]*model.Appointment
	settings     map[string]string
	nextID       int64

	failWith error // если задано, все вызовы возвращают эту ошибку
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*model.User),
		slots:        make(map[int64]*model.TimeSlot),
		appointments: make(map[int64]*model.Appointment),
		settings:     make(map[string]string),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(role model.Role) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	u := &model.User{ID: id, Name: "User", Email: fmt.Sprintf("%s-%d@example.com", role, id), Role: role, IsActive: true}
	s.users[id] = u
	return u
}

func (s *memStore) addSlot(offset int, start string, capacity int) *model.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := model.ParseTimeOfDay(start)
	slot := &model.TimeSlot{
		ID:          s.id(),
		Date:        day(offset),
		StartTime:   st,
		EndTime:     st + model.TimeOfDay(30*time.Minute),
		Capacity:    capacity,
		IsAvailable: true,
	}
	s.slots[slot.ID] = slot
	return slot
}

func (s *memStore) addAppointment(userID int64, slot *model.TimeSlot, status model.AppointmentStatus) *model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &model.Appointment{
		ID:         s.id(),
		UserID:     userID,
		TimeSlotID: slot.ID,
		Date:       slot.Date,
		Time:       slot.StartTime,
		Reason:     "checkup",
		Status:     status,
	}
	s.appointments[a.ID] = a
	return a
}

func (s *memStore) activeCount(slotID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.appointments {
		if a.TimeSlotID == slotID && a.Status.IsActive() {
			n++
		}
	}
	return n
}

// SlotCatalog

type memSlots struct{ *memStore }

func (s memSlots) GetByID(_ context.Context, id int64) (*model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if slot, ok := s.slots[id]; ok {
		cp := *slot
		return &cp, nil
	}
	return nil, nil
}

func (s memSlots) LockByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	return s.GetByID(ctx, id)
}

func (s memSlots) GetByDate(_ context.Context, date time.Time) ([]*model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []*model.TimeSlot
	for _, slot := range s.slots {
		if slot.Date.Equal(date) {
			cp := *slot
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memSlots) Create(_ context.Context, slot *model.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	slot.ID = s.id()
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

// BookingLedger

type memLedger struct{ *memStore }

func (l memLedger) Create(_ context.Context, a *model.Appointment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	for _, other := range l.appointments {
		if other.UserID == a.UserID && other.TimeSlotID == a.TimeSlotID &&
			other.Date.Equal(a.Date) && other.Status.IsActive() {
			return repository.ErrActiveDuplicate
		}
	}
	a.ID = l.id()
	a.CreatedAt = testNow
	a.UpdatedAt = testNow
	cp := *a
	l.appointments[a.ID] = &cp
	return nil
}

func (l memLedger) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	if a, ok := l.appointments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (l memLedger) LockByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return l.GetByID(ctx, id)
}

func (l memLedger) CountActiveBySlot(_ context.Context, slotID int64) (int, error) {
	if l.failWith != nil {
		return 0, l.failWith
	}
	return l.activeCount(slotID), nil
}

func (l memLedger) CountActiveBySlots(ctx context.Context, slotIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(slotIDs))
	for _, id := range slotIDs {
		n, err := l.CountActiveBySlot(ctx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (l memLedger) CountActiveByUserFrom(_ context.Context, userID int64, from time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return 0, l.failWith
	}
	n := 0
	for _, a := range l.appointments {
		if a.UserID == userID && a.Status.IsActive() && !a.Date.Before(from) {
			n++
		}
	}
	return n, nil
}

func (l memLedger) ExistsActive(_ context.Context, userID, slotID int64, date time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return false, l.failWith
	}
	for _, a := range l.appointments {
		if a.UserID == userID && a.TimeSlotID == slotID && a.Date.Equal(date) && a.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (l memLedger) ApplyStatusChange(_ context.Context, ch *model.StatusChange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	a, ok := l.appointments[ch.AppointmentID]
	if !ok || a.Status != ch.From {
		return repository.ErrStatusConflict
	}
	a.Status = ch.To
	a.Notes = ch.Notes
	a.UpdatedAt = ch.UpdatedAt
	if ch.ConfirmedBy != nil {
		a.ConfirmedBy = ch.ConfirmedBy
	}
	if ch.ConfirmedAt != nil {
		a.ConfirmedAt = ch.ConfirmedAt
	}
	return nil
}

func (l memLedger) match(a *model.Appointment, f model.AppointmentFilter, withStatus bool) bool {
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if withStatus && f.Status != "" && a.Status != f.Status {
		return false
	}
	switch f.DateRange {
	case model.DateRangeToday:
		if !a.Date.Equal(f.Today) {
			return false
		}
	case model.DateRangeUpcoming:
		if a.Date.Before(f.Today) {
			return false
		}
	case model.DateRangePast:
		if !a.Date.Before(f.Today) {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.Reason), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (l memLedger) List(_ context.Context, f model.AppointmentFilter, page model.Page) ([]*model.Appointment, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, 0, l.failWith
	}
	var all []*model.Appointment
	for _, a := range l.appointments {
		if l.match(a, f, true) {
			cp := *a
			all = append(all, &cp)
		}
	}
	total := len(all)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return all[page.Offset:end], total, nil
}

func (l memLedger) CountByStatus(_ context.Context, f model.AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	out := make(map[model.AppointmentStatus]int)
	for _, a := range l.appointments {
		if l.match(a, f, false) {
			out[a.Status]++
		}
	}
	return out, nil
}

// UserStore

type memUsers struct{ *memStore }

func (u memUsers) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return u.failWith
	}
	for _, other := range u.users {
		if other.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = u.id()
	user.CreatedAt = testNow
	cp := *user
	u.users[user.ID] = &cp
	return nil
}

func (u memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return nil, u.failWith
	}
	if user, ok := u.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, nil
}

func (u memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return nil, u.failWith
	}
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (u memUsers) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return nil, u.failWith
	}
	for _, user := range u.users {
		if user.TelegramID != nil && *user.TelegramID == telegramID {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (u memUsers) LockByID(ctx context.Context, id int64) (*model.User, error) {
	return u.GetByID(ctx, id)
}

func (u memUsers) SetTelegramID(_ context.Context, userID, telegramID int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failWith != nil {
		return u.failWith
	}
	for _, user := range u.users {
		if user.TelegramID != nil && *user.TelegramID == telegramID {
			user.TelegramID = nil
		}
	}
	user, ok := u.users[userID]
	if !ok {
		return errUserMissing
	}
	tg := telegramID
	user.TelegramID = &tg
	return nil
}

var errUserMissing = errors.New("user not found")

// SettingsStore

type memSettings struct{ *memStore }

func (s memSettings) GetAll(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

type staticSettings model.SystemSettings

func (s staticSettings) Current() model.SystemSettings {
	return model.SystemSettings(s)
}

// testEnv собранные сервисы поверх memStore
type testEnv struct {
	store        *memStore
	booking      *BookingService
	lifecycle    *LifecycleService
	availability *AvailabilityService
	queries      *AppointmentQueryService
	users        *UserService
	slots        *SlotService
}

func newTestEnv(t *testing.T, settings model.SystemSettings) *testEnv {
	t.Helper()

	store := newMemStore()
	tx := &memTx{}
	clock := testClock()
	logger := zap.NewNop()

	return &testEnv{
		store:        store,
		booking:      NewBookingService(tx, memUsers{store}, memSlots{store}, memLedger{store}, staticSettings(settings), clock, nil, logger),
		lifecycle:    NewLifecycleService(tx, memLedger{store}, clock, nil, logger),
		availability: NewAvailabilityService(memSlots{store}, memLedger{store}, clock, logger),
		queries:      NewAppointmentQueryService(memLedger{store}, memSlots{store}, clock, logger),
		users:        NewUserService(tx, memUsers{store}, logger),
		slots:        NewSlotService(memSlots{store}, clock, logger),
	}
}

func patient(u *model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role}
}
