package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/controller/state"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type apiCall struct {
	method string
	body   string
}

// fakeTelegram записывает вызовы Bot API и отвечает успехом
type fakeTelegram struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText":
		io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":100,"type":"private"}}}`)
	default:
		io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeTelegram) sent(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c.body)
		}
	}
	return out
}

// lastMessage тело последнего sendMessage
func (f *fakeTelegram) lastMessage(t *testing.T) string {
	t.Helper()
	msgs := f.sent("sendMessage")
	if len(msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return msgs[len(msgs)-1]
}

type stubAccounts struct {
	users   map[int64]*model.User
	linkErr error
	linked  []string
}

func (s *stubAccounts) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	return s.users[telegramID], nil
}

func (s *stubAccounts) LinkTelegram(_ context.Context, telegramID int64, email, password string) (*model.User, error) {
	s.linked = append(s.linked, email+" "+password)
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	u := &model.User{ID: 1, Email: email, Role: model.RolePatient}
	s.users[telegramID] = u
	return u, nil
}

type stubBooker struct {
	req service.BookingRequest
	who model.Principal
	err error
}

func (s *stubBooker) RequestBooking(_ context.Context, p model.Principal, req service.BookingRequest) (*model.Appointment, error) {
	s.who, s.req = p, req
	if s.err != nil {
		return nil, s.err
	}
	date, _ := model.ParseDate(req.Date)
	return &model.Appointment{ID: 55, UserID: p.UserID, Date: date, Reason: req.Reason, Status: model.AppointmentStatusPending}, nil
}

type stubCanceller struct {
	id     int64
	reason string
	err    error
}

func (s *stubCanceller) Cancel(_ context.Context, p model.Principal, id int64, reason string) (*model.Appointment, error) {
	s.id, s.reason = id, reason
	if s.err != nil {
		return nil, s.err
	}
	return &model.Appointment{ID: id, UserID: p.UserID, Date: today.AddDate(0, 0, 2), Status: model.AppointmentStatusCancelled}, nil
}

type stubSlots struct {
	items []model.SlotAvailability
	err   error
	date  string
}

func (s *stubSlots) ListAvailableSlots(_ context.Context, date string) ([]model.SlotAvailability, error) {
	s.date = date
	return s.items, s.err
}

type stubLister struct {
	page   *service.AppointmentPage
	filter model.AppointmentFilter
}

func (s *stubLister) ListForUser(_ context.Context, _ model.Principal, f model.AppointmentFilter, _ int) (*service.AppointmentPage, error) {
	s.filter = f
	return s.page, nil
}

type stubCalendar struct{ days int }

func (c stubCalendar) Today() time.Time { return today }
func (c stubCalendar) AdvanceDays() int { return c.days }

type botEnv struct {
	h         *Handlers
	b         *bot.Bot
	tg        *fakeTelegram
	accounts  *stubAccounts
	booker    *stubBooker
	canceller *stubCanceller
	slots     *stubSlots
	lister    *stubLister
	states    *state.Manager
}

const patientTG = 100

func newBotEnv(t *testing.T) *botEnv {
	t.Helper()

	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test-token", bot.WithSkipGetMe(), bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}

	env := &botEnv{
		b:  b,
		tg: tg,
		accounts: &stubAccounts{users: map[int64]*model.User{
			patientTG: {ID: 1, Name: "Анна", Email: "anna@example.com", Role: model.RolePatient, IsActive: true},
		}},
		booker:    &stubBooker{},
		canceller: &stubCanceller{},
		slots:     &stubSlots{},
		lister:    &stubLister{},
		states:    state.NewManager(time.Minute),
	}

	env.h = NewHandlers(Deps{
		Accounts:     env.accounts,
		Booking:      env.booker,
		Canceller:    env.canceller,
		Slots:        env.slots,
		Appointments: env.lister,
		Calendar:     stubCalendar{days: 30},
		StateManager: env.states,
		Logger:       zap.NewNop(),
	})

	return env
}

func message(telegramID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   10,
		From: &models.User{ID: telegramID},
		Chat: models.Chat{ID: telegramID},
		Text: text,
	}}
}

func press(telegramID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-1",
		From: models.User{ID: telegramID},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 5, Chat: models.Chat{ID: telegramID}},
		},
	}}
}

func TestStartUnlinked(t *testing.T) {
	env := newBotEnv(t)

	env.h.HandleStart(context.Background(), env.b, message(777, "/start"))

	if got := env.tg.lastMessage(t); !strings.Contains(got, "/link email") {
		t.Errorf("expected link instructions, got %s", got)
	}
}

func TestLinkDeletesPasswordMessage(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.h.HandleLink(ctx, env.b, message(777, "/link bob@example.com secret123"))

	if len(env.tg.sent("deleteMessage")) != 1 {
		t.Error("message with password was not deleted")
	}
	if len(env.accounts.linked) != 1 || env.accounts.linked[0] != "bob@example.com secret123" {
		t.Errorf("linked = %v", env.accounts.linked)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "привязана") {
		t.Errorf("reply = %s", got)
	}

	env.accounts.linkErr = &service.BookingError{Kind: service.KindForbidden, Message: "Invalid email or password."}
	env.h.HandleLink(ctx, env.b, message(778, "/link bob@example.com wrong"))
	if got := env.tg.lastMessage(t); !strings.Contains(got, "Неверный email или пароль") {
		t.Errorf("reply = %s", got)
	}

	env.h.HandleLink(ctx, env.b, message(778, "/link only-email"))
	if got := env.tg.lastMessage(t); !strings.Contains(got, "Формат команды") {
		t.Errorf("reply = %s", got)
	}
}

func TestBookingDialog(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.h.HandleCallbackQuery(ctx, env.b, press(patientTG, "book:42:2026-03-12"))
	if got := env.states.GetState(patientTG); got != state.StateBookingReason {
		t.Fatalf("state = %q", got)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "причину визита") {
		t.Errorf("prompt = %s", got)
	}

	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "Головная боль"))

	req := env.booker.req
	if req.SlotID != 42 || req.Date != "2026-03-12" || req.Reason != "Головная боль" {
		t.Errorf("request = %+v", req)
	}
	if env.booker.who != (model.Principal{UserID: 1, Role: model.RolePatient}) {
		t.Errorf("principal = %+v", env.booker.who)
	}
	if got := env.states.GetState(patientTG); got != state.StateNone {
		t.Errorf("state after booking = %q", got)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "Запись создана") || !strings.Contains(got, "#55") {
		t.Errorf("reply = %s", got)
	}
}

func TestBookingDialogErrors(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.h.HandleCallbackQuery(ctx, env.b, press(patientTG, "book:42:2026-03-12"))

	// Некорректная причина: диалог продолжается
	env.booker.err = &service.BookingError{Kind: service.KindInvalidInput, Message: "Please provide a reason for your appointment."}
	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "   "))
	if got := env.states.GetState(patientTG); got != state.StateBookingReason {
		t.Fatalf("state after invalid reason = %q", got)
	}

	env.booker.err = &service.BookingError{Kind: service.KindSlotFull, Message: "Selected time slot is fully booked."}
	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "Кашель"))
	if got := env.states.GetState(patientTG); got != state.StateNone {
		t.Errorf("state after slot full = %q", got)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "мест больше нет") {
		t.Errorf("reply = %s", got)
	}
}

func TestBookingRequiresLinkedAccount(t *testing.T) {
	env := newBotEnv(t)

	env.h.HandleCallbackQuery(context.Background(), env.b, press(777, "book:42:2026-03-12"))

	if got := env.states.GetState(777); got != state.StateNone {
		t.Errorf("state for unlinked user = %q", got)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "/link") {
		t.Errorf("reply = %s", got)
	}
}

func TestCancelDialogSkipReason(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.h.HandleCallbackQuery(ctx, env.b, press(patientTG, "cancel_appt:7"))
	if got := env.states.GetState(patientTG); got != state.StateCancelReason {
		t.Fatalf("state = %q", got)
	}

	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "/skip"))

	if env.canceller.id != 7 || env.canceller.reason != "" {
		t.Errorf("cancel(%d, %q)", env.canceller.id, env.canceller.reason)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "Запись отменена") {
		t.Errorf("reply = %s", got)
	}
}

func TestCancelDialogPastAppointment(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.canceller.err = &service.BookingError{Kind: service.KindDateOutOfRange, Message: "Cannot cancel appointments that have already passed."}

	env.h.HandleCallbackQuery(ctx, env.b, press(patientTG, "cancel_appt:3"))
	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "Передумал"))

	if env.canceller.reason != "Передумал" {
		t.Errorf("reason = %q", env.canceller.reason)
	}
	if got := env.tg.lastMessage(t); !strings.Contains(got, "отменить нельзя") {
		t.Errorf("reply = %s", got)
	}
}

func TestCancelCommandAbortsDialog(t *testing.T) {
	env := newBotEnv(t)
	ctx := context.Background()

	env.h.HandleCancel(ctx, env.b, message(patientTG, "/cancel"))
	if got := env.tg.lastMessage(t); !strings.Contains(got, "Нет активных операций") {
		t.Errorf("reply = %s", got)
	}

	env.h.HandleCallbackQuery(ctx, env.b, press(patientTG, "book:42:2026-03-12"))
	env.h.HandleCancel(ctx, env.b, message(patientTG, "/cancel"))

	if got := env.states.GetState(patientTG); got != state.StateNone {
		t.Errorf("state = %q", got)
	}

	// Текст вне диалога игнорируется
	env.h.HandleTextMessage(ctx, env.b, message(patientTG, "Головная боль"))
	if env.booker.req.SlotID != 0 {
		t.Error("booking made outside of dialog")
	}
}

func TestMyAppointmentsCancelButtons(t *testing.T) {
	env := newBotEnv(t)

	env.lister.page = &service.AppointmentPage{
		Items: []*model.Appointment{
			{ID: 1, Date: today.AddDate(0, 0, 2), Reason: "Осмотр", Status: model.AppointmentStatusPending},
			{ID: 2, Date: today, Reason: "Анализы", Status: model.AppointmentStatusConfirmed},
			{ID: 3, Date: today.AddDate(0, 0, 5), Reason: "Консультация", Status: model.AppointmentStatusCancelled},
		},
		Total:      3,
		Page:       1,
		TotalPages: 1,
	}

	env.h.HandleMyAppointments(context.Background(), env.b, message(patientTG, "/myappointments"))

	if env.lister.filter.DateRange != model.DateRangeUpcoming {
		t.Errorf("filter = %+v", env.lister.filter)
	}

	got := env.tg.lastMessage(t)
	if !strings.Contains(got, "3 записи") {
		t.Errorf("missing count: %s", got)
	}
	if !strings.Contains(got, "cancel_appt:1") {
		t.Error("future pending appointment has no cancel button")
	}
	if strings.Contains(got, "cancel_appt:2") || strings.Contains(got, "cancel_appt:3") {
		t.Error("cancel button for same-day or cancelled appointment")
	}
}

func TestSlotsForDate(t *testing.T) {
	env := newBotEnv(t)

	start, _ := model.ParseTimeOfDay("09:00")
	end, _ := model.ParseTimeOfDay("09:30")
	env.slots.items = []model.SlotAvailability{{
		Slot:      &model.TimeSlot{ID: 4, Date: today.AddDate(0, 0, 2), StartTime: start, EndTime: end, Capacity: 3},
		Available: 2,
	}}

	env.h.HandleSlots(context.Background(), env.b, message(patientTG, "/slots 12.03.2026"))

	if env.slots.date != "2026-03-12" {
		t.Errorf("date = %q", env.slots.date)
	}
	got := env.tg.lastMessage(t)
	for _, want := range []string{"book:4:2026-03-12", "свободно 2 места", "12.03.2026 (Чт)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %s", want, got)
		}
	}
}

func TestDayPickerLimitedToWindow(t *testing.T) {
	env := newBotEnv(t)

	count := func() int {
		n := 0
		for _, row := range env.h.dayPicker().InlineKeyboard {
			n += len(row)
		}
		return n
	}

	if got := count(); got != maxPickerDays {
		t.Errorf("buttons = %d, want %d", got, maxPickerDays)
	}

	env.h.calendar = stubCalendar{days: 3}
	if got := count(); got != 4 {
		t.Errorf("buttons = %d, want 4 (today plus 3 days)", got)
	}

	first := env.h.dayPicker().InlineKeyboard[0][0]
	if first.CallbackData != "day:2026-03-10" {
		t.Errorf("first day = %q", first.CallbackData)
	}
}

func TestParseBook(t *testing.T) {
	id, date, err := parseBook(bookData(42, today))
	if err != nil || id != 42 || !date.Equal(today) {
		t.Errorf("parseBook = %d, %v, %v", id, date, err)
	}

	for _, bad := range []string{"book:", "book:x:2026-03-10", "book:1:10.03.2026", "book:1:2:3"} {
		if _, _, err := parseBook(bad); err == nil {
			t.Errorf("parseBook(%q) expected error", bad)
		}
	}
}

func TestErrorTextCoversKinds(t *testing.T) {
	kinds := []service.ErrorKind{
		service.KindInvalidInput,
		service.KindDateOutOfRange,
		service.KindSlotNotFound,
		service.KindSlotFull,
		service.KindDuplicateBooking,
		service.KindCapacityExceeded,
		service.KindInvalidTransition,
		service.KindForbidden,
		service.KindNotFound,
	}

	for _, kind := range kinds {
		if got := errorText(&service.BookingError{Kind: kind}); got == msgInternalError {
			t.Errorf("%s falls back to generic message", kind)
		}
	}
	if got := errorText(io.ErrUnexpectedEOF); got != msgInternalError {
		t.Errorf("unknown error text = %q", got)
	}
}
