package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Форматы callback data
const (
	CallbackDays       = "days"         // вернуться к выбору дня
	CallbackDay        = "day:"         // day:2026-03-12
	CallbackBook       = "book:"        // book:slot_id:2026-03-12
	CallbackCancelAppt = "cancel_appt:" // cancel_appt:appointment_id
	CallbackNoop       = "noop"
)

const callbackDateLayout = "2006-01-02"

// HandleCallbackQuery распределяет нажатия inline кнопок
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	h.logger.Debug("Routing callback",
		zap.String("data", cb.Data),
		zap.Int64("telegram_id", cb.From.ID))

	data := cb.Data
	switch {
	case data == CallbackNoop:
		h.answerCallback(ctx, b, cb.ID, "", false)
	case data == CallbackDays:
		h.handleDaysCallback(ctx, b, cb)
	case strings.HasPrefix(data, CallbackDay):
		h.handleDayCallback(ctx, b, cb)
	case strings.HasPrefix(data, CallbackBook):
		h.handleBookCallback(ctx, b, cb)
	case strings.HasPrefix(data, CallbackCancelAppt):
		h.handleCancelCallback(ctx, b, cb)
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		h.answerCallback(ctx, b, cb.ID, "❌ Неизвестное действие", true)
	}
}

// callbackChat чат и сообщение, к которым привязана кнопка
func callbackChat(cb *models.CallbackQuery) (chatID int64, messageID int, ok bool) {
	if cb.Message.Message == nil {
		return 0, 0, false
	}
	return cb.Message.Message.Chat.ID, cb.Message.Message.ID, true
}

func dayData(date time.Time) string {
	return CallbackDay + date.Format(callbackDateLayout)
}

func bookData(slotID int64, date time.Time) string {
	return fmt.Sprintf("%s%d:%s", CallbackBook, slotID, date.Format(callbackDateLayout))
}

func cancelData(appointmentID int64) string {
	return fmt.Sprintf("%s%d", CallbackCancelAppt, appointmentID)
}

// parseDay day:2026-03-12 -> дата
func parseDay(data string) (time.Time, error) {
	return model.ParseDate(strings.TrimPrefix(data, CallbackDay))
}

// parseBook book:42:2026-03-12 -> slot_id, дата
func parseBook(data string) (int64, time.Time, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return 0, time.Time{}, fmt.Errorf("invalid callback data %q", data)
	}

	slotID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid slot id: %w", err)
	}

	date, err := model.ParseDate(parts[2])
	if err != nil {
		return 0, time.Time{}, err
	}

	return slotID, date, nil
}

// parseID cancel_appt:123 -> 123
func parseID(data, prefix string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
}
