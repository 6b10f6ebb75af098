package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/controller/formatting"
	"github.com/Freeeeeet/clinic_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/clinic_booking/internal/controller/state"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleMyAppointments /myappointments показывает предстоящие записи пациента
func (h *Handlers) HandleMyAppointments(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	user, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID)
	if !ok {
		return
	}

	page, err := h.appointments.ListForUser(ctx, principalOf(user),
		model.AppointmentFilter{DateRange: model.DateRangeUpcoming}, 1)
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	if len(page.Items) == 0 {
		h.sendMessage(ctx, b, chatID, "📋 У вас нет предстоящих записей.\n\nЗаписаться: /slots", nil)
		return
	}

	today := h.calendar.Today()
	kb := keyboard.NewBuilder()
	cards := make([]string, 0, len(page.Items))

	for _, a := range page.Items {
		cards = append(cards, formatting.FormatAppointment(a))
		// Пациент отменяет только активные записи на будущие дни
		if a.Status.IsActive() && a.Date.After(today) {
			kb.Row(keyboard.Button(fmt.Sprintf("❌ Отменить #%d", a.ID), cancelData(a.ID)))
		}
	}

	text := fmt.Sprintf("📋 <b>Ваши записи</b>: %d %s\n\n%s",
		page.Total, formatting.PluralizeAppointments(page.Total), strings.Join(cards, "\n\n"))
	if page.TotalPages > 1 {
		text += fmt.Sprintf("\n\nПоказаны ближайшие %d.", len(page.Items))
	}

	var markup *models.InlineKeyboardMarkup
	if kb.Len() > 0 {
		markup = kb.Build()
	}
	h.sendMessage(ctx, b, chatID, text, markup)
}

// handleCancelCallback начинает диалог отмены записи
func (h *Handlers) handleCancelCallback(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery) {
	chatID, _, ok := callbackChat(cb)
	if !ok {
		h.answerCallback(ctx, b, cb.ID, "❌ Сообщение устарело, используйте /myappointments", true)
		return
	}

	appointmentID, err := parseID(cb.Data, CallbackCancelAppt)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "❌ Неверный формат данных", true)
		return
	}

	h.stateManager.Start(cb.From.ID, state.StateCancelReason, map[string]interface{}{
		state.KeyAppointmentID: appointmentID,
	})

	h.answerCallback(ctx, b, cb.ID, "", false)
	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("Отмена записи #%d.\n\nУкажите причину отмены или отправьте %s.\n\nНе отменять: /cancel",
			appointmentID, skipCommand), nil)
}

// handleCancelReasonStep отменяет запись после ввода причины
func (h *Handlers) handleCancelReasonStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	appointmentID, ok := h.stateManager.GetInt64(telegramID, state.KeyAppointmentID)
	if !ok {
		h.logger.Error("Missing appointment id in state", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Данные потерялись. Начните заново: /myappointments")
		return
	}

	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	reason := strings.TrimSpace(update.Message.Text)
	if reason == skipCommand {
		reason = ""
	}

	appointment, err := h.canceller.Cancel(ctx, principalOf(user), appointmentID, reason)
	if err != nil {
		if service.KindOf(err) == service.KindInvalidInput {
			h.sendError(ctx, b, chatID, fmt.Sprintf(
				"❌ Причина не должна быть длиннее %d символов. Попробуйте ещё раз или /cancel.",
				service.MaxReasonLength))
			return
		}

		h.stateManager.ClearState(telegramID)
		if service.KindOf(err) == service.KindDateOutOfRange {
			h.sendError(ctx, b, chatID, "❌ Запись на сегодня или на прошедшую дату отменить нельзя. Свяжитесь с клиникой.")
			return
		}
		h.sendError(ctx, b, chatID, errorText(err))
		return
	}

	h.stateManager.ClearState(telegramID)

	h.logger.Info("Appointment cancelled via telegram",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("appointment_id", appointment.ID))

	h.sendMessage(ctx, b, chatID, "✅ <b>Запись отменена.</b>\n\n"+formatting.FormatAppointment(appointment), nil)
}
