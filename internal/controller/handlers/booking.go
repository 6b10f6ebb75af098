package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/controller/formatting"
	"github.com/Freeeeeet/clinic_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/clinic_booking/internal/controller/state"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// maxPickerDays сколько дней помещается в клавиатуру выбора
const maxPickerDays = 14

// HandleSlots /slots показывает выбор дня, /slots 12.03.2026 сразу слоты на дату
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if _, ok := h.requireUser(ctx, b, update.Message.From.ID, chatID); !ok {
		return
	}

	args := strings.Fields(update.Message.Text)
	if len(args) < 2 {
		h.sendMessage(ctx, b, chatID, "📅 Выберите день приёма:", h.dayPicker())
		return
	}

	date, err := formatting.ParseUserDate(args[1])
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Не удалось разобрать дату. Пример: /slots 12.03.2026")
		return
	}

	text, markup := h.slotsView(ctx, date)
	h.sendMessage(ctx, b, chatID, text, markup)
}

// dayPicker кнопки дней от сегодня до конца окна записи
func (h *Handlers) dayPicker() *models.InlineKeyboardMarkup {
	today := h.calendar.Today()

	days := h.calendar.AdvanceDays() + 1
	if days > maxPickerDays {
		days = maxPickerDays
	}

	buttons := make([]models.InlineKeyboardButton, 0, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i)
		buttons = append(buttons, keyboard.Button(formatting.FormatDayButton(d), dayData(d)))
	}

	return keyboard.NewBuilder().Grid(3, buttons...).Build()
}

// slotsView текст и кнопки свободных слотов на дату
func (h *Handlers) slotsView(ctx context.Context, date time.Time) (string, *models.InlineKeyboardMarkup) {
	back := keyboard.Button("« Другой день", CallbackDays)

	items, err := h.slots.ListAvailableSlots(ctx, date.Format(callbackDateLayout))
	if err != nil {
		if service.KindOf(err) == service.KindStorageFailure {
			h.logger.Error("Failed to list slots", zap.Time("date", date), zap.Error(err))
		}
		return errorText(err), keyboard.NewBuilder().Row(back).Build()
	}

	if len(items) == 0 {
		text := fmt.Sprintf("📅 %s\n\nСвободного времени нет. Выберите другой день.",
			formatting.FormatDateWithWeekday(date))
		return text, keyboard.NewBuilder().Row(back).Build()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>%s</b>\n\n", formatting.FormatDateWithWeekday(date))

	buttons := make([]models.InlineKeyboardButton, 0, len(items))
	for _, it := range items {
		sb.WriteString(formatting.FormatSlotLine(it))
		sb.WriteString("\n")
		buttons = append(buttons, keyboard.Button(it.Slot.StartTime.String(), bookData(it.Slot.ID, date)))
	}
	sb.WriteString("\nВыберите время:")

	return sb.String(), keyboard.NewBuilder().Grid(3, buttons...).Row(back).Build()
}

func (h *Handlers) handleDaysCallback(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery) {
	h.answerCallback(ctx, b, cb.ID, "", false)
	h.editOrSend(ctx, b, cb, "📅 Выберите день приёма:", h.dayPicker())
}

func (h *Handlers) handleDayCallback(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery) {
	date, err := parseDay(cb.Data)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "❌ Неверный формат данных", true)
		return
	}

	h.answerCallback(ctx, b, cb.ID, "", false)
	text, markup := h.slotsView(ctx, date)
	h.editOrSend(ctx, b, cb, text, markup)
}

// handleBookCallback запоминает выбранный слот и спрашивает причину визита
func (h *Handlers) handleBookCallback(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery) {
	chatID, _, ok := callbackChat(cb)
	if !ok {
		h.answerCallback(ctx, b, cb.ID, "❌ Сообщение устарело, используйте /slots", true)
		return
	}

	slotID, date, err := parseBook(cb.Data)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "❌ Неверный формат данных", true)
		return
	}

	if _, ok := h.requireUser(ctx, b, cb.From.ID, chatID); !ok {
		h.answerCallback(ctx, b, cb.ID, "", false)
		return
	}

	h.stateManager.Start(cb.From.ID, state.StateBookingReason, map[string]interface{}{
		state.KeySlotID: slotID,
		state.KeyDate:   date.Format(callbackDateLayout),
	})

	h.answerCallback(ctx, b, cb.ID, "", false)
	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("📝 Запись на %s.\n\nКратко опишите причину визита.\n\nОтменить: /cancel",
			formatting.FormatDateWithWeekday(date)), nil)
}

// handleBookingReasonStep создаёт запись после ввода причины
func (h *Handlers) handleBookingReasonStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	slotID, okSlot := h.stateManager.GetInt64(telegramID, state.KeySlotID)
	date, okDate := h.stateManager.GetString(telegramID, state.KeyDate)
	if !okSlot || !okDate {
		h.logger.Error("Missing booking data in state", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Данные записи потерялись. Начните заново: /slots")
		return
	}

	user, ok := h.requireUser(ctx, b, telegramID, chatID)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	appointment, err := h.booking.RequestBooking(ctx, principalOf(user), service.BookingRequest{
		Date:   date,
		SlotID: slotID,
		Reason: update.Message.Text,
	})
	if err != nil {
		// Некорректную причину можно ввести заново, остальные ошибки завершают диалог
		if service.KindOf(err) == service.KindInvalidInput {
			h.sendError(ctx, b, chatID, fmt.Sprintf(
				"❌ Причина визита должна быть непустой и не длиннее %d символов. Попробуйте ещё раз или /cancel.",
				service.MaxReasonLength))
			return
		}

		h.stateManager.ClearState(telegramID)
		h.sendMessage(ctx, b, chatID, errorText(err), keyboard.NewBuilder().
			Row(keyboard.Button("📅 Выбрать другое время", CallbackDays)).Build())
		return
	}

	h.stateManager.ClearState(telegramID)

	h.logger.Info("Appointment booked via telegram",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("appointment_id", appointment.ID))

	h.sendMessage(ctx, b, chatID,
		"✅ <b>Запись создана!</b>\n\n"+formatting.FormatAppointment(appointment)+
			"\n\nСотрудник клиники подтвердит запись. Мои записи: /myappointments", nil)
}

// editOrSend заменяет сообщение с кнопкой, а если это невозможно, шлёт новое
func (h *Handlers) editOrSend(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, text string, markup *models.InlineKeyboardMarkup) {
	chatID, messageID, ok := callbackChat(cb)
	if !ok {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.EditMessageText(ctx, params); err != nil {
		h.logger.Warn("Failed to edit message, sending new one", zap.Error(err))
		h.sendMessage(ctx, b, chatID, text, markup)
	}
}
