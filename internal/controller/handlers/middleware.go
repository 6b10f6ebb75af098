package handlers

import (
	"context"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	msgInternalError = "❌ Произошла ошибка. Попробуйте позже."
	msgNotLinked     = "❌ Telegram не привязан к учётной записи клиники.\n\n" +
		"Отправьте /link email пароль, чтобы войти."
)

// requireUser находит пациента по Telegram ID отправителя.
// Возвращает user и true если OK, иначе сам отвечает пользователю.
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, telegramID, chatID int64) (*model.User, bool) {
	user, err := h.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, msgInternalError)
		return nil, false
	}

	if user == nil {
		h.sendError(ctx, b, chatID, msgNotLinked)
		return nil, false
	}

	return user, true
}

func principalOf(u *model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role}
}

// errorText русское сообщение для ошибки сервиса
func errorText(err error) string {
	switch service.KindOf(err) {
	case service.KindInvalidInput:
		return "❌ Проверьте введённые данные."
	case service.KindDateOutOfRange:
		return "❌ На эту дату записаться нельзя. Выберите другой день."
	case service.KindSlotNotFound:
		return "❌ Это время недоступно для записи."
	case service.KindSlotFull:
		return "❌ На это время мест больше нет. Выберите другое время."
	case service.KindDuplicateBooking:
		return "❌ Вы уже записаны на это время."
	case service.KindCapacityExceeded:
		return "❌ Достигнут лимит активных записей.\n\nОтмените одну из записей или дождитесь приёма."
	case service.KindInvalidTransition:
		return "❌ Статус записи не позволяет это действие."
	case service.KindForbidden:
		return "❌ У вас нет доступа к этой записи."
	case service.KindNotFound:
		return "❌ Запись не найдена."
	default:
		return msgInternalError
	}
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет HTML сообщение с необязательной клавиатурой
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// answerCallback отвечает на нажатие кнопки, alert показывает всплывающее окно
func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
