package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/controller/formatting"
	"github.com/Freeeeeet/clinic_booking/internal/controller/state"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// skipCommand пропускает необязательный шаг диалога
const skipCommand = "/skip"

const helpText = "📚 Справка по командам:\n\n" +
	"/slots - Свободное время для записи\n" +
	"/slots 12.03.2026 - Свободное время на дату\n" +
	"/myappointments - Мои предстоящие записи\n" +
	"/link email пароль - Привязать учётную запись клиники\n" +
	"/cancel - Прервать текущий диалог\n" +
	"/help - Показать эту справку"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	user, err := h.accounts.GetByTelegramID(ctx, update.Message.From.ID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", update.Message.From.ID), zap.Error(err))
		h.sendError(ctx, b, chatID, msgInternalError)
		return
	}

	if user == nil {
		h.sendMessage(ctx, b, chatID,
			"👋 Здравствуйте!\n\n"+
				"Это бот записи на приём в клинику. Чтобы записываться через Telegram, "+
				"привяжите учётную запись с сайта:\n\n"+
				"<code>/link email пароль</code>", nil)
		return
	}

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("👋 Здравствуйте, %s!\n\n%s", formatting.Escape(user.Name), helpText), nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleLink привязывает чат к учётной записи: /link email пароль
func (h *Handlers) HandleLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	// Сообщение с паролем не должно оставаться в истории чата
	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: update.Message.ID,
	}); err != nil {
		h.logger.Warn("Failed to delete link message", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	args := strings.Fields(update.Message.Text)
	if len(args) != 3 {
		h.sendError(ctx, b, chatID, "❌ Формат команды: /link email пароль")
		return
	}

	user, err := h.accounts.LinkTelegram(ctx, telegramID, args[1], args[2])
	if err != nil {
		if service.KindOf(err) == service.KindForbidden {
			h.sendError(ctx, b, chatID, "❌ Неверный email или пароль.")
			return
		}
		h.logger.Error("Failed to link telegram", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, chatID, msgInternalError)
		return
	}

	h.logger.Info("Telegram linked",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("user_id", user.ID))

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("✅ Учётная запись %s привязана.\n\nЗаписаться на приём: /slots", formatting.Escape(user.Email)), nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"✅ Операция прервана.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleTextMessage обрабатывает текст в зависимости от шага диалога
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") && update.Message.Text != skipCommand {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	switch currentState {
	case state.StateNone:
		h.logger.Debug("No active state, ignoring message", zap.Int64("telegram_id", telegramID))
	case state.StateBookingReason:
		h.handleBookingReasonStep(ctx, b, update)
	case state.StateCancelReason:
		h.handleCancelReasonStep(ctx, b, update)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
		h.stateManager.ClearState(telegramID)
	}
}
