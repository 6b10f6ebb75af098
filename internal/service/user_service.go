package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/clinic_booking/internal/auth"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	minPhoneDigits    = 10
	maxPhoneDigits    = 15
	maxNameLength     = 255
)

// одно сообщение на неверный пароль и неактивный аккаунт
const badCredentialsMessage = "Invalid email or password."

// Registration данные регистрации пользователя
type Registration struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type UserService struct {
	tx     TxManager
	users  UserStore
	logger *zap.Logger
}

func NewUserService(tx TxManager, users UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		tx:     tx,
		users:  users,
		logger: logger,
	}
}

// Register регистрирует нового пациента
func (s *UserService) Register(ctx context.Context, r Registration) (*model.User, error) {
	return s.create(ctx, r, model.RolePatient)
}

// CreateStaff заводит учётную запись сотрудника, вызывается из CLI
func (s *UserService) CreateStaff(ctx context.Context, r Registration) (*model.User, error) {
	return s.create(ctx, r, model.RoleStaff)
}

func (s *UserService) create(ctx context.Context, r Registration, role model.Role) (*model.User, error) {
	user, err := validateRegistration(r)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, user.Email)
	if err != nil {
		s.logger.Error("Failed to check email", zap.Error(err))
		return nil, storageFailure(err)
	}
	if existing != nil {
		return nil, newError(KindInvalidInput, "Email is already registered.")
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, storageFailure(err)
	}

	user.PasswordHash = hash
	user.Role = role
	user.IsActive = true

	if err := s.users.Create(ctx, user); err != nil {
		// гонка двух регистраций с одним email
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, newError(KindInvalidInput, "Email is already registered.")
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, storageFailure(err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
	)

	return user, nil
}

func validateRegistration(r Registration) (*model.User, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, newError(KindInvalidInput, "Name is required.")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, newError(KindInvalidInput, "Name must be at most %d characters.", maxNameLength)
	}

	email := strings.ToLower(strings.TrimSpace(r.Email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, newError(KindInvalidInput, "Please enter a valid email address.")
	}

	phone, ok := normalizePhone(r.Phone)
	if !ok {
		return nil, newError(KindInvalidInput, "Phone number must contain %d to %d digits.", minPhoneDigits, maxPhoneDigits)
	}

	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		return nil, newError(KindInvalidInput, "Password must be at least %d characters.", minPasswordLength)
	}

	return &model.User{Name: name, Email: email, Phone: phone}, nil
}

// normalizePhone оставляет ведущий плюс и цифры; пробелы, скобки и дефисы допустимы
func normalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	return b.String(), digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// Authenticate проверяет email и пароль
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, storageFailure(err)
	}

	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, newError(KindForbidden, badCredentialsMessage)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get user", zap.Int64("user_id", id), zap.Error(err))
		return nil, storageFailure(err)
	}
	if user == nil {
		return nil, newError(KindNotFound, "User account not found.")
	}
	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID; nil если аккаунт не привязан
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		s.logger.Error("Failed to get user by telegram id", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return nil, storageFailure(err)
	}
	if user != nil && !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// LinkTelegram проверяет учётные данные и привязывает к аккаунту Telegram чат.
// Прежняя привязка этого Telegram ID к другому аккаунту снимается.
func (s *UserService) LinkTelegram(ctx context.Context, telegramID int64, email, password string) (*model.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.users.SetTelegramID(ctx, user.ID, telegramID)
	})
	if err != nil {
		s.logger.Error("Failed to link telegram",
			zap.Int64("user_id", user.ID),
			zap.Int64("telegram_id", telegramID),
			zap.Error(err),
		)
		return nil, storageFailure(err)
	}

	user.TelegramID = &telegramID

	s.logger.Info("Telegram linked",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
	)

	return user, nil
}
