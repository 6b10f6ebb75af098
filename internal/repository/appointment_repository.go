package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrActiveDuplicate нарушен уникальный индекс активных записей пользователя на слот
	ErrActiveDuplicate = errors.New("active appointment already exists")
	// ErrStatusConflict статус записи изменился с момента чтения
	ErrStatusConflict = errors.New("appointment status changed concurrently")
)

const activeUserSlotIndex = "uq_appointments_active_user_slot"

const appointmentColumns = `a.id, a.user_id, a.time_slot_id, a.appointment_date, a.appointment_time,
	a.reason, a.status, a.notes, a.confirmed_by, a.confirmed_at, a.created_at, a.updated_at`

// AppointmentRepository журнал записей: единственный источник правды о занятых местах
type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

func scanAppointment(row pgx.Row, extra ...interface{}) (*model.Appointment, error) {
	var (
		a        model.Appointment
		date     pgtype.Date
		apptTime pgtype.Time
	)
	dest := []interface{}{
		&a.ID,
		&a.UserID,
		&a.TimeSlotID,
		&date,
		&apptTime,
		&a.Reason,
		&a.Status,
		&a.Notes,
		&a.ConfirmedBy,
		&a.ConfirmedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Date = model.DateOf(date.Time)
	a.Time = timeOfDayFromPG(apptTime)
	return &a, nil
}

// Create создаёт запись. Дубликат активной записи отсекается уникальным индексом.
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (user_id, time_slot_id, appointment_date, appointment_time, reason, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		a.UserID,
		a.TimeSlotID,
		dateToPG(a.Date),
		timeOfDayToPG(a.Time),
		a.Reason,
		string(a.Status),
		a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, activeUserSlotIndex) {
			return ErrActiveDuplicate
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id = $1`

	a, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return a, nil
}

// LockByID получает запись и блокирует её до конца транзакции,
// чтобы конкурирующие переходы статуса видели уже зафиксированное состояние
func (r *AppointmentRepository) LockByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id = $1 FOR UPDATE`

	a, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock appointment: %w", err)
	}

	return a, nil
}

// CountActiveBySlot считает записи pending/confirmed на слот
func (r *AppointmentRepository) CountActiveBySlot(ctx context.Context, slotID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE time_slot_id = $1 AND status IN ('pending', 'confirmed')
	`

	var count int
	if err := r.QueryRow(ctx, query, slotID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active by slot: %w", err)
	}

	return count, nil
}

// CountActiveBySlots считает активные записи для набора слотов
func (r *AppointmentRepository) CountActiveBySlots(ctx context.Context, slotIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT time_slot_id, COUNT(*)
		FROM appointments
		WHERE time_slot_id = ANY($1) AND status IN ('pending', 'confirmed')
		GROUP BY time_slot_id
	`

	rows, err := r.Query(ctx, query, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("count active by slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			slotID int64
			count  int
		)
		if err := rows.Scan(&slotID, &count); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts[slotID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot counts: %w", err)
	}

	return counts, nil
}

// CountActiveByUserFrom считает активные записи пользователя начиная с даты
func (r *AppointmentRepository) CountActiveByUserFrom(ctx context.Context, userID int64, from time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments
		WHERE user_id = $1 AND status IN ('pending', 'confirmed') AND appointment_date >= $2
	`

	var count int
	if err := r.QueryRow(ctx, query, userID, dateToPG(from)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active by user: %w", err)
	}

	return count, nil
}

// ExistsActive проверяет есть ли у пользователя активная запись на слот в дату
func (r *AppointmentRepository) ExistsActive(ctx context.Context, userID, slotID int64, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE user_id = $1 AND time_slot_id = $2 AND appointment_date = $3
			  AND status IN ('pending', 'confirmed')
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, userID, slotID, dateToPG(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active appointment: %w", err)
	}

	return exists, nil
}

// ApplyStatusChange обновляет статус, только если текущий статус равен ch.From
func (r *AppointmentRepository) ApplyStatusChange(ctx context.Context, ch *model.StatusChange) error {
	query := `
		UPDATE appointments
		SET status = $3,
		    notes = $4,
		    confirmed_by = COALESCE($5, confirmed_by),
		    confirmed_at = COALESCE($6, confirmed_at),
		    updated_at = $7
		WHERE id = $1 AND status = $2
	`

	affected, err := r.ExecAffected(
		ctx, query,
		ch.AppointmentID,
		string(ch.From),
		string(ch.To),
		ch.Notes,
		ch.ConfirmedBy,
		ch.ConfirmedAt,
		ch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if affected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// List получает страницу записей по фильтру вместе с общим количеством
func (r *AppointmentRepository) List(ctx context.Context, f model.AppointmentFilter, page model.Page) ([]*model.Appointment, int, error) {
	where := buildAppointmentWhere(f, true)

	countQuery := `
		SELECT COUNT(*)
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		WHERE ` + where.sql()

	var total int
	if err := r.QueryRow(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	args := append([]interface{}{}, where.args...)
	args = append(args, page.Limit, page.Offset)

	query := fmt.Sprintf(`
		SELECT %s,
		       u.name, u.email, u.phone,
		       ts.start_time, ts.end_time, ts.capacity, ts.is_available
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		JOIN time_slots ts ON a.time_slot_id = ts.id
		WHERE %s
		ORDER BY a.appointment_date DESC, a.appointment_time DESC, a.id DESC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, where.sql(), len(args)-1, len(args))

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		var (
			user       model.User
			slot       model.TimeSlot
			start, end pgtype.Time
		)
		a, err := scanAppointment(rows,
			&user.Name, &user.Email, &user.Phone,
			&start, &end, &slot.Capacity, &slot.IsAvailable,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment: %w", err)
		}

		user.ID = a.UserID
		slot.ID = a.TimeSlotID
		slot.Date = a.Date
		slot.StartTime = timeOfDayFromPG(start)
		slot.EndTime = timeOfDayFromPG(end)
		a.User = &user
		a.Slot = &slot

		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate appointments: %w", err)
	}

	return appointments, total, nil
}

// CountByStatus считает записи по статусам; фильтр статуса не применяется
func (r *AppointmentRepository) CountByStatus(ctx context.Context, f model.AppointmentFilter) (map[model.AppointmentStatus]int, error) {
	where := buildAppointmentWhere(f, false)

	query := `
		SELECT a.status, COUNT(*)
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		WHERE ` + where.sql() + `
		GROUP BY a.status
	`

	rows, err := r.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AppointmentStatus]int)
	for rows.Next() {
		var (
			status model.AppointmentStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}
