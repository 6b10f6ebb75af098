package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, date, start_time, end_time, capacity, is_available, created_at`

// SlotRepository каталог слотов. Слоты создаёт и меняет админка,
// ядро бронирования их только читает.
type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.TimeSlot, error) {
	var (
		slot       model.TimeSlot
		date       pgtype.Date
		start, end pgtype.Time
	)
	err := row.Scan(
		&slot.ID,
		&date,
		&start,
		&end,
		&slot.Capacity,
		&slot.IsAvailable,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Date = model.DateOf(date.Time)
	slot.StartTime = timeOfDayFromPG(start)
	slot.EndTime = timeOfDayFromPG(end)
	return &slot, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// LockByID получает слот и блокирует его строку до конца транзакции.
// Все бронирования одного слота проходят через эту блокировку по очереди.
func (r *SlotRepository) LockByID(ctx context.Context, id int64) (*model.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	return slot, nil
}

// GetByDate получает все слоты на дату, отсортированные по началу
func (r *SlotRepository) GetByDate(ctx context.Context, date time.Time) ([]*model.TimeSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM time_slots
		WHERE date = $1
		ORDER BY start_time, id
	`

	rows, err := r.Query(ctx, query, dateToPG(date))
	if err != nil {
		return nil, fmt.Errorf("get slots by date: %w", err)
	}
	defer rows.Close()

	var slots []*model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Create создаёт слот. Используется админкой и сидами.
func (r *SlotRepository) Create(ctx context.Context, slot *model.TimeSlot) error {
	query := `
		INSERT INTO time_slots (date, start_time, end_time, capacity, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		dateToPG(slot.Date),
		timeOfDayToPG(slot.StartTime),
		timeOfDayToPG(slot.EndTime),
		slot.Capacity,
		slot.IsAvailable,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}
