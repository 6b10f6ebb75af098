package model

const (
	SettingBookingAdvanceDays     = "booking_advance_days"
	SettingMaxAppointmentsPerUser = "max_appointments_per_user"
)

// SystemSettings настройки бронирования, которыми управляет админка
type SystemSettings struct {
	BookingAdvanceDays     int `json:"booking_advance_days"`
	MaxAppointmentsPerUser int `json:"max_appointments_per_user"`
}

// DefaultSystemSettings значения по умолчанию
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		BookingAdvanceDays:     30,
		MaxAppointmentsPerUser: 5,
	}
}
