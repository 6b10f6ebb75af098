package api

import (
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Phone string     `json:"phone"`
	Role  model.Role `json:"role"`
}

func toUser(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

type slotResponse struct {
	SlotID         int64  `json:"slot_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AvailableCount int    `json:"available_count"`
}

func toSlots(items []model.SlotAvailability) []slotResponse {
	out := make([]slotResponse, 0, len(items))
	for _, it := range items {
		out = append(out, slotResponse{
			SlotID:         it.Slot.ID,
			Date:           it.Slot.Date.Format(time.DateOnly),
			StartTime:      it.Slot.StartTime.String(),
			EndTime:        it.Slot.EndTime.String(),
			AvailableCount: it.Available,
		})
	}
	return out
}

type bookingRequest struct {
	Date   string `json:"date"`
	SlotID int64  `json:"slot_id"`
	Reason string `json:"reason"`
}

type transitionRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// text для отмены принимается и reason, и notes
func (r transitionRequest) text() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Notes
}

type appointmentResponse struct {
	ID          int64                   `json:"id"`
	UserID      int64                   `json:"user_id"`
	SlotID      int64                   `json:"slot_id"`
	Date        string                  `json:"date"`
	Time        string                  `json:"time"`
	EndTime     string                  `json:"end_time,omitempty"`
	Reason      string                  `json:"reason"`
	Status      model.AppointmentStatus `json:"status"`
	Notes       string                  `json:"notes"`
	ConfirmedBy *int64                  `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time              `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Patient     *userResponse           `json:"patient,omitempty"`
}

func toAppointment(a *model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		SlotID:      a.TimeSlotID,
		Date:        a.Date.Format(time.DateOnly),
		Time:        a.Time.String(),
		Reason:      a.Reason,
		Status:      a.Status,
		Notes:       a.Notes,
		ConfirmedBy: a.ConfirmedBy,
		ConfirmedAt: a.ConfirmedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Slot != nil {
		resp.EndTime = a.Slot.EndTime.String()
	}
	if a.User != nil {
		u := toUser(a.User)
		u.ID = a.UserID
		resp.Patient = &u
	}
	return resp
}

type appointmentPageResponse struct {
	Items      []appointmentResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
}

func toAppointmentPage(p *service.AppointmentPage) appointmentPageResponse {
	items := make([]appointmentResponse, 0, len(p.Items))
	for _, a := range p.Items {
		items = append(items, toAppointment(a))
	}
	return appointmentPageResponse{Items: items, Total: p.Total, Page: p.Page, TotalPages: p.TotalPages}
}
