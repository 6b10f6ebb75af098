package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handlers HTTP обработчики поверх сервисов бронирования
type Handlers struct {
	booking      Booker
	lifecycle    Lifecycle
	availability Availability
	queries      AppointmentQueries
	accounts     Accounts
	tokens       Tokens
	logger       *zap.Logger
}

func (h *Handlers) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput("Malformed request body.")
	}

	user, err := h.accounts.Register(c.Request().Context(), service.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUser(user))
}

func (h *Handlers) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput("Malformed request body.")
	}

	user, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	token, expiresAt, err := h.tokens.Issue(model.Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        toUser(user),
	})
}

func (h *Handlers) listSlots(c echo.Context) error {
	slots, err := h.availability.ListAvailableSlots(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSlots(slots))
}

func (h *Handlers) createAppointment(c echo.Context) error {
	p, _ := principalFrom(c)

	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return invalidInput("Malformed request body.")
	}

	a, err := h.booking.RequestBooking(c.Request().Context(), p, service.BookingRequest{
		Date:   req.Date,
		SlotID: req.SlotID,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment_id": a.ID,
		"appointment":    toAppointment(a),
	})
}

func (h *Handlers) getAppointment(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c)
	if err != nil {
		return err
	}

	a, err := h.queries.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAppointment(a))
}

func (h *Handlers) listMyAppointments(c echo.Context) error {
	p, _ := principalFrom(c)

	f, page, err := parseFilter(c)
	if err != nil {
		return err
	}

	result, err := h.queries.ListForUser(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAppointmentPage(result))
}

func (h *Handlers) listAllAppointments(c echo.Context) error {
	p, _ := principalFrom(c)

	f, page, err := parseFilter(c)
	if err != nil {
		return err
	}

	result, err := h.queries.ListAll(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAppointmentPage(result))
}

func (h *Handlers) statusCounts(c echo.Context) error {
	p, _ := principalFrom(c)

	f, _, err := parseFilter(c)
	if err != nil {
		return err
	}

	counts, err := h.queries.StatusCounts(c.Request().Context(), p, f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counts)
}

type transitionFunc func(ctx context.Context, p model.Principal, appointmentID int64, text string) (*model.Appointment, error)

// transition общий обработчик confirm, cancel и complete
func (h *Handlers) transition(fn transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, _ := principalFrom(c)

		id, err := pathID(c)
		if err != nil {
			return err
		}

		var req transitionRequest
		// Тело необязательно
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&req); err != nil {
				return invalidInput("Malformed request body.")
			}
		}

		a, err := fn(c.Request().Context(), p, id, req.text())
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":          true,
			"appointment": toAppointment(a),
		})
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidInput("Invalid appointment id.")
	}
	return id, nil
}

// parseFilter разбирает status, date_range, search и page из строки запроса
func parseFilter(c echo.Context) (model.AppointmentFilter, int, error) {
	var f model.AppointmentFilter

	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		st, err := model.ParseAppointmentStatus(raw)
		if err != nil {
			return f, 0, invalidInput("Unknown status filter.")
		}
		f.Status = st
	}

	dr, ok := model.ParseDateRange(c.QueryParam("date_range"))
	if !ok {
		return f, 0, invalidInput("Unknown date range filter.")
	}
	f.DateRange = dr

	f.Search = c.QueryParam("search")
	if len(f.Search) > 100 {
		return f, 0, invalidInput("Search query is too long.")
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPageNumber {
			return f, 0, invalidInput("Invalid page number.")
		}
		page = n
	}

	return f, page, nil
}
