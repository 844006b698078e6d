package handlers

import (
	"io"
	"net/http"
	"time"

	"todocalendar/internal/auth"
	dom "todocalendar/internal/domain"
	"todocalendar/internal/dto"
	"todocalendar/internal/repo"
	"todocalendar/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	svc *service.CalendarService
	log *log.Logger
	now func() time.Time
}

func NewCalendarHandler(svc *service.CalendarService, logger *log.Logger) *CalendarHandler {
	return &CalendarHandler{svc: svc, log: logger, now: time.Now}
}

// ListCalendars godoc
// @Summary      List calendars
// @Tags         calendars
// @Produce      json
// @Security     BearerAuth
// @Param        search    query     string  false  "Name or description contains"
// @Param        ordering  query     string  false  "name, created_at; prefix - for descending"
// @Success      200       {array}   dto.CalendarResponse
// @Router       /calendar/calendars/ [get]
func (h *CalendarHandler) ListCalendars(c *gin.Context) {
	list, err := h.svc.ListCalendars(c.Request.Context(), auth.UserIDFromContext(c), repo.CalendarFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]dto.CalendarResponse, len(list))
	for i := range list {
		out[i] = dto.NewCalendarResponse(list[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateCalendar godoc
// @Summary      Create a calendar
// @Description  Making a calendar the default clears the flag on the user's other calendars.
// @Tags         calendars
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CalendarRequest  true  "Calendar"
// @Success      201   {object}  dto.CalendarResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /calendar/calendars/ [post]
func (h *CalendarHandler) CreateCalendar(c *gin.Context) {
	var req dto.CalendarRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	cal, err := h.svc.CreateCalendar(c.Request.Context(), auth.UserIDFromContext(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCalendarResponse(cal))
}

// GetCalendar godoc
// @Summary      Get a calendar
// @Tags         calendars
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Calendar ID"
// @Success      200  {object}  dto.CalendarResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /calendar/calendars/{id}/ [get]
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cal, err := h.svc.GetCalendar(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCalendarResponse(cal))
}

// UpdateCalendar godoc
// @Summary      Update a calendar
// @Tags         calendars
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Calendar ID"
// @Param        body  body      dto.CalendarRequest  true  "Calendar"
// @Success      200   {object}  dto.CalendarResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /calendar/calendars/{id}/ [put]
// @Router       /calendar/calendars/{id}/ [patch]
func (h *CalendarHandler) UpdateCalendar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CalendarRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	cal, err := h.svc.UpdateCalendar(c.Request.Context(), auth.UserIDFromContext(c), id, in, isPatch(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCalendarResponse(cal))
}

// DeleteCalendar godoc
// @Summary      Delete a calendar and its events
// @Tags         calendars
// @Security     BearerAuth
// @Param        id   path  int  true  "Calendar ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /calendar/calendars/{id}/ [delete]
func (h *CalendarHandler) DeleteCalendar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCalendar(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents godoc
// @Summary      List events
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        calendar    query     int     false  "Calendar ID"
// @Param        is_all_day  query     bool    false  "All-day flag"
// @Param        search      query     string  false  "Title, description or location contains"
// @Param        ordering    query     string  false  "title, start_time, created_at; prefix - for descending"
// @Success      200         {array}   dto.EventResponse
// @Failure      400         {object}  dto.ValidationErrorResponse
// @Router       /calendar/events/ [get]
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	verr := &service.ValidationError{}
	f := repo.EventFilter{
		CalendarID: queryInt(c, verr, "calendar"),
		IsAllDay:   queryBool(c, verr, "is_all_day"),
		Search:     c.Query("search"),
		Ordering:   c.Query("ordering"),
	}
	if err := verr.OrNil(); err != nil {
		respondError(c, h.log, err)
		return
	}
	list, err := h.svc.ListEvents(c.Request.Context(), auth.UserIDFromContext(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEventList(list, h.now()))
}

func (h *CalendarHandler) detail(c *gin.Context, status int, id int64) {
	d, err := h.svc.EventDetail(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, dto.NewEventDetailResponse(d, h.now()))
}

// CreateEvent godoc
// @Summary      Create an event
// @Description  Without calendar_id the event goes to the default calendar, which is created on first use.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.EventRequest  true  "Event"
// @Success      201   {object}  dto.EventDetailResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /calendar/events/ [post]
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var req dto.EventRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	e, err := h.svc.CreateEvent(c.Request.Context(), auth.UserIDFromContext(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.detail(c, http.StatusCreated, e.ID)
}

// GetEvent godoc
// @Summary      Get an event with its calendar, participants, attachments and reminders
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  dto.EventDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/ [get]
func (h *CalendarHandler) GetEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.detail(c, http.StatusOK, id)
}

// UpdateEvent godoc
// @Summary      Update an event
// @Description  The time range is checked on the merged record.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Event ID"
// @Param        body  body      dto.EventRequest  true  "Event"
// @Success      200   {object}  dto.EventDetailResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/ [put]
// @Router       /calendar/events/{id}/ [patch]
func (h *CalendarHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.EventRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if _, err := h.svc.UpdateEvent(c.Request.Context(), auth.UserIDFromContext(c), id, in, isPatch(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.detail(c, http.StatusOK, id)
}

// DeleteEvent godoc
// @Summary      Delete an event
// @Tags         events
// @Security     BearerAuth
// @Param        id   path  int  true  "Event ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/ [delete]
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TodayEvents godoc
// @Summary      Events starting today
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.EventResponse
// @Router       /calendar/events/today/ [get]
func (h *CalendarHandler) TodayEvents(c *gin.Context) {
	list, err := h.svc.TodayEvents(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEventList(list, h.now()))
}

// UpcomingEvents godoc
// @Summary      Events starting within seven days
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.EventResponse
// @Router       /calendar/events/upcoming/ [get]
func (h *CalendarHandler) UpcomingEvents(c *gin.Context) {
	list, err := h.svc.UpcomingEvents(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEventList(list, h.now()))
}

// Statistics godoc
// @Summary      Event counters for the current user
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.EventStatsResponse
// @Router       /calendar/statistics/ [get]
func (h *CalendarHandler) Statistics(c *gin.Context) {
	st, err := h.svc.Statistics(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewEventStatsResponse(st))
}

// AddParticipant godoc
// @Summary      Add a participant to an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                     true  "Event ID"
// @Param        body  body      dto.ParticipantRequest  true  "Participant"
// @Success      201   {object}  dto.ParticipantResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/participants/ [post]
func (h *CalendarHandler) AddParticipant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ParticipantRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	p, err := h.svc.AddParticipant(c.Request.Context(), auth.UserIDFromContext(c), id, req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewParticipantResponse(p))
}

// AddAttachment godoc
// @Summary      Attach a file to an event
// @Tags         events
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int   true  "Event ID"
// @Param        file  formData  file  true  "File"
// @Success      201   {object}  dto.AttachmentResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/attachments/ [post]
func (h *CalendarHandler) AddAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	upload(c, h.log, func(filename string, r io.Reader) (dom.Attachment, error) {
		return h.svc.AddAttachment(c.Request.Context(), auth.UserIDFromContext(c), id, filename, r)
	})
}

// AddReminder godoc
// @Summary      Schedule a reminder for an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Event ID"
// @Param        body  body      dto.ReminderRequest  true  "Reminder"
// @Success      201   {object}  dto.ReminderResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/reminders/ [post]
func (h *CalendarHandler) AddReminder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReminderRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	r, err := h.svc.AddReminder(c.Request.Context(), auth.UserIDFromContext(c), id, req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewReminderResponse(r))
}

// SendReminder godoc
// @Summary      Mark a reminder as sent
// @Description  Sending an already sent reminder returns it unchanged.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id           path      int  true  "Event ID"
// @Param        reminder_id  path      int  true  "Reminder ID"
// @Success      200          {object}  dto.ReminderResponse
// @Failure      404          {object}  dto.ErrorResponse
// @Router       /calendar/events/{id}/reminders/{reminder_id}/send/ [post]
func (h *CalendarHandler) SendReminder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	reminderID, ok := parseID(c, "reminder_id")
	if !ok {
		return
	}
	r, err := h.svc.MarkReminderSent(c.Request.Context(), auth.UserIDFromContext(c), id, reminderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewReminderResponse(r))
}
