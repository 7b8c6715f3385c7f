package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/gateway"
	"github.com/Freeeeeet/tutorhub/internal/model"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler — тонкий REST-слой над сервисами. Бизнес-правил здесь нет:
// только разбор запросов, авторизация актора и маппинг ошибок в коды ответов.
type Handler struct {
	users         *service.UserService
	bookings      *service.BookingService
	payments      *service.PaymentService
	webhookSecret string
	logger        *zap.Logger
}

func NewHandler(
	users *service.UserService,
	bookings *service.BookingService,
	payments *service.PaymentService,
	webhookSecret string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:         users,
		bookings:      bookings,
		payments:      payments,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Router собирает все маршруты API
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/users", h.handleRegisterUser)

	// Callback'и шлюза приходят без актора, подпись проверяется отдельно
	r.Post("/webhooks/payment", h.handlePaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.withActor)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.handleCreateBooking)
			r.Get("/", h.handleListBookings)

			r.Route("/{bookingID}", func(r chi.Router) {
				r.Get("/", h.handleGetBooking)
				r.Post("/accept", h.handleAccept)
				r.Post("/decline", h.handleDecline)
				r.Post("/cancel", h.handleCancel)
				r.Post("/pay", h.handlePay)
				r.Post("/report", h.handleReport)
				r.Post("/reschedule", h.handlePropose)
				r.Post("/reschedule/respond", h.handleRespond)
				r.Get("/payments", h.handleListPayments)
			})
		})

		r.Post("/payments/{paymentID}/refund", h.handleRefund)
	})

	return r
}

type registerUserRequest struct {
	Name           string                `json:"name"`
	Role           model.Role            `json:"role"`
	ParentID       *uuid.UUID            `json:"parent_id,omitempty"`
	Rates          map[model.Level]int64 `json:"rates,omitempty"`
	TelegramChatID *int64                `json:"telegram_chat_id,omitempty"`
}

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterUserInput{
		Name:           req.Name,
		Role:           req.Role,
		ParentID:       req.ParentID,
		Rates:          req.Rates,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type createBookingRequest struct {
	StudentID   uuid.UUID     `json:"student_id,omitempty"`
	TutorID     uuid.UUID     `json:"tutor_id"`
	Subject     model.Subject `json:"subject"`
	Level       model.Level   `json:"level"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	DurationMin int           `json:"duration_min"`
	PriceMinor  int64         `json:"price_minor,omitempty"`
}

func (h *Handler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.Create(r.Context(), actorFrom(r), service.CreateBookingInput{
		StudentID:   req.StudentID,
		TutorID:     req.TutorID,
		Subject:     req.Subject,
		Level:       req.Level,
		ScheduledAt: req.ScheduledAt,
		DurationMin: req.DurationMin,
		PriceMinor:  req.PriceMinor,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *Handler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListForActor(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.Get(r.Context(), actorFrom(r), bookingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.Accept(r.Context(), actorFrom(r), bookingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleDecline(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req declineRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.Decline(r.Context(), actorFrom(r), bookingID, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), actorFrom(r), bookingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	intent, err := h.payments.Initiate(r.Context(), actorFrom(r), bookingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

type reportRequest struct {
	Report string `json:"report"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req reportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.SubmitReport(r.Context(), actorFrom(r), bookingID, req.Report)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type proposeRequest struct {
	ProposedAt time.Time `json:"proposed_at"`
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req proposeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.ProposeReschedule(r.Context(), actorFrom(r), bookingID, req.ProposedAt)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type respondRequest struct {
	Decision service.RescheduleDecision `json:"decision"`
	Reason   string                     `json:"reason,omitempty"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req respondRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	booking, err := h.bookings.RespondReschedule(r.Context(), actorFrom(r), bookingID, req.Decision, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	bookingID, err := bookingIDFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payments, err := h.payments.ListForBooking(r.Context(), actorFrom(r), bookingID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, h.logger, errBadID)
		return
	}

	payment, err := h.payments.Refund(r.Context(), actorFrom(r), paymentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

type paymentWebhookRequest struct {
	IntentID string          `json:"intent_id"`
	Outcome  gateway.Outcome `json:"outcome"`
}

// handlePaymentWebhook принимает intentResolved-callback шлюза.
// Шлюз может доставить его повторно — Confirm идемпотентен.
func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && r.Header.Get("X-Webhook-Secret") != h.webhookSecret {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook signature"})
		return
	}

	var req paymentWebhookRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.payments.Confirm(r.Context(), req.IntentID, req.Outcome); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func bookingIDFrom(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}
