package http

import (
	"net/http"

	"github.com/minervamed/clinic-scheduler/internal/delivery/http/handler"
	"github.com/minervamed/clinic-scheduler/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router                  *mux.Router
	authHandler             *handler.AuthHandler
	appointmentHandler      *handler.AppointmentHandler
	scheduleHandler         *handler.ScheduleHandler
	chatHandler             *handler.ChatHandler
	doctorServiceHandler    *handler.DoctorServiceHandler
	auditLogHandler         *handler.AuditLogHandler
	authMiddleware          *middleware.AuthMiddleware
	corsMiddleware          *middleware.CORSMiddleware
	observabilityMiddleware *middleware.ObservabilityMiddleware
	metricsHandler          http.Handler
}

func NewRouter(
	authHandler *handler.AuthHandler,
	appointmentHandler *handler.AppointmentHandler,
	scheduleHandler *handler.ScheduleHandler,
	chatHandler *handler.ChatHandler,
	doctorServiceHandler *handler.DoctorServiceHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	observabilityMiddleware *middleware.ObservabilityMiddleware,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:                  mux.NewRouter(),
		authHandler:             authHandler,
		appointmentHandler:      appointmentHandler,
		scheduleHandler:         scheduleHandler,
		chatHandler:             chatHandler,
		doctorServiceHandler:    doctorServiceHandler,
		auditLogHandler:         auditLogHandler,
		authMiddleware:          authMiddleware,
		corsMiddleware:          corsMiddleware,
		observabilityMiddleware: observabilityMiddleware,
		metricsHandler:          metricsHandler,
	}
}

// Setup registers every route. CORS wraps the whole router so that
// preflight requests are answered before route matching.
func (r *Router) Setup() http.Handler {
	r.router.Use(r.observabilityMiddleware.Handle)

	r.router.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register/patient", r.authHandler.RegisterPatient).Methods(http.MethodPost)
	auth.HandleFunc("/register/doctor", r.authHandler.RegisterDoctor).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	auth.Handle("/logout", r.authenticated(r.authHandler.Logout)).Methods(http.MethodPost)
	auth.Handle("/me", r.authenticated(r.authHandler.GetCurrentUser)).Methods(http.MethodGet)

	// Calendar (doctor)
	api.Handle("/appointments", r.as(middleware.RequireDoctor, r.appointmentHandler.CreateAppointment)).Methods(http.MethodPost)
	api.Handle("/fetchAppointments", r.as(middleware.RequireDoctor, r.appointmentHandler.GetDoctorAppointments)).Methods(http.MethodGet)
	api.Handle("/complete-appointment", r.as(middleware.RequireDoctor, r.appointmentHandler.CompleteAppointment)).Methods(http.MethodPost)
	api.Handle("/updateAppointment", r.as(middleware.RequireDoctor, r.appointmentHandler.UpdateAppointment)).Methods(http.MethodPost)
	api.Handle("/appointmentsTodayCount", r.as(middleware.RequireDoctor, r.appointmentHandler.CountToday)).Methods(http.MethodGet)
	api.Handle("/patientName", r.as(middleware.RequireDoctor, r.appointmentHandler.GetPatientName)).Methods(http.MethodGet)

	// Patient
	api.Handle("/fetchAppointmentsReg", r.as(middleware.RequirePatient, r.appointmentHandler.GetPatientAppointments)).Methods(http.MethodGet)
	api.Handle("/fetchPatientAppointments", r.as(middleware.RequirePatient, r.appointmentHandler.GetPatientHistory)).Methods(http.MethodGet)
	api.Handle("/confirmAppointment", r.as(middleware.RequirePatient, r.appointmentHandler.ConfirmAppointment)).Methods(http.MethodPost)

	// Shared
	api.Handle("/cancelAppointment", r.as(middleware.RequirePatientOrDoctor, r.appointmentHandler.CancelAppointment)).Methods(http.MethodPost)
	api.Handle("/check-appointment-status", r.authenticated(r.appointmentHandler.CheckStatus)).Methods(http.MethodGet)
	api.Handle("/deleteAppointment", r.as(middleware.RequireAdmin, r.appointmentHandler.DeleteAppointment)).Methods(http.MethodPost)

	// Schedule
	schedule := api.PathPrefix("/schedule").Subrouter()
	schedule.Use(r.authMiddleware.Authenticate)
	schedule.HandleFunc("/slots", r.scheduleHandler.GetSlots).Methods(http.MethodGet)
	schedule.Handle("/availability", middleware.RequireDoctor(http.HandlerFunc(r.scheduleHandler.CheckAvailability))).Methods(http.MethodGet)
	schedule.Handle("/week", middleware.RequireDoctor(http.HandlerFunc(r.scheduleHandler.GetWeek))).Methods(http.MethodGet)

	// Chat
	api.Handle("/confirm-appointment-chat", r.authenticated(r.chatHandler.SyncConfirmation)).Methods(http.MethodPost)
	chat := api.PathPrefix("/chat").Subrouter()
	chat.Use(r.authMiddleware.Authenticate)
	chat.Handle("/confirm", middleware.RequirePatient(http.HandlerFunc(r.chatHandler.ConfirmFromChat))).Methods(http.MethodPost)
	chat.HandleFunc("/messages/{id}", r.chatHandler.GetMessage).Methods(http.MethodGet)
	chat.HandleFunc("/conversations/{id}/messages", r.chatHandler.GetConversation).Methods(http.MethodGet)

	// Doctor price list
	api.Handle("/doctors/{id}/services", r.authenticated(r.doctorServiceHandler.GetServices)).Methods(http.MethodGet)
	api.Handle("/doctor/services", r.as(middleware.RequireDoctor, r.doctorServiceHandler.GetMyServices)).Methods(http.MethodGet)
	api.Handle("/doctor/services", r.as(middleware.RequireDoctor, r.doctorServiceHandler.SaveServices)).Methods(http.MethodPut)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	return r.corsMiddleware.Handle(r.router)
}

func (r *Router) authenticated(h http.HandlerFunc) http.Handler {
	return r.authMiddleware.Authenticate(h)
}

func (r *Router) as(role func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	return r.authMiddleware.Authenticate(role(h))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}
