package api

import (
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/api/handlers"
	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
)

// Services are the already wired service layer instances the server exposes
type Services struct {
	Courses  *services.CourseService
	Settings *services.SettingsService
	Editors  *services.EditorService
	Players  *services.PlayerService
	Admin    *services.AdminService
	Tasks    *task.Manager
	Gateway  generation.Gateway // relays generated media
}

// Server holds all the app components together
type Server struct {
	Router *http.ServeMux // handles routing requests
	log    *logger.Logger

	// handlers for different parts of the API
	CourseHandler   *handlers.CourseHandler
	SettingsHandler *handlers.SettingsHandler
	EditorHandler   *handlers.EditorHandler
	PlayerHandler   *handlers.PlayerHandler
	TaskHandler     *handlers.TaskHandler
	AdminHandler    *handlers.AdminHandler
	MediaHandler    *handlers.MediaHandler
}

// NewServer wires the handlers and returns a ready-to-use server
func NewServer(svc Services, log *logger.Logger) *Server {
	server := &Server{
		Router:          http.NewServeMux(),
		log:             log.With("component", "Server"),
		CourseHandler:   handlers.NewCourseHandler(svc.Courses, log),
		SettingsHandler: handlers.NewSettingsHandler(svc.Settings, log),
		EditorHandler:   handlers.NewEditorHandler(svc.Editors, log),
		PlayerHandler:   handlers.NewPlayerHandler(svc.Players, log),
		TaskHandler:     handlers.NewTaskHandler(svc.Tasks, log),
		AdminHandler:    handlers.NewAdminHandler(svc.Admin, log),
		MediaHandler:    handlers.NewMediaHandler(svc.Gateway, log),
	}

	server.setupRoutes()
	return server
}

// setupRoutes maps all the endpoints to handler functions
func (s *Server) setupRoutes() {
	s.Router.HandleFunc("/api", s.HelloHandler)
	s.Router.HandleFunc("GET /api/boot", s.CourseHandler.Boot)

	// course collection
	s.Router.HandleFunc("GET /api/courses", s.CourseHandler.List)
	s.Router.HandleFunc("GET /api/courses/{id}", s.CourseHandler.Get)
	s.Router.HandleFunc("DELETE /api/courses/{id}", s.CourseHandler.Delete)
	s.Router.HandleFunc("GET /api/courses/{id}/share", s.CourseHandler.Share)
	s.Router.HandleFunc("GET /api/courses/import/scan", s.CourseHandler.ScanImports)
	s.Router.HandleFunc("POST /api/courses/import", s.CourseHandler.Import)

	// branding and identity
	s.Router.HandleFunc("GET /api/settings", s.SettingsHandler.Get)
	s.Router.HandleFunc("PUT /api/settings", s.SettingsHandler.Update)
	s.Router.HandleFunc("GET /api/device", s.SettingsHandler.Device)

	// editor sessions
	s.Router.HandleFunc("POST /api/editor", s.EditorHandler.Open)
	s.Router.HandleFunc("GET /api/editor/{id}", s.EditorHandler.Get)
	s.Router.HandleFunc("DELETE /api/editor/{id}", s.EditorHandler.Discard)
	s.Router.HandleFunc("PUT /api/editor/{id}/name", s.EditorHandler.SetName)
	s.Router.HandleFunc("POST /api/editor/{id}/steps", s.EditorHandler.AddStep)
	s.Router.HandleFunc("POST /api/editor/{id}/steps/reorder", s.EditorHandler.ReorderStep)
	s.Router.HandleFunc("POST /api/editor/{id}/steps/{index}/select", s.EditorHandler.SelectStep)
	s.Router.HandleFunc("DELETE /api/editor/{id}/steps/{index}", s.EditorHandler.DeleteStep)
	s.Router.HandleFunc("PATCH /api/editor/{id}/active", s.EditorHandler.PatchActive)
	s.Router.HandleFunc("POST /api/editor/{id}/active/text", s.EditorHandler.InsertText)
	s.Router.HandleFunc("POST /api/editor/{id}/blocks", s.EditorHandler.AddBlock)
	s.Router.HandleFunc("PATCH /api/editor/{id}/blocks/{blockId}", s.EditorHandler.PatchBlock)
	s.Router.HandleFunc("DELETE /api/editor/{id}/blocks/{blockId}", s.EditorHandler.RemoveBlock)
	s.Router.HandleFunc("POST /api/editor/{id}/commit", s.EditorHandler.Commit)
	s.Router.HandleFunc("POST /api/editor/{id}/generate/{action}", s.EditorHandler.Generate)

	// player sessions
	s.Router.HandleFunc("POST /api/player", s.PlayerHandler.Start)
	s.Router.HandleFunc("GET /api/player/{id}", s.PlayerHandler.Get)
	s.Router.HandleFunc("DELETE /api/player/{id}", s.PlayerHandler.Close)
	s.Router.HandleFunc("POST /api/player/{id}/advance", s.PlayerHandler.Advance)
	s.Router.HandleFunc("POST /api/player/{id}/interact", s.PlayerHandler.Interact)
	s.Router.HandleFunc("POST /api/player/{id}/follow-link", s.PlayerHandler.FollowLink)
	s.Router.HandleFunc("POST /api/player/{id}/reset", s.PlayerHandler.Reset)
	s.Router.HandleFunc("POST /api/player/{id}/review", s.PlayerHandler.Review)
	s.Router.HandleFunc("POST /api/player/{id}/chat", s.PlayerHandler.Chat)

	// progress tracking
	s.Router.HandleFunc("GET /api/progress", s.PlayerHandler.Progress)
	s.Router.HandleFunc("GET /api/analytics", s.PlayerHandler.Analytics)

	// admin endpoints
	s.Router.HandleFunc("POST /api/admin/factory-reset", s.AdminHandler.FactoryReset)
	s.Router.HandleFunc("GET /api/admin/stats", s.AdminHandler.GetStats)

	// generated media
	s.Router.HandleFunc("GET "+models.VideoProxyPath, s.MediaHandler.Video)

	// task tracking
	s.Router.HandleFunc("GET /api/tasks", s.TaskHandler.GetTask)
	s.Router.HandleFunc("POST /api/tasks/cleanup", s.TaskHandler.CleanupTasks)
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Handler is the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.LogRequests(s.EnableCORS(s.Router))
}

// HelloHandler is a simple handler for the base API endpoint
func (s *Server) HelloHandler(w http.ResponseWriter, r *http.Request) {
	handlers.SendSuccessResponse(w, s.log, "Onboarding flow backend is running", nil, "Hello")
}
