package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Error string
}

type loginResponse struct {
	Success     bool   `json:"success"`
	Role        string `json:"role,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, p.HomePath(), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/login.html", "Log in", loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if httpx.IsJSONRequest(r) {
		if err := httpx.DecodeJSON(r, &creds); err != nil {
			httpx.JSON(w, http.StatusBadRequest, loginResponse{Message: "Invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		creds = Credentials{
			Username: r.PostFormValue("username"),
			UserID:   r.PostFormValue("user_id"),
			Password: r.PostFormValue("password"),
		}
	}

	principal, err := h.service.Authenticate(r.Context(), creds)
	if err != nil {
		status := httpx.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		if httpx.WantsJSON(r) {
			httpx.JSON(w, status, loginResponse{Message: shared.UserMessage(err)})
			return
		}
		h.render(w, r, status, "pages/login.html", "Log in", loginPageData{Error: shared.UserMessage(err)})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.Renew()
	sess.SetPrincipal(principal)
	h.logger.Info("login", slog.String("role", string(principal.Role)), slog.Int64("id", principal.ID))

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, loginResponse{
			Success:     true,
			Role:        string(principal.Role),
			RedirectURL: principal.HomePath(),
		})
		return
	}
	http.Redirect(w, r, principal.HomePath(), http.StatusSeeOther)
}

type registerPageData struct {
	Error string
	Form  Registration
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/register.html", "Register", registerPageData{})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg Registration
	if httpx.IsJSONRequest(r) {
		if err := httpx.DecodeJSON(r, &reg); err != nil {
			httpx.JSON(w, http.StatusBadRequest, loginResponse{Message: "Invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		reg = Registration{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Username: r.PostFormValue("username"),
			Phone:    r.PostFormValue("phone"),
		}
	}

	id, err := h.service.Register(r.Context(), reg)
	if err != nil {
		status := httpx.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("register customer", slog.Any("error", err))
		}
		if httpx.WantsJSON(r) {
			httpx.JSON(w, status, loginResponse{Message: shared.UserMessage(err)})
			return
		}
		reg.Password = ""
		h.render(w, r, status, "pages/register.html", "Register", registerPageData{Error: shared.UserMessage(err), Form: reg})
		return
	}
	h.logger.Info("customer registered", slog.Int64("customer_id", id))

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, loginResponse{Success: true, Message: "Registration successful!", RedirectURL: "/login"})
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Registration successful! Please log in."})
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if p, ok := sess.Principal(); ok {
			h.logger.Info("logout", slog.String("role", string(p.Role)), slog.Int64("id", p.ID))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := view.Page(r, h.csrfManager, title, data)
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
	}
}
