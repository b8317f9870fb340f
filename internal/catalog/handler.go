package catalog

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
	"github.com/freshmart/freshmart-pos/internal/rbac"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showHome)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/api/departments", h.listDepartments)
	r.Get("/department", h.showDepartments)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCatalogCreate))
		r.Post("/add", h.addProduct)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermCatalogManage))
		r.Patch("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)
	})
}

type homePageData struct {
	Departments  []Department
	DepartmentID int64
	Query        string
	Products     []Product
}

func (h *Handler) showHome(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	products, err := h.service.Products(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	departments, err := h.service.Departments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := homePageData{
		Departments:  departments,
		DepartmentID: filter.DepartmentID,
		Query:        filter.Query,
		Products:     products,
	}
	h.render(w, r, "pages/home.html", "FreshMart", data)
}

func (h *Handler) showDepartments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.DepartmentSummaries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/department.html", "Departments", rows)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context(), filterFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.RespondError(w, h.logger, ErrProductNotFound)
		return
	}
	p, err := h.service.Product(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.Departments(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if departments == nil {
		departments = []Department{}
	}
	httpx.JSON(w, http.StatusOK, departments)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var in NewProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	id, err := h.service.AddProduct(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "Product added successfully", "product_id": id})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.RespondError(w, h.logger, ErrProductNotFound)
		return
	}
	var in UpdateProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.UpdateProduct(r.Context(), actor, id, in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Product updated")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.RespondError(w, h.logger, ErrProductNotFound)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteProduct(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Product removed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.Page(r, h.csrf, title, data)); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog page", slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func filterFromQuery(r *http.Request) ProductFilter {
	q := r.URL.Query()
	var f ProductFilter
	if id, err := strconv.ParseInt(q.Get("department"), 10, 64); err == nil && id > 0 {
		f.DepartmentID = id
	}
	f.Query = strings.TrimSpace(q.Get("q"))
	if v := q.Get("on_sale"); v != "" {
		b := v == "1" || strings.EqualFold(v, "true")
		f.OnSale = &b
	}
	return f
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
