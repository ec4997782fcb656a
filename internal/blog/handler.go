// AngelaMos | 2026
// handler.go

package blog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/blog", func(r chi.Router) {
		r.Get("/fetchAllBlogs", h.ListPublished)
		r.With(optionalAuth).Get("/fetchBlog/{slug}", h.GetBySlug)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/create", h.Create)
			r.Get("/getBlogByAuthor", h.ListMine)
			r.Put("/update/{id}", h.Update)
			r.Delete("/delete/{id}", h.Delete)
		})
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/blog", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/getBlog/{id}", h.GetByID)
		r.Patch("/{id}/toggle-publish", h.TogglePublish)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBlogRequest
	if !h.decode(w, r, &req) {
		return
	}

	blog, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.Created(w, h.present(r, blog))
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	blog, err := h.service.GetBySlug(
		ctx,
		chi.URLParam(r, "slug"),
		middleware.GetUserID(ctx),
		middleware.IsAdmin(ctx),
	)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, h.present(r, blog))
}

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	blogs, params, total, err := h.service.ListPublished(
		r.Context(),
		parseIntQuery(r, "page", 1),
		parseIntQuery(r, "page_size", 10),
		r.URL.Query().Get("category"),
	)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.Paginated(w, h.presentList(r, blogs), params.Page, params.PageSize, total)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	blogs, params, total, err := h.service.ListByAuthor(
		r.Context(),
		middleware.GetUserID(r.Context()),
		parseIntQuery(r, "page", 1),
		parseIntQuery(r, "page_size", 10),
	)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.Paginated(w, h.presentList(r, blogs), params.Page, params.PageSize, total)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlogRequest
	if !h.decode(w, r, &req) {
		return
	}

	blog, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
		req,
	)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, h.present(r, blog))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "blog deleted"})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	blog, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, h.present(r, blog))
}

func (h *Handler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	blog, err := h.service.TogglePublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, h.present(r, blog))
}

func (h *Handler) present(r *http.Request, blog *Blog) BlogResponse {
	authors := h.service.Authors(r.Context(), *blog)
	return ToBlogResponse(blog, authors[blog.AuthorID])
}

func (h *Handler) presentList(r *http.Request, blogs []Blog) []BlogResponse {
	authors := h.service.Authors(r.Context(), blogs...)

	out := make([]BlogResponse, 0, len(blogs))
	for i := range blogs {
		out = append(out, ToBlogResponse(&blogs[i], authors[blogs[i].AuthorID]))
	}
	return out
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func mapError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, ErrSlugTaken):
		return core.DuplicateError("slug")
	case errors.Is(err, ErrEmptySlug):
		return core.BadRequestError("slug must contain letters or digits")
	case errors.Is(err, ErrNotOwner):
		return core.ForbiddenError("you can only modify your own blogs")
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("blog")
	case errors.Is(err, core.ErrUnauthorized):
		return core.UnauthorizedError("")
	case errors.Is(err, core.ErrInvalidInput):
		return core.BadRequestError("invalid input")
	default:
		return core.InternalError(err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
