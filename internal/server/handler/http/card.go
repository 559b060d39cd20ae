// Package http provides the HTTP handlers and routing of the card service.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/cardkeeper/internal/export"
	"github.com/atinyakov/cardkeeper/internal/models"
	"github.com/atinyakov/cardkeeper/internal/render"
	"github.com/atinyakov/cardkeeper/internal/service"
)

const (
	maxUploadMemory = 32 << 20
	maxRequestBody  = 64 << 20
)

// CardService defines the card operations required by the CardHandler.
type CardService interface {
	// Create validates and persists a card, returning its ID.
	// A *models.ValidationError reports invalid form fields.
	Create(ctx context.Context, form models.CardForm, files service.Uploads) (int64, error)
	// Get returns the card or an error wrapping models.ErrCardNotFound.
	Get(ctx context.Context, id int64) (*models.Card, error)
	// VCard returns the card as a vCard contact file.
	VCard(ctx context.Context, id int64) ([]byte, error)
	// Package returns the card as a zip package.
	Package(ctx context.Context, id int64) ([]byte, error)
}

// Renderer renders a named page template.
type Renderer interface {
	Render(w http.ResponseWriter, name string, data any) error
}

// CardHandler handles the HTML pages, card creation and downloads.
type CardHandler struct {
	CardService CardService
	Pages       Renderer
	// BaseURL prefixes shareable card links. When empty the scheme and host
	// of the incoming request are used.
	BaseURL string
	Logger  *zap.Logger
}

type createResponse struct {
	Success bool                `json:"success"`
	URL     string              `json:"url,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Index handles GET /.
func (h *CardHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, render.PageIndex, render.PageData{Title: "Digital business cards"})
}

// CreateForm handles GET /create_card.
func (h *CardHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, render.PageCreate, render.PageData{Title: "Create your card"})
}

// Create handles POST /create_card.
// It accepts a multipart or urlencoded form and responds with JSON holding
// either the absolute URL of the new card or the per-field errors.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := parseForm(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := models.CardForm{
		FirstName:    r.FormValue("fname"),
		LastName:     r.FormValue("lname"),
		Pronouns:     r.FormValue("pronouns"),
		Title:        r.FormValue("title"),
		Business:     r.FormValue("biz"),
		Address:      r.FormValue("addr"),
		Description:  r.FormValue("desc"),
		PublicKey:    r.FormValue("key"),
		Tracker:      r.FormValue("tracker"),
		FontLink:     r.FormValue("font_link"),
		FontCSS:      r.FormValue("font_css"),
		HostedURL:    r.FormValue("hosted_url"),
		FooterCredit: parseCheckbox(r.FormValue("footer_credit")),
		Phone:        r.FormValue("phone"),
		Email:        r.FormValue("email"),
	}
	files := service.Uploads{
		Logo:  formFile(r, "logo"),
		Photo: formFile(r, "photo"),
		Cover: formFile(r, "cover"),
	}

	id, err := h.CardService.Create(r.Context(), form, files)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, createResponse{Errors: verr.Fields})
			return
		}
		h.logger().Error("create card", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, createResponse{Success: true, URL: h.cardURL(r, id)})
}

// View handles GET /card/{id}.
func (h *CardHandler) View(w http.ResponseWriter, r *http.Request) {
	card, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, render.PageView, render.PageData{
		Title:   card.FullName(),
		Card:    card,
		CardURL: h.cardURL(r, card.ID),
	})
}

// Preview handles GET /preview_card/{id}.
func (h *CardHandler) Preview(w http.ResponseWriter, r *http.Request) {
	card, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, render.PagePreview, render.PageData{Title: card.FullName(), Card: card})
}

// DownloadVCard handles GET /download_vcard/{id}.
func (h *CardHandler) DownloadVCard(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(w, r)
	if !ok {
		return
	}
	data, err := h.CardService.VCard(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, export.VCardFilename, export.VCardContentType, data)
}

// DownloadPackage handles GET /download_package/{id}.
func (h *CardHandler) DownloadPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(w, r)
	if !ok {
		return
	}
	data, err := h.CardService.Package(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	attachment(w, export.PackageFilename, export.PackageContentType, data)
}

func (h *CardHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Card, bool) {
	id, ok := cardID(w, r)
	if !ok {
		return nil, false
	}
	card, err := h.CardService.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return card, true
}

// fail maps a lookup error to 404 or 500.
func (h *CardHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrCardNotFound) {
		h.logger().Debug("card not found", zap.Error(err))
		http.NotFound(w, r)
		return
	}
	h.logger().Error("card lookup", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *CardHandler) render(w http.ResponseWriter, page string, data render.PageData) {
	if err := h.Pages.Render(w, page, data); err != nil {
		h.logger().Error("render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *CardHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// cardURL returns the absolute URL of the card page.
func (h *CardHandler) cardURL(r *http.Request, id int64) string {
	base := strings.TrimRight(h.BaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s/card/%d", base, id)
}

// cardID parses the {id} URL parameter. Anything but a positive integer is a 404.
func cardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

// parseCheckbox reports whether a checkbox value means "on".
func parseCheckbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "off":
		return false
	}
	return true
}

// formFile returns the uploaded file for field, or nil when the field is
// absent or the browser sent an empty file input.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) == 0 || fhs[0].Filename == "" {
		return nil
	}
	return fhs[0]
}

func attachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
