package cattle

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"livestock-registry/internal/domain/assignments"
	"livestock-registry/internal/middleware"
	"livestock-registry/internal/ports/images"
	"livestock-registry/internal/ports/permissions"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// maxImageBytes acota el upload de imagen principal.
const maxImageBytes = 10 << 20

func RegisterRoutes(r chi.Router, svc *Service, asg *assignments.Service, imgStore images.Store, authz permissions.Authorizer) {
	r.Route("/cattle", func(cr chi.Router) {
		cr.Post("/", createCattleHandler(svc))
		cr.Get("/", listCattleHandler(svc))
		cr.Get("/{cattleID}", getCattleViewHandler(svc, authz))
		cr.Patch("/{cattleID}", updateCattleHandler(svc, authz))
		cr.Delete("/{cattleID}", deleteCattleHandler(svc, authz))
		cr.Put("/{cattleID}/image", uploadImageHandler(svc, imgStore, authz))
		cr.Get("/{cattleID}/assignments", listAssignmentsHandler(svc, asg, authz))
	})
}

type createCattleRequest struct {
	Name               string  `json:"name" validate:"required,min=2"`
	TagNumber          string  `json:"tag_number"`
	Breed              string  `json:"breed" validate:"required"`
	Gender             string  `json:"gender" validate:"required,oneof=male female"`
	IsOx               bool    `json:"is_ox"`
	DateOfBirth        string  `json:"date_of_birth"` // YYYY-MM-DD opcional
	HealthStatus       string  `json:"health_status" validate:"required"`
	VaccinationRecords string  `json:"vaccination_records"`
	SireID             *string `json:"sire_id"`
	DamID              *string `json:"dam_id"`
	KraalID            *string `json:"kraal_id"`
}

type updateCattleRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name               *string `json:"name"`
	TagNumber          *string `json:"tag_number"` // "" limpia
	Breed              *string `json:"breed"`
	Gender             *string `json:"gender"`
	IsOx               *bool   `json:"is_ox"`
	DateOfBirth        *string `json:"date_of_birth"` // YYYY-MM-DD; null limpia
	HealthStatus       *string `json:"health_status"`
	VaccinationRecords *string `json:"vaccination_records"`
	SireID             *string `json:"sire_id"` // null limpia
	DamID              *string `json:"dam_id"`  // null limpia
	KraalID            *string `json:"kraal_id"`
}

type cattleResponse struct {
	ID                 string     `json:"id"`
	OwnerUserID        string     `json:"owner_user_id"`
	Name               string     `json:"name"`
	TagNumber          string     `json:"tag_number,omitempty"`
	Breed              string     `json:"breed"`
	Gender             string     `json:"gender"`
	IsOx               bool       `json:"is_ox"`
	DateOfBirth        *time.Time `json:"date_of_birth,omitempty"`
	HealthStatus       string     `json:"health_status"`
	VaccinationRecords string     `json:"vaccination_records,omitempty"`
	MainImageURL       string     `json:"main_image_url,omitempty"`
	SireID             *string    `json:"sire_id,omitempty"`
	DamID              *string    `json:"dam_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type cattleViewResponse struct {
	Cattle          cattleResponse   `json:"cattle"`
	Sire            *cattleResponse  `json:"sire,omitempty"`
	Dam             *cattleResponse  `json:"dam,omitempty"`
	OffspringAsSire []cattleResponse `json:"offspring_as_sire"`
	OffspringAsDam  []cattleResponse `json:"offspring_as_dam"`
	TotalChildren   int              `json:"total_children"`
	Age             *int             `json:"age,omitempty"`
	KraalID         *string          `json:"kraal_id,omitempty"`
}

type assignmentResponse struct {
	ID        string     `json:"id"`
	CattleID  string     `json:"cattle_id"`
	KraalID   string     `json:"kraal_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func createCattleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createCattleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeFieldErrors(w, err)
			return
		}

		var dob *time.Time
		if strings.TrimSpace(req.DateOfBirth) != "" {
			t, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				http.Error(w, "date_of_birth must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			dob = &t
		}

		c, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:               req.Name,
			TagNumber:          req.TagNumber,
			Breed:              req.Breed,
			Gender:             req.Gender,
			IsOx:               req.IsOx,
			DateOfBirth:        dob,
			HealthStatus:       req.HealthStatus,
			VaccinationRecords: req.VaccinationRecords,
			SireID:             req.SireID,
			DamID:              req.DamID,
			KraalID:            req.KraalID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toCattleResponse(c))
	}
}

func listCattleHandler(svc *Service) http.HandlerFunc {
	// Owner-only (el listado cruzado va por el authorizer en el GET por id).
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]cattleResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCattleResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getCattleViewHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	// Perfil enriquecido: padres + crías paginadas (?page=&per_page=&q=).
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cattleID := chi.URLParam(r, "cattleID")
		c, err := svc.GetByID(r.Context(), cattleID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionRead, c) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		q := ViewQuery{
			Page:    queryInt(r, "page", 1),
			PerPage: queryInt(r, "per_page", DefaultPerPage),
			Query:   r.URL.Query().Get("q"),
		}

		v, err := svc.ResolveView(r.Context(), cattleID, q)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toViewResponse(v))
	}
}

func updateCattleHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cattleID := chi.URLParam(r, "cattleID")
		current, err := svc.GetByID(r.Context(), cattleID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionUpdate, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()

		var req updateCattleRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		// Para soportar null en date_of_birth/sire_id/dam_id hace falta
		// distinguir "campo ausente" de "campo en null": el map de raw
		// registra presencia, el struct aporta los valores tipados.
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:               req.Name,
			TagNumber:          req.TagNumber,
			Breed:              req.Breed,
			Gender:             req.Gender,
			IsOx:               req.IsOx,
			HealthStatus:       req.HealthStatus,
			VaccinationRecords: req.VaccinationRecords,
			KraalID:            req.KraalID,
		}

		if _, present := raw["date_of_birth"]; present {
			in.DateOfBirth.Set = true
			if req.DateOfBirth != nil {
				t, err := time.Parse("2006-01-02", *req.DateOfBirth)
				if err != nil {
					http.Error(w, "date_of_birth must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				in.DateOfBirth.Value = &t
			}
		}
		if _, present := raw["sire_id"]; present {
			in.SireID = OptionalRef{Set: true, Value: req.SireID}
		}
		if _, present := raw["dam_id"]; present {
			in.DamID = OptionalRef{Set: true, Value: req.DamID}
		}

		updated, err := svc.Update(r.Context(), cattleID, in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toCattleResponse(updated))
	}
}

func deleteCattleHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cattleID := chi.URLParam(r, "cattleID")
		current, err := svc.GetByID(r.Context(), cattleID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionDelete, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := svc.Delete(r.Context(), cattleID); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadImageHandler(svc *Service, imgStore images.Store, authz permissions.Authorizer) http.HandlerFunc {
	// Sube la imagen principal al storage y guarda la URL resultante.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if imgStore == nil {
			http.Error(w, "image storage not configured", http.StatusServiceUnavailable)
			return
		}

		cattleID := chi.URLParam(r, "cattleID")
		current, err := svc.GetByID(r.Context(), cattleID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionUpdate, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			http.Error(w, "content-type must be image/*", http.StatusBadRequest)
			return
		}

		body := http.MaxBytesReader(w, r.Body, maxImageBytes)
		key := "cattle/" + cattleID + "/" + uuid.NewString()
		url, err := imgStore.Put(r.Context(), key, contentType, r.ContentLength, body)
		if err != nil {
			http.Error(w, "image upload failed", http.StatusBadGateway)
			return
		}

		updated, err := svc.SetMainImage(r.Context(), cattleID, url)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toCattleResponse(updated))
	}
}

func listAssignmentsHandler(svc *Service, asg *assignments.Service, authz permissions.Authorizer) http.HandlerFunc {
	// Historial de ocupación de corrales del animal.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cattleID := chi.URLParam(r, "cattleID")
		current, err := svc.GetByID(r.Context(), cattleID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionRead, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		history, err := asg.History(r.Context(), cattleID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]assignmentResponse, 0, len(history))
		for _, a := range history {
			out = append(out, assignmentResponse{
				ID:        a.ID,
				CattleID:  a.CattleID,
				KraalID:   a.KraalID,
				StartDate: a.StartDate,
				EndDate:   a.EndDate,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func authorized(r *http.Request, authz permissions.Authorizer, userID, tenantID string, action permissions.Action, c Cattle) bool {
	if c.OwnerUserID == userID {
		return true
	}
	if authz == nil {
		return false
	}
	ok, err := authz.Can(r.Context(), permissions.Check{
		UserID:      userID,
		TenantID:    tenantID,
		Action:      action,
		Resource:    "cattle",
		ResourceID:  c.ID,
		OwnerUserID: c.OwnerUserID,
	})
	return err == nil && ok
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func toCattleResponse(c Cattle) cattleResponse {
	return cattleResponse{
		ID:                 c.ID,
		OwnerUserID:        c.OwnerUserID,
		Name:               c.Name,
		TagNumber:          c.TagNumber,
		Breed:              string(c.Breed),
		Gender:             string(c.Gender),
		IsOx:               c.IsOx,
		DateOfBirth:        c.DateOfBirth,
		HealthStatus:       string(c.HealthStatus),
		VaccinationRecords: c.VaccinationRecords,
		MainImageURL:       c.MainImageURL,
		SireID:             c.SireID,
		DamID:              c.DamID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func toViewResponse(v View) cattleViewResponse {
	out := cattleViewResponse{
		Cattle:          toCattleResponse(v.Cattle),
		OffspringAsSire: make([]cattleResponse, 0, len(v.OffspringAsSire)),
		OffspringAsDam:  make([]cattleResponse, 0, len(v.OffspringAsDam)),
		TotalChildren:   v.TotalChildren,
		Age:             v.Age,
		KraalID:         v.KraalID,
	}
	if v.Sire != nil {
		s := toCattleResponse(*v.Sire)
		out.Sire = &s
	}
	if v.Dam != nil {
		d := toCattleResponse(*v.Dam)
		out.Dam = &d
	}
	for _, c := range v.OffspringAsSire {
		out.OffspringAsSire = append(out.OffspringAsSire, toCattleResponse(c))
	}
	for _, c := range v.OffspringAsDam {
		out.OffspringAsDam = append(out.OffspringAsDam, toCattleResponse(c))
	}
	return out
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeFieldErrors reporta errores de schema campo por campo.
func writeFieldErrors(w http.ResponseWriter, err error) {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
