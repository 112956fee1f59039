package kraals

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"livestock-registry/internal/middleware"
	"livestock-registry/internal/ports/permissions"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func RegisterRoutes(r chi.Router, svc *Service, authz permissions.Authorizer) {
	r.Route("/kraals", func(kr chi.Router) {
		kr.Post("/", createKraalHandler(svc))
		kr.Get("/", listKraalsHandler(svc))
		kr.Get("/{kraalID}", getKraalHandler(svc, authz))
		kr.Patch("/{kraalID}", updateKraalHandler(svc, authz))
		kr.Delete("/{kraalID}", deleteKraalHandler(svc, authz))
	})
}

type createKraalRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Capacity    int     `json:"capacity" validate:"gte=0"`
	LocationID  *string `json:"location_id"`
}

type updateKraalRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0"`
	LocationID  *string `json:"location_id"`
}

type kraalResponse struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	LocationID  *string   `json:"location_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func createKraalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createKraalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeFieldErrors(w, err)
			return
		}

		k, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:        req.Name,
			Description: req.Description,
			Capacity:    req.Capacity,
			LocationID:  req.LocationID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toKraalResponse(k))
	}
}

func listKraalsHandler(svc *Service) http.HandlerFunc {
	// Owner-only: cada usuario ve sus corrales.
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

		out := make([]kraalResponse, 0, len(items))
		for _, k := range items {
			out = append(out, toKraalResponse(k))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getKraalHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		k, err := svc.GetByID(r.Context(), chi.URLParam(r, "kraalID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionRead, k) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, toKraalResponse(k))
	}
}

func updateKraalHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		kraalID := chi.URLParam(r, "kraalID")
		current, err := svc.GetByID(r.Context(), kraalID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionUpdate, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateKraalRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeFieldErrors(w, err)
			return
		}

		updated, err := svc.Update(r.Context(), kraalID, UpdateInput{
			Name:        req.Name,
			Description: req.Description,
			Capacity:    req.Capacity,
			LocationID:  req.LocationID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toKraalResponse(updated))
	}
}

func deleteKraalHandler(svc *Service, authz permissions.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		kraalID := chi.URLParam(r, "kraalID")
		current, err := svc.GetByID(r.Context(), kraalID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if !authorized(r, authz, claims.UserID, claims.TenantID, permissions.ActionDelete, current) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := svc.Delete(r.Context(), kraalID); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// authorized: owner bypass; si no es owner, decide el authorizer externo
// (nil authorizer => solo el owner accede).
func authorized(r *http.Request, authz permissions.Authorizer, userID, tenantID string, action permissions.Action, k Kraal) bool {
	if k.OwnerUserID == userID {
		return true
	}
	if authz == nil {
		return false
	}
	ok, err := authz.Can(r.Context(), permissions.Check{
		UserID:      userID,
		TenantID:    tenantID,
		Action:      action,
		Resource:    "kraal",
		ResourceID:  k.ID,
		OwnerUserID: k.OwnerUserID,
	})
	return err == nil && ok
}

func toKraalResponse(k Kraal) kraalResponse {
	return kraalResponse{
		ID:          k.ID,
		OwnerUserID: k.OwnerUserID,
		Name:        k.Name,
		Description: k.Description,
		Capacity:    k.Capacity,
		LocationID:  k.LocationID,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "kraal not found", http.StatusNotFound)
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
