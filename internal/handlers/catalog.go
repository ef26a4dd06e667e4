package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/devplane-io/devplane/internal/middleware"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/devplane-io/devplane/internal/repo"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
)

// CatalogHandler serves the data catalog endpoints.
type CatalogHandler struct {
	Repo  *repo.AssetRepo
	Audit *repo.AuditRepo
}

type assetInput struct {
	Name              string   `json:"name" validate:"required,min=2,max=255"`
	Type              string   `json:"type" validate:"required"`
	Location          string   `json:"location" validate:"required,max=1024"`
	Owner             string   `json:"owner" validate:"required,max=255"`
	Description       string   `json:"description" validate:"max=2000"`
	Tags              []string `json:"tags" validate:"max=20,dive,min=1,max=64"`
	FreshnessSLAHours int      `json:"freshness_sla_hours" validate:"gte=0,lte=8760"`
}

func (in assetInput) toModel() models.Asset {
	return models.Asset{
		Name:              in.Name,
		Type:              in.Type,
		Location:          in.Location,
		Owner:             in.Owner,
		Description:       in.Description,
		Tags:              in.Tags,
		FreshnessSLAHours: in.FreshnessSLAHours,
	}
}

// RegisterAsset creates a catalog entry.
func (h *CatalogHandler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var input assetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.ValidAssetType(input.Type) {
		JSONValidationError(w, "validation failed",
			map[string]string{"type": "must be dataset, table, stream, dashboard, or model"},
			http.StatusBadRequest)
		return
	}

	asset, err := h.Repo.Create(input.toModel())
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			JSONError(w, "asset name already registered", http.StatusConflict)
			return
		}
		JSONError(w, "failed to register asset", http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "create", "asset", asset.ID, asset.Name)
	writeJSON(w, http.StatusCreated, asset)
}

// ListAssets returns paginated assets. Query: limit, offset, q (search),
// stale=true (freshness SLA lapsed).
func (h *CatalogHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 10, 100)

	var (
		assets []models.Asset
		err    error
	)
	switch {
	case r.URL.Query().Get("stale") == "true":
		assets, err = h.Repo.ListStale(limit, offset)
	case r.URL.Query().Get("q") != "":
		assets, err = h.Repo.SearchPaginated(r.URL.Query().Get("q"), limit, offset)
	default:
		assets, err = h.Repo.ListPaginated(limit, offset)
	}
	if err != nil {
		JSONError(w, "failed to fetch assets", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, assets)
}

func (h *CatalogHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.Repo.GetByID(id)
	if err != nil {
		if err == repo.ErrAssetNotFound {
			JSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (h *CatalogHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	var input assetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.ValidAssetType(input.Type) {
		JSONValidationError(w, "validation failed",
			map[string]string{"type": "must be dataset, table, stream, dashboard, or model"},
			http.StatusBadRequest)
		return
	}

	asset, err := h.Repo.UpdateByID(id, input.toModel())
	if err != nil {
		if err == repo.ErrAssetNotFound {
			JSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		JSONError(w, "failed to update asset", http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "update", "asset", asset.ID, asset.Name)
	writeJSON(w, http.StatusOK, asset)
}

func (h *CatalogHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.DeleteByID(id); err != nil {
		if err == repo.ErrAssetNotFound {
			JSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		JSONError(w, "failed to delete asset", http.StatusInternalServerError)
		return
	}

	_ = h.Audit.Log(r.Context(), middleware.UserID(r.Context()), "delete", "asset", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// HeartbeatAsset marks the asset as validated now. Producers call this after
// a successful freshness check.
func (h *CatalogHandler) HeartbeatAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		JSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.Repo.Heartbeat(id)
	if err != nil {
		if err == repo.ErrAssetNotFound {
			JSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}
