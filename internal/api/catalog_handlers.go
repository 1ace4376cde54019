// v0
// internal/api/catalog_handlers.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"modelmarket/internal/models"
)

type docRequest struct {
	AuthorID string   `json:"authorId" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	Tags     []string `json:"tags"`
}

func (h *Handlers) AddDocumentation(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req docRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.Market.AddDocumentation(modelID, req.AuthorID, req.Content, req.Tags)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handlers) ModelDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"docs": h.Market.ModelDocs(mux.Vars(r)["modelId"])})
}

type upvoteRequest struct {
	VoterID string `json:"voterId" validate:"required"`
}

func (h *Handlers) UpvoteDocumentation(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req upvoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Market.UpvoteDocumentation(modelID, req.VoterID); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Comment string `json:"comment" validate:"required"`
}

func (h *Handlers) AddDocComment(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Market.AddDocComment(modelID, req.UserID, req.Comment); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateQuality(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req models.QualityMetrics
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.Market.UpdateQualityMetrics(modelID, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) ModelQuality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Market.ModelQuality(mux.Vars(r)["modelId"]))
}

type validationRequest struct {
	ValidatorID string `json:"validatorId" validate:"required"`
}

func (h *Handlers) ValidateModel(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req validationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.Market.ValidateModel(modelID, req.ValidatorID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) TrackUsage(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req models.ResourceUsage
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Market.TrackResourceUsage(modelID, req); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Market.ResourceMetrics(modelID))
}

func (h *Handlers) ResourceMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Market.ResourceMetrics(mux.Vars(r)["modelId"]))
}

func (h *Handlers) OptimizeUsage(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	efficiency := h.Market.OptimizeResourceAllocation(modelID)
	writeJSON(w, http.StatusOK, map[string]any{
		"modelId":    modelID,
		"efficiency": efficiency,
		"usage":      h.Market.ResourceMetrics(modelID),
	})
}

func (h *Handlers) AddVersion(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req models.ModelVersion
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.Market.AddModelVersion(modelID, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) VersionHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"versions": h.Market.VersionHistory(mux.Vars(r)["modelId"])})
}

type rollbackRequest struct {
	Version int `json:"version" validate:"min=1"`
}

func (h *Handlers) Rollback(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req rollbackRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := h.Market.RollbackVersion(modelID, req.Version)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modelId": modelID, "version": req.Version, "rolledBack": ok})
}
