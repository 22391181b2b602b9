package visibility

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sparka-app/sparka-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// viewerID pulls the authenticated user id the gateway forwards. Auth
// itself lives upstream of this service.
func viewerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) CheckVisibility(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	var dto CheckVisibilityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := h.service.CheckVisibility(r.Context(), viewer, dto.OwnerID, dto.ContentID, dto.ContentType, dto.Policy)
	utils.RespondWithData(w, http.StatusOK, decision)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	var dto CreateRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	conditions, err := ToConditions(dto.Conditions)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.CreateRule(r.Context(), owner, dto.Name, conditions)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create audience rule")
		return
	}

	utils.RespondWithData(w, http.StatusCreated, rule)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rule, err := h.service.GetRule(r.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get audience rule")
		return
	}

	utils.RespondWithData(w, http.StatusOK, rule)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	rules, err := h.service.GetOwnerRules(r.Context(), owner)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list audience rules")
		return
	}

	utils.RespondWithData(w, http.StatusOK, rules)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	var dto UpdateRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	conditions, err := ToConditions(dto.Conditions)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	vars := mux.Vars(r)
	rule := &Rule{
		ID:         vars["id"],
		Name:       dto.Name,
		Conditions: conditions,
		IsActive:   true,
	}
	if dto.IsActive != nil {
		rule.IsActive = *dto.IsActive
	}

	if err := h.service.UpdateRule(r.Context(), owner, rule); err != nil {
		switch {
		case errors.Is(err, ErrRuleNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotRuleOwner):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update audience rule")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	vars := mux.Vars(r)
	err := h.service.DeleteRule(r.Context(), vars["id"], owner)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete audience rule")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Audience rule deleted")
}

func (h *Handler) BuildAudience(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	vars := mux.Vars(r)
	members, err := h.service.BuildAudience(r.Context(), owner, vars["id"])
	if err != nil {
		switch {
		case errors.Is(err, ErrRuleNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotRuleOwner):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, ErrRuleInactive):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to build audience")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"member_count": len(members),
		"member_ids":   members,
	})
}

func (h *Handler) PreviewAudience(w http.ResponseWriter, r *http.Request) {
	owner, ok := viewerID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing user identity")
		return
	}

	var dto PreviewAudienceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	conditions, err := ToConditions(dto.Conditions)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Ephemeral rule, never persisted
	preview, err := h.service.PreviewAudience(r.Context(), owner, &Rule{
		Name:       "preview",
		Conditions: conditions,
		IsActive:   true,
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to preview audience")
		return
	}

	utils.RespondWithData(w, http.StatusOK, preview)
}
