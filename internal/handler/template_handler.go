// internal/handler/template_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
)

type TemplateHandler struct {
	Repo repository.TemplateRepositoryInterface
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrganizationID int    `json:"organization_id" validate:"required,gt=0"`
		Name           string `json:"name" validate:"required"`
		Subject        string `json:"subject" validate:"required"`
		Body           string `json:"body" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(payload); err != nil {
		http.Error(w, "invalid template: "+err.Error(), http.StatusBadRequest)
		return
	}

	t := &model.MessageTemplate{
		OrganizationID: payload.OrganizationID,
		Name:           payload.Name,
		Subject:        payload.Subject,
		Body:           payload.Body,
	}
	if err := h.Repo.Create(t); err != nil {
		http.Error(w, "failed to create template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.Atoi(r.URL.Query().Get("organization_id"))
	if err != nil || orgID < 1 {
		http.Error(w, "organization_id is required", http.StatusBadRequest)
		return
	}
	templates, err := h.Repo.ListByOrganization(orgID)
	if err != nil {
		http.Error(w, "failed to list templates: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": templates})
}
