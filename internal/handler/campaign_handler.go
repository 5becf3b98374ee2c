// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/AllPhaseMedia/unionsoftware-sub001/internal/errors"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/queue"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/repository"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/service"
)

var validate = validator.New()

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Campaigns     *service.CampaignService
	Recipients    *service.RecipientService
	Delivery      *service.DeliveryService
	RecipientRepo repository.RecipientRepositoryInterface
	Publisher     queue.BatchPublisher // nil when no queue is configured
}

type campaignPayload struct {
	OrganizationID int                     `json:"organization_id" validate:"required,gt=0"`
	Name           string                  `json:"name" validate:"required"`
	Subject        string                  `json:"subject"`
	Body           string                  `json:"body"`
	TemplateID     *int                    `json:"template_id,omitempty"`
	Criteria       model.TargetingCriteria `json:"criteria"`
	BatchSize      int                     `json:"batch_size" validate:"gte=0,lte=1000"`
	RatePerSecond  int                     `json:"rate_per_second" validate:"gte=0"`
}

func (p campaignPayload) toInput() service.CampaignInput {
	return service.CampaignInput{
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Subject:        p.Subject,
		Body:           p.Body,
		TemplateID:     p.TemplateID,
		Criteria:       p.Criteria,
		BatchSize:      p.BatchSize,
		RatePerSecond:  p.RatePerSecond,
	}
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var payload campaignPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(payload); err != nil {
		http.Error(w, "invalid campaign: "+err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.CreateCampaign(payload.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var payload campaignPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validate.Struct(payload); err != nil {
		http.Error(w, "invalid campaign: "+err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.UpdateCampaign(id, payload.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	if err := h.Campaigns.DeleteCampaign(id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := h.Campaigns.ListCampaigns(page, pageSize, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	details, err := h.Campaigns.GetCampaignDetailsWithStats(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// GenerateRecipients recomputes the campaign audience and reports the
// resulting count.
func (h *CampaignHandler) GenerateRecipients(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	count, err := h.Recipients.Generate(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *CampaignHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	status := r.URL.Query().Get("status")

	recipients, total, err := h.RecipientRepo.ListByCampaign(id, (page-1)*pageSize, pageSize, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": recipients,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
		},
	})
}

func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var body struct {
		RecipientID *int `json:"recipient_id,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}

	preview, err := h.Campaigns.Preview(id, body.RecipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// ====================== Lifecycle ======================

func (h *CampaignHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var body struct {
		ScheduledAt string `json:"scheduled_at" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	at, err := time.Parse(time.RFC3339, body.ScheduledAt)
	if err != nil {
		http.Error(w, "scheduled_at must be RFC3339: "+err.Error(), http.StatusBadRequest)
		return
	}
	campaign, err := h.Campaigns.Schedule(id, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Start)
}

func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Pause)
}

func (h *CampaignHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Resume)
}

func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Cancel)
}

func (h *CampaignHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(int) (*model.Campaign, error)) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	campaign, err := op(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// SendBatch runs one synchronous delivery batch. When a queue is
// configured the next batch job is enqueued so the worker keeps draining.
func (h *CampaignHandler) SendBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}
	var body struct {
		BatchSize int `json:"batch_size"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.Delivery.SendBatch(r.Context(), id, body.BatchSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.Publisher != nil && !result.Completed && result.Remaining > 0 {
		if err := h.Publisher.PublishBatch(queue.BatchJob{CampaignID: id, BatchSize: body.BatchSize}); err != nil {
			// Delivery itself succeeded; the operator can click again.
			writeJSON(w, http.StatusOK, result)
			return
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// ====================== Helpers ======================

func campaignID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps the error taxonomy onto HTTP statuses: structural
// errors surface synchronously, state guard violations as conflicts.
func writeServiceError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	var invalid *appErrors.ErrInvalidTransition
	var empty *appErrors.ErrEmptyAudience

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &empty):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
