package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

// BucketItemHandler serves the bucket item endpoints.
type BucketItemHandler struct {
	items       *service.BucketItemService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewBucketItemHandler creates a new BucketItemHandler.
func NewBucketItemHandler(items *service.BucketItemService, maxBodySize int64, logger zerolog.Logger) *BucketItemHandler {
	return &BucketItemHandler{
		items:       items,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "bucket_item").Logger(),
	}
}

// List handles GET /api/v1/time_buckets/{id}/bucket_items.
func (h *BucketItemHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	bucketID, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrTimeBucketNotFound)
		return
	}

	items, err := h.items.ListByTimeBucket(r.Context(), userID, bucketID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /api/v1/bucket_items/{id}.
func (h *BucketItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrBucketItemNotFound)
		return
	}

	item, err := h.items.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /api/v1/time_buckets/{id}/bucket_items.
func (h *BucketItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	bucketID, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrTimeBucketNotFound)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "bucket_item")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.CreateBucketItemInput{
		UserID:       userID,
		TimeBucketID: bucketID,
		Difficulty:   f.Level("difficulty").Value,
		RiskLevel:    f.Level("risk_level").Value,
		CostEstimate: f.IntPtr("cost_estimate"),
		TargetYear:   f.IntPtr("target_year"),
		Tags:         f.Strings("tags"),
		CompletedAt:  f.Time("completed_at").Value,
	}
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{"title", &input.Title},
		{"description", &input.Description},
		{"value_statement", &input.ValueStatement},
		{"motivation_note", &input.MotivationNote},
	} {
		if s := f.String(field.name); s != nil {
			*field.dst = *s
		}
	}
	if s := f.String("category"); s != nil {
		input.Category = domain.Category(*s)
	}
	if s := f.String("status"); s != nil {
		input.Status = domain.ItemStatus(*s)
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	item, err := h.items.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PATCH and PUT /api/v1/bucket_items/{id}.
// Only the attributes present in the body change; null clears optional ones.
func (h *BucketItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrBucketItemNotFound)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "bucket_item")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.UpdateBucketItemInput{
		UserID:         userID,
		ID:             id,
		Title:          f.String("title"),
		Description:    f.String("description"),
		ValueStatement: f.String("value_statement"),
		MotivationNote: f.String("motivation_note"),
		Difficulty:     f.Level("difficulty"),
		RiskLevel:      f.Level("risk_level"),
		CostEstimate:   f.Int("cost_estimate"),
		TargetYear:     f.Int("target_year"),
		Tags:           f.Strings("tags"),
		CompletedAt:    f.Time("completed_at"),
	}
	if s := f.String("category"); s != nil {
		c := domain.Category(*s)
		input.Category = &c
	}
	if s := f.String("status"); s != nil {
		st := domain.ItemStatus(*s)
		input.Status = &st
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	item, err := h.items.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Complete handles PATCH /api/v1/bucket_items/{id}/complete.
func (h *BucketItemHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrBucketItemNotFound)
		return
	}

	item, err := h.items.Complete(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/bucket_items/{id}.
func (h *BucketItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrBucketItemNotFound)
		return
	}

	if err := h.items.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
