package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/timebucket/internal/auth"
	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

// TimeBucketHandler serves the time bucket and template endpoints.
type TimeBucketHandler struct {
	buckets     *service.TimeBucketService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewTimeBucketHandler creates a new TimeBucketHandler.
func NewTimeBucketHandler(buckets *service.TimeBucketService, maxBodySize int64, logger zerolog.Logger) *TimeBucketHandler {
	return &TimeBucketHandler{
		buckets:     buckets,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "time_bucket").Logger(),
	}
}

// templateResponse is returned after a template run.
type templateResponse struct {
	Message string               `json:"message"`
	Count   int                  `json:"count"`
	Created int                  `json:"created"`
	Buckets []*domain.TimeBucket `json:"buckets"`
}

// List handles GET /api/v1/time_buckets.
func (h *TimeBucketHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	buckets, err := h.buckets.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Get handles GET /api/v1/time_buckets/{id}.
func (h *TimeBucketHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrTimeBucketNotFound)
		return
	}

	bucket, err := h.buckets.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bucket)
}

// Create handles POST /api/v1/time_buckets.
func (h *TimeBucketHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "time_bucket")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.CreateTimeBucketInput{
		UserID:   userID,
		StartAge: f.IntPtr("start_age"),
		EndAge:   f.IntPtr("end_age"),
		Position: f.IntPtr("position"),
	}
	if s := f.String("label"); s != nil {
		input.Label = *s
	}
	if s := f.String("description"); s != nil {
		input.Description = *s
	}
	if s := f.String("granularity"); s != nil {
		input.Granularity = domain.Granularity(*s)
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	bucket, err := h.buckets.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, bucket)
}

// Update handles PATCH and PUT /api/v1/time_buckets/{id}.
// Only the attributes present in the body change.
func (h *TimeBucketHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrTimeBucketNotFound)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "time_bucket")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	input := service.UpdateTimeBucketInput{
		UserID:      userID,
		ID:          id,
		Label:       f.String("label"),
		Description: f.String("description"),
	}
	for _, field := range []struct {
		name string
		dst  **int
	}{
		{"start_age", &input.StartAge},
		{"end_age", &input.EndAge},
		{"position", &input.Position},
	} {
		name, dst := field.name, field.dst
		v := f.Int(name)
		if !v.Set {
			continue
		}
		if v.Value == nil {
			f.errs.Add(name, "can't be blank")
			continue
		}
		*dst = v.Value
	}
	if s := f.String("granularity"); s != nil {
		g := domain.Granularity(*s)
		input.Granularity = &g
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	bucket, err := h.buckets.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bucket)
}

// Delete handles DELETE /api/v1/time_buckets/{id}. The bucket's items go with it.
func (h *TimeBucketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	id, ok := urlID(r, "id")
	if !ok {
		writeServiceError(w, h.logger, domain.ErrTimeBucketNotFound)
		return
	}

	if err := h.buckets.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateTemplate handles POST /api/v1/time_buckets/templates.
// The body is {"granularity": "5y" | "10y"}.
func (h *TimeBucketHandler) GenerateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	a, err := decodeAttrs(w, r, h.maxBodySize, "")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	f := newFieldReader(a)
	var granularity domain.Granularity
	if s := f.String("granularity"); s != nil {
		granularity = domain.Granularity(*s)
	}
	if err := f.Err(); err != nil {
		writeBadRequest(w, err)
		return
	}

	out, err := h.buckets.GenerateTemplate(r.Context(), userID, granularity)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, templateResponse{
		Message: "Time buckets generated successfully",
		Count:   len(out.Buckets),
		Created: out.Created,
		Buckets: out.Buckets,
	})
}
