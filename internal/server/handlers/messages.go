// internal/server/handlers/messages.go

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

// DegradedHeader marks a response that was answered without consulting the
// store
const DegradedHeader = "X-Wall-Degraded"

// maxBodyBytes bounds POST bodies; content is capped far below this
const maxBodyBytes = 64 << 10

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	service  message.Service
	logger   logging.Logger
	strict   bool
	validate *validator.Validate
}

// createMessageRequest is the POST /messages body
type createMessageRequest struct {
	Content *string  `json:"content" validate:"required"`
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// NewMessageHandler creates a new message handler. With strict set, a
// failed nearby query is reported as 503 instead of an empty list.
func NewMessageHandler(service message.Service, logger logging.Logger, strict bool) *MessageHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &MessageHandler{
		service:  service,
		logger:   logger,
		strict:   strict,
		validate: v,
	}
}

// ListNearby returns messages within ?radius meters of ?lat,?lng. Missing or
// malformed parameters read as zero.
func (h *MessageHandler) ListNearby(w http.ResponseWriter, r *http.Request) {
	center := geo.Point{Lat: queryFloat(r, "lat"), Lng: queryFloat(r, "lng")}
	radius := queryInt(r, "radius")

	messages, err := h.service.ListNearby(r.Context(), center, radius)
	if err != nil {
		if !errors.Is(err, message.ErrNearbyUnavailable) {
			h.logger.WithError(err).Error("listing nearby messages")
			respondWithError(w, http.StatusInternalServerError, "Failed to list messages")
			return
		}
		if h.strict {
			respondWithError(w, http.StatusServiceUnavailable, message.ErrNearbyUnavailable.Error())
			return
		}
		w.Header().Set(DegradedHeader, "nearby-unavailable")
	}

	if messages == nil {
		messages = []message.Message{}
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// CreateMessage posts a new anonymous message
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	m, err := h.service.Create(r.Context(), *req.Content, geo.NewPoint(*req.Lat, *req.Lng))
	if err != nil {
		switch {
		case errors.Is(err, message.ErrEmptyContent),
			errors.Is(err, message.ErrContentTooLong),
			errors.Is(err, message.ErrInvalidPoint):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{
				"lat": *req.Lat,
				"lng": *req.Lng,
			}).Error("posting message")
			respondWithError(w, http.StatusInternalServerError, "Failed to post message")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, m)
}

// validationMessage describes the first failed field
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
