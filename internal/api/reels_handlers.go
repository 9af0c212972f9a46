package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"reelcast/internal/reels"
)

type featureReelResponse struct {
	Message  string `json:"message"`
	MediaURL string `json:"media_url"`
	JobID    string `json:"job_id,omitempty"`
}

type likeReelRequest struct {
	// StockIdentifier is accepted for callers that send the full reel
	// reference, but the reel id alone identifies the record.
	StockIdentifier string `json:"stock_identifier"`
	ReelID          string `json:"reel_id"`
	ClientID        string `json:"client_id"`
}

type likeReelResponse struct {
	Message     string           `json:"message"`
	UpdatedReel reels.LikeResult `json:"updatedReel"`
}

// FeatureReel handles POST /feature-reel: a multipart form carrying an
// optional caption, a stock identifier, and the video file.
func (h *Handler) FeatureReel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
	form, err := h.readFeatureReelForm(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Reels.Publish(r.Context(), reels.PublishRequest{
		Caption:         form.caption,
		StockIdentifier: form.stockIdentifier,
		ContentType:     form.contentType,
		File:            form.file,
	})
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, featureReelResponse{
		Message:  "Reel featured successfully",
		MediaURL: result.MediaURL,
		JobID:    result.Reel.JobID,
	})
}

type featureReelForm struct {
	caption         string
	stockIdentifier string
	contentType     string
	file            io.Reader
}

func (h *Handler) readFeatureReelForm(r *http.Request) (featureReelForm, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return featureReelForm{}, fmt.Errorf("invalid multipart payload")
	}

	form := featureReelForm{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return featureReelForm{}, fmt.Errorf("read multipart data: %w", err)
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		if name == "file" {
			if form.file != nil {
				_ = part.Close()
				continue
			}
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, part); err != nil {
				_ = part.Close()
				return featureReelForm{}, fmt.Errorf("read video file: %w", err)
			}
			_ = part.Close()
			if buf.Len() == 0 {
				// A zero-byte part is no video; leave the file unset so
				// publish validation rejects the request.
				continue
			}
			form.file = &buf
			form.contentType = part.Header.Get("Content-Type")
			continue
		}
		payload, readErr := io.ReadAll(part)
		_ = part.Close()
		if readErr != nil {
			return featureReelForm{}, fmt.Errorf("read form field: %w", readErr)
		}
		value := strings.TrimSpace(string(payload))
		switch name {
		case "caption":
			form.caption = value
		case "stock_identifier":
			form.stockIdentifier = value
		}
	}
	return form, nil
}

func (h *Handler) writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *reels.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, errors.New(verr.Message))
		return
	}
	h.Logger.Error("feature reel failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	WriteError(w, http.StatusInternalServerError, fmt.Errorf("Failed to feature reel: %v", err))
}

// ReelsLatest handles GET /reels-latest with an optional ?limit=N cap.
func (h *Handler) ReelsLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		WriteError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	summaries, err := h.Reels.ListLatest(r.Context(), limit)
	if err != nil {
		h.Logger.Error("list reels failed", "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Errorf("Failed to fetch reels: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// LikeReel handles POST /like-reel with a JSON body naming the reel and the
// liking client.
func (h *Handler) LikeReel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req likeReelRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %v", err))
		return
	}

	result, err := h.Reels.Like(r.Context(), req.ReelID, req.ClientID)
	if err != nil {
		var verr *reels.ValidationError
		switch {
		case errors.As(err, &verr):
			WriteError(w, http.StatusBadRequest, errors.New(verr.Message))
		case errors.Is(err, reels.ErrNotFound):
			WriteError(w, http.StatusNotFound, fmt.Errorf("reel %s not found", req.ReelID))
		default:
			h.Logger.Error("like reel failed", "reel_id", req.ReelID, "error", err)
			WriteError(w, http.StatusInternalServerError, fmt.Errorf("Failed to like reel: %v", err))
		}
		return
	}

	writeJSON(w, http.StatusOK, likeReelResponse{
		Message:     "Reel liked successfully",
		UpdatedReel: result,
	})
}
