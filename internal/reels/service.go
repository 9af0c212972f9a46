// Package reels implements the publish pipeline and its two read paths: the
// recency feed and the like counter.
package reels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelcast/internal/models"
	"reelcast/internal/observability/logging"
	"reelcast/internal/observability/metrics"
	"reelcast/internal/storage"
	"reelcast/internal/transcode"
)

// MediaStore uploads reel media and resolves keys to public URLs.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
}

// Config tunes the service. CallTimeout bounds each remote call; zero
// disables the bound.
type Config struct {
	CallTimeout time.Duration
}

// Service orchestrates publishing, listing and liking reels. The transcode
// submitter is optional; without it reels publish in direct mode and play
// straight from the uploaded object.
type Service struct {
	media     MediaStore
	repo      storage.Repository
	submitter transcode.Submitter
	recorder  *metrics.Recorder
	logger    *slog.Logger
	cfg       Config

	newID func() string
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithSubmitter enables transcoded mode via the given job submitter.
func WithSubmitter(submitter transcode.Submitter) Option {
	return func(s *Service) { s.submitter = submitter }
}

// WithRecorder wires pipeline outcome metrics.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the pipeline's collaborators.
func NewService(media MediaStore, repo storage.Repository, cfg Config, opts ...Option) (*Service, error) {
	if media == nil {
		return nil, fmt.Errorf("reels: media store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reels: repository is required")
	}
	s := &Service{
		media:  media,
		repo:   repo,
		logger: slog.Default(),
		cfg:    cfg,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PublishRequest carries one inbound upload.
type PublishRequest struct {
	Caption         string
	StockIdentifier string
	ContentType     string
	File            io.Reader
}

// PublishResult is returned after a successful publish.
type PublishResult struct {
	Reel     models.Reel
	MediaURL string
}

// Publish uploads the media object, optionally submits a transcode job, and
// records the reel. Failures abort the remaining steps without compensating
// the completed ones: a failed job submission or metadata write leaves the
// uploaded object (and any submitted job) orphaned.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	stock := strings.TrimSpace(req.StockIdentifier)
	if stock == "" {
		return PublishResult{}, validationErr("stock_identifier", "stock identifier is required")
	}
	if req.File == nil {
		return PublishResult{}, validationErr("file", "video file is required")
	}

	reelID := s.newID()
	ctx = logging.ContextWithReelID(ctx, reelID)
	storageKey := fmt.Sprintf("reels/%s_%s.mp4", stock, reelID)

	if err := s.uploadMedia(ctx, storageKey, req.ContentType, req.File); err != nil {
		s.observeFailure(StageUpload)
		return PublishResult{}, dependencyErr(StageUpload, err)
	}

	jobID := ""
	if s.submitter != nil {
		outputPrefix := fmt.Sprintf("reels/%s_%s", stock, reelID)
		id, err := s.submitJob(ctx, storageKey, outputPrefix)
		if err != nil {
			s.observeFailure(StageTranscode)
			if s.recorder != nil {
				s.recorder.ObserveTranscodeSubmission("rejected")
			}
			return PublishResult{}, dependencyErr(StageTranscode, err)
		}
		jobID = id
		if s.recorder != nil {
			s.recorder.ObserveTranscodeSubmission("submitted")
		}
	}

	reel := models.Reel{
		ReelID:          reelID,
		StockIdentifier: stock,
		StorageKey:      storageKey,
		Caption:         req.Caption,
		Likes:           0,
		LikedBy:         []string{},
		Timestamp:       s.now().UnixMilli(),
		JobID:           jobID,
	}
	if err := s.createRecord(ctx, reel); err != nil {
		s.observeFailure(StagePersist)
		return PublishResult{}, dependencyErr(StagePersist, err)
	}

	if s.recorder != nil {
		s.recorder.PublishSucceeded()
	}
	logging.WithContext(ctx, s.logger).Info("reel published",
		"stock_identifier", stock,
		"transcoded", jobID != "",
	)
	return PublishResult{Reel: reel, MediaURL: s.mediaURL(reel)}, nil
}

// Summary is one feed entry.
type Summary struct {
	ReelID          string   `json:"reel_id"`
	StockIdentifier string   `json:"stock_identifier"`
	Caption         string   `json:"caption,omitempty"`
	MediaURL        string   `json:"media_url"`
	Likes           int      `json:"likes"`
	LikedBy         []string `json:"liked_by"`
	Timestamp       int64    `json:"timestamp"`
}

// ListLatest returns reels newest first. A positive limit caps the result;
// zero or negative returns everything. An empty store yields an empty slice.
func (s *Service) ListLatest(ctx context.Context, limit int) ([]Summary, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	stored, err := s.repo.ListReels(callCtx)
	if err != nil {
		return nil, dependencyErr(StageList, err)
	}

	// Store order is backend-specific (map iteration, scans), so always
	// sort here.
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].Timestamp > stored[j].Timestamp
	})
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}

	summaries := make([]Summary, 0, len(stored))
	for _, reel := range stored {
		likedBy := reel.LikedBy
		if likedBy == nil {
			likedBy = []string{}
		}
		summaries = append(summaries, Summary{
			ReelID:          reel.ReelID,
			StockIdentifier: reel.StockIdentifier,
			Caption:         reel.Caption,
			MediaURL:        s.mediaURL(reel),
			Likes:           reel.Likes,
			LikedBy:         likedBy,
			Timestamp:       reel.Timestamp,
		})
	}
	return summaries, nil
}

// LikeResult carries the post-update counter state.
type LikeResult struct {
	Likes   int      `json:"likes"`
	LikedBy []string `json:"liked_by"`
}

// Like atomically increments the counter and appends the client id. Repeat
// likes by the same client append again; deduplication is left to callers.
func (s *Service) Like(ctx context.Context, reelID, clientID string) (LikeResult, error) {
	reelID = strings.TrimSpace(reelID)
	if reelID == "" {
		return LikeResult{}, validationErr("reel_id", "reel id is required")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return LikeResult{}, validationErr("client_id", "client id is required")
	}
	ctx = logging.ContextWithReelID(ctx, reelID)

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	updated, err := s.repo.AddLike(callCtx, reelID, clientID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LikeResult{}, fmt.Errorf("like reel %s: %w", reelID, ErrNotFound)
		}
		return LikeResult{}, dependencyErr(StageLike, err)
	}

	if s.recorder != nil {
		s.recorder.ObserveLike("applied")
	}
	logging.WithContext(ctx, s.logger).Debug("like applied", "likes", updated.Likes)
	return LikeResult{Likes: updated.Likes, LikedBy: updated.CloneLikedBy()}, nil
}

// mediaURL derives the playable URL for a reel. Transcoded reels point at the
// expected HLS manifest, which may not exist yet while the job is running.
func (s *Service) mediaURL(reel models.Reel) string {
	if reel.Transcoded() {
		return s.media.PublicURL(fmt.Sprintf("reels/%s_%s/index.m3u8", reel.StockIdentifier, reel.ReelID))
	}
	return s.media.PublicURL(reel.StorageKey)
}

func (s *Service) uploadMedia(ctx context.Context, key, contentType string, body io.Reader) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	return s.media.Upload(callCtx, key, contentType, body)
}

func (s *Service) submitJob(ctx context.Context, sourceKey, outputPrefix string) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	return s.submitter.Submit(callCtx, sourceKey, outputPrefix)
}

func (s *Service) createRecord(ctx context.Context, reel models.Reel) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	return s.repo.CreateReel(callCtx, reel)
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Service) observeFailure(stage string) {
	if s.recorder != nil {
		s.recorder.PublishFailed(stage)
	}
}
