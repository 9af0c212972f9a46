package models

import "time"

// Reel is the sole persisted entity: one published short-video asset and its
// metadata. A reel is created exactly once by the publish pipeline and is
// mutated only by the like counter afterwards; it is never deleted.
type Reel struct {
	ReelID          string   `json:"reel_id"`
	StockIdentifier string   `json:"stock_identifier"`
	StorageKey      string   `json:"s3_key"`
	Caption         string   `json:"caption,omitempty"`
	Likes           int      `json:"likes"`
	LikedBy         []string `json:"liked_by"`
	Timestamp       int64    `json:"timestamp"`
	JobID           string   `json:"job_id,omitempty"`
}

// Transcoded reports whether the reel was published with a transcode job, which
// switches its playback URL from the raw upload to the HLS manifest.
func (r Reel) Transcoded() bool {
	return r.JobID != ""
}

// CreatedAt converts the epoch-millisecond creation stamp back to a time.Time.
func (r Reel) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// CloneLikedBy returns a copy of the liked_by log so callers cannot mutate the
// stored slice. The log is a multiset: repeated likes by the same client append
// the client id again.
func (r Reel) CloneLikedBy() []string {
	if r.LikedBy == nil {
		return []string{}
	}
	return append([]string(nil), r.LikedBy...)
}
