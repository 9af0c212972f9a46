package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

type capturingMediaConvert struct {
	input *mediaconvert.CreateJobInput
	jobID string
	err   error
}

func (c *capturingMediaConvert) CreateJob(ctx context.Context, in *mediaconvert.CreateJobInput, _ ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error) {
	c.input = in
	if c.err != nil {
		return nil, c.err
	}
	return &mediaconvert.CreateJobOutput{Job: &types.Job{Id: aws.String(c.jobID)}}, nil
}

func testConfig() Config {
	return Config{
		RoleARN:      "arn:aws:iam::123456789012:role/reelcast-mediaconvert",
		SourceBucket: "reel-media",
		OutputBucket: "reel-playback",
	}
}

func TestNewMediaConvertSubmitterValidates(t *testing.T) {
	if _, err := NewMediaConvertSubmitter(nil, testConfig()); err == nil {
		t.Fatal("expected error for nil client")
	}
	cfg := testConfig()
	cfg.RoleARN = ""
	if _, err := NewMediaConvertSubmitter(&capturingMediaConvert{}, cfg); err == nil {
		t.Fatal("expected error for missing role")
	}
}

func TestSubmitBuildsHLSJob(t *testing.T) {
	client := &capturingMediaConvert{jobID: "mc-job-1"}
	submitter, err := NewMediaConvertSubmitter(client, testConfig())
	if err != nil {
		t.Fatalf("NewMediaConvertSubmitter: %v", err)
	}

	jobID, err := submitter.Submit(context.Background(), "reels/ACME_abc.mp4", "reels/ACME_abc")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "mc-job-1" {
		t.Fatalf("job id = %q, want mc-job-1", jobID)
	}

	settings := client.input.Settings
	if len(settings.Inputs) != 1 {
		t.Fatalf("inputs = %d, want 1", len(settings.Inputs))
	}
	if got := *settings.Inputs[0].FileInput; got != "s3://reel-media/reels/ACME_abc.mp4" {
		t.Fatalf("file input = %q", got)
	}
	if len(settings.OutputGroups) != 1 {
		t.Fatalf("output groups = %d, want 1", len(settings.OutputGroups))
	}
	hls := settings.OutputGroups[0].OutputGroupSettings.HlsGroupSettings
	if hls == nil {
		t.Fatal("HLS group settings missing")
	}
	if got := *hls.Destination; got != "s3://reel-playback/reels/ACME_abc/index" {
		t.Fatalf("destination = %q", got)
	}
	if got := *hls.SegmentLength; got != 10 {
		t.Fatalf("segment length = %d, want 10", got)
	}

	video := settings.OutputGroups[0].Outputs[0].VideoDescription.CodecSettings
	if video.Codec != types.VideoCodecH264 {
		t.Fatalf("video codec = %v, want H264", video.Codec)
	}
	if video.H264Settings.RateControlMode != types.H264RateControlModeQvbr {
		t.Fatalf("rate control = %v, want QVBR", video.H264Settings.RateControlMode)
	}
	if video.H264Settings.SceneChangeDetect != types.H264SceneChangeDetectTransitionDetection {
		t.Fatalf("scene change detect = %v", video.H264Settings.SceneChangeDetect)
	}

	audio := settings.OutputGroups[0].Outputs[0].AudioDescriptions[0].CodecSettings
	if audio.Codec != types.AudioCodecAac {
		t.Fatalf("audio codec = %v, want AAC", audio.Codec)
	}
	if got := *audio.AacSettings.Bitrate; got != 96_000 {
		t.Fatalf("audio bitrate = %d, want 96000", got)
	}
	if got := *audio.AacSettings.SampleRate; got != 48_000 {
		t.Fatalf("audio sample rate = %d, want 48000", got)
	}
}

func TestSubmitOmitsQueueWhenUnset(t *testing.T) {
	client := &capturingMediaConvert{jobID: "mc-job-1"}
	submitter, _ := NewMediaConvertSubmitter(client, testConfig())
	if _, err := submitter.Submit(context.Background(), "reels/x.mp4", "reels/x"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if client.input.Queue != nil {
		t.Fatalf("queue = %v, want nil", *client.input.Queue)
	}
}

func TestSubmitSetsQueue(t *testing.T) {
	client := &capturingMediaConvert{jobID: "mc-job-1"}
	cfg := testConfig()
	cfg.Queue = "arn:aws:mediaconvert:us-east-1:123456789012:queues/reels"
	submitter, _ := NewMediaConvertSubmitter(client, cfg)
	if _, err := submitter.Submit(context.Background(), "reels/x.mp4", "reels/x"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if client.input.Queue == nil || *client.input.Queue != cfg.Queue {
		t.Fatalf("queue not forwarded: %v", client.input.Queue)
	}
}

func TestSubmitWrapsClientError(t *testing.T) {
	createErr := errors.New("throttled")
	submitter, _ := NewMediaConvertSubmitter(&capturingMediaConvert{err: createErr}, testConfig())
	if _, err := submitter.Submit(context.Background(), "reels/x.mp4", "reels/x"); !errors.Is(err, createErr) {
		t.Fatalf("err = %v, want wrapped client error", err)
	}
}

func TestSubmitRejectsEmptyArguments(t *testing.T) {
	submitter, _ := NewMediaConvertSubmitter(&capturingMediaConvert{jobID: "x"}, testConfig())
	if _, err := submitter.Submit(context.Background(), "", "reels/x"); err == nil {
		t.Fatal("expected error for empty source key")
	}
	if _, err := submitter.Submit(context.Background(), "reels/x.mp4", ""); err == nil {
		t.Fatal("expected error for empty output prefix")
	}
}

func TestStubSubmitterRecordsJobs(t *testing.T) {
	stub := NewStubSubmitter()
	jobID, err := stub.Submit(context.Background(), "reels/x.mp4", "reels/x")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID == "" {
		t.Fatal("empty job id")
	}
	jobs := stub.Jobs()
	if len(jobs) != 1 || jobs[0].SourceKey != "reels/x.mp4" || jobs[0].JobID != jobID {
		t.Fatalf("jobs = %+v", jobs)
	}

	stub.Fail(errors.New("down"))
	if _, err := stub.Submit(context.Background(), "reels/y.mp4", "reels/y"); err == nil {
		t.Fatal("expected configured failure")
	}
}
