// Package transcode submits uploaded reels to AWS Elemental MediaConvert for
// HLS packaging. Jobs run asynchronously; the returned job id is recorded on
// the reel so playback can switch to the packaged rendition.
package transcode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// Submitter queues a transcode of the source object and returns the job id.
type Submitter interface {
	Submit(ctx context.Context, sourceKey, outputPrefix string) (string, error)
}

// MediaConvertAPI is the subset of the MediaConvert client used here.
type MediaConvertAPI interface {
	CreateJob(ctx context.Context, in *mediaconvert.CreateJobInput, opts ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
}

// Config locates the source and destination buckets and the IAM role the
// MediaConvert service assumes to read and write them.
type Config struct {
	RoleARN      string
	SourceBucket string
	OutputBucket string
	Queue        string
}

func (c Config) validate() error {
	if strings.TrimSpace(c.RoleARN) == "" {
		return fmt.Errorf("transcode: role ARN is required")
	}
	if strings.TrimSpace(c.SourceBucket) == "" {
		return fmt.Errorf("transcode: source bucket is required")
	}
	if strings.TrimSpace(c.OutputBucket) == "" {
		return fmt.Errorf("transcode: output bucket is required")
	}
	return nil
}

// MediaConvertSubmitter creates HLS packaging jobs with a fixed profile:
// H.264 at quality-defined variable bitrate with scene-change detection,
// AAC stereo at 96 kb/s / 48 kHz, segments of roughly ten seconds.
type MediaConvertSubmitter struct {
	client MediaConvertAPI
	cfg    Config
}

// NewMediaConvertSubmitter wraps the provided MediaConvert client.
func NewMediaConvertSubmitter(client MediaConvertAPI, cfg Config) (*MediaConvertSubmitter, error) {
	if client == nil {
		return nil, fmt.Errorf("transcode: mediaconvert client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MediaConvertSubmitter{client: client, cfg: cfg}, nil
}

// Submit queues an HLS job reading sourceKey from the source bucket and
// writing segments plus index.m3u8 under outputPrefix in the output bucket.
func (s *MediaConvertSubmitter) Submit(ctx context.Context, sourceKey, outputPrefix string) (string, error) {
	if strings.TrimSpace(sourceKey) == "" {
		return "", fmt.Errorf("transcode: source key is required")
	}
	if strings.TrimSpace(outputPrefix) == "" {
		return "", fmt.Errorf("transcode: output prefix is required")
	}

	input := &mediaconvert.CreateJobInput{
		Role:     aws.String(s.cfg.RoleARN),
		Settings: s.jobSettings(sourceKey, outputPrefix),
	}
	if queue := strings.TrimSpace(s.cfg.Queue); queue != "" {
		input.Queue = aws.String(queue)
	}

	out, err := s.client.CreateJob(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create mediaconvert job for %s: %w", sourceKey, err)
	}
	if out.Job == nil || out.Job.Id == nil || *out.Job.Id == "" {
		return "", fmt.Errorf("create mediaconvert job for %s: response carried no job id", sourceKey)
	}
	return *out.Job.Id, nil
}

func (s *MediaConvertSubmitter) jobSettings(sourceKey, outputPrefix string) *types.JobSettings {
	source := fmt.Sprintf("s3://%s/%s", s.cfg.SourceBucket, strings.TrimLeft(sourceKey, "/"))
	destination := fmt.Sprintf("s3://%s/%s/index", s.cfg.OutputBucket, strings.Trim(outputPrefix, "/"))

	return &types.JobSettings{
		Inputs: []types.Input{{
			FileInput:      aws.String(source),
			TimecodeSource: types.InputTimecodeSourceZerobased,
			AudioSelectors: map[string]types.AudioSelector{
				"Audio Selector 1": {DefaultSelection: types.AudioDefaultSelectionDefault},
			},
			VideoSelector: &types.VideoSelector{},
		}},
		OutputGroups: []types.OutputGroup{{
			Name: aws.String("HLS"),
			OutputGroupSettings: &types.OutputGroupSettings{
				Type: types.OutputGroupTypeHlsGroupSettings,
				HlsGroupSettings: &types.HlsGroupSettings{
					Destination:      aws.String(destination),
					SegmentLength:    aws.Int32(10),
					MinSegmentLength: aws.Int32(0),
				},
			},
			Outputs: []types.Output{{
				ContainerSettings: &types.ContainerSettings{
					Container: types.ContainerTypeM3u8,
				},
				VideoDescription: &types.VideoDescription{
					CodecSettings: &types.VideoCodecSettings{
						Codec: types.VideoCodecH264,
						H264Settings: &types.H264Settings{
							RateControlMode:   types.H264RateControlModeQvbr,
							SceneChangeDetect: types.H264SceneChangeDetectTransitionDetection,
							MaxBitrate:        aws.Int32(5_000_000),
							QvbrSettings: &types.H264QvbrSettings{
								QvbrQualityLevel: aws.Int32(7),
							},
						},
					},
				},
				AudioDescriptions: []types.AudioDescription{{
					CodecSettings: &types.AudioCodecSettings{
						Codec: types.AudioCodecAac,
						AacSettings: &types.AacSettings{
							Bitrate:    aws.Int32(96_000),
							SampleRate: aws.Int32(48_000),
							CodingMode: types.AacCodingModeCodingMode20,
						},
					},
				}},
			}},
		}},
	}
}
