package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"github.com/goccy/go-json"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// Static errors for codec operations
var (
	ErrEmptyAudio         = errors.New("decoded audio is empty")
	ErrNoAudioStream      = errors.New("no audio stream found in file")
	ErrSampleRateMismatch = errors.New("audio sample rate is not 16 kHz")
)

// Decode reads an audio file (flac or wav) and returns mono float32 PCM at
// the pipeline sample rate. ffmpeg performs the container decode and any
// resampling in one pass.
func Decode(path string) ([]float32, error) {
	var out, stderr bytes.Buffer

	err := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"format": "s16le",
			"acodec": "pcm_s16le",
			"ar":     SampleRate,
			"ac":     1,
		}).
		WithOutput(&out).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		logging.Logger.Error("ffmpeg decode failed",
			zap.String("path", path),
			zap.String("error", err.Error()),
			zap.String("stderr", stderr.String()),
		)

		return nil, fmt.Errorf("ffmpeg decode failed for %s: %w", path, err)
	}

	raw := out.Bytes()
	if len(raw) < 2 {
		return nil, ErrEmptyAudio
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(raw[i*2]) | int16(raw[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}

	return samples, nil
}

// EncodeFLAC writes mono float32 PCM to a flac file at the pipeline rate.
func EncodeFLAC(path string, samples []float32) error {
	raw := make([]byte, len(samples)*2)

	for i, f := range samples {
		v := f
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}

		s := int16(v * 32767)
		raw[i*2] = byte(s)
		raw[i*2+1] = byte(s >> 8)
	}

	var stderr bytes.Buffer

	err := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format": "s16le",
		"ar":     SampleRate,
		"ac":     1,
	}).
		Output(path, ffmpeg.KwArgs{"acodec": "flac"}).
		OverWriteOutput().
		WithInput(bytes.NewReader(raw)).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		logging.Logger.Error("ffmpeg encode failed",
			zap.String("path", path),
			zap.String("error", err.Error()),
			zap.String("stderr", stderr.String()),
		)

		return fmt.Errorf("ffmpeg encode failed for %s: %w", path, err)
	}

	return nil
}

// probeOutput mirrors the stream fields of ffprobe's JSON output.
type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// CheckSampleRate probes a file and fails if its audio stream is not at the
// pipeline sample rate. Used by the extraction stage where generated examples
// are expected to already be 16 kHz.
func CheckSampleRate(path string) error {
	probeData, err := ffmpeg.Probe(path)
	if err != nil {
		return fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var output probeOutput

	err = json.Unmarshal([]byte(probeData), &output)
	if err != nil {
		return fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, stream := range output.Streams {
		if stream.CodecType != "audio" {
			continue
		}

		rate, err := strconv.Atoi(stream.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to parse sample rate %q: %w", stream.SampleRate, err)
		}

		if rate != SampleRate {
			return fmt.Errorf("%w: got %d", ErrSampleRateMismatch, rate)
		}

		return nil
	}

	return ErrNoAudioStream
}
