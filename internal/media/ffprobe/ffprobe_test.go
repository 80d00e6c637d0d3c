package ffprobe_test

import (
	"testing"

	"loudsync/internal/media/ffprobe"
)

const samplePayload = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "pcm_s16le",
      "codec_type": "audio",
      "duration": "183.427000",
      "sample_rate": "48000",
      "channels": 2
    }
  ],
  "format": {
    "filename": "track.wav",
    "nb_streams": 1,
    "duration": "183.427000",
    "format_name": "wav"
  }
}`

func TestParse(t *testing.T) {
	result, err := ffprobe.Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.AudioStreamCount(); got != 1 {
		t.Fatalf("AudioStreamCount = %d, want 1", got)
	}
	if got := result.DurationSeconds(); got != 183.427 {
		t.Fatalf("DurationSeconds = %v, want 183.427", got)
	}
	if got := result.SampleRate(); got != 48000 {
		t.Fatalf("SampleRate = %d, want 48000", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ffprobe.Parse([]byte("size=  128kB time=00:00:05")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDurationSecondsMissing(t *testing.T) {
	result, err := ffprobe.Parse([]byte(`{"format": {"filename": "x.wav"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.DurationSeconds(); got != 0 {
		t.Fatalf("DurationSeconds = %v, want 0", got)
	}
}
