package ffmpeg

import "strings"

// CodecArgs returns the encoder arguments for an output container
// extension. The extension decides the codec: wav carries PCM, mp3 uses
// LAME at quality 2, m4a uses AAC at 128k.
func CodecArgs(ext string) []string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "wav":
		return []string{"-c:a", "pcm_s16le"}
	case "mp3":
		return []string{"-c:a", "libmp3lame", "-q:a", "2"}
	case "m4a", "aac":
		return []string{"-c:a", "aac", "-b:a", "128k"}
	default:
		return nil
	}
}

// SupportedInputExt reports whether the extension belongs to the
// recognized input set. Inputs outside the set are skipped, not failed.
func SupportedInputExt(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "wav", "mp3", "m4a":
		return true
	}
	return false
}
