package roles

import "strings"

const (
	DefaultVoice       = "alloy"
	DefaultAudioFormat = "mp3"
)

var voices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true,
	"echo": true, "fable": true, "onyx": true, "nova": true,
	"sage": true, "shimmer": true, "verse": true,
}

var audioContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"opus": "audio/ogg",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"pcm":  "audio/L16",
}

// NormalizeVoice returns v if the speech model supports it, otherwise
// fallback, otherwise DefaultVoice.
func NormalizeVoice(v, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if voices[v] {
		return v
	}
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if voices[fallback] {
		return fallback
	}
	return DefaultVoice
}

// NormalizeAudioFormat returns a supported format and its content type.
func NormalizeAudioFormat(f string) (string, string) {
	f = strings.ToLower(strings.TrimSpace(f))
	if ct, ok := audioContentTypes[f]; ok {
		return f, ct
	}
	return DefaultAudioFormat, audioContentTypes[DefaultAudioFormat]
}
