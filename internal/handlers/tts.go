package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

// maxSpeechRunes is the longest text accepted for one speech request.
const maxSpeechRunes = 4096

type TTSRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

// TTSHandler returns synthesized speech as raw audio bytes. Voices the
// speech model does not know are replaced by the configured default.
type TTSHandler struct {
	llmService   services.LLMService
	defaultVoice string
	logger       *slog.Logger
}

func NewTTSHandler(llmService services.LLMService, defaultVoice string, logger *slog.Logger) *TTSHandler {
	return &TTSHandler{llmService: llmService, defaultVoice: defaultVoice, logger: logger}
}

func (h *TTSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req TTSRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, h.logger, http.StatusBadRequest, "text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxSpeechRunes {
		text = string([]rune(text)[:maxSpeechRunes])
	}

	voice := roles.NormalizeVoice(req.Voice, h.defaultVoice)
	if req.Voice != "" && voice != strings.ToLower(strings.TrimSpace(req.Voice)) {
		h.logger.Debug("Unsupported voice remapped", "requested", req.Voice, "voice", voice)
	}
	format, _ := roles.NormalizeAudioFormat(req.Format)

	audio, err := h.llmService.Speak(r.Context(), services.SpeechRequest{
		Text:   text,
		Voice:  voice,
		Format: format,
	})
	if err != nil {
		h.logger.Error("Speech synthesis failed", "voice", voice, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrUnsupported) {
			status = http.StatusNotImplemented
		}
		writeError(w, h.logger, status, "Failed to synthesize speech")
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		h.logger.Warn("Failed to write audio", "error", err)
	}
}
