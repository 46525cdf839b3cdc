package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/privacy"
	"github.com/themobileprof/commandbot/pkg/twilio"
)

const (
	voiceGatherPath = "/api/voice/gather"
	voiceWelcome    = "Hello! How can I assist you today?"
	voicePrompt     = "Anything else?"
	voiceNoInput    = "I didn't catch that."
	voiceGoodbye    = "Goodbye."
)

// VoiceHandler answers telephony speech webhooks with TwiML.
type VoiceHandler struct {
	processor Processor
	validator *twilio.Validator
	logger    *zap.Logger
}

// NewVoiceHandler creates a new voice handler. A nil or disabled validator
// accepts unsigned requests.
func NewVoiceHandler(p Processor, validator *twilio.Validator, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{processor: p, validator: validator, logger: logging.OrNop(logger).Named("voice")}
}

// HandleIncoming greets the caller and starts listening.
func (h *VoiceHandler) HandleIncoming(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.writeTwiML(c, twilio.NewResponse().
		Say(voiceWelcome).
		Gather(voiceGatherPath, "", 0).
		Say(voiceGoodbye).
		Hangup())
}

// HandleGather runs the recognized speech through the router and speaks the
// plain reply, then listens again.
func (h *VoiceHandler) HandleGather(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	params := twilio.ParseGather(c.Request.PostForm)

	if params.SpeechResult == "" {
		h.writeTwiML(c, twilio.NewResponse().
			Say(voiceNoInput).
			Gather(voiceGatherPath, voicePrompt, 0).
			Say(voiceGoodbye).
			Hangup())
		return
	}

	h.logger.Info("voice command",
		zap.String("call_sid", params.CallSid),
		zap.String("speech", privacy.SanitizeForLogging(params.SpeechResult)),
		zap.String("confidence", params.Confidence),
	)

	reply := h.processor.Process(c.Request.Context(), params.SpeechResult)
	h.writeTwiML(c, twilio.NewResponse().
		Say(reply.Plain).
		Gather(voiceGatherPath, voicePrompt, 0).
		Say(voiceGoodbye).
		Hangup())
}

// HandleStatus records call status callbacks.
func (h *VoiceHandler) HandleStatus(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	params := twilio.ParseStatus(c.Request.PostForm)
	h.logger.Info("call status",
		zap.String("call_sid", params.CallSid),
		zap.String("status", params.CallStatus),
		zap.String("duration", params.CallDuration),
	)
	c.Status(http.StatusNoContent)
}

// authorize parses the form and checks the webhook signature.
func (h *VoiceHandler) authorize(c *gin.Context) bool {
	if err := c.Request.ParseForm(); err != nil {
		h.logger.Warn("failed to parse voice webhook form", zap.Error(err))
		c.String(http.StatusBadRequest, "Invalid request")
		return false
	}
	if !h.validator.Enabled() {
		return true
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	fullURL := scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()

	if !h.validator.Validate(fullURL, c.Request.PostForm, c.GetHeader(twilio.SignatureHeader)) {
		h.logger.Warn("rejected voice webhook with bad signature", zap.String("url", fullURL))
		c.String(http.StatusForbidden, "Invalid signature")
		return false
	}
	return true
}

func (h *VoiceHandler) writeTwiML(c *gin.Context, r *twilio.Response) {
	body, err := r.Marshal()
	if err != nil {
		h.logger.Error("failed to render TwiML", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal error")
		return
	}
	c.Data(http.StatusOK, "application/xml", body)
}
