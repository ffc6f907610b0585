// Package claude serves the Anthropic Messages dialect.
package claude

import (
	"net/http"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/streaming"
	"antigravity2api-go/internal/translator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type adapter struct {
	conv          *translator.Converter
	passSignature bool
}

func (a adapter) Name() string { return "claude" }

func (a adapter) AssembleNonStream(requestedModel string, p translator.Parsed) []byte {
	return a.conv.ClaudeResponse(requestedModel, p)
}

func (a adapter) NewStreamWriter(fw *streaming.FrameWriter, requestedModel string) streaming.Writer {
	return streaming.NewClaudeWriter(fw, requestedModel, "msg_"+uuid.NewString(), a.passSignature)
}

func (a adapter) ErrorEnvelope(e *apperrors.APIError) map[string]interface{} {
	return apperrors.ClaudeEnvelope(e)
}

// Messages handles POST /v1/messages.
func Messages(relay *common.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := adapter{conv: relay.Conv, passSignature: relay.Cfg.PassSignatureToClient}

		raw, apiErr := common.ReadBody(c)
		if apiErr != nil {
			common.WriteError(c, ad, apiErr)
			return
		}
		requestedModel := gjson.GetBytes(raw, "model").String()
		if requestedModel == "" {
			common.WriteError(c, ad, apperrors.New(apperrors.KindInvalidRequest,
				http.StatusBadRequest, "model is required"))
			return
		}
		if len(gjson.GetBytes(raw, "messages").Array()) == 0 {
			common.WriteError(c, ad, apperrors.New(apperrors.KindInvalidRequest,
				http.StatusBadRequest, "messages must be a non-empty array"))
			return
		}

		up, err := relay.Conv.ClaudeToUpstream(raw)
		if err != nil {
			common.WriteError(c, ad, apperrors.AsAPIError(err))
			return
		}

		stream := gjson.GetBytes(raw, "stream").Bool()
		relay.Handle(c, ad, requestedModel, up, stream)
	}
}
