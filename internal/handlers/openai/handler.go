// Package openai serves the Chat Completions dialect.
package openai

import (
	"net/http"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/streaming"
	"antigravity2api-go/internal/translator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type adapter struct {
	conv *translator.Converter
}

func (a adapter) Name() string { return "openai" }

func (a adapter) AssembleNonStream(requestedModel string, p translator.Parsed) []byte {
	return a.conv.OpenAIResponse(requestedModel, p)
}

func (a adapter) NewStreamWriter(fw *streaming.FrameWriter, requestedModel string) streaming.Writer {
	return streaming.NewOpenAIWriter(fw, requestedModel, "chatcmpl-"+uuid.NewString())
}

func (a adapter) ErrorEnvelope(e *apperrors.APIError) map[string]interface{} {
	return apperrors.OpenAIEnvelope(e)
}

// ChatCompletions handles POST /v1/chat/completions.
func ChatCompletions(relay *common.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := adapter{conv: relay.Conv}

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

		up, err := relay.Conv.OpenAIToUpstream(raw)
		if err != nil {
			common.WriteError(c, ad, apperrors.AsAPIError(err))
			return
		}

		stream := gjson.GetBytes(raw, "stream").Bool()
		relay.Handle(c, ad, requestedModel, up, stream)
	}
}

// ListModels handles GET /v1/models.
func ListModels(ids func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OpenAIList(ids()))
	}
}
