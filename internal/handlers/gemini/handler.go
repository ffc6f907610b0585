// Package gemini serves the native generateContent dialect.
package gemini

import (
	"net/http"
	"strings"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/streaming"
	"antigravity2api-go/internal/translator"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type adapter struct {
	conv *translator.Converter
}

func (a adapter) Name() string { return "gemini" }

func (a adapter) AssembleNonStream(requestedModel string, p translator.Parsed) []byte {
	return a.conv.GeminiResponse(p)
}

func (a adapter) NewStreamWriter(fw *streaming.FrameWriter, requestedModel string) streaming.Writer {
	return streaming.NewGeminiWriter(fw, a.conv.PassSignatureToClient)
}

func (a adapter) ErrorEnvelope(e *apperrors.APIError) map[string]interface{} {
	return apperrors.GeminiEnvelope(e)
}

// GenerateContent handles POST /v1beta/models/{model}:{method}. The method
// segment decides streaming: streamGenerateContent always streams,
// generateContent streams with ?alt=sse or the _isStream body flag.
func GenerateContent(relay *common.Relay) gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := adapter{conv: relay.Conv}

		model, method, ok := splitModelAction(c.Param("modelAction"))
		if !ok {
			common.WriteError(c, ad, apperrors.New(apperrors.KindInvalidRequest,
				http.StatusBadRequest, "expected models/{model}:{generateContent|streamGenerateContent}"))
			return
		}

		raw, apiErr := common.ReadBody(c)
		if apiErr != nil {
			common.WriteError(c, ad, apiErr)
			return
		}

		// _isStream 是请求体里的流式开关，剥掉再转换，不能透传给上游
		bodyStream := false
		if v := gjson.GetBytes(raw, "_isStream"); v.Exists() {
			bodyStream = v.Bool()
			raw, _ = sjson.DeleteBytes(raw, "_isStream")
		}

		up, err := relay.Conv.GeminiToUpstream(model, raw)
		if err != nil {
			common.WriteError(c, ad, apperrors.AsAPIError(err))
			return
		}

		var stream bool
		switch method {
		case "streamGenerateContent":
			stream = true
		case "generateContent":
			stream = bodyStream || strings.EqualFold(c.Query("alt"), "sse")
		default:
			common.WriteError(c, ad, apperrors.Newf(apperrors.KindInvalidRequest,
				http.StatusBadRequest, "unsupported method %q", method))
			return
		}

		relay.Handle(c, ad, model, up, stream)
	}
}

// splitModelAction parses "{model}:{method}" from the wildcard path segment.
func splitModelAction(segment string) (model, method string, ok bool) {
	segment = strings.TrimPrefix(segment, "/")
	idx := strings.LastIndex(segment, ":")
	if idx <= 0 || idx == len(segment)-1 {
		return "", "", false
	}
	return segment[:idx], segment[idx+1:], true
}

// ListModels handles GET /v1beta/models.
func ListModels(ids func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.GeminiList(ids()))
	}
}
