// Package common hosts the dialect-agnostic request pipeline: account
// acquisition, upstream dispatch with 429 retry, and the four stream/
// non-stream framing modes.
package common

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"antigravity2api-go/internal/account"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/streaming"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxAccountAttempts bounds how many accounts one request may burn through
// when the upstream keeps rejecting tokens.
const maxAccountAttempts = 3

// DialectAdapter is the per-protocol surface the relay drives. The handler
// packages implement one each.
type DialectAdapter interface {
	Name() string
	AssembleNonStream(requestedModel string, p translator.Parsed) []byte
	NewStreamWriter(fw *streaming.FrameWriter, requestedModel string) streaming.Writer
	ErrorEnvelope(e *apperrors.APIError) map[string]interface{}
}

// Relay binds one upstream pool (manager + client) to the shared pipeline.
type Relay struct {
	Cfg     *config.Config
	Manager *account.Manager
	Client  *upstream.Client
	Conv    *translator.Converter
}

// Handle runs the full pipeline for one chat request.
func (r *Relay) Handle(c *gin.Context, ad DialectAdapter, requestedModel string, up *translator.Upstream, stream bool) {
	c.Set("model", requestedModel)

	switch {
	case stream && up.Features.FakeStream:
		r.handleFakeStream(c, ad, requestedModel, up)
	case stream:
		r.handleStream(c, ad, requestedModel, up)
	case r.Cfg.FakeNonStream && !translator.IsImageModel(up.Model):
		r.handleFakeNonStream(c, ad, requestedModel, up)
	default:
		r.handleNonStream(c, ad, requestedModel, up)
	}
}

// handleStream relays the upstream SSE body through the dialect writer.
func (r *Relay) handleStream(c *gin.Context, ad DialectAdapter, requestedModel string, up *translator.Upstream) {
	resp, apiErr := r.execute(c, up, true)
	if apiErr != nil {
		WriteError(c, ad, apiErr)
		return
	}
	defer resp.Body.Close()

	SetSSEHeaders(c)
	fw := streaming.NewFrameWriter(c.Writer)
	stopHeartbeat := streaming.Heartbeat(c.Request.Context(), fw, r.Cfg.HeartbeatInterval())
	defer stopHeartbeat()

	parser := streaming.NewParser(r.Conv, up.Model, up.HasTools)
	writer := ad.NewStreamWriter(fw, requestedModel)
	if err := streaming.Pump(c.Request.Context(), resp.Body, parser, writer); err != nil {
		logging.WithReq(c, log.Fields{"dialect": ad.Name()}).WithError(err).Warn("stream aborted")
		writeStreamError(fw, ad, apperrors.AsAPIError(err))
	}
}

// handleFakeStream makes the non-stream call and replays it as SSE.
func (r *Relay) handleFakeStream(c *gin.Context, ad DialectAdapter, requestedModel string, up *translator.Upstream) {
	parsed, apiErr := r.fetchParsed(c, up)
	if apiErr != nil {
		WriteError(c, ad, apiErr)
		return
	}

	SetSSEHeaders(c)
	fw := streaming.NewFrameWriter(c.Writer)
	writer := ad.NewStreamWriter(fw, requestedModel)
	if err := streaming.Replay(streaming.EventsFromParsed(*parsed), writer); err != nil {
		logging.WithReq(c, log.Fields{"dialect": ad.Name()}).WithError(err).Warn("fake stream aborted")
	}
}

// handleFakeNonStream drives the stream path into a collector and returns
// one JSON body.
func (r *Relay) handleFakeNonStream(c *gin.Context, ad DialectAdapter, requestedModel string, up *translator.Upstream) {
	resp, apiErr := r.execute(c, up, true)
	if apiErr != nil {
		WriteError(c, ad, apiErr)
		return
	}
	defer resp.Body.Close()

	parser := streaming.NewParser(r.Conv, up.Model, up.HasTools)
	collector := streaming.NewCollector()
	if err := streaming.Pump(c.Request.Context(), resp.Body, parser, collector); err != nil {
		WriteError(c, ad, apperrors.AsAPIError(err))
		return
	}
	c.Data(http.StatusOK, "application/json", ad.AssembleNonStream(requestedModel, collector.Result()))
}

func (r *Relay) handleNonStream(c *gin.Context, ad DialectAdapter, requestedModel string, up *translator.Upstream) {
	parsed, apiErr := r.fetchParsed(c, up)
	if apiErr != nil {
		WriteError(c, ad, apiErr)
		return
	}
	c.Data(http.StatusOK, "application/json", ad.AssembleNonStream(requestedModel, *parsed))
}

// fetchParsed runs the non-stream upstream call and flattens the response.
func (r *Relay) fetchParsed(c *gin.Context, up *translator.Upstream) (*translator.Parsed, *apperrors.APIError) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.UpstreamGenerateTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)

	resp, apiErr := r.execute(c, up, false)
	if apiErr != nil {
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, apperrors.AsAPIError(err)
	}
	parsed := r.Conv.ParseResponse(up.Model, body)
	return &parsed, nil
}

// execute acquires an account and dispatches the request, retrying 429s on
// the same token and rotating to the next account on token-level failures.
// On success the caller owns resp.Body.
func (r *Relay) execute(c *gin.Context, up *translator.Upstream, stream bool) (*http.Response, *apperrors.APIError) {
	ctx := c.Request.Context()
	var lastErr *apperrors.APIError

	for attempt := 0; attempt < maxAccountAttempts; attempt++ {
		token := r.Manager.GetToken(ctx)
		if token == nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, apperrors.New(apperrors.KindNoAvailableAccount,
				http.StatusServiceUnavailable, "no available account")
		}

		envelope := translator.BuildEnvelope(up.Model, token.ProjectID, up.Request)
		resp, err := upstream.DoWithRetry(ctx, r.Cfg.RetryTimes, func() (*http.Response, error) {
			if stream {
				return r.Client.Stream(ctx, token.AccessToken, envelope)
			}
			return r.Client.Generate(ctx, token.AccessToken, envelope)
		})
		if err != nil {
			return nil, apperrors.AsAPIError(err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		resp.Body.Close()
		apiErr := apperrors.FromUpstreamStatus(resp.StatusCode, body)

		switch apiErr.Kind {
		case apperrors.KindTokenInvalid:
			r.Manager.DisableByRefreshToken(token.RefreshToken, apiErr.Message)
			lastErr = apiErr
			continue
		case apperrors.KindRateLimit:
			r.Manager.ReportQuotaExhausted(token.RefreshToken)
			lastErr = apiErr
			continue
		default:
			return nil, apiErr
		}
	}
	return nil, lastErr
}

// SetSSEHeaders marks the response as an event stream.
func SetSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()
}

// WriteError responds in the dialect envelope; if headers already went out,
// the error becomes a data frame on the open stream.
func WriteError(c *gin.Context, ad DialectAdapter, e *apperrors.APIError) {
	if c.Writer.Written() {
		fw := streaming.NewFrameWriter(c.Writer)
		writeStreamError(fw, ad, e)
		return
	}
	c.JSON(e.HTTPStatus, ad.ErrorEnvelope(e))
}

func writeStreamError(fw *streaming.FrameWriter, ad DialectAdapter, e *apperrors.APIError) {
	payload, err := json.Marshal(ad.ErrorEnvelope(e))
	if err != nil {
		return
	}
	_ = fw.WriteData(payload)
}

// ReadBody slurps the request body with a sane cap.
func ReadBody(c *gin.Context) ([]byte, *apperrors.APIError) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64*1024*1024))
	if err != nil {
		return nil, apperrors.New(apperrors.KindInvalidRequest, http.StatusBadRequest, "failed to read request body")
	}
	if len(body) == 0 {
		return nil, apperrors.New(apperrors.KindInvalidRequest, http.StatusBadRequest, "empty request body")
	}
	return body, nil
}
