package v1

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/tool"
	apierrors "github.com/hrygo/secretary/server/internal/errors"
	"github.com/hrygo/secretary/server/internal/observability"
	"github.com/hrygo/secretary/server/service/assistant"
)

const (
	// maxMessageLength bounds a message in runes.
	maxMessageLength = 4000

	// maxImageBytes bounds a decoded image attachment.
	maxImageBytes = 5 << 20
)

var supportedLocales = map[string]bool{"ru": true, "kz": true}

// MessageRequest is the body of POST /api/v1/messages and /api/v1/agent/messages.
type MessageRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMIME   string `json:"image_mime,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// MessageResponse is the routing pipeline reply.
type MessageResponse struct {
	Reply    string   `json:"reply"`
	Intents  []string `json:"intents"`
	Statuses []string `json:"statuses"`
}

// AgentMessageResponse is the handoff runtime reply.
type AgentMessageResponse struct {
	Reply    string   `json:"reply"`
	Agent    string   `json:"agent"`
	Statuses []string `json:"statuses"`
}

// PostMessage runs the routing pipeline.
// POST /api/v1/messages
func (s *APIV1Service) PostMessage(c echo.Context) error {
	in, apiErr := s.parseInput(c, true)
	if apiErr != nil {
		return writeError(c, apiErr)
	}
	reply, err := s.Assistant.Respond(c.Request().Context(), in)
	if err != nil {
		return writeError(c, classifyServiceError(err))
	}
	logHandled(c, in)
	return c.JSON(http.StatusOK, MessageResponse{
		Reply:    reply.Text,
		Intents:  nonNil(reply.Intents),
		Statuses: nonNil(reply.Statuses),
	})
}

// PostAgentMessage runs the agent handoff runtime.
// POST /api/v1/agent/messages
func (s *APIV1Service) PostAgentMessage(c echo.Context) error {
	in, apiErr := s.parseInput(c, false)
	if apiErr != nil {
		return writeError(c, apiErr)
	}
	reply, err := s.Assistant.Converse(c.Request().Context(), in)
	if err != nil {
		return writeError(c, classifyServiceError(err))
	}
	logHandled(c, in)
	return c.JSON(http.StatusOK, AgentMessageResponse{
		Reply:    reply.Text,
		Agent:    reply.Agent,
		Statuses: nonNil(reply.Statuses),
	})
}

func (s *APIV1Service) parseInput(c echo.Context, allowImage bool) (*assistant.Input, *apierrors.APIError) {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return nil, apierrors.InvalidArgument("invalid request body")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" && (req.ImageBase64 == "" || !allowImage) {
		return nil, apierrors.InvalidArgument("text is required")
	}
	if utf8.RuneCountInString(req.Text) > maxMessageLength {
		return nil, apierrors.InvalidArgument("text is too long")
	}

	locale := strings.ToLower(req.Locale)
	if !supportedLocales[locale] {
		locale = s.Profile.Runtime.DefaultLocale
	}
	id := identityFrom(c)
	in := &assistant.Input{
		Scope: tool.Scope{TenantID: id.TenantID, UserID: id.UserID, Locale: locale},
		Text:  req.Text,
	}

	if req.ImageBase64 != "" && allowImage {
		blob, apiErr := decodeImage(req.ImageBase64, req.ImageMIME)
		if apiErr != nil {
			return nil, apiErr
		}
		in.Blob = blob
	}
	return in, nil
}

func decodeImage(data, mime string) (*ai.Blob, *apierrors.APIError) {
	if !strings.HasPrefix(mime, "image/") {
		return nil, apierrors.InvalidArgument("image_mime must be an image type")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, apierrors.InvalidArgument("image_base64 is not valid base64")
	}
	if len(raw) > maxImageBytes {
		return nil, apierrors.InvalidArgument("image is too large")
	}
	return &ai.Blob{MIMEType: mime, Data: raw}, nil
}

func classifyServiceError(err error) *apierrors.APIError {
	if errors.Is(err, context.Canceled) {
		return apierrors.ContextCanceled(err)
	}
	return apierrors.ServiceUnavailable("Сервис временно недоступен, попробуйте позже", err)
}

func logHandled(c echo.Context, in *assistant.Input) {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.Info("message handled",
			slog.Int(observability.LogFieldMessageLen, utf8.RuneCountInString(in.Text)),
			slog.Bool("image", in.Blob != nil),
		)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
