package whatsapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type templatePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templateMessage `json:"template"`
}

type templateMessage struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// buildTemplatePayload renders params positionally into one body component.
// The position is the template contract: {{1}} is params[0].
func buildTemplatePayload(phone, templateName, language string, params []any) templatePayload {
	payload := templatePayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: templateMessage{
			Name:     templateName,
			Language: templateLanguage{Code: language},
		},
	}
	if len(params) == 0 {
		return payload
	}

	parameters := make([]templateParameter, 0, len(params))
	for _, p := range params {
		parameters = append(parameters, templateParameter{Type: "text", Text: paramText(p)})
	}
	payload.Template.Components = []templateComponent{{Type: "body", Parameters: parameters}}
	return payload
}

func paramText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// APIError is a structured provider error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrProviderRejected
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: ErrorCodeUnknown, Message: "unknown error"}

	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apiErr
	}
	if msg := strings.TrimSpace(body.Error.Message); msg != "" {
		apiErr.Message = msg
	}
	if body.Error.Code != nil {
		if code := strings.TrimSpace(fmt.Sprint(body.Error.Code)); code != "" {
			apiErr.Code = code
		}
	}
	return apiErr
}
