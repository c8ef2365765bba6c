package serviceerr

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

// FromResponse decodes a non-2xx backend response. The backend reports
// failures either as {"detail": "..."}, as a list of validation issues under
// "detail", or as {"message": "..."}. The body is consumed but not closed.
func FromResponse(resp *http.Response) *Error {
	e := &Error{
		Err:    CodeFromStatus(resp.StatusCode),
		Status: resp.StatusCode,
	}

	if resp.Body == nil {
		return e
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return e
	}

	e.Description = decodeMessage(data)

	return e
}

func decodeMessage(data []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	if body.Message != "" {
		return body.Message
	}

	if len(body.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return detail
	}

	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}

		return strings.Join(msgs, "; ")
	}

	return ""
}
