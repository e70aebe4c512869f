package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

// backendError mirrors the error envelope of the API: detail is either a
// plain message or a list of field validation failures.
type backendError struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldDetail struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// ClassifyResponse maps a non-2xx response into the client error taxonomy.
// A 401 is only reachable here for unauthenticated calls such as login.
func ClassifyResponse(resp *http.Response, unauthenticated bool) *AppError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	field, message := ParseDetail(body)
	status := resp.StatusCode

	switch {
	case status == http.StatusUnauthorized && unauthenticated:
		e := InvalidCredentialsError()
		if message != "" {
			e.WithParam("detail", message)
		}
		return e
	case status == http.StatusUnauthorized:
		return AuthExpiredError(fmt.Errorf("unauthorized: %s", message))
	case status >= 500:
		return ServerError(status, message)
	case status >= 400:
		return ValidationFailedError(field, message, status)
	default:
		return ServerError(status, fmt.Sprintf("unexpected status %d", status))
	}
}

// ParseDetail extracts the first field name and a readable message.
func ParseDetail(body []byte) (field, message string) {
	var envelope backendError
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return "", strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return "", text
	}

	var list []fieldDetail
	if err := json.Unmarshal(envelope.Detail, &list); err == nil && len(list) > 0 {
		msgs := make([]string, 0, len(list))
		for _, d := range list {
			msgs = append(msgs, d.Msg)
		}
		first := list[0]
		if n := len(first.Loc); n > 0 {
			field = fmt.Sprint(first.Loc[n-1])
		}
		return field, strings.Join(msgs, "; ")
	}

	return "", string(envelope.Detail)
}

// DecodeError classifies a failure while reading or decoding a response body.
// A body cut short by a timeout or a dropped connection is a transport failure;
// anything the decoder rejects is the server's fault.
func DecodeError(err error) *AppError {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, io.ErrUnexpectedEOF):
		return NetworkError(fmt.Errorf("read body: %w", err))
	default:
		return ServerError(http.StatusBadGateway, "malformed response").WithError(fmt.Errorf("decode json: %w", err))
	}
}
