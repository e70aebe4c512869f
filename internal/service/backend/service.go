// Package backend holds typed clients for the LeoneAI REST API. Every call
// goes through pkg/http.Client, so bearer auth, the single refresh-and-replay
// on 401 and error classification are applied uniformly.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
)

// Service is the typed facade over the backend endpoints.
type Service struct {
	http *pkghttp.Client
}

// NewService wraps an authenticated backend client.
func NewService(client *pkghttp.Client) *Service {
	models.MustRegisterValidations(pkghttp.Validator())
	return &Service{http: client}
}

// Client returns the underlying HTTP client.
func (s *Service) Client() *pkghttp.Client {
	return s.http
}

func (s *Service) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         path,
		QueryParams: query,
	}, dest)
}

func (s *Service) send(ctx context.Context, method, path string, body, dest interface{}) error {
	return s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: method,
		URL:    path,
		Body:   body,
	}, dest)
}

func (s *Service) validate(ctx context.Context, req interface{}) error {
	return pkghttp.PrepareStruct(ctx, req)
}

// StatusMessage is the generic {status, message} acknowledgement.
type StatusMessage struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// decodeList accepts either a bare JSON array or an envelope holding one under key.
func decodeList(raw json.RawMessage, key string, dest interface{}) error {
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, dest)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	inner, ok := env[key]
	if !ok {
		return fmt.Errorf("response has no %q list", key)
	}
	return json.Unmarshal(inner, dest)
}

// compact drops null entries from a decoded list.
func compact[T any](in []*T) []*T {
	out := in[:0]
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func intQuery(v int) []string {
	return []string{strconv.Itoa(v)}
}

func decodeBody(r io.Reader, dest interface{}) error {
	if err := json.NewDecoder(r).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return pkghttp.DecodeError(err)
	}
	return nil
}
