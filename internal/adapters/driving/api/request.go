package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// maxFormMemory bounds the in-memory part of multipart parsing.
const maxFormMemory = 32 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type startChatRequest struct {
	AssetID string `json:"asset_id" validate:"required"`
}

type messageRequest struct {
	ChatID    string `json:"chat_id" validate:"required"`
	UserQuery string `json:"user_query" validate:"required"`
}

// params merges query string values with a JSON or form body. Body values
// win over the query string.
func params(r *http.Request) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return out, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("%w: malformed JSON body: %w", domain.ErrInvalidInput, err)
		}
		for k, v := range body {
			if v != nil {
				out[k] = fmt.Sprint(v)
			}
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, fmt.Errorf("%w: malformed form: %w", domain.ErrInvalidInput, err)
		}
		copyForm(out, r.PostForm)
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: malformed form: %w", domain.ErrInvalidInput, err)
		}
		copyForm(out, r.PostForm)
	}
	return out, nil
}

func copyForm(dst map[string]string, form map[string][]string) {
	for k, v := range form {
		if len(v) > 0 {
			dst[k] = v[0]
		}
	}
}

// check runs struct validation and reports the first missing field.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s is %s", domain.ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
}

func decodeStartChat(r *http.Request) (startChatRequest, error) {
	p, err := params(r)
	if err != nil {
		return startChatRequest{}, err
	}
	req := startChatRequest{AssetID: strings.TrimSpace(p["asset_id"])}
	return req, check(req)
}

func decodeMessage(r *http.Request) (messageRequest, error) {
	p, err := params(r)
	if err != nil {
		return messageRequest{}, err
	}
	req := messageRequest{
		ChatID:    strings.TrimSpace(p["chat_id"]),
		UserQuery: strings.TrimSpace(p["user_query"]),
	}
	return req, check(req)
}
