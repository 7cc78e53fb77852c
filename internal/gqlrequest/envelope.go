package gqlrequest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxBodyBytes caps the GraphQL request body read for analysis.
const MaxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned when a POST body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.Newf("request body exceeds %d bytes", MaxBodyBytes)

// Envelope is the transport-independent form of a GraphQL request.
type Envelope struct {
	Method      string
	ContentType string

	Query         string
	OperationName string
	VariablesRaw  json.RawMessage

	DocumentSizeBytes int
}

type jsonPayload struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

// DecodeEnvelope reads the GraphQL payload from r. POST bodies are restored
// so the executor can read them again.
func DecodeEnvelope(r *http.Request) (Envelope, error) {
	if r == nil {
		return Envelope{}, errors.New("request is nil")
	}
	env := Envelope{Method: r.Method, ContentType: r.Header.Get("Content-Type")}

	var err error
	switch r.Method {
	case http.MethodGet:
		params := r.URL.Query()
		env.Query = params.Get("query")
		env.OperationName = params.Get("operationName")
	case http.MethodPost:
		err = env.decodeBody(r)
	}
	env.DocumentSizeBytes = len(env.Query)
	return env, err
}

func (env *Envelope) decodeBody(r *http.Request) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return errors.Wrap(err, "read request body")
	}
	if len(body) > MaxBodyBytes {
		r.Body = http.NoBody
		return ErrBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if mediaType(env.ContentType) == "application/graphql" {
		env.Query = string(body)
		return nil
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	var payload jsonPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	env.Query = payload.Query
	env.OperationName = payload.OperationName
	if vars := bytes.TrimSpace(payload.Variables); len(vars) > 0 && !bytes.Equal(vars, []byte("null")) {
		env.VariablesRaw = append(json.RawMessage(nil), vars...)
	}
	return nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" {
		return strings.TrimSpace(contentType)
	}
	return mt
}
