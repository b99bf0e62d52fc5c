package buildapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// OutcomeKind is the classification of one log request.
type OutcomeKind int

const (
	// OutcomeDelivered is a successful response carrying a LogBatch.
	OutcomeDelivered OutcomeKind = iota

	// OutcomeTimeout is an expired long-poll. Expected, never surfaced.
	OutcomeTimeout

	// OutcomeInvalidCursor means the continuation handle is no longer
	// recognized. Expected, never surfaced.
	OutcomeInvalidCursor

	// OutcomeFatal is any other failure. Surfaced once, then the stream stops.
	OutcomeFatal
)

// String returns the outcome name used in logs.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeInvalidCursor:
		return "invalid_cursor"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is a classified transport result.
type Outcome struct {
	Kind OutcomeKind

	// Batch is set for OutcomeDelivered.
	Batch *LogBatch

	// Err is set for every other kind.
	Err *APIError
}

// Classify maps a raw transport result onto an Outcome.
//
//   - 2xx with a decodable (or empty) body: OutcomeDelivered
//   - 504 Gateway Timeout: OutcomeTimeout
//   - 400 with code or short message "InvalidLogToken": OutcomeInvalidCursor
//   - anything else, including no response at all: OutcomeFatal
func Classify(resp *Response, err error) Outcome {
	if err != nil {
		return Outcome{Kind: OutcomeFatal, Err: transportError(err)}
	}
	if resp == nil {
		return Outcome{Kind: OutcomeFatal, Err: transportError(errNoResponse)}
	}

	if resp.OK() {
		batch := &LogBatch{}
		if len(bytes.TrimSpace(resp.Body)) > 0 {
			if err := resp.Decode(batch); err != nil {
				return Outcome{Kind: OutcomeFatal, Err: malformedBodyError(resp, err)}
			}
		}
		return Outcome{Kind: OutcomeDelivered, Batch: batch}
	}

	apiErr := decodeAPIError(resp)

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		return Outcome{Kind: OutcomeTimeout, Err: apiErr}
	case resp.StatusCode == http.StatusBadRequest &&
		(apiErr.Code == CodeInvalidLogToken || apiErr.MessageShort == CodeInvalidLogToken):
		return Outcome{Kind: OutcomeInvalidCursor, Err: apiErr}
	default:
		return Outcome{Kind: OutcomeFatal, Err: apiErr}
	}
}

// wireError is the structured error object a Build API error body may carry.
type wireError struct {
	Code         json.RawMessage `json:"code"`
	MessageShort string          `json:"message_short"`
	MessageFull  string          `json:"message_full"`
}

// decodeAPIError normalizes a non-2xx response.
//
// The body is tried, in order, as:
//  1. a JSON object with an "error" field: passed through verbatim
//  2. a JSON string, or text: used as both messages
//  3. anything else: HTTP status code and status text
//
// A body is only decoded as JSON when the content type says so, or when no
// content type was sent and the body parses.
func decodeAPIError(resp *Response) *APIError {
	body := bytes.TrimSpace(resp.Body)
	fallback := newAPIError(resp.StatusCode, statusCode(resp.StatusCode), resp.StatusText(), "")

	if len(body) == 0 {
		return fallback
	}

	structured := json.Valid(body)
	if resp.Header.Get(headerContentType) != "" && !resp.IsJSON() {
		structured = false
	}
	if !structured {
		return newAPIError(resp.StatusCode, fallback.Code, string(resp.Body), "")
	}

	var envelope struct {
		Error *wireError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return &APIError{
			StatusCode:   resp.StatusCode,
			Code:         normalizeCode(envelope.Error.Code, fallback.Code),
			MessageShort: envelope.Error.MessageShort,
			MessageFull:  envelope.Error.MessageFull,
		}
	}

	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return newAPIError(resp.StatusCode, fallback.Code, text, "")
	}

	return fallback
}

// normalizeCode renders a JSON string or number code as a string.
func normalizeCode(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

var errNoResponse = errors.New("transport returned no response")

// transportError wraps a failure where no response was received.
func transportError(err error) *APIError {
	e := newAPIError(0, "RequestFailed", "request failed", err.Error())
	e.Err = err
	return e
}

// malformedBodyError wraps a 2xx response whose body could not be decoded.
func malformedBodyError(resp *Response, err error) *APIError {
	e := newAPIError(resp.StatusCode, "InvalidResponse", "malformed response body", err.Error())
	e.Err = err
	return e
}
