package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// APIErrorDetail is one entry of the envelope "errors" array.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON accepts numeric and string codes.
func (d *APIErrorDetail) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Message = raw.Message
	d.Code = string(bytes.Trim(raw.Code, `"`))
	return nil
}

// Response is the decoded Marketo response envelope.
type Response struct {
	RequestID     string           `json:"requestId"`
	Success       bool             `json:"success"`
	Result        json.RawMessage  `json:"result,omitempty"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
	MoreResult    bool             `json:"moreResult"`
	Errors        []APIErrorDetail `json:"errors,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`

	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
}

// DecodeResult unmarshals the "result" field into v. An absent or null
// result leaves v untouched.
func (r *Response) DecodeResult(v any) error {
	if len(r.Result) == 0 || bytes.Equal(r.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func decodeResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return &resp, nil
}
