package gateway

import "encoding/json"

// Kind classifies a failed call. It is used for logging; callers
// distinguish failures by message only.
type Kind string

const (
	KindNone      Kind = ""
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindCancelled Kind = "cancelled"
	KindBackend   Kind = "backend"
	KindMalformed Kind = "malformed"
)

// Response is the normalized outcome of a call. On success Body holds the
// backend's response verbatim; on failure Error holds the message.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Error       string
	Kind        Kind
}

func failure(kind Kind, msg string, status int) *Response {
	return &Response{StatusCode: status, Error: msg, Kind: kind}
}

// Failed reports whether the call produced an error.
func (r *Response) Failed() bool {
	return r.Error != ""
}

// JSON returns the body for successful calls and {"error": msg} otherwise.
func (r *Response) JSON() []byte {
	if !r.Failed() {
		return r.Body
	}
	out, _ := json.Marshal(map[string]string{"error": r.Error})
	return out
}
