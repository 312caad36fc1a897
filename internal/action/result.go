package action

import "net/http"

// Kind is the outcome of an execution.
type Kind string

// Result kinds.
const (
	KindSuccess Kind = "Success"
	KindError   Kind = "Error"
	KindWebhook Kind = "Webhook"
)

// Webhook asks the caller to issue an HTTP request. No local write is made.
type Webhook struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

// Result is the single outcome of an execution.
type Result struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message,omitempty"`
	// HTML is rendered next to a success message.
	HTML string `json:"html,omitempty"`
	// Invalidated names relations the caller should refetch.
	Invalidated  []string `json:"invalidated,omitempty"`
	Webhook      *Webhook `json:"webhook,omitempty"`
	InvocationID string   `json:"invocation_id,omitempty"`
}

// ResultBuilder builds results from within an action.
type ResultBuilder struct{}

// SuccessOption decorates a success result.
type SuccessOption func(*Result)

// WithHTML attaches an HTML side effect.
func WithHTML(html string) SuccessOption {
	return func(r *Result) { r.HTML = html }
}

// WithInvalidated marks relations to refetch.
func WithInvalidated(relations ...string) SuccessOption {
	return func(r *Result) { r.Invalidated = append(r.Invalidated, relations...) }
}

// Success reports a completed action.
func (ResultBuilder) Success(message string, opts ...SuccessOption) Result {
	r := Result{Kind: KindSuccess, Message: message}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Error reports a failed action.
func (ResultBuilder) Error(message string) Result {
	return Result{Kind: KindError, Message: message}
}

// Webhook delegates the action to an external endpoint. An empty method means POST.
func (ResultBuilder) Webhook(url, method string, headers map[string]string, body any) Result {
	if method == "" {
		method = http.MethodPost
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return Result{Kind: KindWebhook, Webhook: &Webhook{URL: url, Method: method, Headers: headers, Body: body}}
}
