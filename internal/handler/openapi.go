package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/arcoapp/arco-admin/internal/openapi"
)

func actionNames(set []Action) []string {
	out := make([]string, len(set))
	for i, a := range set {
		out[i] = string(a)
	}
	return out
}

// Endpoints describes every route the server mounts, for the OpenAPI document.
func Endpoints() []openapi.Endpoint {
	return []openapi.Endpoint{
		{Method: http.MethodPost, Path: "/api/admin/auth", Tag: "auth", Summary: "Admin dashboard sign-in", Actions: actionNames(AdminAuthActions), Response: openapi.ActionResponseSchema},
		{Method: http.MethodPost, Path: "/api/mobile/auth", Tag: "auth", Summary: "Mobile app sign-in, registration and password reset", Actions: actionNames(MobileAuthActions), Response: openapi.ActionResponseSchema},
		{Method: http.MethodPost, Path: "/api/admin/users", Tag: "users", Summary: "User management", Actions: actionNames(UserActions), Admin: true, Response: openapi.ActionResponseSchema},
		{Method: http.MethodPost, Path: "/api/feedback", Tag: "feedback", Summary: "Submit feedback", Actions: []string{string(ActionSubmit)}, Response: openapi.ActionResponseSchema},
		{Method: http.MethodPost, Path: "/api/admin/feedback", Tag: "feedback", Summary: "Feedback review", Actions: actionNames(FeedbackActions), Admin: true, Response: openapi.ActionResponseSchema},
		{Method: http.MethodPost, Path: "/api/chatbot", Tag: "assistant", Summary: "Ask the budgeting assistant", Actions: []string{string(ActionChat)}, SignedIn: true, Response: openapi.ActionResponseSchema},
		{Method: http.MethodGet, Path: "/api/admin/stats", Tag: "system", Summary: "Dashboard counters", Admin: true, Response: openapi.ActionResponseSchema},
		{Method: http.MethodGet, Path: "/healthz", Tag: "system", Summary: "Liveness check"},
		{Method: http.MethodGet, Path: "/readyz", Tag: "system", Summary: "Readiness check"},
	}
}

// Document builds the OpenAPI document of the server.
func Document(info openapi.Info) *openapi3.T {
	return openapi.Generate(info, Endpoints())
}

// OpenAPIHandler serves the OpenAPI document. The document only depends on
// static route metadata, so it is built once.
type OpenAPIHandler struct {
	info openapi.Info
	once sync.Once
	doc  *openapi3.T
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(info openapi.Info) *OpenAPIHandler {
	return &OpenAPIHandler{info: info}
}

// ServeSpec returns the document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() { h.doc = Document(h.info) })
	writeJSON(w, http.StatusOK, h.doc)
}
