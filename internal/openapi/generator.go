package openapi

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/arcoapp/arco-admin/internal/model"
)

// Component schema names shared by every document.
const (
	ActionResponseSchema = "ActionResponse"
	ListResponseSchema   = "ListResponse"
)

// Endpoint describes one route of the HTTP surface. Action endpoints take a
// JSON body whose "action" field selects one of Actions.
type Endpoint struct {
	Method   string
	Path     string
	Tag      string
	Summary  string
	Actions  []string
	Admin    bool   // requires an admin bearer token or session cookie
	SignedIn bool   // requires any signed-in bearer token or session cookie
	Response string // component schema of the 200 body; empty means a free-form object
}

// Info holds the document-level fields.
type Info struct {
	Title      string
	Version    string
	BaseURL    string
	CookieName string
	Omit       []string // paths left out, for routes that are not mounted
}

// Generate builds an OpenAPI 3.1 document for the given endpoints.
func Generate(info Info, endpoints []Endpoint) *openapi3.T {
	title := info.Title
	if title == "" {
		title = "Arco Admin API"
	}
	version := info.Version
	if version == "" {
		version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       title,
			Description: "Action-dispatched JSON API of the Arco admin dashboard and mobile app. Every body carries an \"action\" field; every response carries success and message.",
			Version:     version,
		},
	}
	if info.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: info.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	cookie := info.CookieName
	if cookie == "" {
		cookie = "arco_session"
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Session token returned by verify_token on the admin endpoint.",
		},
	}
	doc.Components.SecuritySchemes["sessionCookie"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: cookie,
		},
	}

	registerSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	omit := make(map[string]bool, len(info.Omit))
	for _, p := range info.Omit {
		omit[p] = true
	}
	for _, ep := range endpoints {
		if !omit[ep.Path] {
			addEndpoint(doc, ep)
		}
	}
	return doc
}

// registerSchemas adds the response envelopes and the domain records.
func registerSchemas(doc *openapi3.T) {
	s := doc.Components.Schemas
	s[ActionResponseSchema] = &openapi3.SchemaRef{Value: SchemaFor(model.ActionResponse{})}

	list := SchemaFor(model.ListResponse{})
	list.Properties["meta"] = metaSchema()
	s[ListResponseSchema] = &openapi3.SchemaRef{Value: list}

	s["SessionUser"] = &openapi3.SchemaRef{Value: SchemaFor(model.SessionUser{})}
	s["User"] = &openapi3.SchemaRef{Value: SchemaFor(model.User{})}
	s["Feedback"] = &openapi3.SchemaRef{Value: SchemaFor(model.Feedback{})}
	s["FeedbackStats"] = &openapi3.SchemaRef{Value: SchemaFor(model.FeedbackStats{})}
	s["AdminStats"] = &openapi3.SchemaRef{Value: SchemaFor(model.AdminStats{})}
	s["ChatReply"] = &openapi3.SchemaRef{Value: SchemaFor(model.ChatReply{})}
}

func addEndpoint(doc *openapi3.T, ep Endpoint) {
	method := strings.ToUpper(ep.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body *openapi3.SchemaRef
	if ep.Response != "" {
		body = schemaRef(ep.Response)
	} else {
		body = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	op := &openapi3.Operation{
		Tags:        []string{ep.Tag},
		Summary:     ep.Summary,
		OperationID: operationID(method, ep.Path),
		Responses:   newResponses("200", "Successful response", body, ep.Admin || ep.SignedIn),
	}
	if len(ep.Actions) > 0 {
		op.Description = "Actions: " + strings.Join(ep.Actions, ", ") + "."
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchema(actionSchema(ep.Actions)),
			},
		}
	}
	if ep.Admin || ep.SignedIn {
		op.Security = &openapi3.SecurityRequirements{
			{"bearerAuth": {}},
			{"sessionCookie": {}},
		}
	}

	item := doc.Paths.Value(ep.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(ep.Path, item)
	}
	item.SetOperation(method, op)
}

// actionSchema is the request body of an action endpoint: a required action
// discriminator plus the fields that action reads.
func actionSchema(actions []string) *openapi3.Schema {
	enum := make([]interface{}, len(actions))
	for i, a := range actions {
		enum[i] = a
	}
	action := openapi3.NewStringSchema()
	action.Enum = enum

	return &openapi3.Schema{
		Type:                 &openapi3.Types{"object"},
		Required:             []string{"action"},
		Properties:           openapi3.Schemas{"action": &openapi3.SchemaRef{Value: action}},
		AdditionalProperties: openapi3.AdditionalProperties{Has: openapi3.BoolPtr(true)},
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the error
// statuses the action endpoints return. Failures use the action envelope.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef, admin bool) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	failures := []struct {
		code string
		desc string
	}{
		{"400", "Invalid input or unknown action"},
		{"401", "Invalid credentials, code, or CAPTCHA"},
		{"500", "Internal server error"},
	}
	if admin {
		failures = append(failures,
			struct{ code, desc string }{"403", "Admin privileges required"},
			struct{ code, desc string }{"404", "Not found"},
		)
	}
	for _, e := range failures {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(schemaRef(ActionResponseSchema)),
			},
		})
	}
	return responses
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	field := func(desc string) *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:        &openapi3.Types{"integer"},
			Format:      "int64",
			Description: desc,
		}}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count":  field("Number of records returned."),
				"limit":  field("Maximum records returned per page."),
				"offset": field("Number of records skipped."),
			},
		},
	}
}

// ─── Naming Helpers ─────────────────────────────────────────────────────────

func schemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

// operationID derives a stable identifier such as "post_api_admin_auth".
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, r := range path {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimRight(b.String(), "_")
}
