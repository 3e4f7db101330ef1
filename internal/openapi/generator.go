package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds the OpenAPI 3.1 document for the folio backend API.
func Generate(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Folio API",
			Description: "Contact messages and admin provisioning for the folio portfolio backend.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Identity token issued by the identity provider.",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: objectSchema(openapi3.Schemas{
			"error": &openapi3.SchemaRef{
				Value: objectSchema(openapi3.Schemas{
					"code":    intSchema("int32", ""),
					"message": stringSchema(""),
					"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
				}),
			},
		}),
	}
	doc.Components.Schemas["ContactMessage"] = &openapi3.SchemaRef{
		Value: objectSchema(openapi3.Schemas{
			"id":              stringSchema("Message ID (UUIDv7)."),
			"name":            stringSchema(""),
			"email":           stringSchema(""),
			"message":         stringSchema(""),
			"timestamp_nanos": intSchema("int64", "Submission time in nanoseconds since the Unix epoch."),
		}, "id", "name", "email", "message", "timestamp_nanos"),
	}
	doc.Components.Schemas["NewMessage"] = &openapi3.SchemaRef{
		Value: objectSchema(openapi3.Schemas{
			"name":    stringSchema(""),
			"email":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "email"}},
			"message": stringSchema(""),
		}, "name", "email", "message"),
	}

	bearer := &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	optionalBearer := &openapi3.SecurityRequirements{{}, {"bearerAuth": {}}}

	doc.Paths = openapi3.NewPaths()

	doc.Paths.Set("/api/v1/identity/session", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"identity"},
			Summary:     "Issue a development identity token",
			OperationID: "createIdentitySession",
			RequestBody: jsonBody("Principal to issue a token for.", objectSchema(openapi3.Schemas{
				"principal": stringSchema(""),
			}, "principal")),
			Responses: newResponses("200", "Issued identity token", &openapi3.SchemaRef{
				Value: objectSchema(openapi3.Schemas{
					"session_token": stringSchema(""),
					"token_type":    stringSchema(""),
					"expires_in":    intSchema("int32", "Seconds until the token expires."),
					"principal":     stringSchema(""),
				}),
			}),
		},
	})

	doc.Paths.Set("/api/v1/messages", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "List all contact messages (admin only)",
			OperationID: "getAllMessages",
			Security:    bearer,
			Responses: newResponses("200", "Messages, oldest first", &openapi3.SchemaRef{
				Value: objectSchema(openapi3.Schemas{
					"resource": &openapi3.SchemaRef{Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef("#/components/schemas/ContactMessage", nil),
					}},
					"meta": metaSchema(),
				}),
			}),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"messages"},
			Summary:     "Submit a contact message",
			OperationID: "submitMessage",
			Security:    optionalBearer,
			RequestBody: &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/NewMessage", nil)),
			}},
			Responses: newResponses("201", "Stored message", openapi3.NewSchemaRef("#/components/schemas/ContactMessage", nil)),
		},
	})

	doc.Paths.Set("/api/v1/admin/authorize", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Bind the caller to the admin role with the admin token",
			OperationID: "authorizeAdmin",
			Security:    bearer,
			RequestBody: jsonBody("Admin token.", objectSchema(openapi3.Schemas{
				"token": stringSchema(""),
			}, "token")),
			Responses: newResponses("200", "Authorization result", &openapi3.SchemaRef{
				Value: objectSchema(openapi3.Schemas{
					"authorized": boolSchema(),
				}, "authorized"),
			}),
		},
	})

	doc.Paths.Set("/api/v1/admin/status", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"admin"},
			Summary:     "Report whether the caller is an admin",
			OperationID: "checkAdminStatus",
			Security:    optionalBearer,
			Responses: newResponses("200", "Admin status", &openapi3.SchemaRef{
				Value: objectSchema(openapi3.Schemas{
					"is_admin": boolSchema(),
				}, "is_admin"),
			}),
		},
	})

	return doc
}

// ─── Schema helpers ─────────────────────────────────────────────────────────

func objectSchema(props openapi3.Schemas, required ...string) *openapi3.Schema {
	return &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}
}

func stringSchema(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func intSchema(format, description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: format, Description: description}}
}

func boolSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func jsonBody(description string, schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
		Description: description,
		Required:    true,
		Content:     openapi3.NewContentWithJSONSchema(schema),
	}}
}

// newResponses builds a Responses map with a success response and standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for code, desc := range map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"429": "Too many requests",
		"500": "Internal server error",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: objectSchema(openapi3.Schemas{
			"count": intSchema("int64", "Number of messages returned."),
			"took_ms": &openapi3.SchemaRef{Value: &openapi3.Schema{
				Type:        &openapi3.Types{"number"},
				Format:      "double",
				Description: "Server-side query time in milliseconds.",
			}},
		}),
	}
}
