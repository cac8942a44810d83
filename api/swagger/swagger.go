package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Registrar Document Request API",
        "description": "Lifecycle tracking for registrar document requests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Requests", "description": "Document request lifecycle"},
        {"name": "Tracking", "description": "Public status lookup"},
        {"name": "Catalog", "description": "Offered document types and purposes"},
        {"name": "Reports", "description": "Date-ranged scoped reports"},
        {"name": "Departments", "description": "Departments and staff visibility"},
        {"name": "Authentication", "description": "Staff sign-in and tokens"},
        {"name": "Users", "description": "Staff account management"}
    ],
    "paths": {
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a new document request",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "409": {"description": "Identifier conflict"}
                }
            },
            "get": {
                "tags": ["Requests"],
                "summary": "List document requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "requester_type", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a document request",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/requests/{id}/history": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get the full tracking history",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/requests/{id}/transition": {
            "post": {
                "tags": ["Requests"],
                "summary": "Move a request to a new status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or concurrent change"}
                }
            }
        },
        "/requests/{id}/reschedule": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reschedule the pickup date",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Request not in a reschedulable state"}
                }
            }
        },
        "/requests/{id}/notes": {
            "put": {
                "tags": ["Requests"],
                "summary": "Update staff notes",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/track/{reference}": {
            "get": {
                "tags": ["Tracking"],
                "summary": "Public status lookup by reference number",
                "parameters": [{"name": "reference", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown reference"}
                }
            }
        },
        "/catalog/document-types": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List offered document types",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/catalog/document-types/{id}/purposes": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List purposes applicable to one document type",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/catalog/document-types/{id}/active": {
            "patch": {
                "tags": ["Catalog"],
                "summary": "Retire or restore a document type",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Updated"}
                }
            }
        },
        "/catalog/purposes": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List active request purposes",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/requests": {
            "get": {
                "tags": ["Reports"],
                "summary": "Query requests within a date range",
                "parameters": [
                    {"name": "from_date", "in": "query", "required": true, "type": "string"},
                    {"name": "to_date", "in": "query", "required": true, "type": "string"},
                    {"name": "department_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid date range"},
                    "403": {"description": "Department outside visibility"}
                }
            }
        },
        "/reports/requests/export": {
            "post": {
                "tags": ["Reports"],
                "summary": "Export a report as CSV or PDF",
                "parameters": [
                    {"name": "from_date", "in": "query", "required": true, "type": "string"},
                    {"name": "to_date", "in": "query", "required": true, "type": "string"},
                    {"name": "department_id", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed download token"}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a rendered report",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List departments",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{id}/departments": {
            "get": {
                "tags": ["Departments"],
                "summary": "List a user's department memberships",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Departments"],
                "summary": "Grant visibility over a department",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Assigned"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a staff user",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List staff accounts",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create a staff account",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
