package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Syllabus Portal API",
        "description": "Teacher-facing API for authoring, searching, and exporting course syllabi",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, logout"},
        {"name": "Syllabus", "description": "Syllabus record management"},
        {"name": "Exports", "description": "Synchronous exports and background export jobs"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Token pair and user info"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Exchange refresh token for a new token pair",
                "responses": {
                    "200": {"description": "Rotated token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the current refresh token",
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "Authenticated user"}
                }
            }
        },
        "/syllabus": {
            "get": {
                "tags": ["Syllabus"],
                "summary": "List syllabi newest first",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Records with pagination"}
                }
            },
            "post": {
                "tags": ["Syllabus"],
                "summary": "Create a syllabus record",
                "responses": {
                    "201": {"description": "Stored record"},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/syllabus/{id}": {
            "get": {
                "tags": ["Syllabus"],
                "summary": "Fetch a syllabus by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Record"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Syllabus"],
                "summary": "Replace a syllabus record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Updated record"},
                    "403": {"description": "Not the owner"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Syllabus"],
                "summary": "Delete a syllabus record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Confirmation message"},
                    "403": {"description": "Not the owner"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/syllabus/{id}/export/{format}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Render a syllabus synchronously",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "path", "required": true, "type": "string", "enum": ["json", "pdf", "docx"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/syllabus/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a background export job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Queued job"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Job state, progress, result URL"},
                    "403": {"description": "Job belongs to another teacher"},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rendered document"},
                    "403": {"description": "Invalid or expired token"}
                }
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
