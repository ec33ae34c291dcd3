package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Refreeg Moderation API",
        "description": "Moderated lifecycle for causes, petitions, and identity verification",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Submissions", "description": "Causes and petitions"},
        {"name": "Verifications", "description": "Identity verification (KYC)"},
        {"name": "Moderation", "description": "Admin and manager review queues"},
        {"name": "Roles", "description": "Role assignment"},
        {"name": "Audit", "description": "Moderation audit trail"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/causes": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List causes",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "owner", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit a cause",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/causes/count": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Count causes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/causes/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Fetch a cause",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "tags": ["Submissions"],
                "summary": "Delete an owned cause",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/causes/{id}/share": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Record a share",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/causes/{id}/edits": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Stage an edit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProposedContent"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/causes/{id}/approve": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Approve a cause, merging its newest pending edit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/causes/{id}/reject": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Reject a cause and its pending edit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/causes/edits/pending": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List staged cause edits awaiting review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications": {
            "post": {
                "tags": ["Verifications"],
                "summary": "Submit or resubmit identity verification",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "document", "in": "formData", "required": true, "type": "file"},
                    {"name": "document_type", "in": "formData", "required": true, "type": "string"},
                    {"name": "full_name", "in": "formData", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already verified"},
                    "413": {"description": "Document too large"}
                }
            }
        },
        "/verifications/me": {
            "get": {
                "tags": ["Verifications"],
                "summary": "Fetch the caller's verification status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications/pending": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List verifications awaiting review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications/{id}/document": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Issue a time-limited download link for a verification document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications/documents/{token}": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Stream a verification document for a valid token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/verifications/{id}/review": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Approve or reject a verification",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewVerificationRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/roles/me": {
            "get": {
                "tags": ["Roles"],
                "summary": "Fetch the caller's effective role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roles": {
            "put": {
                "tags": ["Roles"],
                "summary": "Assign a role to a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetRoleRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/roles/users/{id}/block": {
            "put": {
                "tags": ["Roles"],
                "summary": "Block or unblock a user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BlockUserRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/roles/users": {
            "get": {
                "tags": ["Roles"],
                "summary": "List users with roles and verification status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit records",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download the audit trail as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "Submission": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "kind": {"type": "string"},
                "title": {"type": "string"},
                "category": {"type": "string"},
                "goal": {"type": "integer"},
                "raised": {"type": "integer"},
                "shared": {"type": "integer"},
                "cover_image": {"type": "string"},
                "multimedia": {"type": "array", "items": {"type": "string"}},
                "video_links": {"type": "array", "items": {"type": "string"}},
                "days_active": {"type": "integer"},
                "status": {"type": "string"},
                "rejection_reason": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateSubmissionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "category": {"type": "string"},
                "goal": {"type": "integer"},
                "cover_image": {"type": "string"},
                "multimedia": {"type": "array", "items": {"type": "string"}},
                "video_links": {"type": "array", "items": {"type": "string"}},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "sections": {"type": "array", "items": {"$ref": "#/definitions/SectionInput"}}
            },
            "required": ["title", "category", "goal"]
        },
        "ProposedContent": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "category": {"type": "string"},
                "goal": {"type": "integer"},
                "cover_image": {"type": "string"},
                "multimedia": {"type": "array", "items": {"type": "string"}},
                "video_links": {"type": "array", "items": {"type": "string"}},
                "days_active": {"type": "integer"},
                "sections": {"type": "array", "items": {"$ref": "#/definitions/SectionInput"}}
            },
            "required": ["title", "category", "goal"]
        },
        "SectionInput": {
            "type": "object",
            "properties": {
                "heading": {"type": "string"},
                "body": {"type": "string"}
            },
            "required": ["heading", "body"]
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "ReviewVerificationRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "BlockUserRequest": {
            "type": "object",
            "properties": {
                "blocked": {"type": "boolean"}
            }
        },
        "SetRoleRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "role": {"type": "string"}
            },
            "required": ["user_id", "role"]
        },
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
