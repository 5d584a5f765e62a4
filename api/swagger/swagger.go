package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Marks API",
        "description": "Question formats, student marks, guided entry sessions and weighted grade summaries",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Formats", "description": "Ordered question layouts with per-question maximums"},
        {"name": "Marks", "description": "Student mark records"},
        {"name": "Entry", "description": "Keyboard-driven guided entry sessions"},
        {"name": "Summaries", "description": "Weighted per-student grade roll-up"},
        {"name": "Exports", "description": "Spreadsheet, CSV and PDF exports behind signed links"}
    ],
    "paths": {
        "/formats": {
            "get": {
                "tags": ["Formats"],
                "summary": "List question formats",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Formats"],
                "summary": "Create question format",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFormatRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name already used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/formats/{id}": {
            "get": {
                "tags": ["Formats"],
                "summary": "Get question format",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/marks": {
            "get": {
                "tags": ["Marks"],
                "summary": "List mark records",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "formatId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Marks"],
                "summary": "Save mark record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveMarkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/marks/import": {
            "post": {
                "tags": ["Marks"],
                "summary": "Import marks from an xlsx workbook",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "category", "in": "formData", "required": true, "type": "string"},
                    {"name": "format_id", "in": "formData", "type": "string"},
                    {"name": "max_mark", "in": "formData", "type": "number"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {"200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/marks/{id}": {
            "get": {
                "tags": ["Marks"],
                "summary": "Get mark record",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Marks"],
                "summary": "Replace the marks of a record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMarksRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Marks"],
                "summary": "Delete mark record",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/marks/{id}/cells/{index}": {
            "patch": {
                "tags": ["Marks"],
                "summary": "Correct one mark of a record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCellRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/{studentId}/summary": {
            "get": {
                "tags": ["Summaries"],
                "summary": "Student grade summary",
                "parameters": [{"name": "studentId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No grade history", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/summary.pdf": {
            "get": {
                "tags": ["Summaries"],
                "summary": "Student grade summary as PDF",
                "produces": ["application/pdf"],
                "parameters": [{"name": "studentId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "PDF document"}}
            }
        },
        "/entry/sessions": {
            "post": {
                "tags": ["Entry"],
                "summary": "Open a guided entry session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartEntryRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/entry/sessions/{id}": {
            "get": {
                "tags": ["Entry"],
                "summary": "Current session state",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Entry"],
                "summary": "Close a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "force", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "204": {"description": "Closed"},
                    "412": {"description": "Unsaved results remain", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/entry/sessions/{id}/input": {
            "post": {
                "tags": ["Entry"],
                "summary": "Confirm one input",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EntryInputRequest"}}
                ],
                "responses": {"200": {"description": "Outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/entry/sessions/{id}/cancel": {
            "post": {
                "tags": ["Entry"],
                "summary": "Discard the in-progress student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/entry/sessions/{id}/reconcile": {
            "post": {
                "tags": ["Entry"],
                "summary": "Retry unsaved results",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export marks",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {"201": {"description": "Signed link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Link invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "QuestionRequest": {
            "type": "object",
            "required": ["label", "max_mark"],
            "properties": {
                "label": {"type": "string"},
                "max_mark": {"type": "number"}
            }
        },
        "CreateFormatRequest": {
            "type": "object",
            "required": ["name", "questions"],
            "properties": {
                "name": {"type": "string"},
                "category": {"type": "string", "enum": ["quiz", "midterm", "final", "assignment", "presentation", "attendance"]},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/QuestionRequest"}}
            }
        },
        "SaveMarkRequest": {
            "type": "object",
            "required": ["student_id", "category", "marks"],
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "student_id": {"type": "string"},
                "category": {"type": "string", "enum": ["quiz", "midterm", "final", "assignment", "presentation", "attendance"]},
                "format_id": {"type": "string", "format": "uuid"},
                "max_mark": {"type": "number"},
                "marks": {"type": "array", "items": {"type": "number"}}
            }
        },
        "UpdateMarksRequest": {
            "type": "object",
            "required": ["marks"],
            "properties": {
                "marks": {"type": "array", "items": {"type": "number"}}
            }
        },
        "UpdateCellRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "number"}
            }
        },
        "StartEntryRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["multi", "single"]},
                "format_id": {"type": "string"},
                "category": {"type": "string"},
                "max_mark": {"type": "number"}
            }
        },
        "EntryInputRequest": {
            "type": "object",
            "properties": {
                "value": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format_id": {"type": "string"},
                "category": {"type": "string"},
                "format": {"type": "string", "enum": ["xlsx", "csv", "pdf"]}
            }
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
