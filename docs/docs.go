// Package docs holds the OpenAPI documents served by gin-swagger. There is one
// swag instance per service; the route layer picks the right one by name.
package docs

import "github.com/swaggo/swag"

const errorResponseDef = `
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "validation_failed"},
                "message": {"type": "string", "example": "invalid request"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "request_id": {"type": "string"}
            }
        }`

const attemptDefs = `
        "domain.PhishingAttempt": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "141add05-4415-4938-b5a1-17e0d3171aff"},
                "recipientEmail": {"type": "string", "example": "alice@example.com"},
                "emailContent": {"type": "string"},
                "status": {"type": "string", "enum": ["sent", "clicked"]},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.SendRequest": {
            "type": "object",
            "required": ["recipientEmail", "emailContent"],
            "properties": {
                "recipientEmail": {"type": "string", "example": "alice@example.com"},
                "emailContent": {"type": "string", "example": "Please reset your password"}
            }
        },`

const simulationTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/phishing/send": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Simulation"],
                "summary": "Send a phishing email",
                "operationId": "simulationSend",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SendRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Mail transport failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/phishing/track/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Simulation"],
                "summary": "Record a click",
                "operationId": "simulationTrack",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.TrackResult"}},
                    "404": {"description": "Unknown link", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {` + attemptDefs + `
        "services.TrackResult": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Phishing link clicked successfully"}
            }
        },` + errorResponseDef + `
    }
}`

const managementTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/phishing": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "List attempts (paginated)",
                "operationId": "listAttempts",
                "parameters": [
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "minimum": 1, "maximum": 100, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAttemptsResponse"}, "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "Create an attempt record",
                "operationId": "createAttempt",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SendRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/phishing/send": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "Send a phishing email via the simulation service",
                "operationId": "managementSend",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SendRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Simulation service error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Simulation service unreachable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/phishing/click/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "Mark an attempt clicked",
                "operationId": "clickAttempt",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "404": {"description": "Attempt not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/phishing/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "Get an attempt",
                "operationId": "getAttempt",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "404": {"description": "Attempt not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Attempts"],
                "summary": "Update an attempt's status",
                "operationId": "updateAttempt",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Attempt not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Attempts"],
                "summary": "Delete an attempt",
                "operationId": "deleteAttempt",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Attempt not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {` + attemptDefs + `
        "handlers.UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["sent", "clicked"], "example": "clicked"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListAttemptsResponse": {
            "type": "object",
            "properties": {
                "attempts": {"type": "array", "items": {"$ref": "#/definitions/domain.PhishingAttempt"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },` + errorResponseDef + `
    }
}`

// SimulationInfo holds exported Swagger Info for the simulation worker.
var SimulationInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Phishing Simulation API",
	Description:      "Sends simulated phishing emails and records clicks on their tracking links.",
	InfoInstanceName: "simulation",
	SwaggerTemplate:  simulationTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// ManagementInfo holds exported Swagger Info for the management API.
var ManagementInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Phishing Management API",
	Description:      "Manages phishing attempt records and forwards send requests to the simulation service.",
	InfoInstanceName: "management",
	SwaggerTemplate:  managementTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SimulationInfo.InstanceName(), SimulationInfo)
	swag.Register(ManagementInfo.InstanceName(), ManagementInfo)
}
