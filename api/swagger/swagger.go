package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Roadworks API",
        "description": "Road-level aggregation and SLA deadline engine for the repairs dashboard",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Roads", "description": "Per-road repair aggregates and bulk commands"},
        {"name": "Exports", "description": "CSV/PDF downloads"}
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
        "/roads": {
            "get": {
                "tags": ["Roads"],
                "summary": "Per-road repair aggregates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/summary": {
            "get": {
                "tags": ["Roads"],
                "summary": "Lifecycle counters for the dashboard cards",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/history": {
            "get": {
                "tags": ["Roads"],
                "summary": "Verified repairs grouped by road",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/refresh": {
            "post": {
                "tags": ["Roads"],
                "summary": "Re-sync the defect set from the reporting API",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roads/assign": {
            "post": {
                "tags": ["Roads"],
                "summary": "Assign a contractor to a road's unassigned reports",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "502": {"description": "Reporting API unavailable"}
                }
            }
        },
        "/roads/verify": {
            "post": {
                "tags": ["Roads"],
                "summary": "Confirm a road's pending reports as repaired",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyRoadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "502": {"description": "Reporting API unavailable"}
                }
            }
        },
        "/reports/{id}/reject": {
            "post": {
                "tags": ["Roads"],
                "summary": "Send one pending report back to in-progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectReportRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Validation error"},
                    "404": {"description": "Report not found"}
                }
            }
        },
        "/roads/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the road board",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"}
                }
            }
        },
        "/history/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the verified history",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"}
                }
            }
        }
    },
    "definitions": {
        "AssignRoadRequest": {
            "type": "object",
            "properties": {
                "roadName": {"type": "string"},
                "contractorId": {"type": "string"}
            },
            "required": ["roadName", "contractorId"]
        },
        "VerifyRoadRequest": {
            "type": "object",
            "properties": {
                "roadName": {"type": "string"}
            },
            "required": ["roadName"]
        },
        "RejectReportRequest": {
            "type": "object",
            "properties": {
                "remarks": {"type": "string"}
            },
            "required": ["remarks"]
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
