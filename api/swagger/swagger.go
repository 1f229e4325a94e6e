package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AulaNet Booking API",
        "description": "Classroom reservation service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Reservations", "description": "Reservation ledger and availability"},
        {"name": "Rooms", "description": "Room directory and occupancy"},
        {"name": "Resources", "description": "Equipment inventory"},
        {"name": "Dashboard", "description": "Usage statistics"},
        {"name": "Audit", "description": "Action history"}
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
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/availability": {
            "get": {
                "tags": ["Reservations"],
                "summary": "Check whether a room slot is free",
                "parameters": [
                    {"name": "roomId", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "startTime", "in": "query", "type": "string", "required": true},
                    {"name": "endTime", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date or time"}
                }
            }
        },
        "/api/v1/reservations": {
            "get": {
                "tags": ["Reservations"],
                "summary": "List reservations",
                "parameters": [
                    {"name": "roomId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reservations"],
                "summary": "Book a room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or out of horizon"},
                    "409": {"description": "Slot conflict"}
                }
            }
        },
        "/api/v1/reservations/{id}": {
            "delete": {
                "tags": ["Reservations"],
                "summary": "Cancel a reservation",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "404": {"description": "Not found"},
                    "412": {"description": "Reservation is not active"}
                }
            }
        },
        "/api/v1/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms with occupancy and counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Register a room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get a room with its active reservations",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Rooms"],
                "summary": "Rename a room",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/rooms/{id}/reconcile": {
            "post": {
                "tags": ["Rooms"],
                "summary": "Recompute room occupancy from the reservation ledger",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/rooms/{id}/qr": {
            "post": {
                "tags": ["Rooms"],
                "summary": "Generate a QR code linking to the room's booking page",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/qrcodes/download": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Download a QR code PNG via a signed token",
                "produces": ["image/png"],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PNG image"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/resources": {
            "get": {
                "tags": ["Resources"],
                "summary": "List resources",
                "parameters": [
                    {"name": "roomId", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Resources"],
                "summary": "Register a resource in a room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateResourceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/resources/{id}/state": {
            "patch": {
                "tags": ["Resources"],
                "summary": "Update a resource's condition",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateResourceStateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/dashboard/statistics": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit trail entries",
                "parameters": [
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "userId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateReservationRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "instructor": {"type": "string"},
                "date": {"type": "string", "example": "2026-09-01"},
                "start_time": {"type": "string", "example": "10:00"},
                "end_time": {"type": "string", "example": "12:00"},
                "notify_group": {"type": "string"}
            },
            "required": ["room_id", "instructor", "date", "start_time", "end_time"]
        },
        "RoomRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "module": {"type": "string"}
            },
            "required": ["name", "module"]
        },
        "CreateResourceRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "kind": {"type": "string"},
                "code": {"type": "string"}
            },
            "required": ["room_id", "kind", "code"]
        },
        "UpdateResourceStateRequest": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["Activo", "Dañado", "Reparado"]}
            },
            "required": ["state"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
