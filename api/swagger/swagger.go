package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EVX Lab Certificate API",
        "description": "Student registration, sessions and public certificate verification",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Authentication", "description": "Operator and student sessions"},
        {"name": "Students", "description": "Student record lifecycle"},
        {"name": "Certificates", "description": "Public certificate verification"}
    ],
    "paths": {
        "/auth/master-login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Operator login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/MasterLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session cookie set", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Missing credentials", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Student login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Student record", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Missing registration number", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "No or invalid session cookie", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Cookie cleared", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "No or invalid session cookie", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current student",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Student record", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "No or invalid session cookie", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/create-student": {
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentInput"}}
                ],
                "responses": {
                    "200": {"description": "Student created and session cookie set", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "No or invalid session cookie", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Duplicate registration or certificate number", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/edit-student": {
            "post": {
                "tags": ["Students"],
                "summary": "Edit the current student",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentInput"}}
                ],
                "responses": {
                    "200": {"description": "Updated student", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "No or invalid session cookie", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Duplicate registration or certificate number", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/certificate/verify/{id}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Verify a certificate",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Certificate holder", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Certificate not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/certificate/verify/{id}/pdf": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a certificate",
                "produces": ["application/pdf"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document", "schema": {"type": "file"}},
                    "404": {"description": "Certificate not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/certificate/lookup": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Look up a certificate by number",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "certificateNo", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Certificate holder", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Missing certificate number", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Certificate not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/certificate/options": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Registration form options",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Recommended values", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "MasterLoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "StudentLoginRequest": {
            "type": "object",
            "required": ["collegeRegdNo"],
            "properties": {
                "collegeRegdNo": {"type": "string"}
            }
        },
        "StudentInput": {
            "type": "object",
            "properties": {
                "certificateNo": {"type": "string"},
                "name": {"type": "string"},
                "gender": {"type": "string", "enum": ["male", "female"]},
                "courseName": {"type": "string"},
                "courseDuration": {"type": "string"},
                "stream": {"type": "string"},
                "fromDate": {"type": "string", "example": "01/01/2024"},
                "toDate": {"type": "string", "example": "31/01/2024"},
                "dateOfCompletion": {"type": "string", "example": "31/01/2024"},
                "collegeRegdNo": {"type": "string"},
                "collegeName": {"type": "string"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "code": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "data": {"type": "object"}
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
