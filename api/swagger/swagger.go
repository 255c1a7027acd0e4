package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutorlane API",
        "description": "REST backend for the Tutorlane education marketplace",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Accounts, sessions and profile"},
        {"name": "Dashboard", "description": "Student dashboard aggregation"},
        {"name": "Courses", "description": "Course catalog and tutor authoring"},
        {"name": "Enrollments", "description": "Student enrollments and progress"},
        {"name": "Payments", "description": "Course purchases and receipts"}
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
                "summary": "Readiness check (database and cache)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/api/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a student or tutor account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Open a session for the given role",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Close the current session",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current account profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Deactivate the current account",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/auth/update-profile": {
            "patch": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Update profile fields",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/auth/upload-avatar": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Upload a profile avatar",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "avatar", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unsupported file type or size"}
                }
            }
        },
        "/api/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Change the account password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Old password incorrect"}
                }
            }
        },
        "/api/auth/forgot-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request a password reset mail",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reset mail queued"},
                    "404": {"description": "No account for that email"}
                }
            }
        },
        "/api/auth/reset-password/{token}": {
            "post": {
                "tags": ["Auth"],
                "summary": "Reset password with a mailed token",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Password updated"},
                    "400": {"description": "Invalid or expired reset token"}
                }
            }
        },
        "/api/dashboard/stats": {
            "get": {
                "tags": ["Dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "Aggregated dashboard for the current student",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Requires the student role"}
                }
            }
        },
        "/api/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "Browse the published catalog",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a draft course (tutor)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/courses/mine": {
            "get": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Courses owned by the current tutor, drafts included",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Course detail with sections and lectures",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Update course metadata (owning tutor)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Course belongs to another tutor"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete a course (owning tutor)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/api/courses/{id}/publish": {
            "put": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Publish or unpublish a course",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PublishRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/courses/{id}/lectures": {
            "post": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Add a lecture to a course section",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddLectureRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/courses/lectures/{lectureId}": {
            "put": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a lecture",
                "parameters": [
                    {"name": "lectureId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete a lecture",
                "parameters": [
                    {"name": "lectureId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/api/courses/{id}/roster": {
            "get": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Enrolled students with progress (owning tutor)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/courses/{id}/roster/export": {
            "get": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Download the roster as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/api/courses/{id}/roster/export-link": {
            "get": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Persist a roster export and get a signed download link",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/downloads/{token}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Fetch a persisted export with a signed token",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "401": {"description": "Invalid or expired download token"}
                }
            }
        },
        "/api/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "Courses the current student is enrolled in",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/enrollments/{courseId}/progress": {
            "put": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "Update completion percentage for a course",
                "parameters": [
                    {"name": "courseId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateProgressRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not enrolled in that course"}
                }
            }
        },
        "/api/payments": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Payment history for the current student",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Open a pending payment for a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/payments/{id}": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Payment detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/payments/{id}/confirm": {
            "post": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Confirm a payment with the gateway signature",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Payment completed, enrollment created"},
                    "400": {"description": "Signature verification failed"}
                }
            }
        },
        "/api/payments/{id}/receipt": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Download the PDF receipt for a completed payment",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "400": {"description": "Payment is not completed"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "tutor"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "tutor"]}
            }
        },
        "UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "bio": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "required": ["oldPassword", "newPassword"],
            "properties": {
                "oldPassword": {"type": "string"},
                "newPassword": {"type": "string"}
            }
        },
        "ForgotPasswordRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "ResetPasswordRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "password": {"type": "string"}
            }
        },
        "CreateCourseRequest": {
            "type": "object",
            "required": ["title", "category"],
            "properties": {
                "title": {"type": "string"},
                "thumbnail": {"type": "string"},
                "category": {"type": "string"}
            }
        },
        "UpdateCourseRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "thumbnail": {"type": "string"},
                "category": {"type": "string"}
            }
        },
        "PublishRequest": {
            "type": "object",
            "required": ["published"],
            "properties": {
                "published": {"type": "boolean"}
            }
        },
        "AddLectureRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"},
                "video_url": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "section_id": {"type": "string"},
                "section_title": {"type": "string"}
            }
        },
        "UpdateProgressRequest": {
            "type": "object",
            "required": ["completion_percentage"],
            "properties": {
                "completion_percentage": {"type": "number", "minimum": 0, "maximum": 100}
            }
        },
        "CreatePaymentRequest": {
            "type": "object",
            "required": ["course_id", "order_id", "amount"],
            "properties": {
                "course_id": {"type": "string"},
                "order_id": {"type": "string"},
                "amount": {"type": "number"},
                "currency": {"type": "string"}
            }
        },
        "ConfirmPaymentRequest": {
            "type": "object",
            "required": ["payment_id", "signature"],
            "properties": {
                "payment_id": {"type": "string"},
                "signature": {"type": "string"}
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
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "token": {"type": "string"},
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
