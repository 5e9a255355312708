// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/tasklane/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "All dependencies reachable", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "A dependency is down", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/plans/public": {
            "get": {
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "List public plans",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/admin/plans": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "List plans",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size", "name": "page_size", "in": "query"},
                    {"enum": ["active", "inactive"], "type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"type": "boolean", "description": "Filter by free flag", "name": "is_free", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid query parameter", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            },
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Create plan",
                "parameters": [
                    {"description": "Plan data", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Plan created", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid request or features document", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "409": {"description": "Slug already exists", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/admin/plans/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Get plan",
                "parameters": [{"type": "integer", "description": "Plan ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            },
            "put": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Update plan",
                "parameters": [
                    {"type": "integer", "description": "Plan ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Plan updated", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/admin/plans/{id}/status": {
            "patch": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Activate or deactivate plan",
                "parameters": [
                    {"type": "integer", "description": "Plan ID", "name": "id", "in": "path", "required": true},
                    {"description": "New status", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/admin/users/{user_id}/override": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["overrides"],
                "summary": "Get user override",
                "parameters": [{"type": "integer", "description": "User ID", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Override not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            },
            "put": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["overrides"],
                "summary": "Create or replace user override",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "user_id", "in": "path", "required": true},
                    {"description": "Override data", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid request or features document", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Plan not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["overrides"],
                "summary": "Delete user override",
                "parameters": [{"type": "integer", "description": "User ID", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "Override deleted"},
                    "404": {"description": "Override not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/admin/users/{user_id}/override/status": {
            "patch": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["overrides"],
                "summary": "Activate or deactivate user override",
                "parameters": [
                    {"type": "integer", "description": "User ID", "name": "user_id", "in": "path", "required": true},
                    {"description": "New status", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "404": {"description": "Override not found", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/me/plan": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Get my effective policy",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/me/limits/{name}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Get my usage against a limit",
                "parameters": [{"type": "string", "description": "Limit name", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/me/fields/{entity}/{field}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Check my field visibility",
                "parameters": [
                    {"type": "string", "description": "Entity name", "name": "entity", "in": "path", "required": true},
                    {"type": "string", "description": "Field name", "name": "field", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        },
        "/me/pages/{page}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Check my page access",
                "parameters": [
                    {"type": "string", "description": "Page ID", "name": "page", "in": "path", "required": true},
                    {"enum": ["view", "edit"], "type": "string", "default": "view", "description": "Required level", "name": "required", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.APIResponse"}},
                    "400": {"description": "Invalid access level", "schema": {"$ref": "#/definitions/utils.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "utils.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"$ref": "#/definitions/utils.ErrorInfo"}
            }
        },
        "utils.ErrorInfo": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tasklane API",
	Description:      "Plan administration and entitlement checks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
