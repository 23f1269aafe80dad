// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "healthy"}}}},
        "/api/v1/auth/register": {"post": {"tags": ["auth"], "summary": "Register", "responses": {"201": {"description": "tokens"}}}},
        "/api/v1/auth/login": {"post": {"tags": ["auth"], "summary": "Login (password)", "responses": {"200": {"description": "tokens"}}}},
        "/api/v1/auth/refresh": {"post": {"tags": ["auth"], "summary": "Refresh Access Token", "responses": {"200": {"description": "tokens"}}}},
        "/api/v1/auth/logout": {"post": {"tags": ["auth"], "summary": "Logout", "responses": {"204": {"description": "no content"}}}},
        "/api/v1/auth/me": {
            "get": {"tags": ["auth"], "summary": "Who am I", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "account"}}},
            "patch": {"tags": ["auth"], "summary": "Update account", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "account"}}}
        },
        "/api/v1/auth/me/disable": {"post": {"tags": ["auth"], "summary": "Disable account", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "no content"}}}},
        "/api/v1/orgs": {"post": {"tags": ["orgs"], "summary": "Create org", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "org"}}}},
        "/api/v1/orgs/{id}": {
            "get": {"tags": ["orgs"], "summary": "Get org", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "org"}}},
            "patch": {"tags": ["orgs"], "summary": "Update org", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "org"}}}
        },
        "/api/v1/orgs/{id}/owner": {"post": {"tags": ["orgs"], "summary": "Transfer ownership", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "new owner"}}}},
        "/api/v1/orgs/invites": {"post": {"tags": ["orgs"], "summary": "Invite member", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "invite"}}}},
        "/api/v1/orgs/invites/{id}/resend": {"post": {"tags": ["orgs"], "summary": "Resend invite", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "invite"}}}},
        "/api/v1/orgs/invites/accept": {"get": {"tags": ["orgs"], "summary": "Accept invite", "parameters": [{"name": "email", "in": "query", "required": true, "type": "string"}, {"name": "token", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "membership"}}}},
        "/api/v1/events/channels": {
            "get": {"tags": ["events"], "summary": "List channels", "security": [{"BearerAuth": []}], "parameters": [{"name": "org_id", "in": "query", "required": true, "type": "string"}], "responses": {"200": {"description": "channels"}}},
            "post": {"tags": ["events"], "summary": "Create channel", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "channel and key"}}}
        },
        "/api/v1/events/channels/{id}/rotate-key": {"post": {"tags": ["events"], "summary": "Rotate API key", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "new key"}}}},
        "/api/v1/events/channel": {"get": {"tags": ["events"], "summary": "Get channel", "security": [{"BearerAuth": [], "APIKey": []}], "responses": {"200": {"description": "channel"}}}},
        "/api/v1/events/receive": {"post": {"tags": ["events"], "summary": "Receive event", "security": [{"APIKey": []}], "responses": {"201": {"description": "recorded"}}}},
        "/api/v1/events/identify": {"post": {"tags": ["events"], "summary": "Identify visitor", "security": [{"APIKey": []}], "responses": {"200": {"description": "visitor"}}}},
        "/api/v1/events/visitors/search": {"get": {"tags": ["events"], "summary": "Search visitors", "security": [{"BearerAuth": [], "APIKey": []}], "responses": {"200": {"description": "visitors"}}}},
        "/api/v1/events/visitors/{id}/history": {"get": {"tags": ["events"], "summary": "Visitor identity history", "security": [{"BearerAuth": [], "APIKey": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "history"}}}}
    },
    "securityDefinitions": {
        "APIKey": {"type": "apiKey", "name": "apikey", "in": "header"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "EventTrack API",
	Description:      "Multi-tenant event ingestion: channels, API keys, visitors and events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
