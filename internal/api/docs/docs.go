// Package docs registers the swagger document of the capture service.
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
        "/payloads": {
            "post": {
                "description": "Store a health export, convert it and return the run report",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payloads"],
                "summary": "Capture and convert a health export",
                "parameters": [
                    {
                        "description": "Health export document",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "object"}
                    }
                ],
                "responses": {
                    "200": {"description": "Run report", "schema": {"type": "object"}},
                    "400": {"description": "Malformed export document"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List conversion runs",
                "responses": {
                    "200": {"description": "List of runs", "schema": {"type": "array", "items": {"type": "object"}}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a conversion run",
                "parameters": [{"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Run", "schema": {"type": "object"}},
                    "404": {"description": "Run not found"}
                }
            }
        },
        "/runs/{id}/files": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "List output files of a run",
                "parameters": [{"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Files", "schema": {"type": "object"}},
                    "404": {"description": "Run has no files"}
                }
            }
        },
        "/runs/{id}/payload": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payloads"],
                "summary": "Get the stored export of a run",
                "parameters": [{"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Export document", "schema": {"type": "object"}},
                    "404": {"description": "Payload not found"}
                }
            }
        },
        "/runs/{id}/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["summaries"],
                "summary": "Get the daily summaries of a run",
                "parameters": [{"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Daily summaries", "schema": {"type": "array", "items": {"type": "object"}}}
                }
            }
        },
        "/summaries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["summaries"],
                "summary": "List daily summaries",
                "parameters": [
                    {"type": "string", "description": "Metric name", "name": "metric", "in": "query"},
                    {"type": "string", "description": "Source device", "name": "source", "in": "query"},
                    {"type": "string", "description": "First date (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "Last date (YYYY-MM-DD)", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Daily summaries", "schema": {"type": "array", "items": {"type": "object"}}},
                    "400": {"description": "Invalid date"}
                }
            }
        },
        "/download/{jobID}/{filename}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Download an output file",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "jobID", "in": "path", "required": true},
                    {"type": "string", "description": "File name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "404": {"description": "File not found"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Health Export Pipeline API",
	Description:      "Captures health exports and converts them into flattened and daily summary tables.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
