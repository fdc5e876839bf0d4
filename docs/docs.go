// Package docs holds the generated OpenAPI document. Code generated by swaggo/swag. DO NOT EDIT.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "GitHub Repository",
            "url": "https://github.com/tomtom215/curatus/issues"
        },
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/lists/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lists"],
                "summary": "Generate a recommendation list from a prompt",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/lists/{listID}/suggestions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["lists"],
                "summary": "Suggest additions for an existing provider list",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Hybrid dense-plus-lexical search",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/users/{userID}/profile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a user's taste profile",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{userID}/preference": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get learned preference weights",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{userID}/phases/detect": {
            "post": {
                "produces": ["application/json"],
                "tags": ["phases"],
                "summary": "Segment the user's history into viewing phases",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/users/{userID}/phases/current": {
            "get": {
                "produces": ["application/json"],
                "tags": ["phases"],
                "summary": "Get the phase covering recent watches",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/users/{userID}/phases/next": {
            "get": {
                "produces": ["application/json"],
                "tags": ["phases"],
                "summary": "Predict the likely next viewing phase",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/pairwise/sessions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pairwise"],
                "summary": "Start a pairwise taste-training session",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/pairwise/sessions/{sessionID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pairwise"],
                "summary": "Get session progress",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/pairwise/sessions/{sessionID}/next": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pairwise"],
                "summary": "Serve the next comparison pair",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/pairwise/sessions/{sessionID}/judgments": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pairwise"],
                "summary": "Record a pairwise judgment",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/pairwise/sessions/{sessionID}/abandon": {
            "post": {
                "produces": ["application/json"],
                "tags": ["pairwise"],
                "summary": "Abandon a session, keeping partial judgments",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Curatus API",
	Description:      "Personal media recommendation and taste analytics API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
