// Package docs registers the OpenAPI document served at /swagger.
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
        "/api/payments/signature": {
            "post": {
                "tags": ["payments"],
                "summary": "Sign a payment initiation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/signing.Request"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/signing.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/payments/quote": {
            "post": {
                "tags": ["payments"],
                "summary": "Quote processing fees",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/paymentquote.quoteRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pricing.FeeBreakdown"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/orders": {
            "post": {
                "tags": ["orders"],
                "summary": "Submit checkout",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/orders/{number}": {
            "get": {
                "tags": ["orders"],
                "summary": "Get order",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/orders/{number}/payment-session": {
            "post": {
                "tags": ["payments"],
                "summary": "Start payment session",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/paysession.Session"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/webhooks/payments": {
            "post": {
                "tags": ["payments"],
                "summary": "Payment processor webhook",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "header", "name": "X-Event-Checksum", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/admin/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List orders",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "status", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "query", "name": "fulfillment", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "query", "name": "email", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}}
                }
            }
        },
        "/api/admin/orders/{number}/mark-paid": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Mark order paid",
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/api/admin/orders/{number}/unpay": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Unpay order",
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/api/admin/orders/{number}/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Verify payment",
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/api/admin/orders/{number}/fulfillment": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Set fulfillment status",
                "parameters": [{"in": "path", "name": "number", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/api/admin/side-effects/failed": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List failed side effects",
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "response.ErrorBody": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "signing.Request": {
            "type": "object",
            "required": ["amount", "currency", "reference", "customerEmail"],
            "properties": {
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "reference": {"type": "string"},
                "customerEmail": {"type": "string"}
            }
        },
        "signing.Result": {
            "type": "object",
            "properties": {
                "signature": {"type": "string"},
                "timestamp": {"type": "integer"}
            }
        },
        "paymentquote.quoteRequest": {
            "type": "object",
            "properties": {
                "subtotal": {"type": "number"},
                "shipping": {"type": "number"}
            }
        },
        "pricing.FeeBreakdown": {
            "type": "object",
            "properties": {
                "subtotal": {"type": "integer"},
                "shipping": {"type": "integer"},
                "baseTotal": {"type": "integer"},
                "fees": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "paysession.Session": {
            "type": "object",
            "properties": {
                "publicKey": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "reference": {"type": "string"},
                "customerEmail": {"type": "string"},
                "redirectUrl": {"type": "string"},
                "cancelUrl": {"type": "string"},
                "paymentMethods": {"type": "array", "items": {"type": "string"}},
                "signature": {"type": "string"},
                "timestamp": {"type": "integer"},
                "checkoutUrl": {"type": "string"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "orderNumber": {"type": "string"},
                "subtotal": {"type": "integer"},
                "shippingCost": {"type": "integer"},
                "fees": {"type": "integer"},
                "total": {"type": "integer"},
                "currency": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "paymentId": {"type": "string"},
                "status": {"type": "string", "enum": ["awaiting_payment", "pending", "paid", "failed", "cancelled"]},
                "isVerified": {"type": "boolean"},
                "paidAt": {"type": "string"},
                "fulfillmentStatus": {"type": "string", "enum": ["waiting", "processing", "finished", "cancelled"]},
                "version": {"type": "integer"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Checkout API",
	Description:      "Payment initiation, webhook reconciliation and order back office.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
