package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA ADP Data Table API",
        "description": "Filterable, sortable and paged table resources with saved views.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Tables", "description": "Student and teacher tables"},
        {"name": "Views", "description": "Saved filter, sort and column snapshots"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "parameters": {
        "resource": {"name": "resource", "in": "path", "required": true, "type": "string", "enum": ["students", "teachers"]},
        "viewID": {"name": "id", "in": "path", "required": true, "type": "string"}
    },
    "paths": {
        "/{resource}": {
            "get": {
                "tags": ["Tables"],
                "summary": "List table rows",
                "description": "Rows are filtered, sorted and paged by the URL search params. Meta carries pagination, facet counts and the cache flag.",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"name": "page", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "perPage", "in": "query", "type": "integer", "minimum": 1},
                    {"name": "sort", "in": "query", "type": "string", "description": "JSON array of {id, desc}"},
                    {"name": "filters", "in": "query", "type": "string", "description": "JSON array of {id, value, operator, variant}"},
                    {"name": "joinOperator", "in": "query", "type": "string", "enum": ["and", "or"]},
                    {"name": "viewId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid search params", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{resource}/columns": {
            "get": {
                "tags": ["Tables"],
                "summary": "Describe table columns",
                "parameters": [{"$ref": "#/parameters/resource"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{resource}/bulk-deactivate": {
            "post": {
                "tags": ["Tables"],
                "summary": "Deactivate selected rows",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkIDsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{resource}/views": {
            "get": {
                "tags": ["Views"],
                "summary": "List saved views",
                "parameters": [{"$ref": "#/parameters/resource"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Views"],
                "summary": "Save a view",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateViewRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{resource}/views/{id}": {
            "patch": {
                "tags": ["Views"],
                "summary": "Rename or overwrite a view",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/viewID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateViewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Views"],
                "summary": "Delete a view",
                "parameters": [
                    {"$ref": "#/parameters/resource"},
                    {"$ref": "#/parameters/viewID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Gateway metrics summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ActiveFilter": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "value": {"description": "string, array of strings or {min, max}"},
                "operator": {"type": "string", "enum": ["iLike", "notILike", "eq", "ne", "in", "notIn", "lt", "lte", "gt", "gte", "isBetween", "isEmpty", "isNotEmpty"]},
                "variant": {"type": "string", "enum": ["text", "number", "range", "date", "dateRange", "select", "multiSelect"]}
            },
            "required": ["id"]
        },
        "SortItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "desc": {"type": "boolean"}
            },
            "required": ["id"]
        },
        "ViewParams": {
            "type": "object",
            "properties": {
                "sort": {"type": "array", "items": {"$ref": "#/definitions/SortItem"}},
                "filters": {"type": "array", "items": {"$ref": "#/definitions/ActiveFilter"}},
                "joinOperator": {"type": "string", "enum": ["and", "or"]}
            }
        },
        "CreateViewRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 80},
                "tableName": {"type": "string"},
                "columns": {"type": "array", "items": {"type": "string"}},
                "searchParams": {"$ref": "#/definitions/ViewParams"}
            },
            "required": ["name"]
        },
        "UpdateViewRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 80},
                "columns": {"type": "array", "items": {"type": "string"}},
                "searchParams": {"$ref": "#/definitions/ViewParams"}
            }
        },
        "BulkIDsRequest": {
            "type": "object",
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["ids"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "page_count": {"type": "integer"}
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
        "Links": {
            "type": "object",
            "properties": {
                "self": {"type": "string"},
                "next": {"type": "string"},
                "prev": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"},
                "links": {"$ref": "#/definitions/Links"}
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
