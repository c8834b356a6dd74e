package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func registerSwaggerRoutes(r *mux.Router) {
	r.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	r.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	r.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Money Transfer Sandbox API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Money Transfer Sandbox API",
    "version": "1.0.0"
  },
  "servers": [{"url": "/api"}],
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Exchange account credentials for a bearer token",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountId", "password"],
                "properties": {
                  "accountId": {"type": "integer"},
                  "password": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Token issued"},
          "400": {"description": "Malformed request"},
          "401": {"description": "Invalid username or password"}
        }
      }
    },
    "/accounts/{id}": {
      "get": {
        "summary": "Get account balance and status",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Account"},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/accounts/{id}/transactions": {
      "get": {
        "summary": "List transactions touching the account, newest first",
        "security": [{"BearerAuth": []}],
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "Transactions"},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/transfers": {
      "post": {
        "summary": "Submit a transfer; the idempotency key is applied at most once",
        "security": [{"BearerAuth": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["fromAccountId", "toAccountId", "amount", "idempotencyKey"],
                "properties": {
                  "fromAccountId": {"type": "integer"},
                  "toAccountId": {"type": "integer"},
                  "amount": {"type": "number", "minimum": 0.01},
                  "idempotencyKey": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Transfer recorded, SUCCESS or FAILED"},
          "400": {"description": "Insufficient balance"},
          "401": {"description": "Unauthorized"},
          "403": {"description": "Account not active or not owned by the caller"},
          "404": {"description": "Account not found"},
          "409": {"description": "Duplicate idempotency key"},
          "422": {"description": "Validation error"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT"
      }
    }
  }
}`
