package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{name: "valid token", secret: "s3cret", header: "Bearer s3cret", wantStatus: http.StatusOK},
		{name: "wrong token", secret: "s3cret", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing header", secret: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", secret: "s3cret", header: "Basic s3cret", wantStatus: http.StatusUnauthorized},
		{name: "secret not configured", header: "Bearer ", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(), BearerAuth(tt.secret))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestBind(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type body struct {
		Name string `json:"name" validate:"required"`
	}

	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/", func(c *gin.Context) {
		var b body
		if !Bind(c, &b) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": b.Name})
	})

	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantBody   string
	}{
		{name: "ok", payload: `{"name":"a"}`, wantStatus: http.StatusOK, wantBody: `{"name":"a"}`},
		{name: "missing field", payload: `{}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"validation failed","fields":{"Name":"failed required"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
