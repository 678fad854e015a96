package main

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brattlof/shipboard/internal/app/page"
	"github.com/brattlof/shipboard/internal/users"
)

func TestPrintUsers(t *testing.T) {
	name := "Ada"
	var buf bytes.Buffer
	printUsers(&buf, users.Data{Users: []users.User{
		{ID: "u1", Name: &name, CreatedAt: "2025-06-01T12:00:00Z", TotalShellsSpent: 12.5, Projects: []users.Project{{}}},
		{ID: "u2", CreatedAt: "later"},
	}})

	out := buf.String()
	assert.Contains(t, out, "Found 2 user(s)")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "2025-06-01")
	assert.Contains(t, out, "12.5")
	assert.Contains(t, out, "later")
}

func TestPrintUsers_Empty(t *testing.T) {
	var buf bytes.Buffer
	printUsers(&buf, users.Data{Users: []users.User{}})
	assert.Equal(t, "No users\n", buf.String())
}

func TestRouteRows(t *testing.T) {
	rows := routeRows([]*page.Route{
		{Method: http.MethodGet, Pattern: "/", Type: page.RouteTypePage, Description: "Users"},
		{Method: http.MethodGet, Pattern: "/__data.json", Type: page.RouteTypeData},
	})

	assert.Equal(t, []routeRow{
		{Method: "GET", Pattern: "/", Type: "page", Description: "Users"},
		{Method: "GET", Pattern: "/__data.json", Type: "data"},
	}, rows)

	var buf bytes.Buffer
	assert.NoError(t, writeJSON(&buf, map[string]any{"routes": rows}))
	assert.JSONEq(t, `{"routes":[{"method":"GET","pattern":"/","type":"page","description":"Users"},{"method":"GET","pattern":"/__data.json","type":"data"}]}`, buf.String())
}
