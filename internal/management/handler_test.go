package management

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/internal/logger"
	"streamrouter/internal/routing"
	"streamrouter/pkg/middleware"
)

func setupRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := newTestEnv(t)
	router := gin.New()
	router.Use(middleware.ActorMiddleware())
	NewHandler(env.svc, logger.NopLogger()).RegisterRoutes(router)
	return router, env
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHandler_StreamCRUD(t *testing.T) {
	router, env := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/streams", map[string]interface{}{
		"title": "nginx errors",
		"rules": []map[string]interface{}{
			{"type": "FACILITY", "value": "nginx"},
			{"type": 7, "value": "3"},
		},
	}, middleware.ActorHeader, "bob")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[routing.Stream](t, w)
	require.Len(t, created.Rules, 2)
	assert.Equal(t, routing.RuleTypeFacility, created.Rules[0].Type)
	assert.Equal(t, routing.RuleTypeSeverityOrHigher, created.Rules[1].Type)
	assert.Equal(t, "bob", env.audit.entries[0].ChangedBy)

	w = doJSON(t, router, http.MethodGet, "/api/v1/streams/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nginx errors", decode[routing.Stream](t, w).Title)

	w = doJSON(t, router, http.MethodPut, "/api/v1/streams/"+created.ID, map[string]interface{}{"title": "nginx"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nginx", decode[routing.Stream](t, w).Title)

	w = doJSON(t, router, http.MethodGet, "/api/v1/streams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]routing.Stream](t, w), 1)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/streams/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/streams/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "NOT_FOUND", body["error_code"])
}

func TestHandler_CreateStreamRejectsBadInput(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/streams", map[string]interface{}{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/streams", map[string]interface{}{
		"title": "bad",
		"rules": []map[string]interface{}{{"type": "HOST_REGEX", "value": "("}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "INVALID_STREAM_RULE", body["error_code"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/streams", map[string]interface{}{
		"title": "bad",
		"rules": []map[string]interface{}{{"type": "NOT_A_TYPE", "value": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Rules(t *testing.T) {
	router, env := setupRouter(t)
	stream := env.createStream(t, CreateStreamRequest{Title: "rules"})
	base := "/api/v1/streams/" + stream.ID + "/rules"

	w := doJSON(t, router, http.MethodPost, base, map[string]interface{}{"type": "HOST", "value": "web01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rule := decode[routing.StreamRule](t, w)

	w = doJSON(t, router, http.MethodPut, base+"/"+rule.ID, map[string]interface{}{"inverted": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[routing.StreamRule](t, w).Inverted)

	w = doJSON(t, router, http.MethodPut, base+"/"+rule.ID, map[string]interface{}{"type": "TIMEFRAME", "value": "25;3"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodDelete, base+"/"+rule.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, base+"/"+rule.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_PauseResume(t *testing.T) {
	router, env := setupRouter(t)
	stream := env.createStream(t, CreateStreamRequest{Title: "toggle"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/streams/"+stream.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[routing.Stream](t, w).Disabled)

	w = doJSON(t, router, http.MethodPost, "/api/v1/streams/"+stream.ID+"/resume", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[routing.Stream](t, w).Disabled)

	w = doJSON(t, router, http.MethodPost, "/api/v1/streams/missing/pause", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_TestStream(t *testing.T) {
	router, env := setupRouter(t)
	stream := env.createStream(t, CreateStreamRequest{
		Title: "db hosts",
		Rules: []CreateRuleRequest{
			{Type: routing.RuleTypeHostRegex, Value: "^db\\d+"},
			{Type: routing.RuleTypeAdditionalField, Value: "env=prod"},
		},
	})

	w := doJSON(t, router, http.MethodPost, "/api/v1/streams/"+stream.ID+"/test", map[string]interface{}{
		"message": map[string]interface{}{
			"host":          "db01",
			"short_message": "checkpoint",
			"_env":          "prod",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[routing.Explanation](t, w)
	assert.True(t, result.Matched)
	require.Len(t, result.Rules, 2)
	assert.Equal(t, routing.RuleTypeHostRegex, result.Rules[0].Type)

	w = doJSON(t, router, http.MethodPost, "/api/v1/streams/"+stream.ID+"/test", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RuleTypes(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/streams/rule-types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[RuleTypesResponse](t, w)
	require.Len(t, resp.Types, 11)
	assert.Equal(t, "EXPRESSION", resp.Types[10].Name)
}

func TestHandler_AuditLogs(t *testing.T) {
	router, env := setupRouter(t)
	stream := env.createStream(t, CreateStreamRequest{Title: "audited"})
	env.createStream(t, CreateStreamRequest{Title: "other"})

	w := doJSON(t, router, http.MethodGet, "/api/v1/streams/"+stream.ID+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, w), 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/audit/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, w), 1)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 25, parseLimit("25"))
	assert.Equal(t, parseLimit(""), parseLimit("-1"))
	assert.Equal(t, parseLimit(""), parseLimit("abc"))
	assert.Equal(t, parseLimit(""), parseLimit("100000"))
}
