package route

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"cs-portal/api"
	"cs-portal/dao"
	"cs-portal/internal/aiclient"
	"cs-portal/internal/logger/loggertest"
	"cs-portal/model"
	"cs-portal/service"
	"cs-portal/view"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type portal struct {
	engine *gin.Engine
	forms  *service.FormService
	cookie *http.Cookie
}

func newPortal(t *testing.T, classify http.HandlerFunc) *portal {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(classify)
	t.Cleanup(upstream.Close)

	log := loggertest.New(t)
	store := dao.NewMemoryStore(time.Hour)
	forms := service.NewFormService(store, aiclient.NewClient(upstream.URL, time.Second), log)
	t.Cleanup(forms.Wait)

	renderer, err := view.NewRenderer(view.DefaultCatalog())
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(renderer.Template())
	Register(r, api.NewFormHandler(forms, renderer, log), store, api.SessionOptions{CookieName: "portal_session", MaxAge: 3600})

	return &portal{engine: r, forms: forms}
}

func (p *portal) do(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p.cookie != nil {
		req.AddCookie(p.cookie)
	}
	w := httptest.NewRecorder()
	p.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "portal_session" {
			p.cookie = c
		}
	}
	return w
}

func (p *portal) submit(t *testing.T, values url.Values) *httptest.ResponseRecorder {
	return p.do(t, http.MethodPost, "/submit", "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

func (p *portal) page(t *testing.T) string {
	w := p.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestPortal_SuccessfulClassification(t *testing.T) {
	var got map[string]interface{}
	p := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"classification":"Technical Support","response":"Try resetting your password.","needs_escalation":false,"sentiment":"positive","confidence":0.87}`)
	})

	assert.Contains(t, p.page(t), "Customer Support Portal")
	require.NotNil(t, p.cookie)

	w := p.submit(t, url.Values{"query": {"  I can't log in "}, "company_name": {""}, "team_size": {"abc"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	p.forms.Wait()

	assert.Equal(t, "I can't log in", got["query"])
	assert.Nil(t, got["company_name"])
	assert.Nil(t, got["team_size"])

	html := p.page(t)
	assert.Contains(t, html, `class="badge technical-support"`)
	assert.Contains(t, html, "width: 87%")
	assert.NotContains(t, html, "escalated to priority support")
	assert.NotContains(t, html, "Connection Error")
}

func TestPortal_ServerError(t *testing.T) {
	p := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.Equal(t, http.StatusSeeOther, p.submit(t, url.Values{"query": {"help"}}).Code)
	p.forms.Wait()

	w := p.do(t, http.MethodGet, "/api/state", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		Session model.FormSession `json:"session"`
		View    view.Page         `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, model.StatusFailed, state.Session.State.Status)
	assert.Contains(t, state.Session.State.Error, "500")
	require.NotNil(t, state.View.Result)
	assert.Equal(t, "Error", state.View.Result.Classification)
	assert.True(t, state.View.Result.Escalation)

	assert.Contains(t, p.page(t), "Connection Error")
}

func TestPortal_PendingThenReset(t *testing.T) {
	release := make(chan struct{})
	p := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = io.WriteString(w, `{"classification":"Sales Lead","response":"We'll be in touch.","needs_escalation":true}`)
	})

	require.Equal(t, http.StatusSeeOther, p.submit(t, url.Values{"query": {"pricing?"}, "company_name": {"Acme"}, "team_size": {"40"}}).Code)

	html := p.page(t)
	assert.Contains(t, html, `http-equiv="refresh"`)
	assert.Contains(t, html, " disabled>")

	// a second submit while pending changes nothing
	w := p.do(t, http.MethodPost, "/api/submit", "application/json", strings.NewReader(`{"query":"again"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusSeeOther, p.do(t, http.MethodPost, "/reset", "", nil).Code)
	close(release)
	p.forms.Wait()

	w = p.do(t, http.MethodGet, "/api/state", "", nil)
	var state struct {
		Session model.FormSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, model.StatusIdle, state.Session.State.Status)
	assert.Equal(t, model.FormInput{}, state.Session.Input)
	assert.Nil(t, state.Session.State.Result)
}

func TestPortal_HealthAndMetrics(t *testing.T) {
	p := newPortal(t, func(w http.ResponseWriter, r *http.Request) {})

	w := p.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = p.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portal_form_resets_total")
}
