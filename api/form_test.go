package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"cs-portal/internal/logger/loggertest"
	"cs-portal/model"
	"cs-portal/service"
	"cs-portal/view"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "portal_session"

// fakeForms answers with fixed errors and remembers what it was asked.
type fakeForms struct {
	session   *model.FormSession
	submitErr error
	resetErr  error
	snapErr   error

	submitted  []model.FormInput
	sessionIDs []string
	resets     int
}

func (f *fakeForms) current(id string) *model.FormSession {
	if f.session != nil {
		return f.session
	}
	return model.NewFormSession(id)
}

func (f *fakeForms) Snapshot(ctx context.Context, sessionID string) (*model.FormSession, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.current(sessionID), nil
}

func (f *fakeForms) Submit(ctx context.Context, sessionID string, input model.FormInput) (*model.FormSession, error) {
	f.submitted = append(f.submitted, input)
	f.sessionIDs = append(f.sessionIDs, sessionID)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	s := f.current(sessionID)
	s.Input = input
	s.State = model.Pending()
	return s, nil
}

func (f *fakeForms) Reset(ctx context.Context, sessionID string) (*model.FormSession, error) {
	f.resets++
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return model.NewFormSession(sessionID), nil
}

func newTestEngine(t *testing.T, forms FormController) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := view.NewRenderer(view.DefaultCatalog())
	require.NoError(t, err)
	h := NewFormHandler(forms, renderer, loggertest.New(t))

	r := gin.New()
	r.SetHTMLTemplate(renderer.Template())
	r.Use(SessionMiddleware(SessionOptions{CookieName: testCookie, MaxAge: 3600}))
	r.GET("/", h.Page)
	r.POST("/submit", h.SubmitForm)
	r.POST("/reset", h.ResetForm)
	r.GET("/api/state", h.APIState)
	r.POST("/api/submit", h.APISubmit)
	r.POST("/api/reset", h.APIReset)
	return r
}

func postForm(r http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPage(t *testing.T) {
	r := newTestEngine(t, &fakeForms{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/submit"`)
}

func TestPage_StoreError(t *testing.T) {
	r := newTestEngine(t, &fakeForms{snapErr: errors.New("redis down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSubmitForm(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postForm(r, "/submit", url.Values{"query": {"help"}, "company_name": {"Acme"}, "team_size": {"12"}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.Len(t, forms.submitted, 1)
	assert.Equal(t, model.FormInput{Query: "help", CompanyName: "Acme", TeamSize: "12"}, forms.submitted[0])
	assert.NotEmpty(t, forms.sessionIDs[0])
}

func TestSubmitForm_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"empty query", service.ErrEmptyQuery, http.StatusUnprocessableEntity, "Please enter a query."},
		{"invalid", errors.Join(service.ErrInvalidInput, errors.New("team size must be between 1 and 10000")), http.StatusUnprocessableEntity, "team size must be between"},
		{"in flight", service.ErrSubmissionInFlight, http.StatusSeeOther, ""},
		{"store", errors.New("redis down"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(t, &fakeForms{submitErr: tt.err})
			w := postForm(r, "/submit", url.Values{"query": {"typed text"}, "team_size": {"20000"}})

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			if tt.status == http.StatusUnprocessableEntity {
				// the rejected input stays in the form
				assert.Contains(t, w.Body.String(), "typed text")
				assert.Contains(t, w.Body.String(), `value="20000"`)
			}
		})
	}
}

func TestResetForm(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postForm(r, "/reset", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, 1, forms.resets)

	forms.resetErr = errors.New("redis down")
	w = postForm(r, "/reset", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAPIState(t *testing.T) {
	conf := 0.87
	session := model.NewFormSession("s1")
	session.Input.Query = "help"
	session.State = model.Succeeded(model.ClassificationResult{
		Classification: "Technical Support",
		Response:       "ok",
		Sentiment:      model.SentimentPositive,
		Confidence:     &conf,
	})
	r := newTestEngine(t, &fakeForms{session: session})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Session model.FormSession `json:"session"`
		View    view.Page         `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusSucceeded, resp.Session.State.Status)
	require.NotNil(t, resp.View.Result)
	assert.Equal(t, 87, resp.View.Result.ConfidencePercent)
	assert.Equal(t, "technical-support", resp.View.Result.Badge)
}

func TestAPISubmit(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postJSON(r, "/api/submit", `{"query":"help","company_name":null,"team_size":5}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Len(t, forms.submitted, 1)
	assert.Equal(t, model.FormInput{Query: "help", TeamSize: "5"}, forms.submitted[0])
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestAPISubmit_TeamSizeAsText(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postJSON(r, "/api/submit", `{"query":"help","company_name":"Acme","team_size":"many"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, model.FormInput{Query: "help", CompanyName: "Acme", TeamSize: "many"}, forms.submitted[0])
}

func TestAPISubmit_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		status    int
	}{
		{"empty body", ``, nil, http.StatusBadRequest},
		{"malformed", `{"query":`, nil, http.StatusBadRequest},
		{"missing query", `{"company_name":"Acme"}`, nil, http.StatusUnprocessableEntity},
		{"query wrong type", `{"query":42}`, nil, http.StatusUnprocessableEntity},
		{"fractional team size", `{"query":"q","team_size":2.5}`, nil, http.StatusUnprocessableEntity},
		{"blank query", `{"query":"   "}`, service.ErrEmptyQuery, http.StatusUnprocessableEntity},
		{"too long", `{"query":"q"}`, service.ErrInvalidInput, http.StatusUnprocessableEntity},
		{"in flight", `{"query":"q"}`, service.ErrSubmissionInFlight, http.StatusConflict},
		{"store", `{"query":"q"}`, errors.New("redis down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(t, &fakeForms{submitErr: tt.submitErr})
			w := postJSON(r, "/api/submit", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAPISubmit_SchemaDetails(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postJSON(r, "/api/submit", `{"query":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Details)
	assert.Empty(t, forms.submitted)
}

func TestAPIReset(t *testing.T) {
	forms := &fakeForms{}
	r := newTestEngine(t, forms)

	w := postJSON(r, "/api/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"idle"`)
	assert.Equal(t, 1, forms.resets)
}
