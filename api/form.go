package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cs-portal/internal/logger"
	"cs-portal/model"
	"cs-portal/service"
	"cs-portal/view"

	"github.com/gin-gonic/gin"
)

// FormController is the slice of service.FormService the handlers need.
type FormController interface {
	Snapshot(ctx context.Context, sessionID string) (*model.FormSession, error)
	Submit(ctx context.Context, sessionID string, input model.FormInput) (*model.FormSession, error)
	Reset(ctx context.Context, sessionID string) (*model.FormSession, error)
}

type FormHandler struct {
	forms    FormController
	renderer *view.Renderer
	logger   logger.Logger
}

func NewFormHandler(forms FormController, renderer *view.Renderer, log logger.Logger) *FormHandler {
	return &FormHandler{
		forms:    forms,
		renderer: renderer,
		logger:   log.With(map[string]interface{}{"component": "http"}),
	}
}

// stateResponse is the JSON view of one session.
type stateResponse struct {
	Session *model.FormSession `json:"session"`
	View    view.Page          `json:"view"`
}

type apiSubmitRequest struct {
	Query       string      `json:"query"`
	CompanyName *string     `json:"company_name"`
	TeamSize    interface{} `json:"team_size"`
}

func (r apiSubmitRequest) formInput() model.FormInput {
	in := model.FormInput{Query: r.Query}
	if r.CompanyName != nil {
		in.CompanyName = *r.CompanyName
	}
	switch v := r.TeamSize.(type) {
	case float64:
		in.TeamSize = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		in.TeamSize = v
	}
	return in
}

func (h *FormHandler) Page(c *gin.Context) {
	session, err := h.forms.Snapshot(c.Request.Context(), SessionID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, view.PageTemplate, h.renderer.Render(session))
}

// SubmitForm handles the HTML form post. Rejected input is rendered back
// with a notice; everything else redirects to the page.
func (h *FormHandler) SubmitForm(c *gin.Context) {
	var in model.FormInput
	if err := c.ShouldBind(&in); err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	ctx := c.Request.Context()
	_, err := h.forms.Submit(ctx, SessionID(c), in)
	switch {
	case err == nil, errors.Is(err, service.ErrSubmissionInFlight):
		c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrInvalidInput):
		session, serr := h.forms.Snapshot(ctx, SessionID(c))
		if serr != nil {
			h.fail(c, serr)
			return
		}
		page := h.renderer.Render(session)
		page.Input = in
		page.ShowReset = page.ShowReset || !in.IsEmpty()
		page.Notice = noticeFor(err)
		c.HTML(http.StatusUnprocessableEntity, view.PageTemplate, page)
	default:
		h.fail(c, err)
	}
}

func (h *FormHandler) ResetForm(c *gin.Context) {
	if _, err := h.forms.Reset(c.Request.Context(), SessionID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormHandler) APIState(c *gin.Context) {
	session, err := h.forms.Snapshot(c.Request.Context(), SessionID(c))
	if err != nil {
		h.failJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse{Session: session, View: h.renderer.Render(session)})
}

func (h *FormHandler) APISubmit(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	violations, err := validateSubmitBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(violations) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request", "details": violations})
		return
	}

	var req apiSubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	session, err := h.forms.Submit(c.Request.Context(), SessionID(c), req.formInput())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, stateResponse{Session: session, View: h.renderer.Render(session)})
	case errors.Is(err, service.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyQuery), errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.failJSON(c, err)
	}
}

func (h *FormHandler) APIReset(c *gin.Context) {
	session, err := h.forms.Reset(c.Request.Context(), SessionID(c))
	if err != nil {
		h.failJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse{Session: session, View: h.renderer.Render(session)})
}

func (h *FormHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.WithError(err).Error("request failed", map[string]interface{}{"path": c.Request.URL.Path})
	c.String(http.StatusInternalServerError, "internal error")
}

func (h *FormHandler) failJSON(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.WithError(err).Error("request failed", map[string]interface{}{"path": c.Request.URL.Path})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func noticeFor(err error) string {
	if errors.Is(err, service.ErrEmptyQuery) {
		return "Please enter a query."
	}
	return err.Error()
}
