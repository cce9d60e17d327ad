package view

import (
	"embed"
	"html/template"
	"io"
	"math"
	"time"

	"cs-portal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the template name gin renders for the form page.
const PageTemplate = "index.html"

// refreshSeconds is how often a pending page polls for the outcome.
const refreshSeconds = 1

// Page is everything the form template needs. It is derived solely from a
// FormSession; nothing else feeds the render.
type Page struct {
	Input  model.FormInput    `json:"input"`
	Status model.RequestStatus `json:"status"`

	Processing     bool   `json:"processing"`
	SubmitDisabled bool   `json:"submit_disabled"`
	RefreshSeconds int    `json:"refresh_seconds,omitempty"`
	ShowReset      bool   `json:"show_reset"`
	Notice         string `json:"notice,omitempty"`

	Error  *ErrorPanel  `json:"error,omitempty"`
	Result *ResultPanel `json:"result,omitempty"`

	Limits Limits `json:"-"`
}

type ErrorPanel struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type ResultPanel struct {
	Title          string `json:"title"`
	Classification string `json:"classification"`
	Badge          string `json:"badge,omitempty"`

	Sentiment     model.Sentiment `json:"sentiment,omitempty"`
	SentimentIcon string          `json:"sentiment_icon,omitempty"`

	ShowConfidence    bool `json:"show_confidence"`
	ConfidencePercent int  `json:"confidence_percent"`

	Response   string `json:"response"`
	Escalation bool   `json:"escalation"`
	RenderedAt string `json:"rendered_at"`
}

// Limits feed the input attributes of the form.
type Limits struct {
	QueryMax   int
	CompanyMax int
	TeamMin    int
	TeamMax    int
}

type Renderer struct {
	catalog *Catalog
	tmpl    *template.Template
}

func NewRenderer(catalog *Catalog) (*Renderer, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	tmpl, err := template.New(PageTemplate).Funcs(template.FuncMap{
		"statusClass": func(s model.RequestStatus) string { return "state-" + string(s) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{catalog: catalog, tmpl: tmpl}, nil
}

// Template exposes the parsed templates for gin's HTML renderer.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

func (r *Renderer) Execute(w io.Writer, page Page) error {
	return r.tmpl.ExecuteTemplate(w, PageTemplate, page)
}

// Render maps the session to its page. The three panels (processing, result,
// error) are selected only by the request status.
func (r *Renderer) Render(session *model.FormSession) Page {
	if session == nil {
		session = model.NewFormSession("")
	}
	state := session.State

	page := Page{
		Input:  session.Input,
		Status: state.Status,
		Limits: Limits{
			QueryMax:   model.MaxQueryLength,
			CompanyMax: model.MaxCompanyNameLength,
			TeamMin:    model.MinTeamSize,
			TeamMax:    model.MaxTeamSize,
		},
	}

	switch state.Status {
	case model.StatusPending:
		page.Processing = true
		page.SubmitDisabled = true
		page.RefreshSeconds = refreshSeconds
	case model.StatusSucceeded:
		if state.Result != nil {
			page.Result = r.resultPanel(*state.Result, session.UpdatedAt)
		}
	case model.StatusFailed:
		page.Error = &ErrorPanel{Title: "Connection Error", Message: state.Error}
		result := state.Result
		if result == nil {
			result = model.ErrorResult()
		}
		page.Result = r.resultPanel(*result, session.UpdatedAt)
	case model.StatusIdle:
	default:
		page.Status = model.StatusIdle
	}

	page.ShowReset = !session.Input.IsEmpty() || page.Result != nil
	return page
}

func (r *Renderer) resultPanel(result model.ClassificationResult, at time.Time) *ResultPanel {
	panel := &ResultPanel{
		Title:          "Response",
		Classification: result.Classification,
		Response:       result.Response,
		Escalation:     result.NeedsEscalation,
		RenderedAt:     at.Local().Format("15:04:05"),
	}
	if result.Sentiment != "" {
		panel.Sentiment = result.Sentiment
		panel.SentimentIcon = r.catalog.SentimentIcon(result.Sentiment)
	}

	if result.IsError() {
		panel.Title = "Error"
		return panel
	}

	panel.Badge = r.catalog.Badge(result.Classification)
	if result.Confidence != nil {
		panel.ShowConfidence = true
		panel.ConfidencePercent = ConfidencePercent(*result.Confidence)
	}
	return panel
}

// ConfidencePercent scales a [0,1] confidence linearly to a whole percentage.
func ConfidencePercent(c float64) int {
	p := int(math.Round(c * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
