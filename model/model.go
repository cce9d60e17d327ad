package model

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type RequestStatus string

const (
	StatusIdle      RequestStatus = "idle"
	StatusPending   RequestStatus = "pending"
	StatusSucceeded RequestStatus = "succeeded"
	StatusFailed    RequestStatus = "failed"
)

const (
	MaxQueryLength       = 2000
	MaxCompanyNameLength = 100
	MinTeamSize          = 1
	MaxTeamSize          = 10000
)

// ErrorClassification is the label of the synthetic result shown on failure.
const ErrorClassification = "Error"

const errorReply = "Failed to get response from server. Please check if the backend is running and try again."

// FormInput holds the raw form fields as typed by the user.
// TeamSize stays text until submission.
type FormInput struct {
	Query       string `json:"query" form:"query"`
	CompanyName string `json:"company_name" form:"company_name"`
	TeamSize    string `json:"team_size" form:"team_size"`
}

func (f FormInput) IsEmpty() bool {
	return f.Query == "" && f.CompanyName == "" && f.TeamSize == ""
}

// ClassifyRequest is the wire body sent to the classification service.
type ClassifyRequest struct {
	Query       string  `json:"query"`
	CompanyName *string `json:"company_name"`
	TeamSize    *int    `json:"team_size"`
}

// ClassificationResult is the classification service reply. Sentiment and
// Confidence are optional on the wire.
type ClassificationResult struct {
	Classification  string    `json:"classification"`
	Response        string    `json:"response"`
	NeedsEscalation bool      `json:"needs_escalation"`
	Sentiment       Sentiment `json:"sentiment,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
}

func (r ClassificationResult) IsError() bool {
	return r.Classification == ErrorClassification
}

// ErrorResult is the synthetic result rendered alongside a failure so the
// result panel keeps a coherent shape.
func ErrorResult() *ClassificationResult {
	zero := 0.0
	return &ClassificationResult{
		Classification:  ErrorClassification,
		Response:        errorReply,
		NeedsEscalation: true,
		Sentiment:       SentimentNeutral,
		Confidence:      &zero,
	}
}

// RequestState is a tagged variant. Use the constructors below; a zero value
// is not a valid state.
type RequestState struct {
	Status RequestStatus         `json:"status"`
	Result *ClassificationResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func Idle() RequestState {
	return RequestState{Status: StatusIdle}
}

func Pending() RequestState {
	return RequestState{Status: StatusPending}
}

func Succeeded(result ClassificationResult) RequestState {
	return RequestState{Status: StatusSucceeded, Result: &result}
}

func Failed(message string) RequestState {
	return RequestState{Status: StatusFailed, Result: ErrorResult(), Error: message}
}

func (s RequestState) IsPending() bool {
	return s.Status == StatusPending
}

// FormSession is everything one browser session owns: the form, the request
// state and the generation token of the latest submit or reset.
type FormSession struct {
	ID         string       `json:"id"`
	Input      FormInput    `json:"input"`
	State      RequestState `json:"state"`
	Generation uint64       `json:"generation"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewFormSession(id string) *FormSession {
	return &FormSession{
		ID:        id,
		State:     Idle(),
		UpdatedAt: time.Now().UTC(),
	}
}

// LabelCatalog maps classification labels and sentiments to their
// presentation, loaded from config/labels.yaml.
type LabelCatalog struct {
	Labels     []LabelDefinition    `yaml:"labels"`
	Sentiments map[Sentiment]string `yaml:"sentiments"`
}

type LabelDefinition struct {
	Name    string `yaml:"name"`
	Badge   string `yaml:"badge"`
	Enabled bool   `yaml:"enabled"`
}

// Clone copies the session so callers cannot alias stored state.
func (s *FormSession) Clone() *FormSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.State.Result != nil {
		r := *s.State.Result
		if r.Confidence != nil {
			conf := *r.Confidence
			r.Confidence = &conf
		}
		c.State.Result = &r
	}
	return &c
}
