package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"cs-portal/dao"
	"cs-portal/internal/aiclient"
	"cs-portal/internal/logger"
	"cs-portal/internal/metrics"
	"cs-portal/model"
	"cs-portal/utils"
)

// errStale marks a completion that lost to a later submit or reset.
var errStale = errors.New("stale completion")

// Classifier is the outbound side of a submission.
type Classifier interface {
	Classify(ctx context.Context, req model.ClassifyRequest) (*model.ClassificationResult, error)
}

// FormService is the query form controller for every browser session. Each
// session owns one FormInput and one RequestState; the generation counter
// ties every in-flight request to the submit that issued it.
type FormService struct {
	store      dao.SessionStore
	classifier Classifier
	logger     logger.Logger

	wg sync.WaitGroup
}

func NewFormService(store dao.SessionStore, classifier Classifier, log logger.Logger) *FormService {
	return &FormService{
		store:      store,
		classifier: classifier,
		logger: log.With(map[string]interface{}{
			"component": "form",
		}),
	}
}

// Snapshot returns the session, or a fresh idle one when it does not exist yet.
func (s *FormService) Snapshot(ctx context.Context, sessionID string) (*model.FormSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return model.NewFormSession(sessionID), nil
	}
	return session, nil
}

// Submit validates the input, moves the session to Pending and issues exactly
// one classification request in the background. On ErrEmptyQuery,
// ErrInvalidInput or ErrSubmissionInFlight nothing is sent and the stored
// state is left untouched.
func (s *FormService) Submit(ctx context.Context, sessionID string, input model.FormInput) (*model.FormSession, error) {
	log := s.logger.With(map[string]interface{}{"session_id": sessionID})

	req, err := BuildRequest(input)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyQuery):
			metrics.FormSubmissions.WithLabelValues("empty").Inc()
		default:
			metrics.FormSubmissions.WithLabelValues("invalid").Inc()
		}
		log.Debug("submission rejected", map[string]interface{}{"reason": err.Error()})
		return nil, err
	}

	var token uint64
	session, err := s.store.Update(ctx, sessionID, func(fs *model.FormSession) error {
		if fs.State.IsPending() {
			return ErrSubmissionInFlight
		}
		fs.Generation++
		fs.Input = input
		fs.State = model.Pending()
		token = fs.Generation
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSubmissionInFlight) {
			metrics.FormSubmissions.WithLabelValues("in_flight").Inc()
			log.Info("submission ignored, request already pending", nil)
		} else {
			log.WithError(err).Error("failed to store pending state", nil)
		}
		return nil, err
	}

	metrics.FormSubmissions.WithLabelValues("accepted").Inc()
	log.Info("submission accepted", map[string]interface{}{
		"generation":  token,
		"query_chars": utils.CharCount(req.Query),
	})

	s.wg.Add(1)
	go s.classify(context.WithoutCancel(ctx), sessionID, token, req)

	return session, nil
}

// Reset clears the form and returns the session to Idle. Bumping the
// generation orphans any in-flight request.
func (s *FormService) Reset(ctx context.Context, sessionID string) (*model.FormSession, error) {
	session, err := s.store.Update(ctx, sessionID, func(fs *model.FormSession) error {
		fs.Generation++
		fs.Input = model.FormInput{}
		fs.State = model.Idle()
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("reset failed", map[string]interface{}{"session_id": sessionID})
		return nil, err
	}

	metrics.FormResets.Inc()
	return session, nil
}

// Wait blocks until every background classification has finished.
func (s *FormService) Wait() {
	s.wg.Wait()
}

// Drain is Wait bounded by ctx.
func (s *FormService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *FormService) classify(ctx context.Context, sessionID string, token uint64, req model.ClassifyRequest) {
	defer s.wg.Done()

	log := s.logger.With(map[string]interface{}{
		"session_id": sessionID,
		"generation": token,
	})

	metrics.ClassifyInFlight.Inc()
	start := time.Now()
	result, err := s.classifier.Classify(ctx, req)
	elapsed := time.Since(start)
	metrics.ClassifyInFlight.Dec()

	outcome := outcomeOf(err)
	metrics.ClassifyRequests.WithLabelValues(outcome).Inc()
	metrics.ClassifyDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	var next model.RequestState
	if err != nil {
		log.WithError(err).Error("classification failed", map[string]interface{}{
			"outcome":     outcome,
			"status_code": aiclient.StatusCode(err),
			"elapsed_ms":  elapsed.Milliseconds(),
		})
		next = model.Failed(err.Error())
	} else {
		log.Info("classification received", map[string]interface{}{
			"classification":   result.Classification,
			"needs_escalation": result.NeedsEscalation,
			"elapsed_ms":       elapsed.Milliseconds(),
		})
		next = model.Succeeded(*result)
	}

	_, err = s.store.Update(ctx, sessionID, func(fs *model.FormSession) error {
		if fs.Generation != token || !fs.State.IsPending() {
			return errStale
		}
		fs.State = next
		return nil
	})
	switch {
	case errors.Is(err, errStale):
		metrics.StaleCompletions.Inc()
		log.Warn("discarding stale classification", nil)
	case err != nil:
		log.WithError(err).Error("failed to store classification outcome", nil)
	}
}

func outcomeOf(err error) string {
	var se *aiclient.ServerError
	switch {
	case err == nil:
		return metrics.OutcomeSucceeded
	case errors.As(err, &se):
		return metrics.OutcomeServerError
	default:
		return metrics.OutcomeTransportError
	}
}
