package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/foodshare/food-recognition-service/classification"
	"github.com/foodshare/food-recognition-service/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	MsgNoImage     = "No image provided"
	MsgInvalidJSON = "Invalid JSON body"
	MsgBodyTooBig  = "Request body too large"

	DefaultTopPredictions = 3
)

// AppState is shared by all handlers.
type AppState struct {
	Pipeline     *classification.Pipeline
	Pool         *ModelSessionPool
	Metrics      *Metrics
	Logger       *zap.Logger
	MaxBodyBytes int64
}

// requestError is a client error detected before the pipeline runs.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func (s *AppState) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/predict/details", s.handlePredictDetails).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/foods", s.handleFoods).Methods(http.MethodGet, http.MethodOptions)
	s.addMonitoringRoutes(r)

	r.Use(s.observe, mux.CORSMethodMiddleware(r), corsMiddleware)
	return r
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
}

func (s *AppState) handlePredict(w http.ResponseWriter, r *http.Request) {
	fields, err := s.readImageRequest(w, r)
	if err != nil {
		s.sendRequestError(w, err)
		return
	}

	outcome, err := s.classify(r.Context(), fields)
	if err != nil {
		s.sendProcessingError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, models.PredictionResponse{
		FoodName:   outcome.Label,
		Confidence: float64(outcome.Confidence),
	})
}

func (s *AppState) handlePredictDetails(w http.ResponseWriter, r *http.Request) {
	fields, err := s.readImageRequest(w, r)
	if err != nil {
		s.sendRequestError(w, err)
		return
	}

	top := DefaultTopPredictions
	if raw, ok := fields["top"]; ok {
		if err := json.Unmarshal(raw, &top); err != nil || top < 1 {
			s.sendRequestError(w, &requestError{http.StatusBadRequest, "top must be a positive integer"})
			return
		}
	}

	outcome, err := s.classify(r.Context(), fields)
	if err != nil {
		s.sendProcessingError(w, r, err)
		return
	}

	ranked := s.Pipeline.Labels.Top(outcome.Scores, top)
	predictions := make([]models.RankedPrediction, len(ranked))
	for i, rp := range ranked {
		predictions[i] = models.RankedPrediction{
			FoodName:    rp.Label,
			Probability: rp.Probability,
			Score:       float64(rp.Score),
		}
	}

	details := classification.Details(outcome.Label)
	sendJSON(w, http.StatusOK, models.DetailedPredictionResponse{
		FoodName:    outcome.Label,
		Confidence:  float64(outcome.Confidence),
		Category:    details.Category,
		Condition:   details.Condition,
		Predictions: predictions,
	})
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

func (s *AppState) handleFoods(w http.ResponseWriter, _ *http.Request) {
	names := s.Pipeline.Labels.Names()
	foods := make([]models.FoodInfo, len(names))
	for i, name := range names {
		details := classification.Details(name)
		foods[i] = models.FoodInfo{
			Index:     i,
			FoodName:  name,
			Category:  details.Category,
			Condition: details.Condition,
		}
	}
	sendJSON(w, http.StatusOK, foods)
}

// readImageRequest decodes the JSON object body and makes sure it has an
// image key. The value itself is validated by the pipeline.
func (s *AppState) readImageRequest(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body := r.Body
	if s.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(body)
	err := dec.Decode(&fields)
	if err == nil {
		// Anything after the object, even a stray brace, is rejected.
		if _, tokErr := dec.Token(); tokErr != io.EOF {
			err = errors.New("trailing data after JSON object")
			if tokErr != nil {
				err = tokErr
			}
		}
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, &requestError{http.StatusRequestEntityTooLarge, MsgBodyTooBig}
		}
		return nil, &requestError{http.StatusBadRequest, MsgInvalidJSON}
	}
	if fields == nil {
		return nil, &requestError{http.StatusBadRequest, MsgInvalidJSON}
	}
	if _, ok := fields["image"]; !ok {
		return nil, &requestError{http.StatusBadRequest, MsgNoImage}
	}
	return fields, nil
}

func (s *AppState) classify(ctx context.Context, fields map[string]json.RawMessage) (*classification.Outcome, error) {
	startTotal := time.Now()
	timings := &models.ProcessingTimings{RequestID: requestIDFrom(ctx)}

	var payload string
	if err := json.Unmarshal(fields["image"], &payload); err != nil {
		return nil, &classification.ProcessingError{
			Kind:    classification.KindDecode,
			Message: "image must be a base64 string",
			Cause:   err,
		}
	}

	outcome, err := s.Pipeline.Classify(ctx, payload, timings)
	timings.Total = time.Since(startTotal)
	s.logTimings(timings)
	if err != nil {
		return nil, err
	}

	s.Metrics.ObservePrediction(outcome.Label, timings.Inference)
	return outcome, nil
}

func (s *AppState) logTimings(t *models.ProcessingTimings) {
	s.Logger.Debug("processing times",
		zap.String("request_id", t.RequestID),
		zap.Duration("image_decode", t.ImageDecode),
		zap.Duration("resize", t.Resize),
		zap.Duration("preprocess", t.Preprocess),
		zap.Duration("acquire", t.Acquire),
		zap.Duration("inference", t.Inference),
		zap.Duration("postprocess", t.Postprocess),
		zap.Duration("total", t.Total),
	)
}

func (s *AppState) sendRequestError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		status = reqErr.status
	}
	sendJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// sendProcessingError reports any pipeline failure as a 500 carrying the
// error message.
func (s *AppState) sendProcessingError(w http.ResponseWriter, r *http.Request, err error) {
	kind := classification.KindOf(err)
	s.Metrics.ObserveFailure(kind.String())
	s.Logger.Error("prediction failed",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.Stringer("kind", kind),
		zap.Error(err),
	)
	sendJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
