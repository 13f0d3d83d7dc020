package models

import "time"

// ProcessingTimings records how long each stage of one prediction took.
type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Resize      time.Duration
	Preprocess  time.Duration
	Acquire     time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}

type PredictionResponse struct {
	FoodName   string  `json:"foodName"`
	Confidence float64 `json:"confidence"`
}

type RankedPrediction struct {
	FoodName    string  `json:"foodName"`
	Probability float64 `json:"probability"`
	Score       float64 `json:"score"`
}

type DetailedPredictionResponse struct {
	FoodName    string             `json:"foodName"`
	Confidence  float64            `json:"confidence"`
	Category    string             `json:"category"`
	Condition   string             `json:"condition"`
	Predictions []RankedPrediction `json:"predictions"`
}

type FoodInfo struct {
	Index     int    `json:"index"`
	FoodName  string `json:"foodName"`
	Category  string `json:"category"`
	Condition string `json:"condition"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
