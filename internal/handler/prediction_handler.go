package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carwatch/internal/prediction"
)

// PredictionServiceInterface は価格予測ハンドラーが必要とするサービスインターフェース。
type PredictionServiceInterface interface {
	// Predict は特徴量から予測価格と信頼区間を返す。
	Predict(ctx context.Context, f prediction.Features) (*prediction.Prediction, error)
	// Analyze は掲載価格を予測市場価格と比較してディール判定を返す。
	Analyze(ctx context.Context, f prediction.Features, askingPrice float64) (*prediction.DealAnalysis, error)
	// PredictUncertainty は予測の信頼区間と区間幅を返す。
	PredictUncertainty(ctx context.Context, f prediction.Features) (*prediction.Uncertainty, error)
	// ModelInfo は予測モデルのメタ情報を返す。
	ModelInfo() map[string]any
}

// PredictionHandler は価格予測のHTTPハンドラー。
type PredictionHandler struct {
	service PredictionServiceInterface
}

// NewPredictionHandler はPredictionHandlerを生成する。
func NewPredictionHandler(service PredictionServiceInterface) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// analyzeRequest はディール分析リクエストのボディ。
// 特徴量に掲載価格を加えた形。
type analyzeRequest struct {
	prediction.Features
	AskingPrice float64 `json:"asking_price"`
}

// Predict は予測価格を返す。
// POST /api/predictions/predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var features prediction.Features
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	pred, err := h.service.Predict(r.Context(), features)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, pred)
}

// Uncertainty は予測の信頼区間と区間幅を返す。
// POST /api/predictions/uncertainty
func (h *PredictionHandler) Uncertainty(w http.ResponseWriter, r *http.Request) {
	var features prediction.Features
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	uncertainty, err := h.service.PredictUncertainty(r.Context(), features)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, uncertainty)
}

// Analyze は掲載価格のディール判定を返す。
// POST /api/predictions/analyze
func (h *PredictionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	analysis, err := h.service.Analyze(r.Context(), req.Features, req.AskingPrice)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, analysis)
}

// ModelInfo は予測モデルのメタ情報を返す。
// GET /api/predictions/model
func (h *PredictionHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.service.ModelInfo())
}
