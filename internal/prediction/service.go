package prediction

import (
	"context"
	"fmt"
	"math"

	"github.com/hitoshi/carwatch/internal/model"
)

// ディール判定のしきい値（予測価格に対する差額の割合）
const (
	greatDealThreshold = 10.0
	fairPriceThreshold = -5.0
)

// ディール判定の結果文字列
const (
	VerdictGreatDeal  = "Great Deal"
	VerdictFairPrice  = "Fair Price"
	VerdictOverpriced = "Overpriced"
)

// DealAnalysis はディール分析の結果。
type DealAnalysis struct {
	PredictedPrice     float64    `json:"predicted_price"`
	ActualPrice        float64    `json:"actual_price"`
	Difference         float64    `json:"difference"`
	DifferencePercent  float64    `json:"difference_percent"`
	Verdict            string     `json:"verdict"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
}

// Service は価格予測のサービス層。
type Service struct {
	predictor Predictor
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(predictor Predictor) *Service {
	return &Service{predictor: predictor}
}

// Predict は特徴量から予測価格と信頼区間を返す。
func (s *Service) Predict(ctx context.Context, f Features) (*Prediction, error) {
	pred, err := s.predictor.Predict(ctx, f)
	if err != nil {
		return nil, err
	}
	return pred, nil
}

// Analyze は掲載価格を予測市場価格と比較してディール判定を返す。
// 判定: 差額が+10%超ならGreat Deal、-5%超ならFair Price、それ以外はOverpriced。
func (s *Service) Analyze(ctx context.Context, f Features, askingPrice float64) (*DealAnalysis, error) {
	if askingPrice <= 0 {
		return nil, model.NewInvalidFeaturesError(fmt.Sprintf("掲載価格が不正です: %v", askingPrice))
	}

	pred, err := s.predictor.Predict(ctx, f)
	if err != nil {
		return nil, err
	}

	difference := pred.PredictedPrice - askingPrice
	percent := difference / pred.PredictedPrice * 100

	var verdict string
	switch {
	case percent > greatDealThreshold:
		verdict = VerdictGreatDeal
	case percent > fairPriceThreshold:
		verdict = VerdictFairPrice
	default:
		verdict = VerdictOverpriced
	}

	return &DealAnalysis{
		PredictedPrice:     pred.PredictedPrice,
		ActualPrice:        askingPrice,
		Difference:         difference,
		DifferencePercent:  math.Round(percent*100) / 100,
		Verdict:            verdict,
		ConfidenceInterval: [2]float64{pred.ConfidenceLow, pred.ConfidenceHigh},
	}, nil
}

// Uncertainty は予測の不確実性情報。
type Uncertainty struct {
	PredictedPrice  float64    `json:"predicted_price"`
	Interval        [2]float64 `json:"interval"`
	IntervalWidth   float64    `json:"interval_width"`
	ConfidenceLevel float64    `json:"confidence_level"`
}

// PredictUncertainty は予測の信頼区間と区間幅を返す。
func (s *Service) PredictUncertainty(ctx context.Context, f Features) (*Uncertainty, error) {
	pred, err := s.predictor.Predict(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Uncertainty{
		PredictedPrice:  pred.PredictedPrice,
		Interval:        [2]float64{pred.ConfidenceLow, pred.ConfidenceHigh},
		IntervalWidth:   pred.ConfidenceHigh - pred.ConfidenceLow,
		ConfidenceLevel: pred.ConfidenceLevel,
	}, nil
}

// ModelInfo は予測モデルのメタ情報を返す。
func (s *Service) ModelInfo() map[string]any {
	return s.predictor.Info()
}

// validateFeatures は予測入力を検証する。
func validateFeatures(f Features, currentYear int) error {
	if f.Brand == "" {
		return model.NewInvalidFeaturesError("ブランドは必須です")
	}
	if f.Year < 1990 || f.Year > currentYear+1 {
		return model.NewInvalidFeaturesError(fmt.Sprintf("年式が範囲外です: %d", f.Year))
	}
	if f.Mileage < 0 {
		return model.NewInvalidFeaturesError(fmt.Sprintf("走行距離が負値です: %d", f.Mileage))
	}
	return nil
}
