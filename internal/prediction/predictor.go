// Package prediction は価格予測とディール分析のドメインロジックを提供する。
package prediction

import (
	"context"
	"math"
	"strings"
	"time"
)

// Features は価格予測の入力特徴量。
type Features struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	Mileage    int    `json:"mileage"`
	FuelType   string `json:"fuel_type,omitempty"`
	BodyType   string `json:"body_type,omitempty"`
	Trim       string `json:"trim,omitempty"`
	Cylinders  int    `json:"cylinders,omitempty"`
	Horsepower int    `json:"horsepower,omitempty"`
	EngineCC   int    `json:"engine_cc,omitempty"`
}

// Prediction は予測価格と信頼区間。
type Prediction struct {
	PredictedPrice  float64 `json:"predicted_price"`
	ConfidenceLow   float64 `json:"confidence_low"`
	ConfidenceHigh  float64 `json:"confidence_high"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// Predictor は価格予測モデルのインターフェース。
// 外部の学習済みモデルへの差し替えを想定している。
type Predictor interface {
	// Predict は特徴量から予測価格と信頼区間を返す。
	Predict(ctx context.Context, f Features) (*Prediction, error)

	// Info はモデルのメタ情報を返す。
	Info() map[string]any
}

const (
	confidenceLevel = 0.90
	// 90%信頼区間のz値
	zScore = 1.645
	// 対数空間での標準偏差（キャリブレーション済み想定値）
	logSigma = 0.1
)

// ブランドごとの新車基準価格。未知のブランドはdefaultBasePriceを使う。
var brandBasePrices = map[string]float64{
	"toyota":        32000,
	"honda":         30000,
	"nissan":        28000,
	"mazda":         27000,
	"ford":          38000,
	"chevrolet":     36000,
	"tesla":         52000,
	"bmw":           58000,
	"mercedes-benz": 62000,
	"audi":          56000,
	"lexus":         50000,
	"hyundai":       26000,
	"kia":           25000,
	"subaru":        29000,
	"volkswagen":    31000,
	"jeep":          37000,
}

const defaultBasePrice = 30000

// HeuristicPredictor は決定的な減価カーブに基づく予測実装。
// 同じ特徴量には常に同じ予測を返す。
type HeuristicPredictor struct {
	// now は車齢計算の基準時刻。テストで固定するために差し替え可能。
	now func() time.Time
}

var _ Predictor = (*HeuristicPredictor)(nil)

// NewHeuristicPredictor はHeuristicPredictorを生成する。
func NewHeuristicPredictor() *HeuristicPredictor {
	return &HeuristicPredictor{now: time.Now}
}

// Predict は特徴量から予測価格と信頼区間を返す。
// ブランド基準価格に車齢の指数減価と走行距離の減額を適用し、
// 対数空間の信頼区間を実価格に変換する。
func (p *HeuristicPredictor) Predict(ctx context.Context, f Features) (*Prediction, error) {
	if err := validateFeatures(f, p.now().Year()); err != nil {
		return nil, err
	}

	base := brandBasePrices[strings.ToLower(f.Brand)]
	if base == 0 {
		base = defaultBasePrice
	}

	age := p.now().Year() - f.Year
	if age < 0 {
		age = 0
	}

	// 年12%の指数減価
	price := base * math.Pow(0.88, float64(age))

	// 年間平均を超える走行距離は1万kmあたり3%減額
	avgKms := float64(maxInt(age, 1)) * 15000
	excess := float64(f.Mileage) - avgKms
	if excess > 0 {
		price *= math.Pow(0.97, excess/10000)
	}

	// 馬力による上方補正
	if f.Horsepower > 200 {
		price *= 1 + math.Min(float64(f.Horsepower-200)/1000, 0.3)
	}

	mu := math.Log(price)
	return &Prediction{
		PredictedPrice:  math.Round(math.Exp(mu)),
		ConfidenceLow:   math.Round(math.Exp(mu - zScore*logSigma)),
		ConfidenceHigh:  math.Round(math.Exp(mu + zScore*logSigma)),
		ConfidenceLevel: confidenceLevel,
	}, nil
}

// Info はモデルのメタ情報を返す。
func (p *HeuristicPredictor) Info() map[string]any {
	return map[string]any{
		"model_type":      "heuristic depreciation curve",
		"target_coverage": confidenceLevel,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
