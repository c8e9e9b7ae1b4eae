// Package ingest はリスティングレコードの取り込みと境界検証を提供する。
//
// レコードはJSONで入力され、埋め込みJSONスキーマで検証される。
// 検証に失敗したレコードは拒否してログに残し、残りの取り込みは継続する。
// 通過したレコードは説明文をサニタイズしてから保存する。
package ingest

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hitoshi/carwatch/internal/model"
	"github.com/hitoshi/carwatch/internal/repository"
	"github.com/hitoshi/carwatch/internal/security"
)

//go:embed listing_schema.json
var listingSchemaJSON string

//go:embed seed_listings.json
var seedListingsJSON []byte

// record は取り込みJSONの1レコード。
type record struct {
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Price          string `json:"price"`
	PredictedPrice string `json:"predicted_price"`
	Mileage        string `json:"mileage"`
	Location       string `json:"location"`
	Condition      string `json:"condition"`
	ImageURL       string `json:"image_url"`
	Description    string `json:"description"`
	SourceURL      string `json:"source_url"`
}

// Result は取り込み結果の集計。
type Result struct {
	Imported int
	Rejected int
}

// ImportMetrics は取り込み件数の計測インターフェース。
type ImportMetrics interface {
	RecordListingsImported(count int)
	RecordListingsRejected(count int)
}

// Importer はリスティングレコードの取り込みを行う。
type Importer struct {
	listingRepo repository.ListingRepository
	sanitizer   security.DescriptionSanitizerService
	schema      *jsonschema.Schema
	logger      *slog.Logger
	metrics     ImportMetrics
}

// NewImporter はImporterを生成する。埋め込みスキーマのコンパイルに失敗した場合は
// エラーを返す（スキーマはビルド成果物の一部であり、失敗は設定ミスを意味する）。
// metricsはnil可。
func NewImporter(listingRepo repository.ListingRepository, sanitizer security.DescriptionSanitizerService, logger *slog.Logger, metrics ImportMetrics) (*Importer, error) {
	schema, err := jsonschema.CompileString("listing_schema.json", listingSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("リスティングスキーマのコンパイルに失敗しました: %w", err)
	}

	return &Importer{
		listingRepo: listingRepo,
		sanitizer:   sanitizer,
		schema:      schema,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Import はJSON配列形式のリスティングレコードを読み込んで保存する。
// スキーマ検証に失敗したレコードは拒否してログに残し、処理は継続する。
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("取り込みデータのデコードに失敗しました: %w", err)
	}

	result := &Result{}
	for idx, raw := range raws {
		if err := i.validate(raw); err != nil {
			result.Rejected++
			i.logger.Warn("リスティングレコードを拒否しました",
				slog.Int("index", idx),
				slog.String("error", err.Error()))
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			result.Rejected++
			i.logger.Warn("リスティングレコードのパースに失敗しました",
				slog.Int("index", idx),
				slog.String("error", err.Error()))
			continue
		}

		listing := &model.Listing{
			Make:           rec.Make,
			Model:          rec.Model,
			Year:           rec.Year,
			Price:          rec.Price,
			PredictedPrice: rec.PredictedPrice,
			Mileage:        rec.Mileage,
			Location:       rec.Location,
			Condition:      model.Condition(rec.Condition),
			ImageURL:       rec.ImageURL,
			Description:    i.sanitizer.Sanitize(rec.Description),
			SourceURL:      rec.SourceURL,
		}

		if err := i.listingRepo.Create(ctx, listing); err != nil {
			return result, fmt.Errorf("リスティングの保存に失敗しました: %w", err)
		}
		result.Imported++
	}

	if i.metrics != nil {
		i.metrics.RecordListingsImported(result.Imported)
		i.metrics.RecordListingsRejected(result.Rejected)
	}

	i.logger.Info("リスティングの取り込みが完了しました",
		slog.Int("imported", result.Imported),
		slog.Int("rejected", result.Rejected))

	return result, nil
}

// Seed は埋め込みのシードデータを取り込む。
func (i *Importer) Seed(ctx context.Context) (*Result, error) {
	return i.Import(ctx, bytes.NewReader(seedListingsJSON))
}

// validate はレコードを埋め込みスキーマで検証する。
func (i *Importer) validate(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := i.schema.Validate(v); err != nil {
		return model.NewInvalidListingError(err.Error())
	}
	return nil
}
