package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/models"
)

// ProductAnalysis is the structured description derived from a product photo.
type ProductAnalysis struct {
	Title              string   `json:"title"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	Description        string   `json:"description"`
	ShortDescription   string   `json:"shortDescription"`
	Sentiment          string   `json:"sentiment"`
	Keywords           []string `json:"keywords"`
	Prediction         string   `json:"prediction"`
	SellingPoints      []string `json:"sellingPoints"`
	UseCases           []string `json:"useCases"`
	PriceJustification string   `json:"priceJustification"`
	SEOTitle           string   `json:"seoTitle"`
	SEODescription     string   `json:"seoDescription"`

	Labels   []string `json:"-"`
	Fallback bool     `json:"-"`
}

// PriceValue is the suggested price in whole currency units.
func (a *ProductAnalysis) PriceValue() int {
	return int(math.Round(a.Price))
}

// Record converts the analysis into the form stored on the product.
func (a *ProductAnalysis) Record() *models.AIAnalysis {
	return &models.AIAnalysis{
		Sentiment:          a.Sentiment,
		Keywords:           a.Keywords,
		Prediction:         a.Prediction,
		SellingPoints:      a.SellingPoints,
		UseCases:           a.UseCases,
		PriceJustification: a.PriceJustification,
		SEOTitle:           a.SEOTitle,
		SEODescription:     a.SEODescription,
		Labels:             a.Labels,
		Fallback:           a.Fallback,
	}
}

func (a *ProductAnalysis) validate() error {
	switch {
	case strings.TrimSpace(a.Title) == "":
		return errors.New("missing title")
	case strings.TrimSpace(a.Category) == "":
		return errors.New("missing category")
	case a.PriceValue() <= 0:
		return fmt.Errorf("invalid price %v", a.Price)
	}
	return nil
}

// FallbackAnalysis is used whenever a photo cannot be analyzed.
func FallbackAnalysis() *ProductAnalysis {
	return &ProductAnalysis{
		Title:       "New Product",
		Category:    "General",
		Price:       100,
		Description: "AI analysis failed. Please fill in manually.",
		Sentiment:   "Neutral (50%)",
		Keywords:    []string{"product", "new"},
		Prediction:  "No data",
		Fallback:    true,
	}
}

// ImageAnalyzer derives a product description from a photo. It never fails:
// any problem yields FallbackAnalysis.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, img *UploadedImage) *ProductAnalysis
}

// LabelDetector is the subset of the Rekognition client used for analysis.
type LabelDetector interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Completer is a chat model returning JSON objects.
type Completer interface {
	CompleteJSON(ctx context.Context, prompt string, temperature float64) (string, error)
}

// VisionAnalyzer detects labels with Rekognition and asks the language model
// to turn them into a catalog entry.
type VisionAnalyzer struct {
	labels        LabelDetector
	llm           Completer
	minConfidence float32
	maxLabels     int32
}

// NewVisionAnalyzer constructs a VisionAnalyzer. labels may be nil when AWS is
// unavailable, in which case every analysis falls back.
func NewVisionAnalyzer(labels LabelDetector, llm Completer, cfg *config.AWSConfig) *VisionAnalyzer {
	return &VisionAnalyzer{
		labels:        labels,
		llm:           llm,
		minConfidence: float32(cfg.MinConfidence),
		maxLabels:     int32(cfg.MaxLabels),
	}
}

// NewRekognitionClient loads AWS config for the Rekognition region.
func NewRekognitionClient(ctx context.Context, cfg *config.AWSConfig) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.RekognitionRegion),
	)
	if err != nil {
		return nil, err
	}
	return rekognition.NewFromConfig(awsCfg), nil
}

// Analyze implements ImageAnalyzer.
func (a *VisionAnalyzer) Analyze(ctx context.Context, img *UploadedImage) *ProductAnalysis {
	result, err := a.analyze(ctx, img)
	if err != nil {
		log.Warn().Err(err).Msg("Image analysis failed, using fallback")
		return FallbackAnalysis()
	}
	return result
}

func (a *VisionAnalyzer) analyze(ctx context.Context, img *UploadedImage) (*ProductAnalysis, error) {
	if a.labels == nil {
		return nil, errors.New("label detection not configured")
	}

	out, err := a.labels.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: img.Data},
		MaxLabels:     aws.Int32(a.maxLabels),
		MinConfidence: aws.Float32(a.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	labels := labelNames(out.Labels)
	if len(labels) == 0 {
		return nil, errors.New("no labels detected")
	}
	log.Debug().Strs("labels", labels).Msg("Rekognition labels detected")

	raw, err := a.llm.CompleteJSON(ctx, analysisPrompt(labels), 0.3)
	if err != nil {
		return nil, fmt.Errorf("structure labels: %w", err)
	}

	var result ProductAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if err := result.validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	result.Labels = labels
	return &result, nil
}

func labelNames(labels []types.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Name == nil || *l.Name == "" {
			continue
		}
		names = append(names, *l.Name)
	}
	return names
}

func analysisPrompt(labels []string) string {
	return fmt.Sprintf(`A product photo was analyzed and shows: %s.

Describe the product for an online store. Return JSON with exactly these fields:
{
  "title": "short product name",
  "category": "product category",
  "price": estimated retail price in USD as a number,
  "description": "2-3 sentence description",
  "shortDescription": "one sentence",
  "sentiment": "buyer sentiment with percentage, e.g. Positive (90%%)",
  "keywords": ["3 to 5 keywords"],
  "prediction": "one sentence market prediction",
  "sellingPoints": ["up to 3 selling points"],
  "useCases": ["up to 3 use cases"],
  "priceJustification": "one sentence",
  "seoTitle": "max 60 characters",
  "seoDescription": "max 160 characters"
}`, strings.Join(labels, ", "))
}
