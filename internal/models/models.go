// Package models provides shared data types for the tender analysis platform.
package models

import (
	"time"

	"github.com/backend-developer-hojiakbar/mebel/internal/price"
)

// NotAvailable is the sentinel used for any field the source documents or the
// model could not supply. String fields carry it instead of being empty or null.
const NotAvailable = "N/A"

// ProductType classifies a lot item as a physical good or a service.
type ProductType string

const (
	TypeProduct ProductType = "PRODUCT"
	TypeService ProductType = "SERVICE"
)

// Region identifies where a supplier operates.
type Region string

const (
	RegionUZ            Region = "UZ"
	RegionInternational Region = "International"
)

// StockStatus describes supplier availability for a product.
type StockStatus string

const (
	StockInStock    StockStatus = "In Stock"
	StockOnOrder    StockStatus = "On Order"
	StockOutOfStock StockStatus = "Out of Stock"
	StockUnknown    StockStatus = "N/A"
)

// ImagePayload is an inline image attached to an analysis request.
type ImagePayload struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64-encoded
}

// AnalysisRequest is the immutable input to one analysis run.
type AnalysisRequest struct {
	Platform   string         `json:"platform"`
	TenderType string         `json:"tender_type"`
	SourceURL  string         `json:"source_url,omitempty"`
	Content    string         `json:"content,omitempty"`
	FileName   string         `json:"file_name,omitempty"`
	Images     []ImagePayload `json:"images,omitempty"`
	Language   string         `json:"language"` // uz, ru, en
}

// Supplier is a vetted commercial source for one product.
type Supplier struct {
	ID          string      `json:"id"`
	CompanyName string      `json:"company_name"`
	Price       price.Value `json:"price"`
	Phone       string      `json:"phone"`
	Website     string      `json:"website"`
	Region      Region      `json:"region"`
	Address     string      `json:"address"`
	Stock       StockStatus `json:"stock"`
	Score       *float64    `json:"score,omitempty"` // 0-100, display-only
}

// Product is a single line item extracted from a tender document.
type Product struct {
	ID             string      `json:"id"`
	Type           ProductType `json:"type"`
	Name           string      `json:"name"`
	PositionNumber string      `json:"position_number"`
	ParentPosition string      `json:"parent_position,omitempty"`
	Manufacturer   string      `json:"manufacturer"`
	Features       string      `json:"features"`
	Dimensions     string      `json:"dimensions"`
	Unit           string      `json:"unit"`
	Quantity       float64     `json:"quantity"`
	StartingPrice  string      `json:"starting_price"`
	Suppliers      []Supplier  `json:"suppliers"`
}

// PotentialScore is the deterministic opportunity assessment for a result.
// It is derived data, recomputed whenever products or suppliers change.
type PotentialScore struct {
	Opportunity    float64 `json:"opportunity"`     // 0-100
	Risk           float64 `json:"risk"`            // 0-100
	WinProbability float64 `json:"win_probability"` // percent, two decimals
	PotentialScore int     `json:"potential_score"` // 0-100
	DaysRemaining  int     `json:"days_remaining"`  // -1 when deadline is unknown
}

// AnalysisResult is the output of one completed analysis run.
type AnalysisResult struct {
	ID         string          `json:"id"`
	Summary    string          `json:"summary"`
	Products   []Product       `json:"products"`
	Source     string          `json:"source"` // URL or file name
	Deadline   string          `json:"deadline,omitempty"`
	Score      *PotentialScore `json:"score,omitempty"`
	RawContent string          `json:"raw_content,omitempty"` // retained for bid calculations
	CreatedAt  time.Time       `json:"created_at"`
}

// AdditionalCosts holds the user-adjustable inputs to a bid calculation.
// All monetary amounts are in UZS.
type AdditionalCosts struct {
	Logistics           float64 `json:"logistics"`
	BankGuarantee       float64 `json:"bank_guarantee"`
	Commission          float64 `json:"commission"`
	FixedCosts          float64 `json:"fixed_costs"`
	ProfitMarginPercent float64 `json:"profit_margin_percent"`
}

// BidRecommendation is the computed bid breakdown plus the generated narrative.
type BidRecommendation struct {
	GoodsTotal         float64 `json:"goods_total"`
	Logistics          float64 `json:"logistics"`
	BankGuarantee      float64 `json:"bank_guarantee"`
	Commission         float64 `json:"commission"`
	FixedCosts         float64 `json:"fixed_costs"`
	Subtotal           float64 `json:"subtotal"`
	Profit             float64 `json:"profit"`
	Total              float64 `json:"total"`
	RecommendedBid     float64 `json:"recommended_bid"`
	Justification      string  `json:"justification"`
	CompetitorAnalysis string  `json:"competitor_analysis"`
}

// ContractStatus tracks the analysis state of an uploaded contract.
type ContractStatus string

const (
	ContractPending ContractStatus = "pending"
	ContractDone    ContractStatus = "done"
	ContractError   ContractStatus = "error"
)

// ContractLineItem is one product line from a historical contract.
type ContractLineItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    string  `json:"price"`
}

// ContractDetails holds the AI-extracted fields of a historical contract.
type ContractDetails struct {
	Customer   string             `json:"customer"`
	Supplier   string             `json:"supplier"`
	TotalValue string             `json:"total_value"`
	Items      []ContractLineItem `json:"items"`
}

// Contract is an uploaded historical contract used as read-only prompt context.
type Contract struct {
	ID         string           `json:"id"`
	FileName   string           `json:"file_name"`
	RawText    string           `json:"raw_text"`
	Status     ContractStatus   `json:"status"`
	Details    *ContractDetails `json:"details,omitempty"`
	Error      string           `json:"error,omitempty"`
	UploadedAt time.Time        `json:"uploaded_at"`
}

// Stage identifies a pipeline phase for progress reporting.
type Stage string

const (
	StageScraping    Stage = "scraping"
	StageExtracting  Stage = "extracting"
	StageSearching   Stage = "searching"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
)

// Progress is reported at stage boundaries and per-product increments.
type Progress struct {
	Stage   Stage `json:"stage"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
}

// ProgressFunc receives progress updates. Implementations must be cheap;
// the pipeline shields itself from panicking callbacks.
type ProgressFunc func(Progress)
