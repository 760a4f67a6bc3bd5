package domain

import (
	"math"
	"time"
)

// DateLayout is the ISO calendar date format used for UFV queries.
const DateLayout = "2006-01-02"

// ============================================================
// Debt request
// ============================================================

// DebtRequest holds the inputs of one debt calculation.
// Fields are unexported so a request cannot change after NewDebtRequest
// validated it.
type DebtRequest struct {
	principal      float64
	startDate      time.Time
	endDate        time.Time
	annualRate     float64
	elapsedDays    int
	penaltyPercent float64
}

// NewDebtRequest validates and builds a DebtRequest.
// Dates must be YYYY-MM-DD with start <= end; every numeric field must be >= 0.
func NewDebtRequest(principal float64, startDate, endDate string, annualRate float64, elapsedDays int, penaltyPercent float64) (DebtRequest, error) {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return DebtRequest{}, &ErrValidation{Field: "start_date", Message: "must be a YYYY-MM-DD date"}
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return DebtRequest{}, &ErrValidation{Field: "end_date", Message: "must be a YYYY-MM-DD date"}
	}
	if end.Before(start) {
		return DebtRequest{}, &ErrValidation{Field: "end_date", Message: "must not be before start_date"}
	}

	if err := nonNegative("principal", principal); err != nil {
		return DebtRequest{}, err
	}
	if err := nonNegative("annual_rate", annualRate); err != nil {
		return DebtRequest{}, err
	}
	if elapsedDays < 0 {
		return DebtRequest{}, &ErrValidation{Field: "elapsed_days", Message: "must not be negative"}
	}
	if err := nonNegative("penalty_percent", penaltyPercent); err != nil {
		return DebtRequest{}, err
	}

	return DebtRequest{
		principal:      principal,
		startDate:      start,
		endDate:        end,
		annualRate:     annualRate,
		elapsedDays:    elapsedDays,
		penaltyPercent: penaltyPercent,
	}, nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ErrValidation{Field: field, Message: "must be a finite number"}
	}
	if v < 0 {
		return &ErrValidation{Field: field, Message: "must not be negative"}
	}
	return nil
}

// Principal is the omitted tax amount (TO).
func (r DebtRequest) Principal() float64 { return r.principal }

// StartDate is the due date; the UFV on this date is index-at-start.
func (r DebtRequest) StartDate() time.Time { return r.startDate }

// EndDate is the payment date; the UFV on this date is index-at-end.
func (r DebtRequest) EndDate() time.Time { return r.endDate }

// AnnualRate is a whole-number percentage (6 means 6%).
func (r DebtRequest) AnnualRate() float64 { return r.annualRate }

func (r DebtRequest) ElapsedDays() int { return r.elapsedDays }

// PenaltyPercent is a whole-number percentage (12 means 12%).
func (r DebtRequest) PenaltyPercent() float64 { return r.penaltyPercent }

// IsZero reports whether r was never built by NewDebtRequest.
func (r DebtRequest) IsZero() bool { return r.startDate.IsZero() }

// DebtRequestInput is the wire form of a DebtRequest (HTTP body, batch file).
type DebtRequestInput struct {
	Label          string  `json:"label,omitempty" yaml:"label"`
	Principal      float64 `json:"principal" yaml:"principal"`
	StartDate      string  `json:"start_date" yaml:"start_date"`
	EndDate        string  `json:"end_date" yaml:"end_date"`
	AnnualRate     float64 `json:"annual_rate" yaml:"annual_rate"`
	ElapsedDays    int     `json:"elapsed_days" yaml:"elapsed_days"`
	PenaltyPercent float64 `json:"penalty_percent" yaml:"penalty_percent"`
}

// ToRequest validates the input and converts it into a DebtRequest.
func (in DebtRequestInput) ToRequest() (DebtRequest, error) {
	return NewDebtRequest(in.Principal, in.StartDate, in.EndDate, in.AnnualRate, in.ElapsedDays, in.PenaltyPercent)
}

// ============================================================
// Index pair
// ============================================================

// IndexPair is the UFV at the start and at the end of a date range.
// Both values are strictly positive.
type IndexPair struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewIndexPair rejects zero, negative and non-finite index values.
func NewIndexPair(start, end float64) (IndexPair, error) {
	if !positive(start) {
		return IndexPair{}, &ErrIndexUnavailable{Reason: "index-at-start must be a positive number"}
	}
	if !positive(end) {
		return IndexPair{}, &ErrIndexUnavailable{Reason: "index-at-end must be a positive number"}
	}
	return IndexPair{Start: start, End: end}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// ============================================================
// Debt report
// ============================================================

// DebtReport is the rounded breakdown of a debt:
// TO (Tributo Omitido), MV (Mantenimiento de Valor), I (Interés),
// S (Sanción) and DT (Deuda Total).
type DebtReport struct {
	TO float64 `json:"TO"`
	MV float64 `json:"MV"`
	I  float64 `json:"I"`
	S  float64 `json:"S"`
	DT float64 `json:"DT"`
}

// NewDebtReport rounds full-precision components to 2 decimals.
// DT is summed before rounding.
func NewDebtReport(to, mv, interest, penalty float64) DebtReport {
	return DebtReport{
		TO: Round2(to),
		MV: Round2(mv),
		I:  Round2(interest),
		S:  Round2(penalty),
		DT: Round2(to + mv + interest + penalty),
	}
}

// Round2 rounds half away from zero to 2 decimal places.
// Magnitudes whose scaled value overflows carry no cents and are returned as is.
func Round2(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		return v
	}
	r := math.Round(scaled) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// CalculationResult is returned by POST /v1/debt/calculate.
type CalculationResult struct {
	CalculationID string     `json:"calculation_id"`
	Report        DebtReport `json:"report"`
	Index         IndexPair  `json:"index"`
	History       []string   `json:"history"`
}
