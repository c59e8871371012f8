package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AlertType selects the market metric an alert watches.
type AlertType string

const (
	AlertTypePrice            AlertType = "price"
	AlertTypePercentageChange AlertType = "percentage_change"
	AlertTypeVolume           AlertType = "volume"
	AlertTypeMarketCap        AlertType = "market_cap"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypePrice, AlertTypePercentageChange, AlertTypeVolume, AlertTypeMarketCap:
		return true
	}
	return false
}

// Condition compares the watched metric with the threshold.
type Condition string

const (
	ConditionGreaterThan        Condition = "greater_than"
	ConditionLessThan           Condition = "less_than"
	ConditionEqualTo            Condition = "equal_to"
	ConditionGreaterThanOrEqual Condition = "greater_than_or_equal"
	ConditionLessThanOrEqual    Condition = "less_than_or_equal"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGreaterThan, ConditionLessThan, ConditionEqualTo,
		ConditionGreaterThanOrEqual, ConditionLessThanOrEqual:
		return true
	}
	return false
}

// Frequency controls how often a triggered alert repeats.
type Frequency string

const (
	FrequencyOnce       Frequency = "once"
	FrequencyOncePerDay Frequency = "once_per_day"
	FrequencyEveryTime  Frequency = "every_time"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyOncePerDay, FrequencyEveryTime:
		return true
	}
	return false
}

// Alert is a user-configured price alert. Alerts are unique only by ID.
type Alert struct {
	ID             string     `json:"id"`
	AlertName      string     `json:"alertName"`
	CoinID         string     `json:"coinId"`
	CoinName       string     `json:"coinName"`
	CoinSymbol     string     `json:"coinSymbol"`
	AlertType      AlertType  `json:"alertType"`
	Condition      Condition  `json:"condition"`
	ThresholdValue string     `json:"thresholdValue"`
	Frequency      Frequency  `json:"frequency"`
	CreatedAt      time.Time  `json:"createdAt"`
	IsActive       bool       `json:"isActive"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// Threshold returns the threshold as a decimal.
func (a Alert) Threshold() (decimal.Decimal, error) {
	return decimal.NewFromString(a.ThresholdValue)
}

// AlertDraft carries the fields supplied when creating an alert.
type AlertDraft struct {
	AlertName      string    `json:"alertName"`
	CoinID         string    `json:"coinId"`
	CoinName       string    `json:"coinName"`
	CoinSymbol     string    `json:"coinSymbol"`
	AlertType      AlertType `json:"alertType"`
	Condition      Condition `json:"condition"`
	ThresholdValue string    `json:"thresholdValue"`
	Frequency      Frequency `json:"frequency"`
}

// Validate checks required fields, enum values and that the threshold is
// numeric text.
func (d AlertDraft) Validate() error {
	if strings.TrimSpace(d.AlertName) == "" {
		return fmt.Errorf("%w: alertName is required", ErrInvalidData)
	}
	if NormalizeCoinID(d.CoinID) == "" {
		return fmt.Errorf("%w: coinId is required", ErrInvalidData)
	}
	if !d.AlertType.Valid() {
		return fmt.Errorf("%w: alertType %q", ErrInvalidData, d.AlertType)
	}
	if !d.Condition.Valid() {
		return fmt.Errorf("%w: condition %q", ErrInvalidData, d.Condition)
	}
	if !d.Frequency.Valid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidData, d.Frequency)
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(d.ThresholdValue)); err != nil {
		return fmt.Errorf("%w: thresholdValue %q", ErrInvalidData, d.ThresholdValue)
	}
	return nil
}

func normalizeAlertDraft(d AlertDraft) (AlertDraft, error) {
	if err := d.Validate(); err != nil {
		return d, err
	}
	d.AlertName = strings.TrimSpace(d.AlertName)
	d.CoinID = NormalizeCoinID(d.CoinID)
	d.ThresholdValue = strings.TrimSpace(d.ThresholdValue)
	return d, nil
}

func normalizeAlertPatch(p Patch) (Patch, error) {
	p, err := normalizeCoinIDPatch(p)
	if err != nil {
		return nil, err
	}
	for field, valid := range map[string]func(string) bool{
		"alertType": func(s string) bool { return AlertType(s).Valid() },
		"condition": func(s string) bool { return Condition(s).Valid() },
		"frequency": func(s string) bool { return Frequency(s).Valid() },
		"thresholdValue": func(s string) bool {
			_, err := decimal.NewFromString(strings.TrimSpace(s))
			return err == nil
		},
		"alertName": func(s string) bool { return strings.TrimSpace(s) != "" },
	} {
		v, ok := p[field]
		if !ok {
			continue
		}
		s, ok := stringValue(v)
		if !ok || !valid(s) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPatch, field)
		}
		p[field] = strings.TrimSpace(s)
	}
	if v, ok := p["isActive"]; ok {
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("%w: isActive", ErrInvalidPatch)
		}
	}
	return p, nil
}

// stringValue accepts plain strings and the named string enums.
func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case AlertType:
		return string(s), true
	case Condition:
		return string(s), true
	case Frequency:
		return string(s), true
	}
	return "", false
}

// AlertPatch is a typed builder for alert updates. Nil fields are left
// unchanged.
type AlertPatch struct {
	AlertName      *string
	CoinID         *string
	CoinName       *string
	CoinSymbol     *string
	AlertType      *AlertType
	Condition      *Condition
	ThresholdValue *string
	Frequency      *Frequency
	IsActive       *bool
}

// Patch converts p to the wire form.
func (p AlertPatch) Patch() Patch {
	out := Patch{}
	if p.AlertName != nil {
		out["alertName"] = *p.AlertName
	}
	if p.CoinID != nil {
		out["coinId"] = *p.CoinID
	}
	if p.CoinName != nil {
		out["coinName"] = *p.CoinName
	}
	if p.CoinSymbol != nil {
		out["coinSymbol"] = *p.CoinSymbol
	}
	if p.AlertType != nil {
		out["alertType"] = string(*p.AlertType)
	}
	if p.Condition != nil {
		out["condition"] = string(*p.Condition)
	}
	if p.ThresholdValue != nil {
		out["thresholdValue"] = *p.ThresholdValue
	}
	if p.Frequency != nil {
		out["frequency"] = string(*p.Frequency)
	}
	if p.IsActive != nil {
		out["isActive"] = *p.IsActive
	}
	return out
}

// AlertFamily describes alerts: no uniqueness beyond id, removed by id.
var AlertFamily = Family[Alert, AlertDraft]{
	Name:        "alerts",
	StorageKey:  "coinwatch.alerts",
	Endpoint:    "/api/alerts",
	RemoveParam: "id",
	Immutable:   []string{"createdAt", "updatedAt"},

	ID:        func(a Alert) string { return a.ID },
	RemoveKey: func(a Alert) string { return a.ID },

	NormalizeDraft: normalizeAlertDraft,
	NormalizePatch: normalizeAlertPatch,

	NewRecord: func(d AlertDraft, id string, now time.Time) Alert {
		return Alert{
			ID:             id,
			AlertName:      d.AlertName,
			CoinID:         d.CoinID,
			CoinName:       d.CoinName,
			CoinSymbol:     d.CoinSymbol,
			AlertType:      d.AlertType,
			Condition:      d.Condition,
			ThresholdValue: d.ThresholdValue,
			Frequency:      d.Frequency,
			CreatedAt:      now,
			IsActive:       true,
		}
	},
	DraftOf: func(a Alert) AlertDraft {
		return AlertDraft{
			AlertName:      a.AlertName,
			CoinID:         a.CoinID,
			CoinName:       a.CoinName,
			CoinSymbol:     a.CoinSymbol,
			AlertType:      a.AlertType,
			Condition:      a.Condition,
			ThresholdValue: a.ThresholdValue,
			Frequency:      a.Frequency,
		}
	},
	Touch: func(a Alert, now time.Time) Alert {
		a.UpdatedAt = &now
		return a
	},
}
