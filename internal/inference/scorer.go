// Package inference serves the promoted fraud model: a logistic scoring
// function over the seven transaction features, loaded from the model
// version the control plane last promoted.
package inference

import (
	"fmt"
	"math"
)

// Transaction is the serving request payload.
type Transaction struct {
	TransactionAmount float64 `json:"transaction_amount"`
	TransactionHour   int     `json:"transaction_hour"`
	CustomerAge       int     `json:"customer_age"`
	AccountTenureDays int     `json:"account_tenure_days"`
	MerchantRiskScore float64 `json:"merchant_risk_score"`
	GeoDistanceKM     float64 `json:"geo_distance_km"`
	IsInternational   bool    `json:"is_international"`
}

func (t Transaction) Validate() error {
	switch {
	case t.TransactionAmount < 0:
		return fmt.Errorf("transaction_amount must be >= 0")
	case t.TransactionHour < 0 || t.TransactionHour > 23:
		return fmt.Errorf("transaction_hour must be in [0,23]")
	case t.CustomerAge < 0 || t.CustomerAge > 120:
		return fmt.Errorf("customer_age must be in [0,120]")
	case t.AccountTenureDays < 0:
		return fmt.Errorf("account_tenure_days must be >= 0")
	case t.MerchantRiskScore < 0 || t.MerchantRiskScore > 1:
		return fmt.Errorf("merchant_risk_score must be in [0,1]")
	case t.GeoDistanceKM < 0:
		return fmt.Errorf("geo_distance_km must be >= 0")
	}
	return nil
}

// Model is the serialized artifact a training run registers: an intercept
// plus per-feature weights of a logistic model.
type Model struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

// FraudThreshold is the probability above which a transaction is flagged.
const FraudThreshold = 0.5

// Score returns the sigmoid-scored fraud probability, clamped to [0,1].
func (m *Model) Score(txn Transaction) (float64, error) {
	features := map[string]float64{
		"transaction_amount":  txn.TransactionAmount,
		"transaction_hour":    float64(txn.TransactionHour),
		"customer_age":        float64(txn.CustomerAge),
		"account_tenure_days": float64(txn.AccountTenureDays),
		"merchant_risk_score": txn.MerchantRiskScore,
		"geo_distance_km":     txn.GeoDistanceKM,
		"is_international":    boolToFloat(txn.IsInternational),
	}

	z := m.Intercept
	for name, weight := range m.Weights {
		z += weight * features[name]
	}

	proba := 1.0 / (1.0 + math.Exp(-z))
	if math.IsNaN(proba) || math.IsInf(proba, 0) {
		return 0, fmt.Errorf("non-finite score")
	}
	return math.Max(0.0, math.Min(1.0, proba)), nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
