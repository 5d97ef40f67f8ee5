package service

import (
	"context"
	"time"
)

const (
	// multiplierCap bounds the composed dynamic multiplier platform-wide.
	multiplierCap = 5.0
	// weatherMultiplier applies when extreme weather holds at the job site.
	weatherMultiplier = 2.0

	emergencyMultiplier  = 1.5
	afterHoursMultiplier = 1.25
	weekendMultiplier    = 1.2
)

// defaultCountry applies when the caller does not say where the job prices.
const defaultCountry = "NL"

// Commission rate band reported with every estimate.
const (
	commissionRateMin     = 0.10
	commissionRateMax     = 0.25
	commissionRateDefault = 0.15
)

// MultiplierRule is one situational surcharge contributing to the dynamic
// multiplier.
type MultiplierRule struct {
	RuleName   string  `json:"ruleName"`
	RuleType   string  `json:"ruleType"`
	Multiplier float64 `json:"multiplier"`
	Reason     string  `json:"reason"`
}

// CommissionBand is the platform commission rate range.
type CommissionBand struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// PriceEstimate is the outcome of an estimate run.
type PriceEstimate struct {
	Country       string           `json:"country"`
	BaseMinCents  int64            `json:"baseMinCents"`
	BaseMaxCents  int64            `json:"baseMaxCents"`
	Multiplier    float64          `json:"multiplier"`
	Rules         []MultiplierRule `json:"rules"`
	FinalMinCents int64            `json:"finalMinCents"`
	FinalMaxCents int64            `json:"finalMaxCents"`
	Commission    CommissionBand   `json:"commission"`
	// Payout bounds assume the default commission rate on the final range.
	PayoutMinCents int64 `json:"payoutMinCents"`
	PayoutMaxCents int64 `json:"payoutMaxCents"`
}

// EstimateInput carries the facts an estimate needs. Country selects the
// pricing region; rates do not differ per country yet, so it is carried
// through to the estimate unchanged.
type EstimateInput struct {
	Country      string
	BaseMinCents int64
	BaseMaxCents int64
	Lat          float64
	Lng          float64
	Schedule     *time.Time
	IsEmergency  bool
}

// estimate composes the dynamic multiplier and derives the price and payout
// ranges. Non-emergency work always prices at the base range.
func (s *Service) estimate(ctx context.Context, in EstimateInput) PriceEstimate {
	country := in.Country
	if country == "" {
		country = defaultCountry
	}

	result := PriceEstimate{
		Country:      country,
		BaseMinCents: in.BaseMinCents,
		BaseMaxCents: in.BaseMaxCents,
		Multiplier:   1.0,
		Rules:        make([]MultiplierRule, 0),
		Commission: CommissionBand{
			Min:     commissionRateMin,
			Max:     commissionRateMax,
			Default: commissionRateDefault,
		},
	}

	if in.IsEmergency {
		result.Rules = append(result.Rules, MultiplierRule{
			RuleName:   "emergency_response",
			RuleType:   "situational",
			Multiplier: emergencyMultiplier,
			Reason:     "emergency dispatch outside the regular planning flow",
		})
		result.Rules = append(result.Rules, scheduleRules(in.Schedule)...)

		if s.weather != nil && s.weather.IsExtreme(ctx, in.Lat, in.Lng) {
			result.Rules = append(result.Rules, MultiplierRule{
				RuleName:   "extreme_weather",
				RuleType:   "weather",
				Multiplier: weatherMultiplier,
				Reason:     "extreme weather conditions at the job site",
			})
		}

		for _, rule := range result.Rules {
			result.Multiplier *= rule.Multiplier
		}
		if result.Multiplier > multiplierCap {
			result.Multiplier = multiplierCap
		}
	}

	result.FinalMinCents = int64(float64(in.BaseMinCents) * result.Multiplier)
	result.FinalMaxCents = int64(float64(in.BaseMaxCents) * result.Multiplier)
	result.PayoutMinCents = int64(float64(result.FinalMinCents) * (1 - commissionRateDefault))
	result.PayoutMaxCents = int64(float64(result.FinalMaxCents) * (1 - commissionRateDefault))
	return result
}

// scheduleRules derives time-of-day surcharges from the requested schedule.
func scheduleRules(schedule *time.Time) []MultiplierRule {
	if schedule == nil {
		return nil
	}

	rules := make([]MultiplierRule, 0, 2)
	hour := schedule.Hour()
	if hour < 7 || hour >= 19 {
		rules = append(rules, MultiplierRule{
			RuleName:   "after_hours",
			RuleType:   "schedule",
			Multiplier: afterHoursMultiplier,
			Reason:     "work scheduled outside regular hours",
		})
	}
	switch schedule.Weekday() {
	case time.Saturday, time.Sunday:
		rules = append(rules, MultiplierRule{
			RuleName:   "weekend",
			RuleType:   "schedule",
			Multiplier: weekendMultiplier,
			Reason:     "work scheduled in the weekend",
		})
	}
	return rules
}
