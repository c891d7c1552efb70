package analytics

import (
	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/shopspring/decimal"
)

// GlobalSnapshot is the lifetime counter record of one chain, every field a decimal string.
type GlobalSnapshot = subgraph.GlobalAnalytics

// DailyRecord is the counter record of one UTC day.
type DailyRecord = subgraph.DailyAnalytics

// AggregateID and AggregateDate identify a PeriodAggregate, which spans many days.
const (
	AggregateID   = "aggregated"
	AggregateDate = "0"
)

// PeriodAggregate is the sum of daily records over a range.
type PeriodAggregate struct {
	ID                          string          `json:"id"`
	Date                        string          `json:"date"`
	VerifiedHumanProfiles       decimal.Decimal `json:"verifiedHumanProfiles"`
	RegistrationsSubmitted      decimal.Decimal `json:"registrationsSubmitted"`
	RegistrationsPending        decimal.Decimal `json:"registrationsPending"`
	RegistrationsFunded         decimal.Decimal `json:"registrationsFunded"`
	RegistrationsChallenged     decimal.Decimal `json:"registrationsChallenged"`
	RegistrationsRejected       decimal.Decimal `json:"registrationsRejected"`
	RegistrationsBridged        decimal.Decimal `json:"registrationsBridged"`
	RegistrationsWithdrawn      decimal.Decimal `json:"registrationsWithdrawn"`
	RenewalsSubmitted           decimal.Decimal `json:"renewalsSubmitted"`
	AirdropClaims               decimal.Decimal `json:"airdropClaims"`
	SeerCreditsBuys             decimal.Decimal `json:"seerCreditsBuys"`
	SeerCreditsUsers            decimal.Decimal `json:"seerCreditsUsers"`
	RegistrationsTransferredOut decimal.Decimal `json:"registrationsTransferredOut"`
}

// RangeStats is the daily series of a range together with its aggregate.
type RangeStats struct {
	Chain      chains.ChainID  `json:"chain"`
	Start      int64           `json:"start"`
	End        int64           `json:"end"`
	Daily      []DailyRecord   `json:"dailyAnalytics"`
	Aggregated PeriodAggregate `json:"aggregated"`
	// DistinctCreditUsers is set only for chains indexing per-day credit users.
	DistinctCreditUsers *int `json:"seerCreditsUsersInRange"`
}

// Overview is the dashboard header of one chain.
type Overview struct {
	Chain           chains.ChainID `json:"chain"`
	Global          GlobalSnapshot `json:"globalAnalytics"`
	Expired         int            `json:"expiredProfiles"`
	CurrentVerified int64          `json:"currentVerified"`
}

// ChainSnapshot pairs a snapshot with the chain it was read from.
type ChainSnapshot struct {
	Chain  chains.ChainID  `json:"chain"`
	Global *GlobalSnapshot `json:"globalAnalytics"`
	Error  string          `json:"error,omitempty"`
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// NormalizeSnapshot fills counters absent from the queried document with "0".
func NormalizeSnapshot(g GlobalSnapshot) GlobalSnapshot {
	g.VerifiedHumanProfiles = orZero(g.VerifiedHumanProfiles)
	g.RegistrationsPending = orZero(g.RegistrationsPending)
	g.RegistrationsFunded = orZero(g.RegistrationsFunded)
	g.RegistrationsChallenged = orZero(g.RegistrationsChallenged)
	g.RegistrationsRejected = orZero(g.RegistrationsRejected)
	g.RegistrationsSubmitted = orZero(g.RegistrationsSubmitted)
	g.RegistrationsBridged = orZero(g.RegistrationsBridged)
	g.RegistrationsTransferredOut = orZero(g.RegistrationsTransferredOut)
	g.RegistrationsWithdrawn = orZero(g.RegistrationsWithdrawn)
	g.RenewalsSubmitted = orZero(g.RenewalsSubmitted)
	g.AirdropClaims = orZero(g.AirdropClaims)
	g.SeerCreditsBuys = orZero(g.SeerCreditsBuys)
	g.SeerCreditsUsers = orZero(g.SeerCreditsUsers)
	return g
}

// NormalizeDaily fills counters absent from the queried document with "0".
func NormalizeDaily(d DailyRecord) DailyRecord {
	d.VerifiedHumanProfiles = orZero(d.VerifiedHumanProfiles)
	d.RegistrationsSubmitted = orZero(d.RegistrationsSubmitted)
	d.RegistrationsPending = orZero(d.RegistrationsPending)
	d.RegistrationsFunded = orZero(d.RegistrationsFunded)
	d.RegistrationsChallenged = orZero(d.RegistrationsChallenged)
	d.RegistrationsRejected = orZero(d.RegistrationsRejected)
	d.RegistrationsBridged = orZero(d.RegistrationsBridged)
	d.RegistrationsWithdrawn = orZero(d.RegistrationsWithdrawn)
	d.RenewalsSubmitted = orZero(d.RenewalsSubmitted)
	d.AirdropClaims = orZero(d.AirdropClaims)
	d.SeerCreditsBuys = orZero(d.SeerCreditsBuys)
	d.SeerCreditsUsers = orZero(d.SeerCreditsUsers)
	return d
}
