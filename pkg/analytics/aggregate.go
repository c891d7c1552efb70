package analytics

import "github.com/shopspring/decimal"

// counter parses a decimal string; absent or malformed values count as zero.
func counter(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Aggregate sums every counter over records. The result does not depend on record order.
func Aggregate(records []DailyRecord) PeriodAggregate {
	out := PeriodAggregate{
		ID:                          AggregateID,
		Date:                        AggregateDate,
		VerifiedHumanProfiles:       decimal.Zero,
		RegistrationsSubmitted:      decimal.Zero,
		RegistrationsPending:        decimal.Zero,
		RegistrationsFunded:         decimal.Zero,
		RegistrationsChallenged:     decimal.Zero,
		RegistrationsRejected:       decimal.Zero,
		RegistrationsBridged:        decimal.Zero,
		RegistrationsWithdrawn:      decimal.Zero,
		RenewalsSubmitted:           decimal.Zero,
		AirdropClaims:               decimal.Zero,
		SeerCreditsBuys:             decimal.Zero,
		SeerCreditsUsers:            decimal.Zero,
		RegistrationsTransferredOut: decimal.Zero,
	}

	for _, r := range records {
		out.VerifiedHumanProfiles = out.VerifiedHumanProfiles.Add(counter(r.VerifiedHumanProfiles))
		out.RegistrationsSubmitted = out.RegistrationsSubmitted.Add(counter(r.RegistrationsSubmitted))
		out.RegistrationsPending = out.RegistrationsPending.Add(counter(r.RegistrationsPending))
		out.RegistrationsFunded = out.RegistrationsFunded.Add(counter(r.RegistrationsFunded))
		out.RegistrationsChallenged = out.RegistrationsChallenged.Add(counter(r.RegistrationsChallenged))
		out.RegistrationsRejected = out.RegistrationsRejected.Add(counter(r.RegistrationsRejected))
		out.RegistrationsBridged = out.RegistrationsBridged.Add(counter(r.RegistrationsBridged))
		out.RegistrationsWithdrawn = out.RegistrationsWithdrawn.Add(counter(r.RegistrationsWithdrawn))
		out.RenewalsSubmitted = out.RenewalsSubmitted.Add(counter(r.RenewalsSubmitted))
		out.AirdropClaims = out.AirdropClaims.Add(counter(r.AirdropClaims))
		out.SeerCreditsBuys = out.SeerCreditsBuys.Add(counter(r.SeerCreditsBuys))
		out.SeerCreditsUsers = out.SeerCreditsUsers.Add(counter(r.SeerCreditsUsers))
	}
	return out
}
