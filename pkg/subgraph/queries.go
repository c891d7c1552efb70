package subgraph

import (
	"context"
	"fmt"
)

// Scalar types. shurcooL/graphql derives variable types from the Go type name,
// so these must keep the upstream scalar names.
type (
	BigInt string
	Bytes  string
	ID     string
	String string
	Int    int32
)

// Tier selects how many fields of a versioned document are requested.
type Tier int

const (
	// TierLegacy requests only the fields every deployment has carried since launch.
	TierLegacy Tier = iota
	// TierStandard adds bridging, withdrawal, renewal and airdrop counters.
	TierStandard
	// TierFull adds the seer credit counters.
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierLegacy:
		return "legacy"
	case TierStandard:
		return "standard"
	case TierFull:
		return "full"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Entity is a row of a collection queried for ids only.
type Entity struct {
	ID string `graphql:"id"`
}

// EntityID returns the row id, for cursor pagination.
func EntityID(e Entity) string { return e.ID }

// GlobalAnalytics mirrors the globalAnalytics entity. Counters are decimal
// strings; fields a tier does not request are left empty.
type GlobalAnalytics struct {
	VerifiedHumanProfiles       string `json:"verifiedHumanProfiles"`
	RegistrationsPending        string `json:"registrationsPending"`
	RegistrationsFunded         string `json:"registrationsFunded"`
	RegistrationsChallenged     string `json:"registrationsChallenged"`
	RegistrationsRejected       string `json:"registrationsRejected"`
	RegistrationsSubmitted      string `json:"registrationsSubmitted"`
	RegistrationsBridged        string `json:"registrationsBridged"`
	RegistrationsTransferredOut string `json:"registrationsTransferredOut"`
	RegistrationsWithdrawn      string `json:"registrationsWithdrawn"`
	RenewalsSubmitted           string `json:"renewalsSubmitted"`
	AirdropClaims               string `json:"airdropClaims"`
	SeerCreditsBuys             string `json:"seerCreditsBuys"`
	SeerCreditsUsers            string `json:"seerCreditsUsers"`
}

// DailyAnalytics mirrors one dailyAnalytics row. Date is the unix second of the UTC day start.
type DailyAnalytics struct {
	ID                      string `json:"id" graphql:"id"`
	Date                    string `json:"date"`
	VerifiedHumanProfiles   string `json:"verifiedHumanProfiles"`
	RegistrationsSubmitted  string `json:"registrationsSubmitted"`
	RegistrationsPending    string `json:"registrationsPending"`
	RegistrationsFunded     string `json:"registrationsFunded"`
	RegistrationsChallenged string `json:"registrationsChallenged"`
	RegistrationsRejected   string `json:"registrationsRejected"`
	RegistrationsBridged    string `json:"registrationsBridged"`
	RegistrationsWithdrawn  string `json:"registrationsWithdrawn"`
	RenewalsSubmitted       string `json:"renewalsSubmitted"`
	AirdropClaims           string `json:"airdropClaims"`
	SeerCreditsBuys         string `json:"seerCreditsBuys"`
	SeerCreditsUsers        string `json:"seerCreditsUsers"`
}

// DailyID returns the row id.
func DailyID(d DailyAnalytics) string { return d.ID }

type globalFullQuery struct {
	GlobalAnalytics GlobalAnalytics `graphql:"globalAnalytics(id: \"global\")"`
}

type globalStandardQuery struct {
	GlobalAnalytics struct {
		VerifiedHumanProfiles       string
		RegistrationsPending        string
		RegistrationsFunded         string
		RegistrationsChallenged     string
		RegistrationsRejected       string
		RegistrationsSubmitted      string
		RegistrationsBridged        string
		RegistrationsTransferredOut string
		RegistrationsWithdrawn      string
		RenewalsSubmitted           string
		AirdropClaims               string
	} `graphql:"globalAnalytics(id: \"global\")"`
}

type globalLegacyQuery struct {
	GlobalAnalytics struct {
		VerifiedHumanProfiles   string
		RegistrationsPending    string
		RegistrationsFunded     string
		RegistrationsChallenged string
		RegistrationsRejected   string
		RegistrationsSubmitted  string
	} `graphql:"globalAnalytics(id: \"global\")"`
}

// QueryGlobalAnalytics fetches the lifetime counters using the document of the given tier.
func QueryGlobalAnalytics(ctx context.Context, c Client, tier Tier) (GlobalAnalytics, error) {
	switch tier {
	case TierFull:
		var q globalFullQuery
		if err := c.Query(ctx, &q, nil); err != nil {
			return GlobalAnalytics{}, err
		}
		return q.GlobalAnalytics, nil
	case TierStandard:
		var q globalStandardQuery
		if err := c.Query(ctx, &q, nil); err != nil {
			return GlobalAnalytics{}, err
		}
		g := q.GlobalAnalytics
		return GlobalAnalytics{
			VerifiedHumanProfiles:       g.VerifiedHumanProfiles,
			RegistrationsPending:        g.RegistrationsPending,
			RegistrationsFunded:         g.RegistrationsFunded,
			RegistrationsChallenged:     g.RegistrationsChallenged,
			RegistrationsRejected:       g.RegistrationsRejected,
			RegistrationsSubmitted:      g.RegistrationsSubmitted,
			RegistrationsBridged:        g.RegistrationsBridged,
			RegistrationsTransferredOut: g.RegistrationsTransferredOut,
			RegistrationsWithdrawn:      g.RegistrationsWithdrawn,
			RenewalsSubmitted:           g.RenewalsSubmitted,
			AirdropClaims:               g.AirdropClaims,
		}, nil
	default:
		var q globalLegacyQuery
		if err := c.Query(ctx, &q, nil); err != nil {
			return GlobalAnalytics{}, err
		}
		g := q.GlobalAnalytics
		return GlobalAnalytics{
			VerifiedHumanProfiles:   g.VerifiedHumanProfiles,
			RegistrationsPending:    g.RegistrationsPending,
			RegistrationsFunded:     g.RegistrationsFunded,
			RegistrationsChallenged: g.RegistrationsChallenged,
			RegistrationsRejected:   g.RegistrationsRejected,
			RegistrationsSubmitted:  g.RegistrationsSubmitted,
		}, nil
	}
}

type dailyFullQuery struct {
	Rows []DailyAnalytics `graphql:"dailyAnalytics_collection(where: {date_gte: $startDate, date_lt: $endDate}, orderBy: date, orderDirection: asc, first: 1000, skip: $skip)"`
}

type dailyStandardRow struct {
	ID                      string `graphql:"id"`
	Date                    string
	VerifiedHumanProfiles   string
	RegistrationsSubmitted  string
	RegistrationsPending    string
	RegistrationsFunded     string
	RegistrationsChallenged string
	RegistrationsRejected   string
	RegistrationsBridged    string
	RegistrationsWithdrawn  string
	RenewalsSubmitted       string
	AirdropClaims           string
}

type dailyStandardQuery struct {
	Rows []dailyStandardRow `graphql:"dailyAnalytics_collection(where: {date_gte: $startDate, date_lt: $endDate}, orderBy: date, orderDirection: asc, first: 1000, skip: $skip)"`
}

type dailyLegacyRow struct {
	ID                      string `graphql:"id"`
	Date                    string
	VerifiedHumanProfiles   string
	RegistrationsSubmitted  string
	RegistrationsPending    string
	RegistrationsFunded     string
	RegistrationsChallenged string
	RegistrationsRejected   string
}

type dailyLegacyQuery struct {
	Rows []dailyLegacyRow `graphql:"dailyAnalytics_collection(where: {date_gte: $startDate, date_lt: $endDate}, orderBy: date, orderDirection: asc, first: 1000, skip: $skip)"`
}

// QueryDailyAnalytics fetches one page of daily rows with date in [startDate, endDate).
func QueryDailyAnalytics(ctx context.Context, c Client, tier Tier, startDate, endDate int64, skip int) ([]DailyAnalytics, error) {
	vars := map[string]any{
		"startDate": BigInt(fmt.Sprint(startDate)),
		"endDate":   BigInt(fmt.Sprint(endDate)),
		"skip":      Int(skip),
	}

	switch tier {
	case TierFull:
		var q dailyFullQuery
		if err := c.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		return q.Rows, nil
	case TierStandard:
		var q dailyStandardQuery
		if err := c.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		out := make([]DailyAnalytics, 0, len(q.Rows))
		for _, r := range q.Rows {
			out = append(out, DailyAnalytics{
				ID:                      r.ID,
				Date:                    r.Date,
				VerifiedHumanProfiles:   r.VerifiedHumanProfiles,
				RegistrationsSubmitted:  r.RegistrationsSubmitted,
				RegistrationsPending:    r.RegistrationsPending,
				RegistrationsFunded:     r.RegistrationsFunded,
				RegistrationsChallenged: r.RegistrationsChallenged,
				RegistrationsRejected:   r.RegistrationsRejected,
				RegistrationsBridged:    r.RegistrationsBridged,
				RegistrationsWithdrawn:  r.RegistrationsWithdrawn,
				RenewalsSubmitted:       r.RenewalsSubmitted,
				AirdropClaims:           r.AirdropClaims,
			})
		}
		return out, nil
	default:
		var q dailyLegacyQuery
		if err := c.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		out := make([]DailyAnalytics, 0, len(q.Rows))
		for _, r := range q.Rows {
			out = append(out, DailyAnalytics{
				ID:                      r.ID,
				Date:                    r.Date,
				VerifiedHumanProfiles:   r.VerifiedHumanProfiles,
				RegistrationsSubmitted:  r.RegistrationsSubmitted,
				RegistrationsPending:    r.RegistrationsPending,
				RegistrationsFunded:     r.RegistrationsFunded,
				RegistrationsChallenged: r.RegistrationsChallenged,
				RegistrationsRejected:   r.RegistrationsRejected,
			})
		}
		return out, nil
	}
}

type expiredQuery struct {
	Registrations []Entity `graphql:"registrations(first: 1000, orderBy: id, orderDirection: asc, where: {expirationTime_lt: $now, id_gt: $lastId})"`
}

type expiredV2OnlyQuery struct {
	Registrations []Entity `graphql:"registrations(first: 1000, orderBy: id, orderDirection: asc, where: {expirationTime_lt: $now, id_gt: $lastId, humanity_: {nbLegacyRequests: \"0\"}})"`
}

// QueryExpiredRegistrations fetches one page of registrations whose expiration is before now.
// With v2Only set, humanities carrying legacy requests are excluded.
func QueryExpiredRegistrations(ctx context.Context, c Client, now int64, lastID string, v2Only bool) ([]Entity, error) {
	if v2Only {
		var q expiredV2OnlyQuery
		vars := map[string]any{
			"now":    BigInt(fmt.Sprint(now)),
			"lastId": Bytes(lastID),
		}
		if err := c.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		return q.Registrations, nil
	}

	var q expiredQuery
	vars := map[string]any{
		"now":    BigInt(fmt.Sprint(now)),
		"lastId": String(lastID),
	}
	if err := c.Query(ctx, &q, vars); err != nil {
		return nil, err
	}
	return q.Registrations, nil
}

type outTransfersQuery struct {
	OutTransfers []Entity `graphql:"outTransfers(first: 1000, orderBy: id, orderDirection: asc, where: {id_gt: $lastId})"`
}

// QueryOutTransfers fetches one page of out-transfer ids after lastID.
func QueryOutTransfers(ctx context.Context, c Client, lastID string) ([]Entity, error) {
	var q outTransfersQuery
	if err := c.Query(ctx, &q, map[string]any{"lastId": Bytes(lastID)}); err != nil {
		return nil, err
	}
	return q.OutTransfers, nil
}

type creditDailyUsersQuery struct {
	Users []Entity `graphql:"seerCreditsDailyUsers(first: 1000, orderBy: id, orderDirection: asc, where: {id_gt: $lastId, id_lt: $endId})"`
}

// QueryCreditDailyUsers fetches one page of "<dayStart>-<wallet>" ids in (lastID, endID).
func QueryCreditDailyUsers(ctx context.Context, c Client, lastID, endID string) ([]Entity, error) {
	var q creditDailyUsersQuery
	vars := map[string]any{
		"lastId": ID(lastID),
		"endId":  ID(endID),
	}
	if err := c.Query(ctx, &q, vars); err != nil {
		return nil, err
	}
	return q.Users, nil
}

type activeRegistrationsQuery struct {
	Registrations []Entity `graphql:"registrations(first: 1000, orderBy: id, orderDirection: asc, where: {id_in: $ids, expirationTime_gt: $now, id_gt: $lastId})"`
}

// QueryActiveRegistrations fetches one page of registrations among ids that expire after now.
func QueryActiveRegistrations(ctx context.Context, c Client, ids []string, now int64, lastID string) ([]Entity, error) {
	in := make([]Bytes, 0, len(ids))
	for _, id := range ids {
		in = append(in, Bytes(id))
	}
	var q activeRegistrationsQuery
	vars := map[string]any{
		"ids":    in,
		"now":    BigInt(fmt.Sprint(now)),
		"lastId": Bytes(lastID),
	}
	if err := c.Query(ctx, &q, vars); err != nil {
		return nil, err
	}
	return q.Registrations, nil
}
