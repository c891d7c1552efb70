package types

import (
	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/poh-analytics/pohx/pkg/chains"
)

type ChainsResponse struct {
	Chains []chains.Chain `json:"chains"`
}

type StatsResponse struct {
	Chains []analytics.ChainSnapshot `json:"chains"`
}

type ExpiredResponse struct {
	Chain   chains.ChainID `json:"chain"`
	Expired int            `json:"expiredProfiles"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
