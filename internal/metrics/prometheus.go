package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	AuthCodesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_auth_codes_issued_total",
		Help: "Total number of authorization codes issued.",
	})
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_tokens_issued_total",
		Help: "Total number of access/refresh token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_tokens_refreshed_total",
		Help: "Total number of tokens refreshed.",
	})
	TokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_tokens_revoked_total",
		Help: "Total number of tokens revoked.",
	})
	IntrospectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_introspections_total",
		Help: "Total number of token introspection requests.",
	})
	ConsentDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeauth_consent_denied_total",
		Help: "Total number of consent requests denied by the user.",
	})
)

// Register registers the custom metrics with the given registerer. It should
// be called once at application startup.
func Register(reg prometheus.Registerer) {
	collectors := []prometheus.Collector{
		AuthCodesIssuedTotal,
		TokensIssuedTotal,
		TokensRefreshedTotal,
		TokensRevokedTotal,
		IntrospectionsTotal,
		ConsentDeniedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("failed to register metric")
		}
	}
}
