package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuthMetrics(reg)

	m.Record("login", "success")
	m.Record("login", "success")
	m.Record("login", "invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("login", "invalid_credentials")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "ragchat_auth_outcomes_total", families[0].GetName())
}
