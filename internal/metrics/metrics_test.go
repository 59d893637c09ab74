package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/api/wallet/transfer", "200", 0.1)
	RecordHTTPRequest("POST", "/api/wallet/transfer", "200", 0.2)
	RecordHTTPRequest("POST", "/api/wallet/transfer", "409", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/transfer", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/transfer", "409")))
}

func TestRecordTransfer(t *testing.T) {
	TransfersTotal.Reset()

	RecordTransfer("success")
	RecordTransfer("insufficient_funds")
	RecordTransfer("success")

	assert.Equal(t, float64(2), testutil.ToFloat64(TransfersTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(TransfersTotal.WithLabelValues("insufficient_funds")))
}

func TestRecordDailyClaim(t *testing.T) {
	DailyClaimsTotal.Reset()

	RecordDailyClaim(true)
	RecordDailyClaim(false)
	RecordDailyClaim(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(DailyClaimsTotal.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(DailyClaimsTotal.WithLabelValues("false")))
}

func TestRecordSettlement(t *testing.T) {
	SettlementsTotal.Reset()

	RecordSettlement("deposit", "completed")

	assert.Equal(t, float64(1), testutil.ToFloat64(SettlementsTotal.WithLabelValues("deposit", "completed")))
}

func TestRecordLeaderboard(t *testing.T) {
	LeaderboardEntries.Reset()

	RecordLeaderboard("global", 42, 0.3)

	assert.Equal(t, float64(42), testutil.ToFloat64(LeaderboardEntries.WithLabelValues("global")))
}
