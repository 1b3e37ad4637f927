// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDelivery_CountsBytesOnSuccessOnly(t *testing.T) {
	before := testutil.ToFloat64(renderedBytesTotal.WithLabelValues("mq"))
	failed := testutil.ToFloat64(deliveriesTotal.WithLabelValues("mq", "transport"))

	ObserveDelivery("mq", "ok", 0.001, 64)
	ObserveDelivery("mq", "transport", 0.001, 32)

	assert.Equal(t, before+64, testutil.ToFloat64(renderedBytesTotal.WithLabelValues("mq")))
	assert.Equal(t, failed+1, testutil.ToFloat64(deliveriesTotal.WithLabelValues("mq", "transport")))
}

func TestRecordSubscriptions(t *testing.T) {
	before := testutil.ToFloat64(subscriptionFailuresTotal)

	RecordSubscriptions(5, 2)
	RecordSubscriptions(4, 1)

	assert.Equal(t, 4.0, testutil.ToFloat64(subscribedTriggers), "gauge holds the latest setup")
	assert.Equal(t, before+3, testutil.ToFloat64(subscriptionFailuresTotal), "failures accumulate")
}
