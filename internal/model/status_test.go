package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions_AllPairs(t *testing.T) {
	expected := map[OrderStatus]map[OrderEvent]OrderStatus{
		StatusPendingPayment: {
			EventPay:    StatusInProgress,
			EventCancel: StatusCancelled,
			EventExpire: StatusCancelled,
		},
		StatusInProgress: {
			EventSubmit:   StatusPendingReview,
			EventEscalate: StatusAfterSale,
			EventRefund:   StatusRefunded,
		},
		StatusPendingReview: {
			EventSubmit:      StatusPendingReview,
			EventApprove:     StatusPendingConfirm,
			EventAdminReject: StatusInProgress,
			EventEscalate:    StatusAfterSale,
			EventRefund:      StatusRefunded,
		},
		StatusPendingConfirm: {
			EventUserConfirm: StatusCompleted,
			EventUserReject:  StatusInProgress,
			EventEscalate:    StatusAfterSale,
			EventRefund:      StatusRefunded,
		},
		StatusCompleted: {
			EventEscalate: StatusAfterSale,
		},
		StatusCancelled: {},
		StatusRefunded:  {},
		StatusAfterSale: {
			EventResume: StatusInProgress,
			EventRefund: StatusRefunded,
		},
	}
	require.Len(t, expected, len(AllStatuses))

	for _, from := range AllStatuses {
		for _, event := range AllEvents {
			to, ok := Next(from, event)
			want, legal := expected[from][event]
			assert.Equal(t, legal, ok, "%s + %s", from, event)
			if legal {
				assert.Equal(t, want, to, "%s + %s", from, event)
			}
		}
	}
}

func TestTransitions_TargetsAreValid(t *testing.T) {
	for _, from := range AllStatuses {
		for _, event := range AllEvents {
			if to, ok := Next(from, event); ok {
				assert.True(t, to.Valid(), "%s + %s -> %s", from, event, to)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, st := range []OrderStatus{StatusCancelled, StatusRefunded} {
		assert.True(t, st.Terminal())
		for _, event := range AllEvents {
			_, ok := Next(st, event)
			assert.False(t, ok, "%s accepts %s", st, event)
		}
	}
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusAfterSale.Terminal())
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestSourcesOf(t *testing.T) {
	assert.Equal(t, []OrderStatus{StatusPendingPayment}, SourcesOf(EventPay))
	assert.Equal(t, []OrderStatus{StatusInProgress, StatusPendingReview}, SourcesOf(EventSubmit))
	assert.Equal(t, []OrderStatus{StatusInProgress, StatusPendingReview, StatusPendingConfirm, StatusAfterSale}, SourcesOf(EventRefund))
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{From: StatusCancelled, Event: EventPay}
	assert.Contains(t, err.Error(), "已取消")
}
