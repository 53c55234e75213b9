// Package metrics holds the domain counters exported next to the HTTP
// metrics on the /metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"uk.co.dudmesh.socialgraph/internal/model"
)

const (
	OperationSend   = "send"
	OperationAccept = "accept"
	OperationReject = "reject"
	OperationCancel = "cancel"
)

var FriendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "socialgraph",
	Name:      "friend_requests_total",
	Help:      "Friend request operations by outcome.",
}, []string{"operation", "outcome"})

// Observe counts one operation; outcome is "ok" or the error kind.
func Observe(operation string, err error) {
	FriendRequests.WithLabelValues(operation, Outcome(err)).Inc()
}

func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return model.KindOf(err).String()
}
