package httptransport

import "expvar"

var (
	metricQueueJoinTotal  = expvar.NewInt("queue_join_total")
	metricQueueJoinErrors = expvar.NewInt("queue_join_errors_total")
	metricQueueLeaveTotal = expvar.NewInt("queue_leave_total")

	metricFindMatchTotal   = expvar.NewInt("find_match_total")
	metricFindMatchMatched = expvar.NewInt("find_match_matched_total")

	metricResolveTotal          = expvar.NewInt("match_resolve_total")
	metricResolveErrors         = expvar.NewInt("match_resolve_errors_total")
	metricResolveAlreadySettled = expvar.NewInt("match_resolve_already_settled_total")

	metricAdminCleanupTotal = expvar.NewInt("admin_cleanup_total")
)
