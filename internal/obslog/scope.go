package obslog

import "context"

// ActivityScope stamps the correlation fields an activity's duration
// should carry: orchestration id/name and activity name/id. Activities
// call this once at entry and use the returned context for every log
// call they make.
func ActivityScope(ctx context.Context, orchestrationID, orchestrationName, activityName, activityID string) context.Context {
	return WithFields(ctx, Fields{
		"orchestration_id":   orchestrationID,
		"orchestration_name": orchestrationName,
		"activity_name":      activityName,
		"activity_id":        activityID,
	})
}
