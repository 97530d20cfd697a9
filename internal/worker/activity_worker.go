package worker

import (
	"github.com/spec-kit/intake-service/internal/service"
)

// StartActivityWorker registers the activity log handlers.
func StartActivityWorker(activity *service.ActivityLogger) {
	if activity == nil {
		return
	}
	activity.RegisterHandlers()
}
