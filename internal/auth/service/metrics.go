package service

import (
	"github.com/imelapp/auth-server/internal/observability/metrics"
)

func incrementLoginsSucceeded() {
	metrics.LoginsSucceeded.Inc()
}

func incrementLoginsFailed() {
	metrics.LoginsFailed.Inc()
}

func incrementLoginsRejectedLocked() {
	metrics.LoginsRejectedLocked.Inc()
}

func incrementAccountLockouts() {
	metrics.AccountLockouts.Inc()
}

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func incrementUsersRegistered() {
	metrics.UsersRegistered.Inc()
}

func incrementUsersDeleted() {
	metrics.UsersDeleted.Inc()
}
