package session

import (
	"context"

	"scanchat/src/services/api"
)

// RefreshBalance re-fetches the usage quota. It runs after every billable
// action. A 401 or 404 means the credential is dead: the stored token is
// wiped and the app is flagged to force re-authentication. Any other failure
// is ignored; a stale balance is acceptable, losing the session is not.
func (c *Controller) RefreshBalance(ctx context.Context) {
	me, err := c.api.Me(ctx)
	if err != nil {
		if api.IsAuthFailure(err) {
			if clearErr := c.api.ClearCredentials(); clearErr != nil {
				c.logger.Error("clearing credentials failed", "error", clearErr)
			}
			c.mu.Lock()
			c.loggedOut = true
			c.mu.Unlock()
			return
		}
		c.logger.Warn("balance refresh failed", "error", err)
		return
	}

	c.mu.Lock()
	c.balance = me.Balance()
	c.balanceLoaded = true
	c.loggedOut = false // a fresh login re-arms the session
	c.mu.Unlock()
}

// Bootstrap loads everything a fresh authenticated session needs: the quota
// and the first page of chat history.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.RefreshBalance(ctx)
	if c.LoggedOut() {
		return nil
	}
	return c.LoadChatsOnly(ctx, 1, false)
}
