// Package notifications delivers push notifications about sync outcomes via
// ntfy. Without a configured topic every notification is a no-op.
package notifications
