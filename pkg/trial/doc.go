// Package trial manages the free trial lifecycle: starting trials, checking
// their state, extending them, and downgrading organizations whose trial has
// lapsed.
//
// Downgrades go through entitlement.Expire, the same conditional transition
// the access check uses, so a scheduled ProcessExpired sweep and a request
// racing on the same organization record a single EXPIRED history entry.
//
// ExpiryNotifications lists trials that are about to end; Deliver hands them
// to a Notifier such as MailNotifier.
package trial
