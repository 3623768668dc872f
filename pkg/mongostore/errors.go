package mongostore

import "errors"

var (
	ErrIndexFailed = errors.New("mongostore: create indexes")
	ErrSeedFailed  = errors.New("mongostore: seed catalog")
)
