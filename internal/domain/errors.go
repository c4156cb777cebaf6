package domain

import "errors"

var (
	ErrNetwork            = errors.New("network failure")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrStatus             = errors.New("unexpected response status")
	ErrDecode             = errors.New("malformed menu document")
	ErrStore              = errors.New("menu store failure")
	ErrSyncInProgress     = errors.New("synchronization already in progress")
	ErrPreferenceNotFound = errors.New("preference not found")
)
