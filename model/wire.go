package model

import "time"

// Wire paths exposed by a friend's hidden-service HTTP server.
const (
	AskPullPath     = "/ask-pull"
	AskLocationPath = "/ask-location"
	PushPath        = "/push"
	PullPath        = "/pull"
	DownloadPath    = "/download"
)

// Tunable timings shared across the engine and transport layers.
const (
	ThreadPoolSize      = 30
	FriendRequestDelay  = 30 * time.Second
	DownloadRetryPeriod = 10 * time.Minute
	PrefRestartDelay    = 5 * time.Second
	NotConnectedTimeout = 5 * time.Minute
	NoCommTimeout       = 120 * time.Minute
)

// MaxPullResponseTransactionObjectCount bounds how many Group/Post objects
// PullFrom accumulates before committing a partial transaction. PullFrom
// reads this constant directly; the Store interface has no way to change it.
const MaxPullResponseTransactionObjectCount = 100
