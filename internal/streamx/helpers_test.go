package streamx_test

import "time"

const (
	shortTimeout = 200 * time.Millisecond
	shortTick    = 5 * time.Millisecond
)
