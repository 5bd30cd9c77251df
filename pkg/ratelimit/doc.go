// Package ratelimit paces outbound requests.
//
// TokenBucket wraps golang.org/x/time/rate and spaces collection page
// fetches. FixedDelay is a Pacer used after each real classifier call, and
// Sleep is the context-aware wait shared by both and by the pause between
// collections.
//
//	limiter := ratelimit.NewPerMinute(30)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
