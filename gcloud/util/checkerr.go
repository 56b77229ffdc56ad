// Package util holds helpers shared by the Google Cloud backed blob stores.
package util

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

const numRetries = 3

var shouldRetryErrorRegexp = regexp.MustCompile(`status code: (429|5\d\d)`)

// RetryBackoff is the wait before the i-th retry.
var RetryBackoff = func(i int) time.Duration { return time.Duration(i) * time.Second }

func IsShouldRetryError(e error) bool {
	if e == nil {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(e, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return shouldRetryErrorRegexp.MatchString(e.Error())
}

// RetryIfNeeded runs f, retrying up to numRetries times while it fails with
// a retryable error and ctx is alive.
func RetryIfNeeded(ctx context.Context, opname string, f func() error) (err error) {
	for i := 0; i < numRetries; i++ {
		start := time.Now()
		err = f()
		if err == nil || !IsShouldRetryError(err) {
			return
		}
		if i+1 == numRetries {
			break
		}
		zap.S().Named("gcloud").Infof("%s has failed after %s. Retrying %d / %d: %v", opname, time.Since(start), i+1, numRetries, err)

		t := time.NewTimer(RetryBackoff(i))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return err
		}
	}
	return
}
