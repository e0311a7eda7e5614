// Package mocks provides shared test doubles for the interfaces used across
// taskd. Each mock has a function field per method; when a field is nil the
// mock falls back to its default values.
//
//	store := &mocks.MockTaskStore{
//	    GetTasksFn: func(ctx context.Context, f task.Filter) ([]task.Task, error) {
//	        return nil, errors.New("connection refused")
//	    },
//	}
package mocks
