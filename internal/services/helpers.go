package services

import "context"

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func stringPtr(value string) *string {
	return &value
}
