package audit

import "context"

type ctxKey string

const (
	clientIPKey ctxKey = "audit_client_ip"
	subjectKey  ctxKey = "audit_subject"
	batchIDKey  ctxKey = "audit_batch_id"
)

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// WithSubject stores the authenticated caller (the JWT "sub" claim).
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

func SubjectFromContext(ctx context.Context) string {
	return stringValue(ctx, subjectKey)
}

// WithBatchID stores the client supplied X-Batch-ID.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

func BatchIDFromContext(ctx context.Context) string {
	return stringValue(ctx, batchIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
