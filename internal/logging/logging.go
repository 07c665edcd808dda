// Package logging is a thin, tag-scoped logging wrapper used by the
// Transaction Server and the Transaction Client. Neither the host engine
// nor its sibling examples pull in a structured logging framework — they
// log, when they log at all, through fmt/log — so this module keeps that
// posture rather than adopting zap/zerolog wholesale. It does borrow two
// small CockroachDB libraries that exist for exactly this shape of problem:
// github.com/cockroachdb/logtags for per-request context tags (the client
// attaches client_id and start_ts) and github.com/cockroachdb/redact so that raw
// key/value bytes — which can be arbitrary user data — never land in a log
// line unredacted.
package logging

import (
	"context"
	"log"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

type ctxTagsKey struct{}

// WithTag returns a context carrying an additional tag, preserving any tags
// already attached by an earlier WithTag call up the stack.
func WithTag(ctx context.Context, key string, value interface{}) context.Context {
	buf := tagsFromContext(ctx).Add(key, value)
	return context.WithValue(ctx, ctxTagsKey{}, buf)
}

func tagsFromContext(ctx context.Context) *logtags.Buffer {
	if buf, ok := ctx.Value(ctxTagsKey{}).(*logtags.Buffer); ok {
		return buf
	}
	return &logtags.Buffer{}
}

// Infof logs a tag-prefixed, redacted message at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "INFO", format, args...)
}

// Errorf logs a tag-prefixed, redacted message at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, "ERROR", format, args...)
}

func emit(ctx context.Context, level, format string, args ...interface{}) {
	buf := tagsFromContext(ctx)
	msg := redact.Sprintf(format, args...)
	log.Printf("[%s] [%s] %s", level, buf.String(), msg.Redact())
}
