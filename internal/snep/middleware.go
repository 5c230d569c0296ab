package snep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/ndef"
)

// Middleware wraps a Handler with extra behavior
type Middleware func(Handler) Handler

// Chain applies middleware so that the first one listed is outermost
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Logging logs every request with its response code and duration
func Logging() Middleware {
	return func(next Handler) Handler {
		return HandlerFuncs{
			PutFunc: func(ctx context.Context, msg ndef.Message) *Message {
				start := time.Now()
				resp := next.Put(ctx, msg)
				logRequest(ctx, RequestPut, msg, resp, start)
				return resp
			},
			GetFunc: func(ctx context.Context, acceptableLength uint32, msg ndef.Message) *Message {
				start := time.Now()
				resp := next.Get(ctx, acceptableLength, msg)
				logRequest(ctx, RequestGet, msg, resp, start,
					zap.Uint32("acceptable_length", acceptableLength))
				return resp
			},
		}
	}
}

func logRequest(ctx context.Context, code Code, msg ndef.Message, resp *Message, start time.Time, extra ...zap.Field) {
	result := "none"
	if resp != nil {
		result = resp.Type.String()
	}
	ce := logging.GetLogger().Check(zap.InfoLevel, "Handled request")
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.String("remote_addr", PeerFromContext(ctx)),
		zap.String("request", code.String()),
		zap.Int("records", len(msg)),
		zap.String("response", result),
		zap.Duration("duration", time.Since(start)),
	}
	ce.Write(append(fields, extra...)...)
}

// Recover turns a panicking handler into a Not Implemented response
func Recover() Middleware {
	return func(next Handler) Handler {
		return HandlerFuncs{
			PutFunc: func(ctx context.Context, msg ndef.Message) (resp *Message) {
				defer recoverInto(ctx, &resp)
				return next.Put(ctx, msg)
			},
			GetFunc: func(ctx context.Context, acceptableLength uint32, msg ndef.Message) (resp *Message) {
				defer recoverInto(ctx, &resp)
				return next.Get(ctx, acceptableLength, msg)
			},
		}
	}
}

func recoverInto(ctx context.Context, resp **Message) {
	if r := recover(); r != nil {
		logging.Error("Handler panicked",
			zap.String("remote_addr", PeerFromContext(ctx)),
			zap.String("panic", fmt.Sprint(r)),
		)
		*resp = NewResponse(ResponseNotImplemented)
	}
}

// RateLimit answers Reject once requests arrive faster than r per second,
// with bursts of up to burst requests. The limit is shared by all
// connections of the server.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Handler) Handler {
		return HandlerFuncs{
			PutFunc: func(ctx context.Context, msg ndef.Message) *Message {
				if !limiter.Allow() {
					return rejected(ctx)
				}
				return next.Put(ctx, msg)
			},
			GetFunc: func(ctx context.Context, acceptableLength uint32, msg ndef.Message) *Message {
				if !limiter.Allow() {
					return rejected(ctx)
				}
				return next.Get(ctx, acceptableLength, msg)
			},
		}
	}
}

func rejected(ctx context.Context) *Message {
	logging.Warn("Request rate exceeded",
		zap.String("remote_addr", PeerFromContext(ctx)),
	)
	return NewResponse(ResponseReject)
}
