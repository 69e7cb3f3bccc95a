package arc

import (
	"context"
)

type contextKey string

const traceKey contextKey = "trace"

// TraceFunc は診断トレースの出力先。
type TraceFunc func(f string, a ...interface{})

// WithTraceFunc はトレース関数を仕込んだcontextを返す。
// EOMや鍵の取得経路が診断行を書き出すようになる。
func WithTraceFunc(ctx context.Context, trace TraceFunc) context.Context {
	return context.WithValue(ctx, traceKey, trace)
}

func trace(ctx context.Context, f string, args ...interface{}) {
	traceFunc, ok := ctx.Value(traceKey).(TraceFunc)
	if !ok {
		return
	}

	traceFunc(f, args...)
}
