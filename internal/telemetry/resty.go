package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type instrumentResty struct {
	tracer    trace.Tracer
	log       *zap.Logger
	idcounter *uint64
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

// InstrumentResty wraps every request of client in a span and logs it.
func InstrumentResty(client *resty.Client, log *zap.Logger) {
	var idcounter uint64
	i := instrumentResty{tracer: Tracer(), log: log, idcounter: &idcounter}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{id: id, startTime: time.Now()})
	i.log.Debug("start request",
		zap.Uint64("request_id", id),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
	)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.String("http.request.method", res.Request.Method),
		attribute.String("url.full", res.Request.URL),
		attribute.Int("http.response.status_code", res.StatusCode()),
	)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	fields := []zap.Field{
		zap.String("method", res.Request.Method),
		zap.String("url", res.Request.URL),
		zap.Int("status", res.StatusCode()),
	}
	if rc, ok := ctx.Value(reqCtxKey).(reqCtx); ok {
		fields = append(fields, zap.Uint64("request_id", rc.id), zap.Duration("duration", time.Since(rc.startTime)))
	}
	i.log.Debug("request finished", fields...)
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	)

	i.log.Warn("request failed",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Error(err),
	)
}
