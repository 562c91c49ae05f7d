package httpserver

import (
	"bytes"
	"fmt"
	"net/http"

	"invoicing-service/internal/infrastructure/logx"
	"invoicing-service/internal/unitofwork"

	"go.uber.org/zap"
)

// bufferedWriter holds the response back until the transaction is settled.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter { return &bufferedWriter{header: http.Header{}} }

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) flush(w http.ResponseWriter) {
	for k, v := range b.header {
		w.Header()[k] = v
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}

// transactional runs the handler inside a unit of work. Responses with a
// status of 400 or above roll it back; a panic rolls back and keeps
// unwinding. A commit failure replaces the buffered response with a 500.
func transactional(coord *unitofwork.Coordinator, label string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if coord == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx, tc, err := coord.BeginOrJoin(r.Context(), label)
			if err != nil {
				logx.WithFields(r.Context()).Error("http.uow_begin_failed", zap.String("label", label), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
			defer coord.Cleanup(ctx, tc, label)
			defer func() {
				if rec := recover(); rec != nil {
					coord.Rollback(ctx, tc, fmt.Errorf("panic: %v", rec), label)
					panic(rec)
				}
			}()

			bw := newBufferedWriter()
			next.ServeHTTP(bw, r.WithContext(ctx))

			if bw.status >= http.StatusBadRequest {
				coord.Rollback(ctx, tc, fmt.Errorf("response status %d", bw.status), label)
				bw.flush(w)
				return
			}
			if err := coord.Commit(ctx, tc, label); err != nil {
				logx.WithFields(ctx).Error("http.uow_commit_failed", zap.String("label", label), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to persist changes")
				return
			}
			bw.flush(w)
		})
	}
}
