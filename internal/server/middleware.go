package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/sldscreen/internal/identity"
)

type (
	callerKey  struct{}
	logInfoKey struct{}
)

// logInfo collects request details for the access log from inner handlers.
type logInfo struct {
	uid string
}

// caller returns the verified identity attached by authenticated.
func caller(ctx context.Context) *identity.Token {
	t, _ := ctx.Value(callerKey{}).(*identity.Token)
	return t
}

// authenticated verifies the bearer token before calling next.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := identity.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		tok, err := s.ids.VerifyIDToken(r.Context(), raw)
		if err != nil {
			s.fail(w, r, err, "")
			return
		}
		if info, ok := r.Context().Value(logInfoKey{}).(*logInfo); ok {
			info.uid = tok.UID
		}
		next(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, tok)))
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		info := &logInfo{}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), logInfoKey{}, info)))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)),
		}
		if info.uid != "" {
			fields = append(fields, zap.String("uid", info.uid))
		}
		s.logger.Info("request", fields...)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("panic serving request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", v),
					zap.Stack("stack"))
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
