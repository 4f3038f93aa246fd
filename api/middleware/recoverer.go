package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/techstore-checkout/api/responses"
	pkgerrors "github.com/angelmondragon/techstore-checkout/pkg/errors"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. The log entry carries the
// matched route, the checkout id when the route names one and the request id
// already echoed on the response. http.ErrAbortHandler is re-raised.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if recErr, ok := rec.(error); ok && errors.Is(recErr, http.ErrAbortHandler) {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, panicFields(w, r, rec))
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func panicFields(w http.ResponseWriter, r *http.Request, rec any) map[string]any {
	fields := map[string]any{
		"panic":  fmt.Sprint(rec),
		"method": r.Method,
		"path":   r.URL.Path,
		"stack":  string(debug.Stack()),
	}
	if id := w.Header().Get(requestIDHeader); id != "" {
		fields["request_id"] = id
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			fields["route"] = pattern
		}
		if id := rctx.URLParam("checkoutId"); id != "" {
			fields["checkout_id"] = id
		}
	}
	return fields
}
