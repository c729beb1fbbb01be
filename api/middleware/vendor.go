package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bidhaus/bidhaus-backend/pkg/logger"
)

const vendorIDHeader = "X-Vendor-Id"

type contextKey string

const ctxVendorID contextKey = "vendor_id"

func VendorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVendorID).(string); ok {
		return v
	}
	return ""
}

// WithVendorID injects the vendor identifier into the context.
func WithVendorID(ctx context.Context, vendorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVendorID, vendorID)
}

// VendorContext lifts the X-Vendor-Id header into the request context. The
// upstream gateway authenticates vendors; this service only needs the
// resolved identity.
func VendorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vendorID := strings.TrimSpace(r.Header.Get(vendorIDHeader))
			if vendorID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithVendorID(r.Context(), vendorID)
			if logg != nil {
				ctx = logg.WithVendorID(ctx, vendorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
