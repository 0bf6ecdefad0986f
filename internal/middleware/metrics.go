package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder はリクエストメトリクスの記録先。metrics.Collectorが満たす。
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// NewMetricsMiddleware はリクエスト数と処理時間をルートパターン単位で記録するミドルウェアを返す。
// パスではなくパターンをラベルにするため、IDごとに系列が増えることはない。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(r.Method, routePattern(r), rec.statusCode, time.Since(start))
		})
	}
}
