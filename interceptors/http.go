package interceptors

import (
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"lorecrafter/metrics"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// unmatchedRoute labels requests no route was selected for, keeping the
// metrics route label bounded.
const unmatchedRoute = "unmatched"

// RequestLogger returns a container filter that logs every request and
// records it in m. m may be nil.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)
		latency := time.Since(start)

		route := req.SelectedRoutePath()
		if route == "" {
			route = unmatchedRoute
		}
		status := resp.StatusCode()
		m.ObserveRequest(req.Request.Method, route, status, latency)

		logger.Info("Request",
			zap.String("client_ip", clientIP(req.Request)),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", status),
			zap.Duration("latency", latency),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
			zap.String("route", route),
		)
	}
}

// Recoverer returns a go-restful RecoverHandleFunction that logs the panic
// and answers 500 in the API's error format.
func Recoverer(logger *zap.Logger) restful.RecoverHandleFunction {
	return func(reason interface{}, w http.ResponseWriter) {
		logger.Error("Recovered from panic",
			zap.String("reason", fmt.Sprint(reason)),
			zap.ByteString("stack", debug.Stack()),
		)
		w.Header().Set("Content-Type", restful.MIME_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

// CORS builds the cross-origin filter for the browser client. An empty
// origins list allows every origin. Credentials are allowed so the session
// cookie travels with cross-origin requests.
func CORS(container *restful.Container, origins []string) restful.FilterFunction {
	cors := restful.CrossOriginResourceSharing{
		AllowedDomains: origins,
		AllowedHeaders: []string{"Content-Type", "Accept"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		CookiesAllowed: true,
		Container:      container,
	}
	return cors.Filter
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
