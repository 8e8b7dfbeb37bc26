package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"story-content-gateway/services"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		if s.services.Logger != nil {
			s.services.Logger.Info("HTTP request",
				services.String("method", r.Method),
				services.String("path", r.URL.Path),
				services.String("remote_addr", r.RemoteAddr),
				services.Int("status_code", wrapper.statusCode),
				services.Duration("duration", duration),
				services.String("user_agent", r.UserAgent()),
			)
		} else {
			log.Printf("%s %s %d %v %s",
				r.Method,
				r.URL.Path,
				wrapper.statusCode,
				duration,
				r.RemoteAddr,
			)
		}
	})
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, If-None-Match, X-User-ID, X-User-Role")
		w.Header().Set("Access-Control-Expose-Headers", "ETag, Cache-Control")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// contentTypeMiddleware sets default content type
func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") == "" && (r.Method == "POST" || r.Method == "PUT") {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// performanceMiddleware tracks request performance metrics
func (s *Server) performanceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		if s.services.MetricsService != nil {
			tags := map[string]string{
				"method":      r.Method,
				"endpoint":    r.URL.Path,
				"status_code": strconv.Itoa(wrapper.statusCode),
			}

			s.services.MetricsService.RecordDuration("http.request.duration", duration, tags)
			s.services.MetricsService.IncrementCounter("http.requests.total", tags)

			if wrapper.statusCode >= 400 {
				s.services.MetricsService.IncrementCounter("http.requests.errors", tags)
			}

			if duration > time.Second {
				s.services.MetricsService.IncrementCounter("http.requests.slow", tags)
			}
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
