package server_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/earthbuild/hello-earthly/pkg/config"
	"github.com/earthbuild/hello-earthly/pkg/logging"
	"github.com/earthbuild/hello-earthly/pkg/server"
	"github.com/earthbuild/hello-earthly/pkg/stats"
)

var _ = Describe("Hello server routes", func() {
	var (
		srv     *server.Server
		metrics *stats.MetricsRecorder
		cfg     *config.Config
	)

	do := func(method, target string, header http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		for k, vv := range header {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	get := func(target string, header http.Header) *httptest.ResponseRecorder {
		return do(http.MethodGet, target, header)
	}

	BeforeEach(func() {
		cfg = config.Default()
		cfg.Environment = config.EnvTest
		cfg.Port = 0
	})

	JustBeforeEach(func() {
		var err error
		metrics = stats.NewMetricsRecorder()
		srv, err = server.New(cfg, server.WithLogger(logging.Discard()), server.WithMetrics(metrics))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		metrics.Stop()
	})

	Describe("GET /hello", func() {
		It("should say Hello Earthly if nothing is passed", func() {
			w := get("/hello", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Hello Earthly"))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
		})

		It("should say Hello World if World is passed", func() {
			w := get("/hello?who=World", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Hello World"))
		})

		It("should decode escaped names", func() {
			w := get("/hello?who=Big%20World", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("Hello Big World"))
		})

		It("should fall back to the default name for an empty who", func() {
			w := get("/hello?who=", nil)

			Expect(w.Body.String()).To(Equal("Hello Earthly"))
		})

		Context("with a configured default name", func() {
			BeforeEach(func() {
				cfg.DefaultName = "Friend"
			})

			It("should greet the configured name", func() {
				Expect(get("/hello", nil).Body.String()).To(Equal("Hello Friend"))
			})
		})
	})

	Describe("health routes", func() {
		It("should answer /health", func() {
			w := get("/health", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("OK"))
		})

		It("should answer /readyz", func() {
			Expect(get("/readyz", nil).Code).To(Equal(http.StatusOK))
		})
	})

	Describe("GET /metrics", func() {
		It("should expose hello metrics", func() {
			get("/hello", nil)
			w := get("/metrics", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("hello_greetings_total"))
			Expect(w.Body.String()).To(ContainSubstring("hello_requests_total"))
		})
	})

	Describe("request IDs", func() {
		It("should generate an ID when none is sent", func() {
			w := get("/hello", nil)
			Expect(w.Header().Get(server.RequestIDHeader)).NotTo(BeEmpty())
		})

		It("should echo the caller's ID", func() {
			w := get("/hello", http.Header{server.RequestIDHeader: []string{"abc-123"}})
			Expect(w.Header().Get(server.RequestIDHeader)).To(Equal("abc-123"))
		})

		It("should echo the caller's ID whatever its header casing", func() {
			w := get("/hello", http.Header{"x-request-id": []string{"lower-456"}})
			Expect(w.Header().Get(server.RequestIDHeader)).To(Equal("lower-456"))
		})
	})

	Describe("CORS", func() {
		Context("when enabled", func() {
			BeforeEach(func() {
				cfg.EnableCORS = true
			})

			It("should allow any origin", func() {
				w := get("/hello", http.Header{"Origin": []string{"http://client.test"}})
				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})

			It("should answer preflight requests", func() {
				w := do(http.MethodOptions, "/hello", http.Header{
					"Origin":                        []string{"http://client.test"},
					"Access-Control-Request-Method": []string{http.MethodGet},
				})
				Expect(w.Code).To(Equal(http.StatusNoContent))
				Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
				Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring(http.MethodGet))
			})
		})

		Context("when disabled", func() {
			It("should not send CORS headers", func() {
				w := get("/hello", http.Header{"Origin": []string{"http://client.test"}})
				Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
			})
		})
	})

	It("should return 404 for unknown routes", func() {
		Expect(get("/goodbye", nil).Code).To(Equal(http.StatusNotFound))
	})
})
