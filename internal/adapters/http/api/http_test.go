package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/karmabot/internal/adapters/http/api"
	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/internal/plugin"
	"github.com/okian/karmabot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	entries []types.Entry
	plugins []plugin.Descriptor
	stats   map[string]any
}

func (m *mockDependencies) Entries() []types.Entry {
	return append([]types.Entry(nil), m.entries...)
}

func (m *mockDependencies) Get(term string) int64 {
	for _, e := range m.entries {
		if strings.EqualFold(e.Term, term) {
			return e.Score
		}
	}
	return 0
}

func (m *mockDependencies) Descriptors() []plugin.Descriptor { return m.plugins }

func (m *mockDependencies) Stats() map[string]any { return m.stats }

type request struct {
	endpoint, method string
	status           int
}

type mockRecorder struct {
	mu       sync.Mutex
	requests []request
}

func (m *mockRecorder) RecordHTTPRequest(endpoint, method string, status int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, request{endpoint, method, status})
}

func newDeps() *mockDependencies {
	return &mockDependencies{
		entries: []types.Entry{
			{Rank: 1, Term: "rust", Score: 666},
			{Rank: 2, Term: "bacon", Score: 1},
			{Rank: 3, Term: "LISP", Score: -666},
		},
		plugins: []plugin.Descriptor{
			{ID: uuid.New(), Name: "echo", Path: "/plugins/echo.lua", Size: 64, LoadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		stats: map[string]any{"terms": 3, "plugins": 1},
	}
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestServerRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		rec := &mockRecorder{}
		metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "karma{term=\"rust\"} 666\n")
		})
		h := api.NewServer("127.0.0.1:0", newDeps(),
			api.WithBuild("karmabot", "1.2.3"),
			api.WithMetricsHandler(metricsHandler),
			api.WithRequestRecorder(rec),
			api.WithMaxLimit(2),
			api.WithLogger(logger.Nop()),
		).Handler()

		Convey("When asking for health", func() {
			w := get(h, "/healthz")

			Convey("Then name and version are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldResemble, map[string]string{"health": "ok", "name": "karmabot", "version": "1.2.3"})
				So(rec.requests, ShouldResemble, []request{{"healthz", http.MethodGet, http.StatusOK}})
			})
		})

		Convey("When scraping metrics", func() {
			w := get(h, "/metrics")

			Convey("Then the injected handler answers", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `karma{term="rust"} 666`)
			})
		})

		Convey("When listing scores", func() {
			w := get(h, "/karma")

			Convey("Then every entry comes back in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(entries[0], ShouldResemble, types.Entry{Rank: 1, Term: "rust", Score: 666})
				So(entries[2].Term, ShouldEqual, "LISP")
			})
		})

		Convey("When listing with a limit", func() {
			var entries []types.Entry
			w := get(h, "/karma?limit=1")
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 1)

			Convey("Then bad and oversized limits are rejected", func() {
				So(get(h, "/karma?limit=zero").Code, ShouldEqual, http.StatusBadRequest)
				So(get(h, "/karma?limit=0").Code, ShouldEqual, http.StatusBadRequest)
				over := get(h, "/karma?limit=3")
				So(over.Code, ShouldEqual, http.StatusBadRequest)
				So(over.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})

		Convey("When asking for one term", func() {
			w := get(h, "/karma/BaCoN")

			Convey("Then its score is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var e types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
				So(e.Term, ShouldEqual, "BaCoN")
				So(e.Score, ShouldEqual, 1)
				So(w.Body.String(), ShouldNotContainSubstring, "rank")
			})

			Convey("Then unknown terms score zero", func() {
				var e types.Entry
				So(json.Unmarshal(get(h, "/karma/vim").Body.Bytes(), &e), ShouldBeNil)
				So(e.Score, ShouldEqual, 0)
			})

			Convey("Then nested paths are rejected", func() {
				So(get(h, "/karma/a/b").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing plugins", func() {
			w := get(h, "/plugins")

			Convey("Then descriptors are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var descs []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &descs), ShouldBeNil)
				So(descs, ShouldHaveLength, 1)
				So(descs[0]["name"], ShouldEqual, "echo")
				So(descs[0]["load_time"], ShouldEqual, "2024-01-01T00:00:00Z")
			})
		})

		Convey("When reading stats", func() {
			w := get(h, "/stats")

			Convey("Then the provider's map is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"terms":3`)
			})
		})

		Convey("When using the wrong method", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/karma", strings.NewReader("{}")))

			Convey("Then the route is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(rec.requests, ShouldResemble, []request{{"karma", http.MethodPost, http.StatusNotFound}})
			})
		})
	})

	Convey("Given no plugins and no scores", t, func() {
		h := api.NewServer("", &mockDependencies{}, api.WithLogger(logger.Nop())).Handler()

		Convey("Then lists are empty arrays, not null", func() {
			So(strings.TrimSpace(get(h, "/karma").Body.String()), ShouldEqual, "[]")
			So(strings.TrimSpace(get(h, "/plugins").Body.String()), ShouldEqual, "[]")
		})

		Convey("Then /metrics is absent", func() {
			So(get(h, "/metrics").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServerRun(t *testing.T) {
	Convey("Given a server on a local listener", t, func() {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)

		srv := api.NewServer("", newDeps(), api.WithListener(lis), api.WithLogger(logger.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Run(ctx) }()

		Convey("When a client calls it and the context is cancelled", func() {
			resp, err := http.Get("http://" + lis.Addr().String() + "/healthz")
			So(err, ShouldBeNil)
			_ = resp.Body.Close()
			cancel()

			Convey("Then it answered and shut down cleanly", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(<-done, ShouldBeNil)
			})
		})
	})

	Convey("Given an address that is already taken", t, func() {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer taken.Close()

		err = api.NewServer(taken.Addr().String(), newDeps(), api.WithLogger(logger.Nop())).Run(context.Background())
		So(errors.Is(err, api.ErrServe), ShouldBeTrue)
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := errors.New("strconv: bad digit")
		err := api.WrapKind("api.list_karma", api.ErrBadRequest, cause)

		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.list_karma: bad request: strconv: bad digit")
		So(api.NewKind("op", api.ErrBadRequest).Error(), ShouldEqual, "op: bad request")
	})
}
