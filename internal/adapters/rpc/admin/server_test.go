package admin_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/google/uuid"

	"github.com/okian/karmabot/internal/adapters/rpc/admin"
	"github.com/okian/karmabot/internal/plugin"
	"github.com/okian/karmabot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const bufSize = 1024 * 1024

type memStore struct {
	mu     sync.Mutex
	scores map[string]int64
}

func (s *memStore) Set(_ context.Context, term string, value int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.scores[term]
	s.scores[term] = value
	return old
}

type staticPlugins []plugin.Descriptor

func (p staticPlugins) Descriptors() []plugin.Descriptor { return p }

func startServer(store admin.ScoreSetter, plugins admin.PluginLister) (*admin.Client, func()) {
	lis := bufconn.Listen(bufSize)
	srv := admin.NewServer("bufconn", store, plugins,
		admin.WithListener(lis),
		admin.WithLogger(logger.Nop()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	client, err := admin.Dial("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	So(err, ShouldBeNil)

	return client, func() {
		So(client.Close(), ShouldBeNil)
		cancel()
		So(<-done, ShouldBeNil)
	}
}

func TestAdminSet(t *testing.T) {
	Convey("Given an admin server over a store", t, func() {
		store := &memStore{scores: map[string]int64{"bacon": 3}}
		client, stop := startServer(store, staticPlugins(nil))
		defer stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When a score is set", func() {
			old, err := client.Set(ctx, "bacon", 42)

			Convey("Then the previous value comes back", func() {
				So(err, ShouldBeNil)
				So(old, ShouldEqual, 3)
				So(store.scores["bacon"], ShouldEqual, 42)
			})
		})

		Convey("When a new term is set", func() {
			old, err := client.Set(ctx, "rust", -7)

			Convey("Then its previous value is zero", func() {
				So(err, ShouldBeNil)
				So(old, ShouldEqual, 0)
				So(store.scores["rust"], ShouldEqual, -7)
			})
		})

		Convey("When the term is empty", func() {
			_, err := client.Set(ctx, "  ", 1)

			Convey("Then the call is rejected", func() {
				So(status.Code(err), ShouldEqual, codes.InvalidArgument)
				So(store.scores, ShouldHaveLength, 1)
			})
		})
	})
}

func TestAdminList(t *testing.T) {
	Convey("Given loaded plugins", t, func() {
		loaded := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		plugins := staticPlugins{
			{ID: uuid.New(), Name: "echo", Path: "/plugins/echo.lua", Size: 120, LoadedAt: loaded},
			{ID: uuid.New(), Name: "dice", Path: "/plugins/dice.lua", Size: 512, LoadedAt: loaded.Add(time.Minute)},
		}
		client, stop := startServer(&memStore{scores: map[string]int64{}}, plugins)
		defer stop()

		infos, err := client.List(context.Background())

		Convey("Then they are listed in load order", func() {
			So(err, ShouldBeNil)
			So(infos, ShouldHaveLength, 2)
			So(infos[0].Name, ShouldEqual, "echo")
			So(infos[0].Path, ShouldEqual, "/plugins/echo.lua")
			So(infos[0].Size, ShouldEqual, 120)
			So(infos[0].LoadTime.Equal(loaded), ShouldBeTrue)
			So(infos[1].Name, ShouldEqual, "dice")
		})
	})

	Convey("Given no plugins", t, func() {
		client, stop := startServer(&memStore{scores: map[string]int64{}}, staticPlugins(nil))
		defer stop()

		infos, err := client.List(context.Background())
		So(err, ShouldBeNil)
		So(infos, ShouldBeEmpty)
	})
}

func TestAdminListenFailure(t *testing.T) {
	Convey("Given an address that is already taken", t, func() {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer taken.Close()

		srv := admin.NewServer(taken.Addr().String(), &memStore{}, staticPlugins(nil), admin.WithLogger(logger.Nop()))
		err = srv.Run(context.Background())

		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "listen failed")
	})
}
