package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/karmabot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.IRCServer, convey.ShouldBeEmpty)
			convey.So(cfg.PluginDir, convey.ShouldBeEmpty)
			convey.So(cfg.PluginCallTimeout, convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.PluginMaxString, convey.ShouldEqual, 1<<20)
			convey.So(cfg.Admins(), convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a duration is zeroed", func() {
			cfg.ShutdownTimeout = 0

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When IRC is enabled without a nick", func() {
			cfg.IRCServer = "localhost:6667"
			cfg.IRCNick = ""

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}
