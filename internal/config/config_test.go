package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/commitquest/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabaseDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.CalendarTimezone, convey.ShouldEqual, "UTC")
			convey.So(cfg.CalendarWindowDays, convey.ShouldEqual, 365)
			convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 20)
			convey.So(cfg.DedupeBackend, convey.ShouldEqual, config.DedupeMemory)
			convey.So(cfg.DedupeTTL(), convey.ShouldEqual, 72*time.Hour)
		})

		convey.Convey("Then it is invalid until a jwt secret is set", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			cfg.JWTSecret = "s"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()
		cfg.JWTSecret = "s"

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"unknown driver", func(c *config.Config) { c.DatabaseDriver = "mysql" }},
			{"empty dsn", func(c *config.Config) { c.DatabaseDSN = "" }},
			{"bad timezone", func(c *config.Config) { c.CalendarTimezone = "Mars/Olympus" }},
			{"zero window", func(c *config.Config) { c.CalendarWindowDays = 0 }},
			{"zero limit", func(c *config.Config) { c.LeaderboardLimit = 0 }},
			{"zero chat burst", func(c *config.Config) { c.ChatBurst = 0 }},
			{"redis without url", func(c *config.Config) { c.DedupeBackend = config.DedupeRedis }},
			{"unknown dedupe store", func(c *config.Config) { c.DedupeBackend = "memcached" }},
		}
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				tc.mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then redis with a url is accepted", func() {
			cfg.DedupeBackend = config.DedupeRedis
			cfg.RedisURL = "redis://localhost:6379/0"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Location(t *testing.T) {
	convey.Convey("Given a config with an IANA zone", t, func() {
		cfg := config.New()
		cfg.CalendarTimezone = "Asia/Tokyo"

		convey.Convey("Then Location resolves it", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "Asia/Tokyo")
		})
	})
}
