package errs_test

import (
	"errors"
	"io"
	"testing"

	"github.com/okian/commitquest/pkg/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given errors built with kinds", t, func() {
		Convey("When creating a kinded error without cause", func() {
			err := errs.New("away.decide", errs.ErrConflict)

			Convey("Then errors.Is matches the kind", func() {
				So(errors.Is(err, errs.ErrConflict), ShouldBeTrue)
				So(errors.Is(err, errs.ErrNotFound), ShouldBeFalse)
				So(err.Error(), ShouldEqual, "away.decide: conflict")
			})
		})

		Convey("When wrapping a cause with a kind", func() {
			err := errs.WrapKind("webhook.decode", errs.ErrValidation, io.ErrUnexpectedEOF)

			Convey("Then both kind and cause are reachable", func() {
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
				So(errs.KindOf(err), ShouldEqual, errs.ErrValidation)
			})
		})

		Convey("When wrapping an unclassified error", func() {
			err := errs.Wrap("store.load", io.EOF)

			Convey("Then it is classified as a store failure", func() {
				So(errors.Is(err, errs.ErrStore), ShouldBeTrue)
			})
		})

		Convey("When re-wrapping a kinded error", func() {
			inner := errs.New("repo.find", errs.ErrNotFound)
			err := errs.Wrap("service.profile", inner)

			Convey("Then the original kind is kept", func() {
				So(errs.KindOf(err), ShouldEqual, errs.ErrNotFound)
				So(err.Error(), ShouldContainSubstring, "service.profile")
			})
		})

		Convey("When wrapping nil", func() {
			So(errs.Wrap("op", nil), ShouldBeNil)
			So(errs.WrapKind("op", errs.ErrStore, nil), ShouldBeNil)
		})
	})
}
