package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	model "github.com/okian/tapdiag/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestKind(t *testing.T) {
	convey.Convey("Given event kinds", t, func() {
		convey.Convey("When every listed kind is checked", func() {
			convey.Convey("Then all of them are valid", func() {
				for _, k := range model.Kinds() {
					convey.So(k.Valid(), convey.ShouldBeTrue)
				}
				convey.So(model.Kinds(), convey.ShouldHaveLength, 5)
			})
		})

		convey.Convey("When parsing kind strings", func() {
			k, err := model.ParseKind(" Warning ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(k, convey.ShouldEqual, model.KindWarning)

			empty, err := model.ParseKind("")
			convey.So(err, convey.ShouldBeNil)
			convey.So(empty, convey.ShouldEqual, model.Kind(""))

			_, err = model.ParseKind("fatal")

			convey.Convey("Then unknown kinds are rejected", func() {
				convey.So(errors.Is(err, model.ErrUnknownKind), convey.ShouldBeTrue)
				convey.So(model.Kind("fatal").Valid(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestEventJSON(t *testing.T) {
	convey.Convey("Given an event with environment context", t, func() {
		e := model.Event{
			ID:        "abc",
			Seq:       7,
			Timestamp: 1700000000000,
			Kind:      model.KindInfo,
			Category:  model.CategoryGameState,
			Message:   "Game state changed: game_start",
			Environment: &model.Environment{
				UserAgent: "tapdiag-test",
				URL:       "http://localhost/game",
			},
		}

		convey.Convey("When it is marshaled", func() {
			raw, err := json.Marshal(e)
			convey.So(err, convey.ShouldBeNil)

			var fields map[string]any
			convey.So(json.Unmarshal(raw, &fields), convey.ShouldBeNil)

			convey.Convey("Then it uses the export field names with flattened environment", func() {
				convey.So(fields["type"], convey.ShouldEqual, "info")
				convey.So(fields["userAgent"], convey.ShouldEqual, "tapdiag-test")
				convey.So(fields["url"], convey.ShouldEqual, "http://localhost/game")
				convey.So(fields, convey.ShouldNotContainKey, "data")
				convey.So(fields, convey.ShouldNotContainKey, "stackTrace")
				convey.So(fields, convey.ShouldNotContainKey, "host")
			})
		})

		convey.Convey("When an event without environment is marshaled and parsed", func() {
			plain := e
			plain.Environment = nil
			raw, err := json.Marshal(plain)
			convey.So(err, convey.ShouldBeNil)

			var back model.Event
			convey.So(json.Unmarshal(raw, &back), convey.ShouldBeNil)

			convey.Convey("Then the environment stays nil", func() {
				convey.So(back.Environment, convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, plain)
			})
		})
	})
}

func TestFaultEvent(t *testing.T) {
	convey.Convey("Given a fault without category", t, func() {
		f := model.Fault{Message: "boom", StackTrace: "trace", Data: map[string]any{"context": "spawnObject"}}

		convey.Convey("When converted to an event", func() {
			e := f.Event()

			convey.Convey("Then it is an error event in the runtime category", func() {
				convey.So(e.Kind, convey.ShouldEqual, model.KindError)
				convey.So(e.Category, convey.ShouldEqual, model.CategoryRuntime)
				convey.So(e.Message, convey.ShouldEqual, "boom")
				convey.So(e.StackTrace, convey.ShouldEqual, "trace")
				convey.So(e.Data["context"], convey.ShouldEqual, "spawnObject")
			})
		})

		convey.Convey("When the fault names a category", func() {
			f.Category = "promise"

			convey.Convey("Then the category is kept", func() {
				convey.So(f.Event().Category, convey.ShouldEqual, "promise")
			})
		})
	})
}
