package analyzecli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tapdiag/internal/adapters/http/api"
	"github.com/okian/tapdiag/internal/analyzecli"
	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// localAnalyzer serves /analyze with an in-process analyzer.
type localAnalyzer struct {
	got *analytics.Config
}

func (l *localAnalyzer) Analyze(ctx context.Context, data []analytics.DataPoint, timeframe string, cfg *analytics.Config) (analytics.Report, error) {
	l.got = cfg
	c := analytics.DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return analytics.NewAnalyzer().Analyze(ctx, data, timeframe, c)
}

func TestConfigValidate(t *testing.T) {
	Convey("Given command settings", t, func() {
		cases := []struct {
			name string
			cfg  analyzecli.Config
			ok   bool
		}{
			{"sample", analyzecli.Config{Sample: true, Format: analyzecli.FormatText}, true},
			{"data file", analyzecli.Config{DataFile: "d.yaml", Format: analyzecli.FormatJSON}, true},
			{"no input", analyzecli.Config{Format: analyzecli.FormatText}, false},
			{"both inputs", analyzecli.Config{Sample: true, DataFile: "d.yaml", Format: analyzecli.FormatText}, false},
			{"bad format", analyzecli.Config{Sample: true, Format: "xml"}, false},
			{"negative variance", analyzecli.Config{Sample: true, Format: analyzecli.FormatText, Variance: -1}, false},
		}
		for _, tc := range cases {
			Convey("When they are "+tc.name, func() {
				err := tc.cfg.Validate()

				Convey("Then validation matches", func() {
					if tc.ok {
						So(err, ShouldBeNil)
					} else {
						So(errors.Is(err, analyzecli.ErrUsage), ShouldBeTrue)
					}
				})
			})
		}
	})
}

func TestParseDataset(t *testing.T) {
	Convey("Given dataset documents", t, func() {
		Convey("When the document is a YAML list", func() {
			ds, err := analyzecli.ParseDataset([]byte(`
- category: A
  target: 50
  actual: 52
  variance: 2
  trend: increasing
- category: B
  target: 50
  actual: 48
  variance: -2
`))

			Convey("Then every point is decoded", func() {
				So(err, ShouldBeNil)
				So(ds.Data, ShouldHaveLength, 2)
				So(ds.Data[0].Trend, ShouldEqual, analytics.Increasing)
				So(ds.Data[1].Variance, ShouldEqual, -2.0)
				So(ds.Config, ShouldBeNil)
			})
		})

		Convey("When the document is a JSON mapping with a config", func() {
			ds, err := analyzecli.ParseDataset([]byte(`{
  "timeframe": "90d",
  "data": [{"category": "A", "target": 100, "actual": 100, "variance": 0}],
  "config": {"alertThresholds": {"variance": 3, "trend": 2},
             "weightings": {"equity": 0.5, "distribution": 0.25, "alignment": 0.25}}
}`))

			Convey("Then the timeframe and config are kept", func() {
				So(err, ShouldBeNil)
				So(ds.Timeframe, ShouldEqual, "90d")
				So(ds.Config, ShouldNotBeNil)
				So(ds.Config.AlertThresholds.Variance, ShouldEqual, 3.0)
				So(ds.Config.Weightings.Equity, ShouldEqual, 0.5)
			})
		})

		Convey("When the document is a scalar, empty or malformed", func() {
			_, scalar := analyzecli.ParseDataset([]byte(`42`))
			_, empty := analyzecli.ParseDataset([]byte(``))
			_, broken := analyzecli.ParseDataset([]byte(`[{category: A`))

			Convey("Then each is a dataset error", func() {
				So(errors.Is(scalar, analyzecli.ErrDataset), ShouldBeTrue)
				So(errors.Is(empty, analyzecli.ErrDataset), ShouldBeTrue)
				So(errors.Is(broken, analyzecli.ErrDataset), ShouldBeTrue)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := analyzecli.LoadDataset(filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("Then it is a dataset error", func() {
				So(errors.Is(err, analyzecli.ErrDataset), ShouldBeTrue)
			})
		})
	})
}

func TestRunLocal(t *testing.T) {
	Convey("Given the sample dataset", t, func() {
		ctx := context.Background()
		var out bytes.Buffer

		Convey("When rendered as text", func() {
			err := analyzecli.Run(ctx, &analyzecli.Config{Sample: true, Format: analyzecli.FormatText}, &out)

			Convey("Then the summary lists score, alerts and recommendations", func() {
				So(err, ShouldBeNil)
				text := out.String()
				So(text, ShouldContainSubstring, "Distribution analysis (30d)")
				So(text, ShouldContainSubstring, "76.8")
				So(text, ShouldContainSubstring, "Alerts (1)")
				So(text, ShouldContainSubstring, "Investigate declining trends in: Other")
			})
		})

		Convey("When rendered as JSON with a low variance threshold", func() {
			err := analyzecli.Run(ctx, &analyzecli.Config{
				Sample: true, Format: analyzecli.FormatJSON, Variance: 2.5, Timeframe: "1y",
			}, &out)

			Convey("Then the report decodes and the threshold applies", func() {
				So(err, ShouldBeNil)
				var report analytics.Report
				So(json.Unmarshal(out.Bytes(), &report), ShouldBeNil)
				So(report.Timeframe, ShouldEqual, "1y")
				// Asian (-3) and Hispanic (5) exceed 2.5 on top of the equity alert.
				So(len(report.Alerts), ShouldEqual, 3)
			})
		})

		Convey("When written to a file", func() {
			path := filepath.Join(t.TempDir(), "report.json")
			err := analyzecli.Run(ctx, &analyzecli.Config{Sample: true, Format: analyzecli.FormatJSON, Output: path}, &out)

			Convey("Then stdout stays empty and the file holds the report", func() {
				So(err, ShouldBeNil)
				So(out.Len(), ShouldEqual, 0)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"compositeScore"`)
			})
		})

		Convey("When the output file cannot be created", func() {
			path := filepath.Join(t.TempDir(), "missing", "report.json")
			err := analyzecli.Run(ctx, &analyzecli.Config{Sample: true, Format: analyzecli.FormatText, Output: path}, &out)

			Convey("Then the error names the output file", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create output file")
			})
		})

		Convey("When the output device rejects the write", func() {
			if _, statErr := os.Stat("/dev/full"); statErr != nil {
				SkipSo(statErr, ShouldBeNil)
				return
			}
			err := analyzecli.Run(ctx, &analyzecli.Config{Sample: true, Format: analyzecli.FormatJSON, Output: "/dev/full"}, &out)

			Convey("Then the failure is returned rather than dropped", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to write report")
				So(out.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the dataset file is empty of points", func() {
			path := filepath.Join(t.TempDir(), "empty.yaml")
			So(os.WriteFile(path, []byte("data: []\n"), 0o600), ShouldBeNil)
			err := analyzecli.Run(ctx, &analyzecli.Config{DataFile: path, Format: analyzecli.FormatText}, &out)

			Convey("Then the analyzer rejects it", func() {
				So(errors.Is(err, analytics.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestRunRemote(t *testing.T) {
	Convey("Given a server exposing /analyze", t, func() {
		ctx := context.Background()
		analyzer := &localAnalyzer{}
		mux := http.NewServeMux()
		mux.HandleFunc("/analyze", api.NewAnalyzeHandler(analyzer).HandleAnalyze)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		var out bytes.Buffer

		Convey("When the sample is analyzed remotely", func() {
			err := analyzecli.Run(ctx, &analyzecli.Config{
				Sample: true, Format: analyzecli.FormatJSON, URL: srv.URL + "/", Variance: 4,
			}, &out)

			Convey("Then the server's report is rendered with the sent config", func() {
				So(err, ShouldBeNil)
				So(analyzer.got, ShouldNotBeNil)
				So(analyzer.got.AlertThresholds.Variance, ShouldEqual, 4.0)
				var report analytics.Report
				So(json.Unmarshal(out.Bytes(), &report), ShouldBeNil)
				So(report.CompositeScore, ShouldAlmostEqual, 76.8, 0.05)
			})
		})

		Convey("When the server rejects the data", func() {
			path := filepath.Join(t.TempDir(), "bad.json")
			So(os.WriteFile(path, []byte(`[{"category":"","target":1,"actual":1,"variance":0}]`), 0o600), ShouldBeNil)
			err := analyzecli.Run(ctx, &analyzecli.Config{DataFile: path, Format: analyzecli.FormatText, URL: srv.URL}, &out)

			Convey("Then a remote error carries the server's code", func() {
				So(errors.Is(err, analyzecli.ErrRemote), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "invalid_input")
			})
		})
	})
}

func TestShowHelp(t *testing.T) {
	Convey("Given the help text", t, func() {
		var out bytes.Buffer
		analyzecli.ShowHelp(&out)

		Convey("Then every flag is documented", func() {
			for _, flag := range []string{"-data", "-sample", "-timeframe", "-variance", "-url", "-format", "-output", "-timeout", "-verbose", "-help"} {
				So(out.String(), ShouldContainSubstring, flag)
			}
		})
	})
}
