package report

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/classifier"
	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/runner"
)

func day(d int) time.Time {
	return time.Date(2021, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregate(t *testing.T) {
	results := []runner.Result{
		{Date: day(16), Label: classifier.ProIntervention},
		{Date: day(15), Label: classifier.ProMarket},
		{Date: day(15), Label: classifier.ProIntervention},
		{Date: day(15), Label: classifier.ProIntervention},
		{Date: day(20), Label: classifier.ProMarket},
	}

	points := Aggregate(results)
	if len(points) != 3 {
		t.Fatalf("expected 3 days, got %d", len(points))
	}

	want := []DailyPoint{
		{Date: day(15), Mean: 2.0 / 3.0, Count: 3},
		{Date: day(16), Mean: 1, Count: 1},
		{Date: day(20), Mean: 0, Count: 1},
	}
	for i, w := range want {
		p := points[i]
		if !p.Date.Equal(w.Date) || p.Count != w.Count || math.Abs(p.Mean-w.Mean) > 1e-9 {
			t.Errorf("point %d: got %+v, want %+v", i, p, w)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	if points := Aggregate(nil); len(points) != 0 {
		t.Fatalf("expected no points, got %v", points)
	}
}

func TestOverall(t *testing.T) {
	mean, n := Overall([]DailyPoint{{Mean: 1, Count: 3}, {Mean: 0, Count: 1}})
	if n != 4 || mean != 0.75 {
		t.Fatalf("expected 0.75 over 4, got %v over %d", mean, n)
	}
	if _, n := Overall(nil); n != 0 {
		t.Fatalf("expected 0 count, got %d", n)
	}
}

func TestRenderPNG(t *testing.T) {
	points := Aggregate([]runner.Result{
		{Date: day(15), Label: classifier.ProMarket},
		{Date: day(16), Label: classifier.ProIntervention},
		{Date: day(18), Label: classifier.ProIntervention},
		{Date: day(18), Label: classifier.ProMarket},
	})

	path := filepath.Join(t.TempDir(), "trend.png")
	if err := RenderPNG(points, path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("chart is not a valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1600 || b.Dy() != 900 {
		t.Fatalf("expected 1600x900, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRender_SinglePoint(t *testing.T) {
	r := NewChartRenderer()
	r.Width, r.Height = 400, 300
	img, err := r.Render([]DailyPoint{{Date: day(1), Mean: 0.5, Count: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 {
		t.Fatalf("expected custom width, got %d", img.Bounds().Dx())
	}
}

func TestRender_ManyPoints(t *testing.T) {
	var points []DailyPoint
	for i := 0; i < 400; i++ {
		points = append(points, DailyPoint{Date: day(1).AddDate(0, 0, i), Mean: float64(i%2), Count: 1})
	}
	if _, err := NewChartRenderer().Render(points); err != nil {
		t.Fatal(err)
	}
}

func TestRender_NoData(t *testing.T) {
	if _, err := NewChartRenderer().Render(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
