package swapper

import (
	"math"
	"math/rand"
	"testing"

	"github.com/dudu/faceblend/internal/geom"
	"github.com/dudu/faceblend/internal/imgbuf"
)

func TestMaskedStats(t *testing.T) {
	buf := imgbuf.New(4, 1, 3)
	mask := imgbuf.New(4, 1, 1)
	for x, v := range []byte{10, 20, 30, 250} {
		buf.Set(x, 0, 0, v)
		buf.Set(x, 0, 1, 7)
		buf.Set(x, 0, 2, v/2)
	}
	mask.Fill(255)
	mask.Set(3, 0, 0, 0)

	st := MaskedStats(buf, mask)
	if st.Count != 3 {
		t.Fatalf("Count = %d, want 3", st.Count)
	}
	if st.Mean[0] != 20 || st.Mean[1] != 7 || st.Mean[2] != 10 {
		t.Errorf("Mean = %v, want [20 7 10]", st.Mean)
	}
	if want := math.Sqrt(200.0 / 3); math.Abs(st.Std[0]-want) > 1e-9 {
		t.Errorf("Std[0] = %v, want %v", st.Std[0], want)
	}
	if st.Std[1] != 0 {
		t.Errorf("Std[1] = %v, want 0", st.Std[1])
	}
}

func TestMaskedStatsEmptyMask(t *testing.T) {
	st := MaskedStats(imgbuf.New(5, 5, 3), imgbuf.New(5, 5, 1))
	if st.Count != 0 || st.Mean != [3]float64{} {
		t.Errorf("stats of empty mask = %+v", st)
	}
}

func TestMatchStats(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	buf := imgbuf.New(20, 20, 4)
	mask := imgbuf.New(20, 20, 1)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			p := buf.Pixel(x, y)
			p[0], p[1], p[2], p[3] = byte(60+rng.Intn(40)), byte(rng.Intn(256)), byte(100+rng.Intn(20)), 42
		}
	}
	mask.Region(geom.R(2, 2, 16, 16)).Fill(255)
	outside := append([]byte(nil), buf.Pixel(0, 0)...)

	want := ChannelStats{Mean: [3]float64{150, 128, 40}, Std: [3]float64{10, 30, 5}}
	MatchStats(buf, mask, MaskedStats(buf, mask), want)

	got := MaskedStats(buf, mask)
	for c := 0; c < 3; c++ {
		if math.Abs(got.Mean[c]-want.Mean[c]) > 1 {
			t.Errorf("channel %d mean = %.2f, want %.0f", c, got.Mean[c], want.Mean[c])
		}
		if math.Abs(got.Std[c]-want.Std[c]) > 1 {
			t.Errorf("channel %d std = %.2f, want %.0f", c, got.Std[c], want.Std[c])
		}
	}
	if got := buf.Pixel(0, 0); string(got) != string(outside) {
		t.Errorf("unmasked pixel changed: %v -> %v", outside, got)
	}
	if buf.At(10, 10, 3) != 42 {
		t.Error("alpha channel changed")
	}
}

func TestMatchStatsFlatTarget(t *testing.T) {
	buf := imgbuf.New(3, 3, 3)
	buf.FillColor(90, 90, 90)
	mask := imgbuf.New(3, 3, 1)
	mask.Fill(1)

	want := ChannelStats{Mean: [3]float64{200, 10, 128}, Std: [3]float64{50, 50, 50}}
	MatchStats(buf, mask, MaskedStats(buf, mask), want)
	for _, v := range [][]byte{buf.Pixel(0, 0), buf.Pixel(2, 2)} {
		if v[0] != 200 || v[1] != 10 || v[2] != 128 {
			t.Errorf("flat pixel = %v, want [200 10 128]", v)
		}
	}
}
