package math

import (
	"testing"
)

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	got := v.Length()
	want := float32(5)
	if got != want {
		t.Errorf("Vec2.Length() = %v, want %v", got, want)
	}
}

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3, 4}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec2.Normalize().Length() = %v, want ~1", l)
	}

	if z := (Vec2{}).Normalize(); !z.IsZero() {
		t.Errorf("zero Vec2.Normalize() = %v, want zero", z)
	}
}

func TestVec2Perp(t *testing.T) {
	v := Vec2{0, 1}
	p := v.Perp()
	if p != (Vec2{1, 0}) {
		t.Errorf("Vec2{0,1}.Perp() = %v, want {1 0}", p)
	}
	if v.Dot(p) != 0 {
		t.Errorf("perpendicular dot = %v, want 0", v.Dot(p))
	}
}

func TestVec2Cos(t *testing.T) {
	tests := []struct {
		a, b Vec2
		want float32
	}{
		{Vec2{1, 0}, Vec2{2, 0}, 1},
		{Vec2{1, 0}, Vec2{-3, 0}, -1},
		{Vec2{1, 0}, Vec2{0, 5}, 0},
		{Vec2{}, Vec2{0, 5}, 0},
	}

	for _, tt := range tests {
		got := tt.a.Cos(tt.b)
		if absf(got-tt.want) > 1e-6 {
			t.Errorf("%v.Cos(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{0, 512, 0},
		{511, 512, 0},
		{512, 512, 1},
		{-1, 512, -1},
		{-512, 512, -1},
		{-513, 512, -2},
	}

	for _, tt := range tests {
		if got := FloorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("FloorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	if !a.Overlaps(Rect{5, 5, 10, 10}) {
		t.Error("expected overlapping rects")
	}
	if a.Overlaps(Rect{11, 0, 5, 5}) {
		t.Error("expected disjoint rects")
	}
	if !a.Contains(Vec2{10, 10}) {
		t.Error("expected corner to be contained")
	}
}

func TestMovingAverage(t *testing.T) {
	m := NewMovingAverage(3)
	if m.Value() != 0 {
		t.Errorf("empty average = %v, want 0", m.Value())
	}

	m.Add(1)
	m.Add(2)
	if m.Value() != 1.5 {
		t.Errorf("average of 1,2 = %v, want 1.5", m.Value())
	}

	m.Add(3)
	m.Add(10) // evicts 1
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}
	if m.Value() != 5 {
		t.Errorf("average of 2,3,10 = %v, want 5", m.Value())
	}

	m.Reset()
	if m.Count() != 0 || m.Value() != 0 {
		t.Errorf("after Reset count=%d value=%v, want 0 and 0", m.Count(), m.Value())
	}

	if NewMovingAverage(0).Size() != 1 {
		t.Error("size below 1 should be raised to 1")
	}
}
