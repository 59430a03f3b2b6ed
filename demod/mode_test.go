package demod

import (
	"errors"
	"testing"
)

func TestDefaultModesAreValid(t *testing.T) {
	for _, s := range []Scheme{SchemeWBFM, SchemeNBFM, SchemeAM, SchemeUSB, SchemeLSB, SchemeCW} {
		m, err := DefaultMode(s)
		if err != nil {
			t.Fatalf("DefaultMode(%v): %v", s, err)
		}
		if m.Scheme != s {
			t.Errorf("DefaultMode(%v) returned scheme %v", s, m.Scheme)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("default %v mode does not validate: %v", s, err)
		}
		if _, err := New(48000, m); err != nil {
			t.Errorf("New with default %v mode: %v", s, err)
		}
	}
}

func TestUnknownScheme(t *testing.T) {
	if _, err := DefaultMode("FOO"); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("DefaultMode: got %v, want ErrUnknownScheme", err)
	}
	if err := (Mode{Scheme: "FOO"}).Validate(); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("Validate: got %v, want ErrUnknownScheme", err)
	}
	if _, err := New(48000, Mode{Scheme: "FOO"}); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("New: got %v, want ErrUnknownScheme", err)
	}
}

func TestBadModeParameters(t *testing.T) {
	for _, m := range []Mode{NBFM(0), NBFM(-100), AM(0), USB(-1), LSB(0), CW(-50)} {
		if err := m.Validate(); !errors.Is(err, ErrBadMode) {
			t.Errorf("Validate(%+v): got %v, want ErrBadMode", m, err)
		}
		if _, err := New(48000, m); !errors.Is(err, ErrBadMode) {
			t.Errorf("New(%+v): got %v, want ErrBadMode", m, err)
		}
	}
}

func TestSetModeRejectsSchemeChange(t *testing.T) {
	pairs := []struct{ from, to Mode }{
		{WBFM(true), NBFM(2500)},
		{NBFM(2500), AM(10000)},
		{AM(10000), USB(2800)},
		{USB(2800), LSB(2800)},
		{LSB(2800), USB(2800)},
		{CW(50), AM(10000)},
	}
	for _, p := range pairs {
		d, err := New(48000, p.from)
		if err != nil {
			t.Fatalf("New(%+v): %v", p.from, err)
		}
		if err := d.SetMode(p.to); !errors.Is(err, ErrSchemeChange) {
			t.Errorf("SetMode %v -> %v: got %v, want ErrSchemeChange", p.from.Scheme, p.to.Scheme, err)
		}
		if got := d.Mode().Scheme; got != p.from.Scheme {
			t.Errorf("failed SetMode changed scheme to %v", got)
		}
	}
}

func TestSetModeAdjustsParameters(t *testing.T) {
	d, err := New(48000, NBFM(2500))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetMode(NBFM(5000)); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := d.Mode().MaxDeviation; got != 5000 {
		t.Errorf("max deviation is %v, want 5000", got)
	}
	if err := d.SetMode(NBFM(0)); !errors.Is(err, ErrBadMode) {
		t.Errorf("SetMode(NBFM(0)): got %v, want ErrBadMode", err)
	}
	if got := d.Mode().MaxDeviation; got != 5000 {
		t.Errorf("failed SetMode changed max deviation to %v", got)
	}

	a, err := New(48000, AM(10000))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetMode(AM(6000)); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := a.Mode().Bandwidth; got != 6000 {
		t.Errorf("bandwidth is %v, want 6000", got)
	}

	w, err := New(48000, WBFM(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetMode(WBFM(false)); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if w.Mode().Stereo {
		t.Error("stereo flag still set after SetMode")
	}
}

func TestWBFMDeemphasis(t *testing.T) {
	m := WBFM(true)
	m.Deemphasis = 75
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d, err := New(1024000, m)
	if err != nil {
		t.Fatal(err)
	}
	m.Deemphasis = 50
	if err := d.SetMode(m); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := d.Mode().Deemphasis; got != 50 {
		t.Errorf("deemphasis is %v, want 50", got)
	}
	m.Deemphasis = -1
	if err := m.Validate(); !errors.Is(err, ErrBadMode) {
		t.Errorf("Validate(deemphasis -1): got %v, want ErrBadMode", err)
	}
}

func TestSetModeKeepsStreamRunning(t *testing.T) {
	d, err := New(1024000, AM(10000))
	if err != nil {
		t.Fatal(err)
	}
	I := make([]float32, 10240)
	Q := make([]float32, 10240)
	out := d.Demodulate(I, Q, 0)
	if len(out.Left) != 480 {
		t.Fatalf("got %d samples before SetMode, want 480", len(out.Left))
	}
	if err := d.SetMode(AM(6000)); err != nil {
		t.Fatal(err)
	}
	out = d.Demodulate(make([]float32, 10240), make([]float32, 10240), 0)
	if len(out.Left) != 480 {
		t.Fatalf("got %d samples after SetMode, want 480", len(out.Left))
	}
}
