package poller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/market/markettest"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/render"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type update struct {
	cell    render.Cell
	label   string
	text    string
	changed bool
}

type updateLog struct {
	updates []update
}

func (u *updateLog) OnUpdate(cell render.Cell, label, priceText string, changed bool) {
	u.updates = append(u.updates, update{cell, label, priceText, changed})
}

func testConfig() Config {
	return Config{PriceSelector: ".price", Timeout: time.Second, Columns: 4}
}

func snapshotOf(f *markettest.Fetcher, n int) market.Snapshot {
	var snap market.Snapshot
	for i := 0; i < n; i++ {
		u := fmt.Sprintf("https://polymarket.com/event/m-%d", i)
		f.SetPage(u, markettest.MarketPage("60¢", "40¢"))
		snap.Entries = append(snap.Entries, market.Entry{ID: fmt.Sprintf("m-%d", i), SourceURL: u})
	}
	return snap
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"60¢", "60", false},
		{" 40 ¢ ", "40", false},
		{"$0.65", "0.65", false},
		{"<1¢", "1", false},
		{"1,250", "1250", false},
		{"--", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePrice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// go test -v --run TestSweepIsolatesFailures
func TestSweepIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := markettest.NewFetcher()
	snap := snapshotOf(f, 10)
	// market 3 never shows its prices
	f.SetPage(snap.Entries[3].SourceURL, &markettest.FakePage{Elements: map[string][]market.Element{}})

	updates := &updateLog{}
	p := New(testConfig(), memorystore.NewPriceStore(), updates, zap.New(core))

	res := p.Sweep(context.Background(), f, snap, nil)

	if res.Polled != 9 || res.Failed != 1 || res.Interrupted {
		t.Fatalf("result = %+v, want 9 polled, 1 failed", res)
	}
	if len(updates.updates) != 9 {
		t.Fatalf("updates = %d, want 9", len(updates.updates))
	}
	if n := f.CountFetches(snap.Entries[3].SourceURL); n != 1 {
		t.Errorf("failed market fetched %d times, want 1", n)
	}

	warn := logs.FilterMessage("market poll failed").All()
	if len(warn) != 1 {
		t.Fatalf("warn logs = %d, want 1", len(warn))
	}
	var pe *market.PollError
	err, _ := warn[0].ContextMap()["error"].(string)
	if err == "" {
		t.Error("warn log missing error field")
	}
	_, _, _, perr := p.PollOne(context.Background(), f, snap.Entries[3])
	if !errors.As(perr, &pe) || pe.MarketID != "m-3" || !errors.Is(perr, market.ErrTimeout) {
		t.Errorf("PollOne error = %v, want PollError wrapping ErrTimeout", perr)
	}
}

// go test -v --run TestSweepOrderAndPositions
func TestSweepOrderAndPositions(t *testing.T) {
	f := markettest.NewFetcher()
	snap := snapshotOf(f, 6)
	updates := &updateLog{}
	p := New(testConfig(), memorystore.NewPriceStore(), updates, nil)

	p.Sweep(context.Background(), f, snap, nil)

	for i, u := range updates.updates {
		if u.label != snap.Entries[i].ID {
			t.Errorf("update %d label = %q, want %q", i, u.label, snap.Entries[i].ID)
		}
		if want := (render.Cell{Row: i / 4, Col: i % 4}); u.cell != want {
			t.Errorf("update %d cell = %+v, want %+v", i, u.cell, want)
		}
		if u.text != "YES 60¢ / NO 40¢" {
			t.Errorf("update %d text = %q", i, u.text)
		}
		if u.changed {
			t.Errorf("first observation of %s reported as changed", u.label)
		}
	}
}

func TestSweepReportsChange(t *testing.T) {
	f := markettest.NewFetcher()
	snap := snapshotOf(f, 2)
	updates := &updateLog{}
	p := New(testConfig(), memorystore.NewPriceStore(), updates, nil)

	p.Sweep(context.Background(), f, snap, nil)
	f.SetPage(snap.Entries[1].SourceURL, markettest.MarketPage("65¢", "35¢"))
	res := p.Sweep(context.Background(), f, snap, nil)

	if res.Changed != 1 {
		t.Fatalf("changed = %d, want 1", res.Changed)
	}
	last := updates.updates[len(updates.updates)-2:]
	if last[0].changed || !last[1].changed {
		t.Errorf("second sweep updates = %+v", last)
	}
	if last[1].text != "YES 65¢ / NO 35¢" {
		t.Errorf("text = %q", last[1].text)
	}
}

func TestSweepStopsBetweenItems(t *testing.T) {
	f := markettest.NewFetcher()
	snap := snapshotOf(f, 5)
	updates := &updateLog{}
	p := New(testConfig(), memorystore.NewPriceStore(), updates, nil)

	stopped := func() bool { return len(f.Fetches()) >= 2 }
	res := p.Sweep(context.Background(), f, snap, stopped)

	if !res.Interrupted || res.Polled != 2 {
		t.Errorf("result = %+v, want interrupted after 2", res)
	}
}
