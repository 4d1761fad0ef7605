package detector

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func testChannelDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `CREATE TABLE channels (
		address INTEGER PRIMARY KEY,
		subsystem TEXT NOT NULL,
		detector INTEGER NOT NULL,
		segment INTEGER NOT NULL,
		cal_offset REAL NOT NULL DEFAULT 0,
		cal_gain REAL NOT NULL DEFAULT 1,
		cal_quad REAL NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create channels table: %v", err)
	}

	rows := []Channel{
		{Address: 0x0100, Subsystem: "sili", Detector: 1, Segment: 0, CalOffset: 0.5, CalGain: 0.55, CalQuad: 0},
		{Address: 0x0101, Subsystem: "sili", Detector: 1, Segment: 1, CalOffset: 0.2, CalGain: 0.54, CalQuad: 1e-7},
		{Address: 0x0200, Subsystem: "bgo", Detector: 2, Segment: 0, CalOffset: 0, CalGain: 1.1, CalQuad: 0},
	}
	for _, ch := range rows {
		_, err := db.Exec(`INSERT INTO channels
			(address, subsystem, detector, segment, cal_offset, cal_gain, cal_quad)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ch.Address, ch.Subsystem, ch.Detector, ch.Segment, ch.CalOffset, ch.CalGain, ch.CalQuad)
		if err != nil {
			t.Fatalf("insert channel: %v", err)
		}
	}
	return db
}

func TestLoadChannelMap(t *testing.T) {
	db := testChannelDB(t)

	m, err := LoadChannelMap(context.Background(), db, "")
	if err != nil {
		t.Fatalf("LoadChannelMap: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("loaded %d channels, want 3", m.Len())
	}

	ch, ok := m.Lookup(0x0101)
	if !ok {
		t.Fatal("address 0x0101 not found")
	}
	if ch.Subsystem != "sili" || ch.Detector != 1 || ch.Segment != 1 {
		t.Errorf("channel = %+v, want sili detector 1 segment 1", ch)
	}
	if ch.CalGain != 0.54 {
		t.Errorf("CalGain = %g, want 0.54", ch.CalGain)
	}

	if _, ok := m.Lookup(0xdead); ok {
		t.Error("unmapped address should not resolve")
	}
}

func TestLoadChannelMapBySubsystem(t *testing.T) {
	db := testChannelDB(t)

	m, err := LoadChannelMap(context.Background(), db, "sili")
	if err != nil {
		t.Fatalf("LoadChannelMap: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("loaded %d sili channels, want 2", m.Len())
	}
	if _, ok := m.Lookup(0x0200); ok {
		t.Error("bgo channel should not load under the sili filter")
	}
}

func TestChannelMapAddressesSorted(t *testing.T) {
	m := NewChannelMap([]Channel{
		{Address: 0x0300},
		{Address: 0x0100},
		{Address: 0x0200},
	})
	addrs := m.Addresses()
	want := []uint32{0x0100, 0x0200, 0x0300}
	if len(addrs) != len(want) {
		t.Fatalf("Addresses returned %d entries, want %d", len(addrs), len(want))
	}
	for i := range want {
		if addrs[i] != want[i] {
			t.Errorf("Addresses[%d] = 0x%04x, want 0x%04x", i, addrs[i], want[i])
		}
	}
}

func TestChannelCalibrate(t *testing.T) {
	ch := Channel{CalOffset: 1, CalGain: 0.5, CalQuad: 0.001}
	// 1 + 0.5*100 + 0.001*10000 = 61
	if got := ch.Calibrate(100); got != 61 {
		t.Errorf("Calibrate(100) = %g, want 61", got)
	}
}
