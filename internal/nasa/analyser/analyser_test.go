package analyser

import (
	"testing"

	"github.com/tlindal/nasasniff/internal/nasa"
)

func samplePacket(messageNumber uint16, value uint8, timestamp string) nasa.Packet {
	return nasa.Packet{
		Source:      nasa.Address{Class: nasa.ClassIndoor},
		Destination: nasa.Address{Class: nasa.ClassOutdoor},
		Command:     nasa.Command{DataType: nasa.DataTypeNotification},
		Messages: []nasa.MessageSet{
			{MessageNumber: messageNumber, Kind: nasa.KindEnum, Enum: value},
		},
		RawFrame:  []byte{0x32, 0x34},
		Timestamp: timestamp,
	}
}

func TestObserve_GroupsBySignatureIgnoringValue(t *testing.T) {
	a := New(Config{})

	a.Observe(samplePacket(0x4000, 1, "2026-01-01 00:00:00.000"))
	a.Observe(samplePacket(0x4000, 99, "2026-01-01 00:00:01.000"))

	stats := a.Stats()
	if stats.Total != 2 {
		t.Fatalf("expected total 2, got %d", stats.Total)
	}
	if stats.UniqueGroups != 1 {
		t.Fatalf("expected 1 unique group, got %d", stats.UniqueGroups)
	}

	report := a.Report()
	if len(report) != 1 {
		t.Fatalf("expected 1 group in report, got %d", len(report))
	}
	g := report[0]
	if g.Count != 2 {
		t.Fatalf("expected count 2, got %d", g.Count)
	}
	if g.FirstSeen >= g.LastSeen {
		t.Fatalf("expected first_seen < last_seen, got %s >= %s", g.FirstSeen, g.LastSeen)
	}
	if g.Example.Messages[0].Enum != 1 {
		t.Fatalf("expected example to be the first observation, got enum=%d", g.Example.Messages[0].Enum)
	}
}

func TestObserve_DistinctSignaturesCreateDistinctGroups(t *testing.T) {
	a := New(Config{})
	a.Observe(samplePacket(0x4000, 1, "t0"))
	a.Observe(samplePacket(0x4001, 1, "t1"))

	if stats := a.Stats(); stats.UniqueGroups != 2 {
		t.Fatalf("expected 2 unique groups, got %d", stats.UniqueGroups)
	}
}

func TestReport_SortedByCountDescendingThenFirstSeen(t *testing.T) {
	a := New(Config{})
	// group A observed first, only once
	a.Observe(samplePacket(0x4000, 1, "t0"))
	// group B observed second, but twice
	a.Observe(samplePacket(0x4001, 1, "t1"))
	a.Observe(samplePacket(0x4001, 2, "t2"))
	// group C observed third, once
	a.Observe(samplePacket(0x4002, 1, "t3"))

	report := a.Report()
	if len(report) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(report))
	}
	if report[0].Count != 2 {
		t.Fatalf("expected the 2-count group first, got count=%d", report[0].Count)
	}
	// the two count==1 groups tie-break by first_seen (insertion order): A before C
	if report[1].Signature != samplePacket(0x4000, 0, "").Signature() {
		t.Fatalf("expected group A before group C on a count tie")
	}
}

func TestHistoryLimit_BoundsRetentionButNotCount(t *testing.T) {
	a := New(Config{HistoryLimit: 2})
	for i := 0; i < 5; i++ {
		a.Observe(samplePacket(0x4000, uint8(i), "t"))
	}

	report := a.Report()
	g := report[0]
	if g.Count != 5 {
		t.Fatalf("expected count to reflect all 5 observations, got %d", g.Count)
	}
	if len(g.All) != 2 {
		t.Fatalf("expected retained history bounded to 2, got %d", len(g.All))
	}
	// oldest entries evicted first: remaining should be the last two observed
	if g.All[0].Messages[0].Enum != 3 || g.All[1].Messages[0].Enum != 4 {
		t.Fatalf("expected the two most recent observations retained, got %+v", g.All)
	}
}

func TestReset_ClearsGroupsAndCounters(t *testing.T) {
	a := New(Config{})
	a.Observe(samplePacket(0x4000, 1, "t0"))
	a.Reset()

	stats := a.Stats()
	if stats.Total != 0 || stats.UniqueGroups != 0 {
		t.Fatalf("expected a cleared analyser, got %+v", stats)
	}
	if len(a.Report()) != 0 {
		t.Fatalf("expected an empty report after reset")
	}
}
