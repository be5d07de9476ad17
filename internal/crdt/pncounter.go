package crdt

// PNCounter is a positive-negative counter built from two G-Counters.
// Its value floors at zero; the floor is a display convenience only —
// the underlying inc/dec state is never clamped, so merge stays
// commutative and idempotent regardless of how lopsided inc and dec get.
type PNCounter struct {
	inc GCounter
	dec GCounter
}

// ZeroPNCounter returns the identity element for merge.
func ZeroPNCounter() PNCounter {
	return PNCounter{inc: ZeroGCounter(), dec: ZeroGCounter()}
}

// Inc returns a new PNCounter with the increment side bumped.
func (p PNCounter) Inc(replica ReplicaID, delta uint64) PNCounter {
	return PNCounter{inc: p.inc.Inc(replica, delta), dec: p.dec}
}

// Dec returns a new PNCounter with the decrement side bumped.
func (p PNCounter) Dec(replica ReplicaID, delta uint64) PNCounter {
	return PNCounter{inc: p.inc, dec: p.dec.Inc(replica, delta)}
}

// Value is max(sum(inc) - sum(dec), 0).
func (p PNCounter) Value() uint64 {
	inc, dec := p.inc.Value(), p.dec.Value()
	if dec >= inc {
		return 0
	}
	return inc - dec
}

// Merge merges the inc and dec sides independently.
func (p PNCounter) Merge(other PNCounter) PNCounter {
	return PNCounter{inc: p.inc.Merge(other.inc), dec: p.dec.Merge(other.dec)}
}

type pncounterWire struct {
	Inc GCounter `json:"inc"`
	Dec GCounter `json:"dec"`
}

func (p PNCounter) toWire() pncounterWire {
	return pncounterWire{Inc: p.inc, Dec: p.dec}
}

func pncounterFromWire(w pncounterWire) PNCounter {
	return PNCounter{inc: w.Inc, dec: w.Dec}
}
