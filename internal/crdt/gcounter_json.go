package crdt

import "encoding/json"

// MarshalJSON emits the canonical form described in spec.md §4.1:
// encoding/json already sorts map keys, so two GCounters with identical
// state always produce byte-identical JSON.
func (g GCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.toWire())
}

func (g *GCounter) UnmarshalJSON(data []byte) error {
	var w gcounterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*g = gcounterFromWire(w)
	return nil
}
