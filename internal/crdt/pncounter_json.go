package crdt

import "encoding/json"

func (p PNCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.toWire())
}

func (p *PNCounter) UnmarshalJSON(data []byte) error {
	var w pncounterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = pncounterFromWire(w)
	return nil
}
