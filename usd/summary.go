package usd

// PrimSummary is a flat, JSON friendly view of one prim.
type PrimSummary struct {
	Path        Path   `json:"path"`
	Type        string `json:"type,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Material    Path   `json:"material,omitempty"`
	TimeSamples int    `json:"timeSamples,omitempty"`
}

type StageSummary struct {
	UpAxis             string        `json:"upAxis"`
	DefaultPrim        Path          `json:"defaultPrim,omitempty"`
	StartTimeCode      float64       `json:"startTimeCode,omitempty"`
	EndTimeCode        float64       `json:"endTimeCode,omitempty"`
	TimeCodesPerSecond float64       `json:"timeCodesPerSecond"`
	Prims              []PrimSummary `json:"prims"`
}

// Summarize lists every prim in traversal order. TimeSamples is the largest
// sample count among the prim attributes.
func Summarize(s *Stage) *StageSummary {
	sum := &StageSummary{
		UpAxis:             s.GetUpAxis(),
		TimeCodesPerSecond: s.GetTimeCodesPerSecond(),
		Prims:              make([]PrimSummary, 0),
	}
	if s.HasAuthoredTimeCodeRange() {
		sum.StartTimeCode = s.GetStartTimeCode()
		sum.EndTimeCode = s.GetEndTimeCode()
	}
	if p := s.GetDefaultPrim(); p != nil {
		sum.DefaultPrim = p.Path()
	}
	for _, p := range s.Traverse() {
		ps := PrimSummary{Path: p.Path(), Type: p.TypeName(), Kind: p.Kind()}
		if p.HasAPI(MaterialBindingAPIName) {
			if m, ok := ComputeBoundMaterial(p); ok {
				ps.Material = m.Prim().Path()
			}
		}
		for _, a := range p.Attributes() {
			if n := a.NumTimeSamples(); n > ps.TimeSamples {
				ps.TimeSamples = n
			}
		}
		sum.Prims = append(sum.Prims, ps)
	}
	return sum
}
