package enrichment

// Stats tallies the outcomes of one run.
type Stats struct {
	Scanned               int `json:"scanned"`
	Updated               int `json:"updated"`
	WouldUpdate           int `json:"wouldUpdate"`
	SkippedComplete       int `json:"skippedComplete"`
	SkippedNoTypeID       int `json:"skippedNoTypeId"`
	SkippedNoChanges      int `json:"skippedNoChanges"`
	Errors                int `json:"errors"`
	TypeResolvedByField   int `json:"typeResolvedByField"`
	TypeResolvedBySearch  int `json:"typeResolvedBySearch"`
	NumistaDetailRequests int `json:"numistaDetailRequests"`
	NumistaSearchRequests int `json:"numistaSearchRequests"`
	TotalDocsRead         int `json:"totalDocsRead"`
}

// StatRow is one labeled counter, in display order.
type StatRow struct {
	Name  string
	Value int
}

// Rows lists the counters in display order.
func (s Stats) Rows() []StatRow {
	return []StatRow{
		{"scanned", s.Scanned},
		{"updated", s.Updated},
		{"wouldUpdate", s.WouldUpdate},
		{"skippedComplete", s.SkippedComplete},
		{"skippedNoTypeId", s.SkippedNoTypeID},
		{"skippedNoChanges", s.SkippedNoChanges},
		{"errors", s.Errors},
		{"typeResolvedByField", s.TypeResolvedByField},
		{"typeResolvedBySearch", s.TypeResolvedBySearch},
		{"numistaDetailRequests", s.NumistaDetailRequests},
		{"numistaSearchRequests", s.NumistaSearchRequests},
		{"totalDocsRead", s.TotalDocsRead},
	}
}
