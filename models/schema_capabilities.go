package models

// SchemaCapabilities records which optional revenue source tables exist
// in this deployment, and which region column (if any) each carries.
// Resolved once per run and consulted by the readers instead of probing
// the schema per query. A missing table means its channel contributes
// zero; it is not an error.
type SchemaCapabilities struct {
	Streams         bool
	StreamsRegion   string // region column name, "" when none
	DigitalSales    bool
	DigitalRegion   string
	VinylOrders     bool
	VinylOrderItems bool
	VinylSKUs       bool
	VinylRegion     string

	VenueSponsorships   bool
	SponsorshipAdEvents bool
	SponsorshipRegion   string

	Collaborations bool
	Songs          bool
	Albums         bool
}

// Vinyl reports whether all three tables of the vinyl channel exist.
func (c SchemaCapabilities) Vinyl() bool {
	return c.VinylOrders && c.VinylOrderItems && c.VinylSKUs
}

// Sponsorship reports whether the sponsorship channel is provisioned.
func (c SchemaCapabilities) Sponsorship() bool {
	return c.VenueSponsorships && c.SponsorshipAdEvents
}

// OwnerLookup reports whether the owner band for the work type can be
// resolved at all in this deployment.
func (c SchemaCapabilities) OwnerLookup(workType WorkType) bool {
	switch workType {
	case WorkTypeSong:
		return c.Songs
	case WorkTypeAlbum:
		return c.Albums
	default:
		return false
	}
}
