package factset

// Upstream paths, relative to the configured base url.
const (
	CompanyMatchPath     = "/content/factset-concordance/v1/company-match"
	EntityTaskPath       = "/content/factset-concordance/v1/entity-task"
	CompanyDecisionsPath = "/content/factset-concordance/v1/company-decisions"
	SymbologyPath        = "/content/symbology/v2/factset"
)
