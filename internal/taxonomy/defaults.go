package taxonomy

// DefaultCampaigns is the seed bucket -> campaign-names mapping, used until
// an operator saves a custom mapping document.
var DefaultCampaigns = map[string][]string{
	"California Brand": {"CA-EN-Brand"},
	"California Prospecting": {
		"GS_NonBrand - CA",
		"CA-Pmax-EN-MVA",
		"CA-SF-Pmax-EN-MVA",
		"CA-SC-Pmax-EN-MVA",
		"SC-S-EN-MVA Manual w/ ECPC",
	},
	"California LSA": {
		"LocalServicesCampaign:CA",
		"CA-NB-LSA",
		"CA-LA-LSA",
	},
	"Arizona Brand": {"AZ-EN-Brand", "GS_Brand - AZ"},
	"Arizona Prospecting": {
		"GS_NonBrand - AZ",
		"AZ-Pmax-EN-MVA",
		"AZ-PX-Pmax-EN-MVA",
		"PMAX_AZ",
	},
	"Arizona LSA": {
		"LocalServicesCampaign:AZ",
		"AZ-PX-LSA",
	},
	"Georgia Brand": {
		"GA-EN-Brand",
		"GS_Brand - GA",
		"GS_Brand - GA - ATLPI",
	},
	"Georgia Prospecting": {
		"GS_NonBrand - GA",
		"GS_NonBrand - GA - ATLPI",
		"GA-AT-Pmax-EN-MVA",
		"PMAX_GA",
	},
	"Georgia LSA": {
		"LocalServicesCampaign:GA",
		"GA-RO-LSA",
	},
	"Texas Brand": {"TX-EN-Brand"},
	"Texas LSA":   {"LocalServicesCampaign:TX"},
}

// DefaultUTM is the seed utm -> bucket mapping.
var DefaultUTM = map[string]string{
	"CA-EN-Brand": "California Brand",

	"gs_nonbrand-ca": "California Prospecting",
	"ca-pmax-en-mva": "California Prospecting",
	"pmax_ca":        "California Prospecting",

	"CA-NB-LSA": "California LSA",
	"CA-LA-LSA": "California LSA",

	"AZ-EN-Brand": "Arizona Brand",
	"gs_brand-az": "Arizona Brand",

	"gs_nonbrand-az": "Arizona Prospecting",
	"pmax_az":        "Arizona Prospecting",

	"AZ-PX-LSA": "Arizona LSA",

	"GA-EN-Brand": "Georgia Brand",

	"gs_nonbrand-ga":       "Georgia Prospecting",
	"gs_nonbrand-ga-atlpi": "Georgia Prospecting",
	"pmax_ga":              "Georgia Prospecting",

	"GA-RO-LSA": "Georgia LSA",

	"TX-EN-Brand": "Texas Brand",

	"GMB - Newport Beach": "California Prospecting",
}

// DefaultLSAAccounts maps Local Services ad-account customer ids to their
// LSA buckets where the account display name is not a reliable locality hint.
var DefaultLSAAccounts = map[string]string{
	"2419159990": "Arizona LSA",
	"2065821782": "California LSA",
}

// Default builds a Taxonomy seeded with the built-in mappings.
func Default() *Taxonomy {
	return New(DefaultCampaigns, DefaultUTM, DefaultLSAAccounts)
}
