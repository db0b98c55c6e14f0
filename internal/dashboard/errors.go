package dashboard

import "github.com/rotisserie/eris"

var (
	errBadYear     = eris.New("dashboard: year query parameter required")
	errUTMRequired = eris.New("dashboard: utm query parameter required")
	errUTMNotFound = eris.New("dashboard: utm mapping not found")
)
