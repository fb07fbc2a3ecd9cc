package domain

import "time"

// Project is a single scraped school-construction project.
// Data holds the full label/value map from the application summary page;
// the named columns are the fields the dashboard filters and joins on.
type Project struct {
	ID           int64             `json:"id"`
	OriginID     string            `json:"origin_id"`
	AppID        string            `json:"app_id"`
	CountyID     string            `json:"county_id"`
	ClientID     string            `json:"client_id"`
	DistrictCode string            `json:"district_code"`
	DistrictName string            `json:"district_name"`
	DsaAppID     string            `json:"dsa_app_id"`
	PTN          string            `json:"ptn"`
	Name         string            `json:"project_name"`
	Data         map[string]string `json:"data"`
	ScrapedAt    time.Time         `json:"scraped_at"`
}

// ProjectKey identifies a project on the tracker site
type ProjectKey struct {
	OriginID string
	AppID    string
}

// ProjectListParams are parameters for listing projects
type ProjectListParams struct {
	Category *Category
	Limit    int
	Offset   int
}

// ProjectFilter narrows exports by amount and date thresholds
type ProjectFilter struct {
	EstimatedAmtMin   *float64
	ReceivedDateAfter *time.Time
	ApprovedDateAfter *time.Time
}
