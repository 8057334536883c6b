package handler

// CreateCircuitRequest is the HTTP request body for POST /circuits.
type CreateCircuitRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	StationCount int    `json:"station_count"`
}

// AddStationRequest is the HTTP request body for POST /circuits/{id}/stations.
type AddStationRequest struct {
	Rank           int    `json:"rank"`
	AssignedUserID string `json:"assigned_user_id"`
	Conditions     string `json:"conditions"`
}
