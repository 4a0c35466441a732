package handler

// ListDatabasesResponse is returned by GET /api/databases.
type ListDatabasesResponse struct {
	Success   bool     `json:"success"`
	Count     int      `json:"count"`
	Databases []string `json:"databases"`
}

// MessageResponse is the success envelope of create and migrate.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyDatabaseResponse is returned by POST /api/databases/verify for both
// the found and the not-found case.
type VerifyDatabaseResponse struct {
	Success bool   `json:"success"`
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}
