package nexus

// StagingRepository is a snapshot of a staging repository as reported by the repository manager.
type StagingRepository struct {
	RepositoryID  string `json:"repositoryId" yaml:"repository_id"`
	ProfileID     string `json:"profileId" yaml:"profile_id"`
	ProfileName   string `json:"profileName" yaml:"profile_name"`
	Type          string `json:"type" yaml:"type"`
	UserID        string `json:"userId" yaml:"user_id"`
	UserAgent     string `json:"userAgent" yaml:"user_agent"`
	IPAddress     string `json:"ipAddress" yaml:"ip_address"`
	Transitioning bool   `json:"transitioning" yaml:"transitioning"`
	Notifications int    `json:"notifications" yaml:"notifications"`
	Description   string `json:"description" yaml:"description"`
}

// ReleaseRequest describes a single close, promote, or drop request.
type ReleaseRequest struct {
	RepositoryID string
	ProfileName  string
	Description  string
}

type profileRepositoriesResponse struct {
	Data []StagingRepository `json:"data"`
}

type bulkRequestEnvelope struct {
	Data bulkRequestData `json:"data"`
}

type bulkRequestData struct {
	AutoDropAfterRelease *bool    `json:"autoDropAfterRelease,omitempty"`
	Description          string   `json:"description"`
	StagedRepositoryIDs  []string `json:"stagedRepositoryIds"`
}
