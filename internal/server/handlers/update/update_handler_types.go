package update

// Config points the release proxy at a GitHub repository.
type Config struct {
	Owner string
	Repo  string
}

type CheckQuery struct {
	Current  string `form:"current,default=0.0.0"`
	Platform string `form:"platform,default=3ds"`
}

type CheckResponse struct {
	Available      bool   `json:"available"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	Changelog      string `json:"changelog,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
}

type githubRelease struct {
	TagName string        `json:"tag_name"`
	Body    string        `json:"body"`
	Assets  []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}
