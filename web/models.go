package web

type Status struct {
	ShortGitHash string       `json:"short_git_hash"`
	CommitTime   string       `json:"commit_time"`
	Images       ImagesStatus `json:"images"`
}

type ImagesStatus struct {
	Loading  bool `json:"loading"`
	Queued   int  `json:"queued"`
	Resolved int  `json:"resolved"`
}
