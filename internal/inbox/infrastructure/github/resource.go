package github

import (
	"net/url"
	"strings"
)

const (
	// DefaultRepo is the private repository both devices sync through.
	DefaultRepo = ".taskboard"
	// DefaultPath is the inbox file inside DefaultRepo.
	DefaultPath = "inbox.json"
)

// Resource identifies one JSON file in a GitHub repository.
type Resource struct {
	Owner string
	Repo  string
	Path  string
}

// InboxResource returns the inbox file of owner's sync repository.
func InboxResource(owner string) Resource {
	return Resource{Owner: owner, Repo: DefaultRepo, Path: DefaultPath}
}

// Key is the cache identity of the resource.
func (r Resource) Key() string {
	return r.Owner + "/" + r.Repo + "/" + r.Path
}

// String implements fmt.Stringer.
func (r Resource) String() string {
	return r.Key()
}

func (r Resource) contentsURL(baseURL string) string {
	segments := strings.Split(strings.Trim(r.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") +
		"/repos/" + url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Repo) +
		"/contents/" + strings.Join(segments, "/")
}
