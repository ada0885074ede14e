package versionavailability

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/CPS-IT/typo3-upgrade-analyser/internal/version"
)

// GitSourceResult is the git source's contribution to the composite
// score (spec.md §4.6): availability of a compatible tag, a [0,1]
// health score, and the repository URL probed.
type GitSourceResult struct {
	Available               bool
	Health                  float64
	URL                     string
	LatestCompatibleVersion *version.Version
}

// GitSource inspects a remote repository's tags without cloning it,
// using go-git's remote reference listing (the library equivalent of
// `git ls-remote --tags`) to find the newest tag compatible with the
// target TYPO3 version and estimate repository health from tag count.
type GitSource struct{}

func NewGitSource() *GitSource { return &GitSource{} }

// AnalyzeExtension implements spec.md §4.6's git source contract.
func (s *GitSource) AnalyzeExtension(repoURL string, target version.Version) (GitSourceResult, error) {
	if repoURL == "" {
		return GitSourceResult{}, nil
	}

	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return GitSourceResult{URL: repoURL}, err
	}

	versions := extractTagVersions(refs)
	if len(versions) == 0 {
		return GitSourceResult{URL: repoURL}, nil
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) > 0 })

	var best *version.Version
	for i := range versions {
		if versions[i].Major == target.Major && versions[i].Minor == target.Minor && versions[i].Compare(target) >= 0 {
			v := versions[i]
			best = &v
			break
		}
	}

	return GitSourceResult{
		Available:               best != nil,
		Health:                  repositoryHealth(versions),
		URL:                     repoURL,
		LatestCompatibleVersion: best,
	}, nil
}

// repositoryHealth is a coarse [0,1] signal: more distinct release
// tags suggests an actively maintained extension. Grounded on the
// absence of a richer signal source in spec.md §4.6, which only
// requires healthScore to fall in [0,1].
func repositoryHealth(versions []version.Version) float64 {
	switch {
	case len(versions) >= 10:
		return 1.0
	case len(versions) == 0:
		return 0.0
	default:
		return float64(len(versions)) / 10.0
	}
}

func extractTagVersions(refs []*plumbing.Reference) []version.Version {
	var out []version.Version
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		raw := strings.TrimPrefix(ref.Name().Short(), "v")
		if v, ok := version.Parse(raw); ok {
			out = append(out, v)
		}
	}
	return out
}
